package handlers

import (
	"errors"
	"net/http"

	"github.com/shortreel/backend/internal/logging"
	"github.com/shortreel/backend/internal/media"
)

// MediaHandler hands out upload credentials for the media host.
type MediaHandler struct {
	Signer media.Signer
}

// UploadAuth handles GET /api/auth/imagekit-auth. The optional fileName and
// contentType query parameters are used by hosts that presign per object.
func (h MediaHandler) UploadAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Signer == nil {
		respondError(ctx, w, http.StatusInternalServerError, "media host configuration error")
		return
	}

	query := r.URL.Query()
	creds, err := h.Signer.Sign(ctx, media.UploadRequest{
		FileName:    query.Get("fileName"),
		ContentType: query.Get("contentType"),
	})
	if err != nil {
		switch {
		case errors.Is(err, media.ErrNotConfigured):
			respondError(ctx, w, http.StatusInternalServerError, "media host configuration error - missing credentials")
		case errors.Is(err, media.ErrMissingFileName):
			respondError(ctx, w, http.StatusBadRequest, err.Error())
		default:
			logging.FromContext(ctx).Error("sign upload failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "media host authentication failed")
		}
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(ctx, w, http.StatusOK, creds)
}
