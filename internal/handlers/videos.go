package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shortreel/backend/internal/auth"
	"github.com/shortreel/backend/internal/logging"
	"github.com/shortreel/backend/internal/models"
	"github.com/shortreel/backend/internal/repositories"
)

// FeedDegradedHeader is set on a listing served empty because the store failed.
const FeedDegradedHeader = "X-Feed-Degraded"

// VideoHandler provides endpoints for publishing and listing videos.
type VideoHandler struct {
	Videos VideoStore
	// IncludeOwnerPicture adds the owner's picture to the feed projection.
	IncludeOwnerPicture bool
}

type transformationRequest struct {
	Height  int `json:"height" validate:"omitempty,min=1"`
	Width   int `json:"width" validate:"omitempty,min=1"`
	Quality int `json:"quality" validate:"omitempty,min=1,max=100"`
}

type createVideoRequest struct {
	Title          string                 `json:"title" validate:"required"`
	Description    string                 `json:"description" validate:"required"`
	VideoURL       string                 `json:"videoUrl" validate:"required"`
	ThumbnailURL   string                 `json:"thumbnailUrl" validate:"required"`
	Controls       *bool                  `json:"controls"`
	Transformation *transformationRequest `json:"transformation"`
}

// List handles GET /api/videos. A store failure still answers 200 with an
// empty array so the feed stays up, flagged with FeedDegradedHeader.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Videos == nil {
		logging.FromContext(ctx).Error("video store unavailable")
		w.Header().Set(FeedDegradedHeader, "true")
		respondJSON(ctx, w, http.StatusOK, []models.Video{})
		return
	}

	feed, err := h.Videos.List(ctx, repositories.ListOptions{
		IncludeOwner:        true,
		IncludeOwnerPicture: h.IncludeOwnerPicture,
	})
	if err != nil {
		logging.FromContext(ctx).Error("list videos failed", "error", err)
		w.Header().Set(FeedDegradedHeader, "true")
		respondJSON(ctx, w, http.StatusOK, []models.Video{})
		return
	}
	if feed == nil {
		feed = []models.Video{}
	}

	respondJSON(ctx, w, http.StatusOK, feed)
}

// Create handles POST /api/videos.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.Videos == nil {
		logger.Error("video store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "failed to create video")
		return
	}

	var req createVideoRequest
	if err := decodeJSON(r, &req, false); err != nil {
		logger.Warn("invalid video payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	req.ThumbnailURL = strings.TrimSpace(req.ThumbnailURL)
	if err := validateRequest(req); err != nil {
		respondInvalid(ctx, w, err)
		return
	}

	video := models.Video{
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     req.VideoURL,
		ThumbnailURL: req.ThumbnailURL,
		Controls:     true,
		Transformation: models.Transformation{
			Height:  models.DefaultVideoHeight,
			Width:   models.DefaultVideoWidth,
			Quality: models.DefaultVideoQuality,
		},
		UserID: session.UserID,
	}
	if req.Controls != nil {
		video.Controls = *req.Controls
	}
	if t := req.Transformation; t != nil {
		if t.Height > 0 {
			video.Transformation.Height = t.Height
		}
		if t.Width > 0 {
			video.Transformation.Width = t.Width
		}
		if t.Quality > 0 {
			video.Transformation.Quality = t.Quality
		}
	}

	if err := h.Videos.Create(ctx, &video); err != nil {
		var verr *repositories.ValidationError
		switch {
		case errors.As(err, &verr):
			respondJSON(ctx, w, http.StatusBadRequest, &ValidationError{Message: "invalid fields", Fields: verr.Fields})
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "user not found")
		default:
			logger.Error("create video failed", "error", err, "userId", session.UserID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to create video")
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, video)
}
