package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shortreel/backend/internal/auth"
	"github.com/shortreel/backend/internal/logging"
	"github.com/shortreel/backend/internal/middleware"
	"github.com/shortreel/backend/internal/models"
	"github.com/shortreel/backend/internal/repositories"
)

// AuthHandler implements registration, sign-in and session endpoints.
type AuthHandler struct {
	Users         UserStore
	Authenticator Authenticator
	Sessions      SessionManager
	Feed          FeedInvalidator
	SecureCookies bool
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,bcryptlen"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type profilePictureRequest struct {
	ProfilePicture string `json:"profilePicture" validate:"required"`
}

type sessionResponse struct {
	User    models.Identity `json:"user"`
	Expires time.Time       `json:"expires"`
}

func newSessionResponse(token auth.Token) sessionResponse {
	return sessionResponse{User: token.Session.Identity(), Expires: token.ExpiresAt}
}

// Register handles POST /api/auth/register.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil {
		logger.Error("user store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req, false); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = repositories.NormalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		respondInvalid(ctx, w, err)
		return
	}

	if _, err := h.Users.FindByEmail(ctx, req.Email); err == nil {
		respondError(ctx, w, http.StatusBadRequest, "email already exists")
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("register email lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	}

	if _, err := h.Users.FindByUsername(ctx, req.Username); err == nil {
		respondError(ctx, w, http.StatusBadRequest, "username already exists")
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("register username lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	}

	user := models.User{Username: req.Username, Email: req.Email, Password: req.Password}
	if err := h.Users.Create(ctx, &user); err != nil {
		var verr *repositories.ValidationError
		switch {
		case errors.Is(err, repositories.ErrConflict):
			field := repositories.ConflictField(err)
			if field == "" {
				field = "account"
			}
			respondError(ctx, w, http.StatusBadRequest, field+" already exists")
		case errors.As(err, &verr):
			respondJSON(ctx, w, http.StatusBadRequest, &ValidationError{Message: "invalid fields", Fields: verr.Fields})
		default:
			logger.Error("register create failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		}
		return
	}

	logger.Info("user registered", "userId", user.ID)
	respondJSON(ctx, w, http.StatusCreated, map[string]string{"message": "user registered successfully"})
}

// Login handles POST /api/auth/login.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Authenticator == nil || h.Sessions == nil {
		logger.Error("authentication dependencies unavailable", "hasAuthenticator", h.Authenticator != nil, "hasSessions", h.Sessions != nil)
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateRequest(req); err != nil {
		respondInvalid(ctx, w, err)
		return
	}

	identity, err := h.Authenticator.Authorize(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			respondError(ctx, w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword):
			respondError(ctx, w, http.StatusUnauthorized, err.Error())
		default:
			logger.Error("login authorize failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to sign in")
		}
		return
	}

	token, err := h.Sessions.Issue(ctx, identity)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", identity.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	middleware.SetSessionCookie(w, token.Value, token.ExpiresAt, h.SecureCookies)
	respondJSON(ctx, w, http.StatusOK, newSessionResponse(token))
}

// Logout handles POST /api/auth/logout. It always clears the cookie; a valid
// session is also revoked so a copied token stops working.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if session, ok := auth.SessionFromContext(ctx); ok && h.Sessions != nil {
		if err := h.Sessions.Revoke(ctx, session); err != nil {
			logging.FromContext(ctx).Error("revoke session failed", "error", err, "userId", session.UserID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to sign out")
			return
		}
	}

	middleware.ClearSessionCookie(w, h.SecureCookies)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"message": "signed out"})
}

// Session handles GET /api/auth/session.
func (h AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondJSON(ctx, w, http.StatusOK, sessionResponse{User: session.Identity(), Expires: session.ExpiresAt})
}

// UpdateSession handles POST /api/auth/session. It refreshes the token with
// the update trigger so profile changes show up without signing in again.
func (h AuthHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := auth.SessionFromContext(ctx)
	if !ok || h.Sessions == nil {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload auth.UpdatePayload
	if err := decodeJSON(r, &payload, true); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.Sessions.Refresh(ctx, session, auth.TriggerUpdate, &payload)
	if err != nil {
		logging.FromContext(ctx).Error("refresh session failed", "error", err, "userId", session.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to refresh session")
		return
	}

	middleware.SetSessionCookie(w, token.Value, token.ExpiresAt, h.SecureCookies)
	h.retire(ctx, session)
	respondJSON(ctx, w, http.StatusOK, newSessionResponse(token))
}

// UpdateProfilePicture handles PUT /api/auth/profile-picture.
func (h AuthHandler) UpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.Users == nil {
		logger.Error("user store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "failed to update profile picture")
		return
	}

	var req profilePictureRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ProfilePicture = strings.TrimSpace(req.ProfilePicture)
	if err := validateRequest(req); err != nil {
		respondInvalid(ctx, w, err)
		return
	}

	user, err := h.Users.UpdateProfilePicture(ctx, session.UserID, req.ProfilePicture)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error("update profile picture failed", "error", err, "userId", session.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update profile picture")
		return
	}

	if h.Sessions != nil {
		token, err := h.Sessions.Refresh(ctx, session, auth.TriggerUpdate, &auth.UpdatePayload{ProfilePicture: user.ProfilePicture})
		if err != nil {
			logger.Warn("reissue session after picture update failed", "error", err, "userId", user.ID)
		} else {
			middleware.SetSessionCookie(w, token.Value, token.ExpiresAt, h.SecureCookies)
			h.retire(ctx, session)
		}
	}
	if h.Feed != nil {
		if err := h.Feed.Invalidate(ctx); err != nil {
			logger.Warn("feed invalidate after picture update failed", "error", err, "userId", user.ID)
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{
		"message":        "profile picture updated successfully",
		"profilePicture": user.ProfilePicture,
		"userId":         user.ID,
	})
}

// retire revokes a session that a refreshed token has replaced.
func (h AuthHandler) retire(ctx context.Context, session auth.Session) {
	if err := h.Sessions.Revoke(ctx, session); err != nil {
		logging.FromContext(ctx).Warn("revoke superseded session failed", "error", err, "userId", session.UserID)
	}
}
