package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/shortreel/backend/internal/auth"
	"github.com/shortreel/backend/internal/logging"
	"github.com/shortreel/backend/internal/middleware"
)

const (
	oauthStateCookie = "shortreel.oauth-state"
	oauthStateMaxAge = 10 * 60
	oauthCookiePath  = "/api/auth"
)

// Error codes appended to the login redirect after a failed external sign-in.
const (
	oauthErrorState    = "OAuthState"
	oauthErrorCallback = "OAuthCallback"
	oauthErrorDenied   = "AccessDenied"
)

// OAuthHandler runs sign-in with an external identity provider.
type OAuthHandler struct {
	Provider      OAuthProvider
	Authenticator Authenticator
	Sessions      SessionManager
	SecureCookies bool
}

// Start handles GET /api/auth/google by redirecting to the consent page.
func (h OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil {
		respondError(r.Context(), w, http.StatusNotFound, "external sign-in is not configured")
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     oauthCookiePath,
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.Provider.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /api/auth/callback/google. Any failure leaves the
// caller anonymous and sends them back to the login page.
func (h OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Provider == nil || h.Authenticator == nil || h.Sessions == nil {
		respondError(ctx, w, http.StatusNotFound, "external sign-in is not configured")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Path:     oauthCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
	})

	query := r.URL.Query()
	if query.Get("error") != "" {
		logger.Warn("external sign-in declined", "error", query.Get("error"))
		redirectLoginError(w, r, oauthErrorDenied)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	state := query.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		logger.Warn("external sign-in state mismatch")
		redirectLoginError(w, r, oauthErrorState)
		return
	}

	profile, err := h.Provider.Exchange(ctx, query.Get("code"))
	if err != nil {
		logger.Error("external code exchange failed", "error", err)
		redirectLoginError(w, r, oauthErrorCallback)
		return
	}

	identity, err := h.Authenticator.SignInExternal(ctx, profile)
	if err != nil {
		code := oauthErrorCallback
		if errors.Is(err, auth.ErrUnverifiedProfile) {
			code = oauthErrorDenied
		}
		redirectLoginError(w, r, code)
		return
	}

	token, err := h.Sessions.Issue(ctx, identity)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", identity.ID)
		redirectLoginError(w, r, oauthErrorCallback)
		return
	}

	middleware.SetSessionCookie(w, token.Value, token.ExpiresAt, h.SecureCookies)
	http.Redirect(w, r, middleware.HomePath, http.StatusFound)
}

func redirectLoginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, middleware.LoginPath+"?error="+url.QueryEscape(code), http.StatusFound)
}
