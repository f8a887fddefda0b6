package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shortreel/backend/internal/auth"
	"github.com/shortreel/backend/internal/logging"
)

// Session cookie names. The __Secure- variant is used when cookies are
// restricted to HTTPS; both are accepted on input.
const (
	SessionCookieName       = "shortreel.session-token"
	SecureSessionCookieName = "__Secure-" + SessionCookieName
)

// SessionVerifier turns a raw session token into a session.
type SessionVerifier interface {
	Verify(ctx context.Context, raw string) (auth.Session, error)
}

// CookieName returns the cookie name used to issue sessions.
func CookieName(secure bool) string {
	if secure {
		return SecureSessionCookieName
	}
	return SessionCookieName
}

// SessionToken returns the raw session token carried by r, if any.
func SessionToken(r *http.Request) string {
	for _, name := range []string{SecureSessionCookieName, SessionCookieName} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// SetSessionCookie writes the session token cookie.
func SetSessionCookie(w http.ResponseWriter, value string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(secure),
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires both session cookie variants.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	for _, name := range []string{SessionCookieName, SecureSessionCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure || name == SecureSessionCookieName,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// LoadSession verifies the session cookie and stores the session in the
// request context. Missing or invalid cookies leave the request anonymous.
func LoadSession(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, ok := verifySession(r, verifier); ok {
				r = r.WithContext(auth.WithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func verifySession(r *http.Request, verifier SessionVerifier) (auth.Session, bool) {
	if session, ok := auth.SessionFromContext(r.Context()); ok {
		return session, true
	}
	raw := SessionToken(r)
	if raw == "" || verifier == nil {
		return auth.Session{}, false
	}

	session, err := verifier.Verify(r.Context(), raw)
	if err != nil {
		level := slog.LevelDebug
		if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrTokenRevoked) {
			level = slog.LevelWarn
		}
		logging.FromContext(r.Context()).Log(r.Context(), level, "session cookie rejected", slog.Any("error", err))
		return auth.Session{}, false
	}
	return session, true
}
