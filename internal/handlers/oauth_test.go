package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/shortreel/backend/internal/middleware"
	"github.com/shortreel/backend/internal/models"
)

type oauthProviderStub struct {
	profile models.ExternalProfile
	err     error
	codes   []string
}

func (p *oauthProviderStub) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (p *oauthProviderStub) Exchange(_ context.Context, code string) (models.ExternalProfile, error) {
	p.codes = append(p.codes, code)
	return p.profile, p.err
}

func startOAuth(t *testing.T, env *testEnv) (*http.Cookie, string) {
	t.Helper()
	rec := env.do(t, http.MethodGet, "/api/auth/google", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect got %d", rec.Code)
	}
	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == oauthStateCookie {
			return c, location.Query().Get("state")
		}
	}
	t.Fatal("expected state cookie")
	return nil, ""
}

func TestOAuthCallbackSignsIn(t *testing.T) {
	env := newTestEnv(t)
	provider := &oauthProviderStub{profile: models.ExternalProfile{
		Provider:      "google",
		Email:         "jane@example.com",
		EmailVerified: true,
		Name:          "Jane Doe",
		Picture:       "https://img/jane.png",
	}}
	env.deps.Google = provider

	stateCookie, state := startOAuth(t, env)
	if state == "" || state != stateCookie.Value {
		t.Fatalf("state mismatch %q vs %q", state, stateCookie.Value)
	}

	rec := env.do(t, http.MethodGet, "/api/auth/callback/google?code=abc&state="+url.QueryEscape(state), "", stateCookie)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect home got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	cookie := sessionCookie(t, rec)

	session, err := env.sessions.Verify(testContext(t), cookie.Value)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.Email != "jane@example.com" || session.Username != "JaneDoe" || session.ProfilePicture != "https://img/jane.png" {
		t.Fatalf("unexpected session %+v", session)
	}
	if len(provider.codes) != 1 || provider.codes[0] != "abc" {
		t.Fatalf("unexpected exchanges %v", provider.codes)
	}

	// A second sign-in reuses the same account.
	stateCookie, state = startOAuth(t, env)
	env.do(t, http.MethodGet, "/api/auth/callback/google?code=def&state="+url.QueryEscape(state), "", stateCookie)
	if len(env.users.users) != 1 {
		t.Fatalf("expected a single provisioned user got %d", len(env.users.users))
	}
}

func TestOAuthCallbackFailures(t *testing.T) {
	tests := []struct {
		name      string
		provider  *oauthProviderStub
		query     func(state string) string
		wantError string
	}{
		{
			name:      "state mismatch",
			provider:  &oauthProviderStub{},
			query:     func(string) string { return "code=abc&state=forged" },
			wantError: oauthErrorState,
		},
		{
			name:      "provider error",
			provider:  &oauthProviderStub{},
			query:     func(state string) string { return "error=access_denied&state=" + state },
			wantError: oauthErrorDenied,
		},
		{
			name:      "exchange failure",
			provider:  &oauthProviderStub{err: errors.New("bad code")},
			query:     func(state string) string { return "code=abc&state=" + state },
			wantError: oauthErrorCallback,
		},
		{
			name:      "unverified email",
			provider:  &oauthProviderStub{profile: models.ExternalProfile{Email: "x@example.com"}},
			query:     func(state string) string { return "code=abc&state=" + state },
			wantError: oauthErrorDenied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.deps.Google = tt.provider

			stateCookie, state := startOAuth(t, env)
			rec := env.do(t, http.MethodGet, "/api/auth/callback/google?"+tt.query(url.QueryEscape(state)), "", stateCookie)
			if rec.Code != http.StatusFound {
				t.Fatalf("expected redirect got %d", rec.Code)
			}
			if want := "/login?error=" + tt.wantError; rec.Header().Get("Location") != want {
				t.Fatalf("expected %q got %q", want, rec.Header().Get("Location"))
			}
			for _, c := range rec.Result().Cookies() {
				if c.Name == middleware.SessionCookieName && c.Value != "" {
					t.Fatal("failed sign-in must not set a session")
				}
			}
		})
	}
}

func TestOAuthNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/api/auth/google", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
