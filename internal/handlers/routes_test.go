package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shortreel/backend/internal/middleware"
)

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type got %s", got)
	}

	env.deps.Database = pingStub{err: errors.New("no route to host")}
	rec = env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/healthz", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}
}

func TestRouterGatesPages(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", "s3cret!")
	cookie := env.login(t, "ada@example.com", "s3cret!")

	tests := []struct {
		name    string
		path    string
		cookies []*http.Cookie
		wantLoc string
	}{
		{"anonymous upload", "/upload", nil, "/login"},
		{"anonymous profile sub-path", "/profile/edit", nil, "/login"},
		{"signed in login", "/login", []*http.Cookie{cookie}, "/"},
		{"signed in register", "/register", []*http.Cookie{cookie}, "/"},
		{"forged cookie upload", "/upload", []*http.Cookie{{Name: middleware.SessionCookieName, Value: "forged"}}, "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "", tt.cookies...)
			if rec.Code != http.StatusFound {
				t.Fatalf("expected redirect got %d", rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLoc {
				t.Fatalf("expected %q got %q", tt.wantLoc, got)
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/upload", "", cookie)
	if rec.Header().Get("Location") != "" {
		t.Fatalf("signed-in upload must pass the gate, got redirect %q", rec.Header().Get("Location"))
	}
}
