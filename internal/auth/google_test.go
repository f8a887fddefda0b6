package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func newGoogleTestServer(t *testing.T, userInfoStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if userInfoStatus != http.StatusOK {
			http.Error(w, "boom", userInfoStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"1087","email":"jane@example.com","email_verified":true,"name":"Jane Doe","picture":"https://img/jane.png"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestGoogleProvider(server *httptest.Server) *GoogleProvider {
	return NewGoogleProvider("client-id", "client-secret", "http://localhost/api/auth/callback/google",
		WithGoogleEndpoint(oauth2.Endpoint{
			AuthURL:   server.URL + "/auth",
			TokenURL:  server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}, server.URL+"/userinfo"),
	)
}

func TestGoogleProviderAuthCodeURL(t *testing.T) {
	provider := NewGoogleProvider("client-id", "secret", "http://localhost/cb")

	raw := provider.AuthCodeURL("state-xyz")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	query := parsed.Query()
	if query.Get("state") != "state-xyz" {
		t.Fatalf("unexpected state %q", query.Get("state"))
	}
	if query.Get("client_id") != "client-id" || query.Get("redirect_uri") != "http://localhost/cb" {
		t.Fatalf("unexpected client params %v", query)
	}
	if !strings.Contains(query.Get("scope"), "email") {
		t.Fatalf("expected email scope got %q", query.Get("scope"))
	}
}

func TestGoogleProviderExchange(t *testing.T) {
	server := newGoogleTestServer(t, http.StatusOK)
	provider := newTestGoogleProvider(server)

	profile, err := provider.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if profile.Provider != ProviderGoogle || profile.Subject != "1087" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if profile.Email != "jane@example.com" || !profile.EmailVerified {
		t.Fatalf("unexpected email fields %+v", profile)
	}
	if profile.Name != "Jane Doe" || profile.Picture != "https://img/jane.png" {
		t.Fatalf("unexpected name or picture %+v", profile)
	}
}

func TestGoogleProviderExchangeFailures(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		provider := newTestGoogleProvider(newGoogleTestServer(t, http.StatusOK))
		if _, err := provider.Exchange(context.Background(), ""); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("bad code", func(t *testing.T) {
		provider := newTestGoogleProvider(newGoogleTestServer(t, http.StatusOK))
		if _, err := provider.Exchange(context.Background(), "bad-code"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("userinfo failure", func(t *testing.T) {
		provider := newTestGoogleProvider(newGoogleTestServer(t, http.StatusInternalServerError))
		if _, err := provider.Exchange(context.Background(), "good-code"); err == nil {
			t.Fatal("expected error")
		}
	})
}
