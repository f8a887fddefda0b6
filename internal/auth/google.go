package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/shortreel/backend/internal/models"
)

const (
	// ProviderGoogle identifies profiles asserted by Google.
	ProviderGoogle = "google"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleProvider runs the OAuth 2.0 authorization code flow against Google
// and turns the result into a verified external profile.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// GoogleOption customises a GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithGoogleEndpoint overrides the OAuth endpoints. Useful for tests.
func WithGoogleEndpoint(endpoint oauth2.Endpoint, userInfoURL string) GoogleOption {
	return func(p *GoogleProvider) {
		p.config.Endpoint = endpoint
		if userInfoURL != "" {
			p.userInfoURL = userInfoURL
		}
	}
}

// NewGoogleProvider constructs a provider for the given OAuth client.
func NewGoogleProvider(clientID, clientSecret, redirectURL string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AuthCodeURL returns the consent page URL carrying the anti-forgery state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the user's profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (models.ExternalProfile, error) {
	if code == "" {
		return models.ExternalProfile{}, errors.New("google: missing authorization code")
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return models.ExternalProfile{}, fmt.Errorf("google: exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return models.ExternalProfile{}, fmt.Errorf("google: build userinfo request: %w", err)
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return models.ExternalProfile{}, fmt.Errorf("google: fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.ExternalProfile{}, fmt.Errorf("google: userinfo status %d: %s", resp.StatusCode, body)
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.ExternalProfile{}, fmt.Errorf("google: decode userinfo: %w", err)
	}

	return models.ExternalProfile{
		Provider:      ProviderGoogle,
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}
