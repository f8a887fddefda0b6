package handlers

import (
	"context"

	"github.com/shortreel/backend/internal/auth"
	"github.com/shortreel/backend/internal/models"
	"github.com/shortreel/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	UpdateProfilePicture(ctx context.Context, id, picture string) (models.User, error)
}

// Authenticator resolves credentials and external assertions to identities.
type Authenticator interface {
	Authorize(ctx context.Context, email, password string) (models.Identity, error)
	SignInExternal(ctx context.Context, profile models.ExternalProfile) (models.Identity, error)
}

// SessionManager issues, verifies, refreshes and revokes session tokens.
type SessionManager interface {
	Issue(ctx context.Context, identity models.Identity) (auth.Token, error)
	Verify(ctx context.Context, raw string) (auth.Session, error)
	Refresh(ctx context.Context, session auth.Session, trigger auth.Trigger, payload *auth.UpdatePayload) (auth.Token, error)
	Revoke(ctx context.Context, session auth.Session) error
}

// VideoStore captures persistence for the video feed.
type VideoStore interface {
	Create(ctx context.Context, video *models.Video) error
	List(ctx context.Context, opts repositories.ListOptions) ([]models.Video, error)
}

// FeedInvalidator drops cached feed listings.
type FeedInvalidator interface {
	Invalidate(ctx context.Context) error
}

// OAuthProvider runs an external authorization code flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (models.ExternalProfile, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
