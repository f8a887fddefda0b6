package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/shortreel/backend/internal/logging"
	"github.com/shortreel/backend/internal/models"
	"github.com/shortreel/backend/internal/repositories"
)

// CredentialStore is the subset of the user store used to authenticate.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindOrCreateByEmail(ctx context.Context, profile models.ExternalProfile) (models.User, bool, error)
}

// Authorizer resolves credentials and external assertions to identities.
type Authorizer struct {
	users CredentialStore
}

// NewAuthorizer constructs an Authorizer backed by the provided user store.
func NewAuthorizer(users CredentialStore) *Authorizer {
	if users == nil {
		panic("auth: credential store must not be nil")
	}
	return &Authorizer{users: users}
}

// Authorize checks an email and password against the user store. It returns
// ErrMissingCredentials, ErrUserNotFound or ErrInvalidPassword so callers can
// tell the cases apart; store failures are wrapped and also deny access.
func (a *Authorizer) Authorize(ctx context.Context, email, password string) (models.Identity, error) {
	email = repositories.NormalizeEmail(email)
	if email == "" || password == "" {
		return models.Identity{}, ErrMissingCredentials
	}

	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Identity{}, ErrUserNotFound
		}
		return models.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	// Accounts provisioned by an external provider have no password and
	// cannot sign in with one.
	if user.Password == "" {
		return models.Identity{}, ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return models.Identity{}, ErrInvalidPassword
	}

	return models.IdentityOf(user), nil
}

// SignInExternal provisions or reuses the account behind a verified external
// identity assertion.
func (a *Authorizer) SignInExternal(ctx context.Context, profile models.ExternalProfile) (models.Identity, error) {
	ctx, span := logging.StartSpan(ctx, "auth.sign_in_external")
	defer span.End()
	logger := logging.FromContext(ctx)

	if strings.TrimSpace(profile.Email) == "" || !profile.EmailVerified {
		logger.Warn("external sign-in rejected", slog.String("provider", profile.Provider))
		return models.Identity{}, ErrUnverifiedProfile
	}

	user, created, err := a.users.FindOrCreateByEmail(ctx, profile)
	if err != nil {
		logger.Error("external sign-in failed", slog.String("provider", profile.Provider), slog.Any("error", err))
		return models.Identity{}, fmt.Errorf("provision external user: %w", err)
	}

	identity := models.IdentityOf(user)
	if identity.ProfilePicture == "" {
		identity.ProfilePicture = profile.Picture
	}

	logger.Info("external sign-in",
		slog.String("provider", profile.Provider),
		slog.String("userId", identity.ID),
		slog.Bool("created", created),
	)
	return identity, nil
}
