package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shortreel/backend/internal/logging"
	"github.com/shortreel/backend/internal/models"
)

const tokenIssuer = "shortreel"

// DefaultSessionTTL is how long an issued session token stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Trigger names the event that caused a token to be (re)issued.
type Trigger string

const (
	// TriggerSignIn marks the initial issuance after authentication.
	TriggerSignIn Trigger = "signIn"
	// TriggerUpdate marks an explicit refresh requested by the client, e.g.
	// after a profile change.
	TriggerUpdate Trigger = "update"
)

// UpdatePayload carries client-supplied session fields for TriggerUpdate.
type UpdatePayload struct {
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Session is the materialized view of a verified session token.
type Session struct {
	UserID         string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture"`
	TokenID        string    `json:"-"`
	ExpiresAt      time.Time `json:"expires"`
}

// Identity returns the identity carried by the session.
func (s Session) Identity() models.Identity {
	return models.Identity{
		ID:             s.UserID,
		Email:          s.Email,
		Username:       s.Username,
		ProfilePicture: s.ProfilePicture,
	}
}

// Token is a signed session token together with its decoded session.
type Token struct {
	Value     string
	ExpiresAt time.Time
	Session   Session
}

// UserReader re-reads users when a session is refreshed.
type UserReader interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// RevocationStore remembers signed-out token ids until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type claims struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
	jwt.RegisteredClaims
}

// Manager issues, verifies, refreshes and revokes signed session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	users  UserReader
	store  RevocationStore
	now    func() time.Time
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithNowFunc overrides the time source. Useful for tests.
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRevocationStore sets where signed-out tokens are recorded.
func WithRevocationStore(store RevocationStore) ManagerOption {
	return func(m *Manager) {
		if store != nil {
			m.store = store
		}
	}
}

// NewManager constructs a Manager signing tokens with secret (HS256).
func NewManager(secret []byte, ttl time.Duration, users UserReader, opts ...ManagerOption) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: session secret must not be empty")
	}
	if users == nil {
		return nil, errors.New("auth: user reader must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	m := &Manager{
		secret: secret,
		ttl:    ttl,
		users:  users,
		store:  NewInMemoryRevocationStore(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL reports the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session token for the identity.
func (m *Manager) Issue(_ context.Context, identity models.Identity) (Token, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return Token{}, errors.New("user id must be provided")
	}

	now := m.now().Truncate(time.Second)
	expires := now.Add(m.ttl)
	tokenID := uuid.NewString()

	c := claims{
		Username:       identity.Username,
		Email:          identity.Email,
		ProfilePicture: identity.ProfilePicture,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   identity.ID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign session token: %w", err)
	}

	return Token{
		Value:     signed,
		ExpiresAt: expires,
		Session:   sessionFromClaims(c),
	}, nil
}

// Verify checks the token's signature, expiry and revocation status and
// returns the session it carries.
func (m *Manager) Verify(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, ErrInvalidToken
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" || c.ID == "" {
		return Session{}, ErrInvalidToken
	}

	revoked, err := m.store.IsRevoked(ctx, c.ID)
	if err != nil {
		return Session{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Session{}, ErrTokenRevoked
	}

	return sessionFromClaims(c), nil
}

// Refresh re-issues a token for an existing session. On TriggerUpdate the
// payload is merged first and the user store is re-read so the profile
// picture and username never drift from storage. A failed re-read keeps the
// merged values.
func (m *Manager) Refresh(ctx context.Context, session Session, trigger Trigger, payload *UpdatePayload) (Token, error) {
	ctx, span := logging.StartSpan(ctx, "auth.refresh_session")
	defer span.End()

	identity := session.Identity()
	if trigger == TriggerUpdate {
		if payload != nil && strings.TrimSpace(payload.ProfilePicture) != "" {
			identity.ProfilePicture = strings.TrimSpace(payload.ProfilePicture)
		}

		user, err := m.users.FindByID(ctx, identity.ID)
		if err != nil {
			logging.FromContext(ctx).Warn("refresh session user lookup failed",
				slog.String("userId", identity.ID), slog.Any("error", err))
		} else {
			identity.ProfilePicture = user.ProfilePicture
			identity.Username = user.Username
			identity.Email = user.Email
		}
	}

	return m.Issue(ctx, identity)
}

// Revoke signs the session out until its natural expiry.
func (m *Manager) Revoke(ctx context.Context, session Session) error {
	if session.TokenID == "" {
		return nil
	}
	return m.store.Revoke(ctx, session.TokenID, session.ExpiresAt)
}

func sessionFromClaims(c claims) Session {
	s := Session{
		UserID:         c.Subject,
		Username:       c.Username,
		Email:          c.Email,
		ProfilePicture: c.ProfilePicture,
		TokenID:        c.ID,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return s
}
