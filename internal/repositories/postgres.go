package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/shortreel/backend/internal/db"
	"github.com/shortreel/backend/internal/models"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"

	defaultFeedLimit = 100

	// maxUsernameCandidates bounds the suffix search for provisioned usernames.
	maxUsernameCandidates = 1000
	// maxProvisionAttempts bounds insert retries when usernames race.
	maxProvisionAttempts = 5
)

// UserOption customises a PostgresUserRepository.
type UserOption func(*PostgresUserRepository)

// WithHashCost overrides the bcrypt cost used by the password hook.
func WithHashCost(cost int) UserOption {
	return func(r *PostgresUserRepository) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			r.hashCost = cost
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) UserOption {
	return func(r *PostgresUserRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool     db.Pool
	hashCost int
	now      func() time.Time
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool, opts ...UserOption) *PostgresUserRepository {
	r := &PostgresUserRepository{
		pool:     pool,
		hashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create persists a new user record. The password, if any, is hashed before
// it reaches the database; user is updated with the stored values.
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := prepareUserForWrite(user, r.now(), r.hashCost); err != nil {
		return err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, password_hash, profile_picture, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Username, user.Email, user.Password, user.ProfilePicture, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &ConflictError{Field: userConflictField(pgErr)}
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "id", strings.TrimSpace(id))
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "email", NormalizeEmail(email))
}

// FindByUsername fetches a user by their username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, "username", strings.TrimSpace(username))
}

func (r *PostgresUserRepository) findOne(ctx context.Context, column, value string) (models.User, error) {
	if value == "" {
		return models.User{}, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is one of a fixed set of identifiers chosen by this package.
	row := conn.QueryRow(ctx, `
        SELECT id, username, email, password_hash, profile_picture, created_at, updated_at
        FROM users
        WHERE `+column+` = $1
    `, value)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.ProfilePicture, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by %s: %w", column, err)
	}

	return user, nil
}

// UpdateProfilePicture changes only the profile picture of a user and
// returns the updated record.
func (r *PostgresUserRepository) UpdateProfilePicture(ctx context.Context, id, profilePicture string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users
        SET profile_picture = $2, updated_at = $3
        WHERE id = $1
        RETURNING id, username, email, password_hash, profile_picture, created_at, updated_at
    `, id, profilePicture, r.now())

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.ProfilePicture, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("update profile picture: %w", err)
	}

	return user, nil
}

// UpdatePassword stores a new password for the user, hashing it first.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, password string) error {
	if password == "" {
		return &ValidationError{Fields: []string{"password"}}
	}
	hashed, err := hashPassword(password, r.hashCost)
	if err != nil {
		return err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, id, hashed, r.now())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// FindOrCreateByEmail returns the user owning the profile's email, creating
// a password-less account on first sight. The boolean reports whether the
// account was created. A racing insert of the same email resolves to the
// winning record instead of failing.
func (r *PostgresUserRepository) FindOrCreateByEmail(ctx context.Context, profile models.ExternalProfile) (models.User, bool, error) {
	email := NormalizeEmail(profile.Email)
	if email == "" {
		return models.User{}, false, &ValidationError{Fields: []string{"email"}}
	}

	existing, err := r.FindByEmail(ctx, email)
	if err == nil {
		user, err := r.mergeExternalProfile(ctx, existing, profile)
		return user, false, err
	}
	if !errors.Is(err, ErrNotFound) {
		return models.User{}, false, err
	}

	base := UsernameBase(profile.Name, email)
	next := 0
	for attempt := 0; attempt < maxProvisionAttempts; attempt++ {
		username, n, err := r.availableUsername(ctx, base, next)
		if err != nil {
			return models.User{}, false, err
		}

		user := models.User{
			Username:       username,
			Email:          email,
			ProfilePicture: profile.Picture,
		}
		err = r.Create(ctx, &user)
		if err == nil {
			return user, true, nil
		}

		switch ConflictField(err) {
		case "email":
			winner, findErr := r.FindByEmail(ctx, email)
			if findErr != nil {
				return models.User{}, false, fmt.Errorf("resolve concurrent provisioning: %w", findErr)
			}
			user, err := r.mergeExternalProfile(ctx, winner, profile)
			return user, false, err
		case "username":
			next = n + 1
			continue
		default:
			return models.User{}, false, err
		}
	}

	return models.User{}, false, fmt.Errorf("provision user %s: %w", email, ErrConflict)
}

func (r *PostgresUserRepository) mergeExternalProfile(ctx context.Context, user models.User, profile models.ExternalProfile) (models.User, error) {
	if user.ProfilePicture != "" || strings.TrimSpace(profile.Picture) == "" {
		return user, nil
	}
	return r.UpdateProfilePicture(ctx, user.ID, profile.Picture)
}

// availableUsername finds the first free candidate starting at suffix from:
// base, base1, base2, ...
func (r *PostgresUserRepository) availableUsername(ctx context.Context, base string, from int) (string, int, error) {
	for n := from; n < from+maxUsernameCandidates; n++ {
		candidate := base
		if n > 0 {
			candidate = base + strconv.Itoa(n)
		}
		_, err := r.FindByUsername(ctx, candidate)
		if errors.Is(err, ErrNotFound) {
			return candidate, n, nil
		}
		if err != nil {
			return "", 0, err
		}
	}
	return "", 0, fmt.Errorf("no free username for %q: %w", base, ErrConflict)
}

// UsernameBase derives a username stem from a display name, falling back to
// the email local part and finally to "user".
func UsernameBase(name, email string) string {
	clean := func(s string) string {
		var b strings.Builder
		for _, r := range strings.TrimSpace(s) {
			switch {
			case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '_', r == '-':
				b.WriteRune(r)
			}
		}
		return b.String()
	}

	if base := clean(name); base != "" {
		return base
	}
	if at := strings.Index(email, "@"); at > 0 {
		if base := clean(email[:at]); base != "" {
			return base
		}
	}
	return "user"
}

func userConflictField(pgErr *pgconn.PgError) string {
	for _, s := range []string{pgErr.ConstraintName, pgErr.Detail, pgErr.Message} {
		switch {
		case strings.Contains(s, "email"):
			return "email"
		case strings.Contains(s, "username"):
			return "username"
		}
	}
	return ""
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video *models.Video) error {
	if err := prepareVideoForWrite(video, r.now()); err != nil {
		return err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var userID *string
	if video.UserID != "" {
		userID = &video.UserID
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, user_id, title, description, video_url, thumbnail_url, controls,
                            transform_height, transform_width, transform_quality, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, video.ID, userID, video.Title, video.Description, video.VideoURL, video.ThumbnailURL, video.Controls,
		video.Transformation.Height, video.Transformation.Width, video.Transformation.Quality, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return ErrConflict
			case foreignKeyViolation:
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// List returns videos newest first, optionally joined with their owner.
func (r *PostgresVideoRepository) List(ctx context.Context, opts ListOptions) ([]models.Video, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.user_id, v.title, v.description, v.video_url, v.thumbnail_url, v.controls,
               v.transform_height, v.transform_width, v.transform_quality, v.created_at, v.updated_at,
               u.username, u.email, u.profile_picture
        FROM videos v
        LEFT JOIN users u ON u.id = v.user_id
        ORDER BY v.created_at DESC, v.id DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		var (
			video                             models.Video
			userID                            *string
			ownerName, ownerEmail, ownerImage *string
		)
		if err := rows.Scan(&video.ID, &userID, &video.Title, &video.Description, &video.VideoURL, &video.ThumbnailURL, &video.Controls,
			&video.Transformation.Height, &video.Transformation.Width, &video.Transformation.Quality, &video.CreatedAt, &video.UpdatedAt,
			&ownerName, &ownerEmail, &ownerImage); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}

		if userID != nil {
			video.UserID = *userID
		}
		if opts.IncludeOwner && ownerName != nil {
			owner := &models.VideoOwner{Username: *ownerName}
			if ownerEmail != nil {
				owner.Email = *ownerEmail
			}
			if opts.IncludeOwnerPicture && ownerImage != nil {
				owner.ProfilePicture = *ownerImage
			}
			video.Owner = owner
		}

		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
