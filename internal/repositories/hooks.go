package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shortreel/backend/internal/models"
)

// prepareUserForWrite runs before a user is inserted: it normalises the
// email, fills system-maintained fields, validates required fields and
// replaces a plaintext password with its bcrypt hash. A password that is
// already a bcrypt hash is stored as is.
func prepareUserForWrite(user *models.User, now time.Time, cost int) error {
	user.Email = NormalizeEmail(user.Email)
	user.Username = strings.TrimSpace(user.Username)

	var missing []string
	if user.Username == "" {
		missing = append(missing, "username")
	}
	if user.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	hashed, err := hashPassword(user.Password, cost)
	if err != nil {
		return err
	}
	user.Password = hashed
	return nil
}

// hashPassword returns the bcrypt hash of a plaintext password. Empty
// passwords stay empty (externally provisioned accounts) and existing hashes
// are returned unchanged. Passwords over bcrypt's 72-byte limit are reported
// as a validation error on the password field.
func hashPassword(password string, cost int) (string, error) {
	if password == "" || isBcryptHash(password) {
		return password, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", &ValidationError{Fields: []string{"password"}}
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func isBcryptHash(password string) bool {
	_, err := bcrypt.Cost([]byte(password))
	return err == nil
}

// prepareVideoForWrite validates a video and fills defaults and
// system-maintained fields. Every missing required field is reported.
func prepareVideoForWrite(video *models.Video, now time.Time) error {
	video.Title = strings.TrimSpace(video.Title)
	video.Description = strings.TrimSpace(video.Description)
	video.VideoURL = strings.TrimSpace(video.VideoURL)
	video.ThumbnailURL = strings.TrimSpace(video.ThumbnailURL)

	var invalid []string
	if video.Title == "" {
		invalid = append(invalid, "title")
	}
	if video.Description == "" {
		invalid = append(invalid, "description")
	}
	if video.VideoURL == "" {
		invalid = append(invalid, "videoUrl")
	}
	if video.ThumbnailURL == "" {
		invalid = append(invalid, "thumbnailUrl")
	}

	if video.Transformation.Width <= 0 {
		video.Transformation.Width = models.DefaultVideoWidth
	}
	if video.Transformation.Height <= 0 {
		video.Transformation.Height = models.DefaultVideoHeight
	}
	if video.Transformation.Quality == 0 {
		video.Transformation.Quality = models.DefaultVideoQuality
	}
	if video.Transformation.Quality < 1 || video.Transformation.Quality > 100 {
		invalid = append(invalid, "transformation.quality")
	}

	if len(invalid) > 0 {
		return &ValidationError{Fields: invalid}
	}

	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now
	return nil
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
