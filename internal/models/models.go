package models

import "time"

// Default display settings applied to uploaded videos. ShortReel renders
// portrait short-form video.
const (
	DefaultVideoWidth   = 1080
	DefaultVideoHeight  = 1920
	DefaultVideoQuality = 100
)

// User represents an account within the ShortReel platform.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	// Password holds a bcrypt hash once persisted. It is empty for accounts
	// provisioned through an external identity provider.
	Password       string    `json:"-"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Identity is the minimal view of a user carried into a session.
type Identity struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

// IdentityOf projects a stored user onto its session identity.
func IdentityOf(u User) Identity {
	return Identity{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}

// ExternalProfile is a verified identity assertion from a trusted provider.
type ExternalProfile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Transformation captures display dimensions and encode quality.
type Transformation struct {
	Height  int `json:"height"`
	Width   int `json:"width"`
	Quality int `json:"quality,omitempty"`
}

// VideoOwner is the limited view of a video's owner exposed by the feed.
type VideoOwner struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Video is an uploaded short video hosted on the media service.
type Video struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	VideoURL       string         `json:"videoUrl"`
	ThumbnailURL   string         `json:"thumbnailUrl"`
	Controls       bool           `json:"controls"`
	Transformation Transformation `json:"transformation"`
	UserID         string         `json:"userId,omitempty"`
	Owner          *VideoOwner    `json:"user,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}
