package repositories

import (
	"context"

	"github.com/shortreel/backend/internal/models"
)

// ListOptions controls the shape of a video listing.
type ListOptions struct {
	// IncludeOwner joins a limited view of the owning user.
	IncludeOwner bool
	// IncludeOwnerPicture adds the owner's profile picture to that view.
	IncludeOwnerPicture bool
	Limit               int
}

// VideoRepository exposes data access for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video *models.Video) error
	List(ctx context.Context, opts ListOptions) ([]models.Video, error)
}
