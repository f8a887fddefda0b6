package videos

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shortreel/backend/internal/logging"
	"github.com/shortreel/backend/internal/models"
	"github.com/shortreel/backend/internal/repositories"
)

// CachingStore serves feed listings from a FeedCache and falls through to the
// repository on a miss. Cache failures are logged and never surface to callers.
type CachingStore struct {
	repo  repositories.VideoRepository
	cache FeedCache
}

// NewCachingStore wraps repo with cache. A nil cache disables caching.
func NewCachingStore(repo repositories.VideoRepository, cache FeedCache) *CachingStore {
	if repo == nil {
		panic("videos: repository must not be nil")
	}
	return &CachingStore{repo: repo, cache: cache}
}

// Create stores the video and invalidates cached listings.
func (s *CachingStore) Create(ctx context.Context, video *models.Video) error {
	ctx, span := logging.StartSpan(ctx, "videos.create")
	defer span.End()

	if err := s.repo.Create(ctx, video); err != nil {
		span.Fail(err)
		return err
	}
	if err := s.Invalidate(ctx); err != nil {
		logging.FromContext(ctx).Warn("feed cache invalidate failed", slog.Any("error", err))
	}
	return nil
}

// Invalidate drops every cached listing. Owner details embedded in the feed
// go stale when a profile changes, so callers invalidate after such writes.
func (s *CachingStore) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

// List returns the newest-first listing for opts.
func (s *CachingStore) List(ctx context.Context, opts repositories.ListOptions) ([]models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "videos.list")
	defer span.End()

	if s.cache == nil {
		feed, err := s.repo.List(ctx, opts)
		span.Fail(err)
		return feed, err
	}

	logger := logging.FromContext(ctx)
	variant := Variant(opts)

	feed, ok, err := s.cache.Get(ctx, variant)
	if err != nil {
		logger.Warn("feed cache read failed", slog.String("variant", variant), slog.Any("error", err))
	} else if ok {
		return feed, nil
	}

	feed, err = s.repo.List(ctx, opts)
	if err != nil {
		span.Fail(err)
		return nil, err
	}
	if err := s.cache.Set(ctx, variant, feed); err != nil {
		logger.Warn("feed cache write failed", slog.String("variant", variant), slog.Any("error", err))
	}
	return feed, nil
}

// Variant names the cache slot for a listing shape.
func Variant(opts repositories.ListOptions) string {
	shape := "plain"
	switch {
	case opts.IncludeOwner && opts.IncludeOwnerPicture:
		shape = "owner-picture"
	case opts.IncludeOwner:
		shape = "owner"
	}
	return fmt.Sprintf("%s:%d", shape, opts.Limit)
}

var _ repositories.VideoRepository = (*CachingStore)(nil)
