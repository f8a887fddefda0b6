package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/shortreel/backend/internal/auth"
	"github.com/shortreel/backend/internal/config"
	"github.com/shortreel/backend/internal/db"
	"github.com/shortreel/backend/internal/handlers"
	"github.com/shortreel/backend/internal/media"
	"github.com/shortreel/backend/internal/middleware"
	"github.com/shortreel/backend/internal/redisclient"
	"github.com/shortreel/backend/internal/repositories"
	"github.com/shortreel/backend/internal/videos"
)

// buildDependencies wires concrete implementations used by the HTTP handlers.
// The returned cleanup releases the database pool and Redis client.
func buildDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(), error) {
	provider := db.NewProvider(cfg.DatabaseURL, db.WithMaxConns(cfg.DatabaseMaxConns))

	var rdb *redis.Client
	cleanup := func() {
		provider.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}

	if cfg.RedisURL != "" {
		client, err := redisclient.New(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return handlers.Dependencies{}, nil, err
		}
		rdb = client
		logger.Info("redis enabled for sessions and feed cache")
	}

	users := repositories.NewPostgresUserRepository(provider)

	var feedCache videos.FeedCache
	switch {
	case cfg.FeedCacheTTL <= 0:
	case rdb != nil:
		feedCache = videos.NewRedisFeedCache(rdb, cfg.FeedCacheTTL)
	default:
		feedCache = videos.NewMemoryFeedCache(cfg.FeedCacheTTL)
	}
	feed := videos.NewCachingStore(repositories.NewPostgresVideoRepository(provider), feedCache)

	var revocations auth.RevocationStore = auth.NewInMemoryRevocationStore()
	if rdb != nil {
		revocations = auth.NewRedisRevocationStore(rdb)
	}
	sessions, err := auth.NewManager([]byte(cfg.Session.Secret), cfg.Session.TTL, users, auth.WithRevocationStore(revocations))
	if err != nil {
		cleanup()
		return handlers.Dependencies{}, nil, err
	}

	uploads, err := newSigner(ctx, cfg)
	if err != nil {
		cleanup()
		return handlers.Dependencies{}, nil, err
	}

	deps := handlers.Dependencies{
		Logger:                  logger,
		Users:                   users,
		Videos:                  feed,
		Feed:                    feed,
		Authenticator:           auth.NewAuthorizer(users),
		Sessions:                sessions,
		Uploads:                 uploads,
		Database:                provider,
		SecureCookies:           cfg.Session.SecureCookies,
		FeedIncludeOwnerPicture: cfg.FeedIncludeOwnerPicture,
		CORSOrigins:             cfg.CORSOrigins,
		TrustProxy:              cfg.TrustProxy,
	}
	if cfg.Google.Enabled() {
		deps.Google = auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	}
	if cfg.RateLimit.Requests > 0 {
		deps.AuthLimiter = middleware.NewKeyedLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, 0)
	}

	return deps, cleanup, nil
}

func newSigner(ctx context.Context, cfg config.Config) (media.Signer, error) {
	switch cfg.Media.Provider {
	case config.MediaProviderS3:
		signer, err := media.NewS3Signer(ctx, cfg.S3, cfg.Media.UploadTTL)
		if err != nil {
			return nil, fmt.Errorf("configure s3 uploads: %w", err)
		}
		return signer, nil
	case config.MediaProviderImageKit, "":
		return media.NewImageKitSigner(cfg.ImageKit, cfg.Media.UploadTTL), nil
	default:
		return nil, fmt.Errorf("unsupported media provider %q", cfg.Media.Provider)
	}
}
