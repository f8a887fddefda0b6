package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "SHORTREEL"

// Media providers supported for client upload credentials.
const (
	MediaProviderImageKit = "imagekit"
	MediaProviderS3       = "s3"
)

// Config captures the runtime configuration for the ShortReel backend service.
type Config struct {
	AppPort          int           `envconfig:"PORT" default:"8080"`
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32         `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	MigrationDir     string        `envconfig:"MIGRATIONS" default:"migrations"`
	SeedDir          string        `envconfig:"SEEDS" default:"seeds"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	RedisURL         string        `envconfig:"REDIS_URL"`
	FeedCacheTTL     time.Duration `envconfig:"FEED_CACHE_TTL" default:"30s"`
	CORSOrigins      []string      `envconfig:"CORS_ORIGINS"`
	// TrustProxy derives the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites those headers.
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`

	// FeedIncludeOwnerPicture controls whether the public feed exposes the
	// owner's profile picture next to username and email.
	FeedIncludeOwnerPicture bool `envconfig:"FEED_INCLUDE_OWNER_PICTURE" default:"true"`

	Session   SessionConfig     `envconfig:"SESSION"`
	Media     MediaConfig       `envconfig:"MEDIA"`
	ImageKit  ImageKitConfig    `envconfig:"IMAGEKIT"`
	S3        ObjectStoreConfig `envconfig:"S3"`
	Google    GoogleConfig      `envconfig:"GOOGLE"`
	RateLimit RateLimitConfig   `envconfig:"AUTH_RATE"`
}

// SessionConfig controls token signing and cookie behaviour.
type SessionConfig struct {
	Secret        string        `envconfig:"SECRET"`
	TTL           time.Duration `envconfig:"TTL" default:"720h"`
	SecureCookies bool          `envconfig:"SECURE_COOKIES" default:"false"`
}

// MediaConfig selects and configures the media host used for uploads.
type MediaConfig struct {
	Provider  string        `envconfig:"PROVIDER" default:"imagekit"`
	UploadTTL time.Duration `envconfig:"UPLOAD_TTL" default:"30m"`
}

// ImageKitConfig holds the ImageKit account credentials.
type ImageKitConfig struct {
	PublicKey   string `envconfig:"PUBLIC_KEY"`
	PrivateKey  string `envconfig:"PRIVATE_KEY"`
	URLEndpoint string `envconfig:"URL_ENDPOINT"`
}

// ObjectStoreConfig configures an S3-compatible bucket.
type ObjectStoreConfig struct {
	Bucket          string `envconfig:"BUCKET"`
	Region          string `envconfig:"REGION" default:"us-east-1"`
	Endpoint        string `envconfig:"ENDPOINT"`
	AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"SECRET_ACCESS_KEY"`
	PublicBaseURL   string `envconfig:"PUBLIC_BASE_URL"`
}

// GoogleConfig enables sign-in with Google when the client id is present.
type GoogleConfig struct {
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
	RedirectURL  string `envconfig:"REDIRECT_URL" default:"http://localhost:8080/api/auth/callback/google"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return strings.TrimSpace(g.ClientID) != "" && strings.TrimSpace(g.ClientSecret) != ""
}

// RateLimitConfig guards the login and register endpoints.
type RateLimitConfig struct {
	Requests int           `envconfig:"LIMIT" default:"10"`
	Window   time.Duration `envconfig:"WINDOW" default:"1m"`
	Burst    int           `envconfig:"BURST" default:"5"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; variables already set win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	cfg.Media.Provider = strings.ToLower(strings.TrimSpace(cfg.Media.Provider))
	switch cfg.Media.Provider {
	case MediaProviderImageKit, MediaProviderS3:
	default:
		return Config{}, fmt.Errorf("unsupported media provider %q", cfg.Media.Provider)
	}

	return cfg, nil
}

// ValidateServe checks the settings that are only required to serve traffic.
func (c Config) ValidateServe() error {
	if strings.TrimSpace(c.Session.Secret) == "" {
		return errors.New("SHORTREEL_SESSION_SECRET must be set")
	}
	if len(c.Session.Secret) < 32 {
		return errors.New("SHORTREEL_SESSION_SECRET must be at least 32 characters")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SHORTREEL_SESSION_TTL must be positive")
	}
	return nil
}
