package media

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shortreel/backend/internal/config"
)

// DefaultUploadTTL matches ImageKit's default authentication window.
const DefaultUploadTTL = 30 * time.Minute

// ImageKitSigner produces ImageKit client-upload authentication parameters.
type ImageKitSigner struct {
	publicKey   string
	privateKey  string
	urlEndpoint string
	ttl         time.Duration
	now         func() time.Time
	newToken    func() string
}

// NewImageKitSigner constructs a signer for the configured ImageKit account.
func NewImageKitSigner(cfg config.ImageKitConfig, ttl time.Duration) *ImageKitSigner {
	if ttl <= 0 {
		ttl = DefaultUploadTTL
	}
	return &ImageKitSigner{
		publicKey:   strings.TrimSpace(cfg.PublicKey),
		privateKey:  strings.TrimSpace(cfg.PrivateKey),
		urlEndpoint: strings.TrimSpace(cfg.URLEndpoint),
		ttl:         ttl,
		now:         time.Now,
		newToken:    uuid.NewString,
	}
}

// Sign returns a fresh token, its expiry in unix seconds and the HMAC-SHA1 of
// token+expire keyed by the private key.
func (s *ImageKitSigner) Sign(_ context.Context, _ UploadRequest) (UploadCredentials, error) {
	if s.publicKey == "" || s.privateKey == "" || s.urlEndpoint == "" {
		return UploadCredentials{}, ErrNotConfigured
	}

	token := s.newToken()
	expire := s.now().Add(s.ttl).Unix()

	return UploadCredentials{
		Token:       token,
		Expire:      expire,
		Signature:   imageKitSignature(s.privateKey, token, expire),
		PublicKey:   s.publicKey,
		URLEndpoint: s.urlEndpoint,
	}, nil
}

func imageKitSignature(privateKey, token string, expire int64) string {
	mac := hmac.New(sha1.New, []byte(privateKey))
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
