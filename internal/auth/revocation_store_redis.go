package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "session:revoked:"

// RedisRevocationStore shares signed-out token ids across instances. Keys
// expire together with the token they revoke.
type RedisRevocationStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisRevocationStore constructs a RevocationStore backed by Redis.
func NewRedisRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

// Revoke records the token id until the provided time.
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id is currently revoked.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revoked session: %w", err)
	}
	return n > 0, nil
}

var _ RevocationStore = (*RedisRevocationStore)(nil)
var _ RevocationStore = (*InMemoryRevocationStore)(nil)
