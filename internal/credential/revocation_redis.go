package credential

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "crl:digest:"

// RedisRevocationList is the Redis-backed RevocationList. Recommended for
// deployments with more than one instance, where a revoked key must be
// rejected everywhere immediately.
type RedisRevocationList struct {
	client *redis.Client
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

// Revoke blocks a key digest for the given TTL. Uses SET-with-expiry; the key
// existence is what matters.
func (l *RedisRevocationList) Revoke(ctx context.Context, digest string, ttl time.Duration) error {
	if digest == "" {
		return nil
	}
	return l.client.Set(ctx, revokedKeyPrefix+digest, "1", ttl).Err()
}

// IsRevoked checks if a key digest is currently blocked. Returns false when
// the entry is absent or expired.
func (l *RedisRevocationList) IsRevoked(ctx context.Context, digest string) (bool, error) {
	if digest == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, revokedKeyPrefix+digest).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
