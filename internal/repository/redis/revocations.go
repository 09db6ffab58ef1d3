package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const revokedKeyPrefix = "revoked:"

// RevocationStore shares revoked token ids between processes. Keys expire
// together with the token, so Sweep has nothing to do.
type RevocationStore struct {
	client *goredis.Client
	now    func() time.Time
}

func NewRevocationStore(client *goredis.Client) *RevocationStore {
	return &RevocationStore{client: client, now: time.Now}
}

func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	count, err := s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis lookup: %w", err)
	}
	return count > 0, nil
}

func (s *RevocationStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
