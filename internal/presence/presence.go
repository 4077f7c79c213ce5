package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "presence:"

// Store tracks per-user online flags as redis keys with a TTL. A user is
// online while their heartbeat keeps the key alive.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore builds a presence store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &Store{client: client, ttl: ttl}
}

// Heartbeat marks the user online, extending the TTL.
func (s *Store) Heartbeat(ctx context.Context, userID string) error {
	return s.client.Set(ctx, keyPrefix+userID, time.Now().UTC().Format(time.RFC3339), s.ttl).Err()
}

// Clear removes the online flag, used on logout.
func (s *Store) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, keyPrefix+userID).Err()
}

// IsOnline reports whether the user's heartbeat key is alive.
func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
