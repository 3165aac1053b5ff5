package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDedupTTL is how long an idempotency key is remembered.
const DefaultDedupTTL = time.Hour

// DedupChecker provides idempotency checks backed by Redis.
// Key format: mutation:<character_id>:<idempotency_key>
//
// A key is reserved atomically before the command runs, so at most one node
// applies a given key even though lanes only serialize within a process.
type DedupChecker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
func NewDedupChecker(client *redis.Client, ttl time.Duration) *DedupChecker {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &DedupChecker{client: client, ttl: ttl}
}

// Reserve claims the key for the character. It returns false when the key is
// already held, either by an applied command or by one still in flight.
func (d *DedupChecker) Reserve(ctx context.Context, characterID, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(characterID, key), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup reserve: %w", err)
	}
	return ok, nil
}

// Release drops a reservation whose command failed, so a retry can apply it.
func (d *DedupChecker) Release(ctx context.Context, characterID, key string) error {
	if err := d.client.Del(ctx, d.key(characterID, key)).Err(); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return nil
}

func (d *DedupChecker) key(characterID, key string) string {
	return fmt.Sprintf("mutation:%s:%s", characterID, key)
}
