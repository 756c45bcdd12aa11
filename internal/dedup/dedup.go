// Package dedup provides message deduplication using a Redis SET with
// TTL. Overlapping fetch windows can surface the same Gmail message
// twice; the filter cuts those out before the database is even asked.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a seen message ID is remembered. Fetch
	// windows never look back further than a day.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "inboxpilot:seen:"
)

// Filter tracks which provider message IDs have already been ingested.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFilter(rdb *redis.Client) *Filter {
	return &Filter{
		rdb: rdb,
		ttl: DefaultTTL,
	}
}

// IsNew returns true if the message ID has NOT been seen before. If
// true, the ID is marked as seen atomically (SETNX).
func (f *Filter) IsNew(ctx context.Context, messageID string) (bool, error) {
	key := keyPrefix + messageID

	set, err := f.rdb.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}
