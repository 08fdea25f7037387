package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fhuszti/media-pipeline-go/internal/logger"
	"github.com/fhuszti/media-pipeline-go/internal/port"
)

// SeenCache records processed references in Redis so the pipeline can skip
// duplicates.
type SeenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// compile-time check: *SeenCache must satisfy port.SeenCache
var _ port.SeenCache = (*SeenCache)(nil)

// NewSeenCache connects to Redis. A zero ttl keeps entries forever.
func NewSeenCache(addr, password string, ttl time.Duration) *SeenCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	return &SeenCache{client: rdb, ttl: ttl}
}

func (c *SeenCache) IsSeen(ctx context.Context, ref string) (bool, error) {
	_, err := c.client.Get(ctx, seenKey(ref)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	return true, nil
}

func (c *SeenCache) MarkSeen(ctx context.Context, ref string) error {
	logger.Debugf(ctx, "marking reference %q as seen...", ref)

	if err := c.client.Set(ctx, seenKey(ref), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func seenKey(ref string) string {
	return "seen:" + ref
}
