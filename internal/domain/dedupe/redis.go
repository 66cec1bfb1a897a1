package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "podium:event:"
	defaultRedisTTL    = 24 * time.Hour
)

// RedisDeduper shares seen ids between processes through Redis keys that
// expire after a TTL.
type RedisDeduper struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper builds a deduper on client.
func NewRedisDeduper(client redis.UniversalClient, opts ...RedisOption) *RedisDeduper {
	d := &RedisDeduper{client: client, prefix: defaultRedisPrefix, ttl: defaultRedisTTL}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord implements Deduper with SET NX.
func (d *RedisDeduper) SeenAndRecord(ctx context.Context, id string) (bool, error) {
	created, err := d.client.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record event %s: %w", id, err)
	}
	return !created, nil
}

// Unrecord implements Deduper.
func (d *RedisDeduper) Unrecord(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, d.prefix+id).Err(); err != nil {
		return fmt.Errorf("unrecord event %s: %w", id, err)
	}
	return nil
}
