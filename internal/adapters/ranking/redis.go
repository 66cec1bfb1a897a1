package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/podium/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// setScoresBatch bounds the members sent per ZADD inside the transaction.
const setScoresBatch = 500

// RedisIndex implements Index on a Redis sorted set.
//
// Redis orders equal scores by member; under ZREV* commands ties come out in
// reverse lexical order. The order is still deterministic for a fixed state.
type RedisIndex struct {
	client   redis.UniversalClient
	key      string
	password string
	db       int
}

// NewRedisIndex dials addr unless a client is injected with WithClient.
func NewRedisIndex(addr string, opts ...RedisOption) *RedisIndex {
	r := &RedisIndex{key: defaultRedisKey}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: r.password,
			DB:       r.db,
		})
	}
	return r
}

// Ping checks connectivity.
func (r *RedisIndex) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisIndex) Close() error {
	return r.client.Close()
}

// UpsertAdd implements Index.UpsertAdd with ZINCRBY.
func (r *RedisIndex) UpsertAdd(ctx context.Context, id string, delta float64) error {
	defer observe("upsert_add", time.Now())
	if err := r.client.ZIncrBy(ctx, r.key, delta, id).Err(); err != nil {
		metrics.RecordErrorByComponent("ranking", "redis")
		return fmt.Errorf("zincrby %s: %w", id, err)
	}
	return nil
}

// RangeByRankDesc implements Index.RangeByRankDesc with ZREVRANGE WITHSCORES.
func (r *RedisIndex) RangeByRankDesc(ctx context.Context, start, end int) ([]Entry, error) {
	defer observe("range", time.Now())
	// Negative indexes count from the tail in Redis; clamp before sending.
	if start < 0 {
		start = 0
	}
	if end < start {
		return []Entry{}, nil
	}
	zs, err := r.client.ZRevRangeWithScores(ctx, r.key, int64(start), int64(end)).Result()
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "redis")
		return nil, fmt.Errorf("zrevrange %d..%d: %w", start, end, err)
	}
	out := make([]Entry, 0, len(zs))
	for i, z := range zs {
		id, _ := z.Member.(string)
		out = append(out, Entry{ID: id, Score: z.Score, Rank: start + i})
	}
	return out, nil
}

// ReverseRankOf implements Index.ReverseRankOf with ZREVRANK.
func (r *RedisIndex) ReverseRankOf(ctx context.Context, id string) (int, error) {
	rank, err := r.client.ZRevRank(ctx, r.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "redis")
		return 0, fmt.Errorf("zrevrank %s: %w", id, err)
	}
	return int(rank), nil
}

// ScoreOf implements Index.ScoreOf with ZSCORE.
func (r *RedisIndex) ScoreOf(ctx context.Context, id string) (float64, error) {
	score, err := r.client.ZScore(ctx, r.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "redis")
		return 0, fmt.Errorf("zscore %s: %w", id, err)
	}
	return score, nil
}

// Count implements Index.Count with ZCARD.
func (r *RedisIndex) Count(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, r.key).Result()
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "redis")
		return 0, fmt.Errorf("zcard: %w", err)
	}
	return int(n), nil
}

// SetScores implements Index.SetScores with ZADD inside MULTI/EXEC.
func (r *RedisIndex) SetScores(ctx context.Context, entries []Entry) error {
	defer observe("set_scores", time.Now())
	if len(entries) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := 0; i < len(entries); i += setScoresBatch {
			end := min(i+setScoresBatch, len(entries))
			members := make([]redis.Z, 0, end-i)
			for _, e := range entries[i:end] {
				members = append(members, redis.Z{Score: e.Score, Member: e.ID})
			}
			pipe.ZAdd(ctx, r.key, members...)
		}
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "redis")
		return fmt.Errorf("zadd %d members: %w", len(entries), err)
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordIndexLatency(op, float64(time.Since(start).Microseconds())/1000)
}
