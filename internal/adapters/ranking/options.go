package ranking

import "github.com/redis/go-redis/v9"

// defaultRedisKey matches the sorted set used by earlier deployments.
const defaultRedisKey = "leaderboard"

// Option applies a configuration option to the TreapIndex.
type Option func(*TreapIndex)

// WithSeed makes treap priorities reproducible. Zero keeps the random default.
func WithSeed(seed uint64) Option {
	return func(t *TreapIndex) {
		if seed != 0 {
			t.seed = seed
		}
	}
}

// RedisOption applies a configuration option to the RedisIndex.
type RedisOption func(*RedisIndex)

// WithKey sets the sorted set key.
func WithKey(key string) RedisOption {
	return func(r *RedisIndex) {
		if key != "" {
			r.key = key
		}
	}
}

// WithClient injects an existing client instead of dialing addr.
func WithClient(c redis.UniversalClient) RedisOption {
	return func(r *RedisIndex) {
		if c != nil {
			r.client = c
		}
	}
}

// WithRedisAuth sets the password and database index used when dialing.
func WithRedisAuth(password string, db int) RedisOption {
	return func(r *RedisIndex) {
		r.password = password
		if db >= 0 {
			r.db = db
		}
	}
}
