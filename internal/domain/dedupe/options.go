package dedupe

import "time"

// Option configures a MemoryDeduper.
type Option func(*MemoryDeduper)

// WithMaxSize bounds the number of remembered ids. Zero or negative means
// unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *MemoryDeduper) {
		d.maxSize = maxSize
	}
}

// RedisOption configures a RedisDeduper.
type RedisOption func(*RedisDeduper)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(d *RedisDeduper) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithTTL sets how long an id is remembered.
func WithTTL(ttl time.Duration) RedisOption {
	return func(d *RedisDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}
