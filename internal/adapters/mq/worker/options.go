package worker

import (
	"time"

	"github.com/okian/podium/pkg/logger"
)

// Option configures a Pool.
type Option func(*Pool)

// WithSize sets the number of workers.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithApplyTimeout bounds each index write.
func WithApplyTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.applyTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
