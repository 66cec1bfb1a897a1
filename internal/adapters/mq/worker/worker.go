// Package worker applies queued score events to the ranking index.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	defaultApplyTimeout   = 5 * time.Second
)

// Updater applies an additive score delta.
type Updater interface {
	UpsertAdd(ctx context.Context, id string, delta float64) error
}

// Source is the receive side of the queue.
type Source interface {
	Events() <-chan queue.Event
	Close() error
}

// dequeueMarker is implemented by queues that track consumption.
type dequeueMarker interface {
	MarkDequeued()
}

// Pool runs a fixed number of workers over one source.
type Pool struct {
	source  Source
	updater Updater

	size         int
	applyTimeout time.Duration
	logger       logger.Logger

	processed atomic.Int64
	failed    atomic.Int64
	active    atomic.Int32

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewPool builds a pool. A non-positive size defaults to the CPU count.
func NewPool(source Source, updater Updater, opts ...Option) *Pool {
	p := &Pool{
		source:       source,
		updater:      updater,
		size:         runtime.NumCPU(),
		applyTimeout: defaultApplyTimeout,
		logger:       logger.Get().Named("worker-pool"),
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	metrics.UpdateWorkerCount(p.size)
	return p
}

// Start launches the workers. Calling it twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	go p.reportRate(ctx)
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	metrics.UpdateWorkerActiveCount(int(p.active.Add(1)))
	defer func() { metrics.UpdateWorkerActiveCount(int(p.active.Add(-1))) }()

	events := p.source.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if m, ok := p.source.(dequeueMarker); ok {
				m.MarkDequeued()
			}
			if err := p.apply(ctx, e); err != nil {
				p.logger.Error(ctx, "score event dropped",
					logger.Int("worker", id),
					logger.String("event_id", e.EventID),
					logger.String("player_id", e.PlayerID),
					logger.Error(err),
				)
			}
		}
	}
}

func (p *Pool) apply(ctx context.Context, e queue.Event) error { //nolint:gocritic // events are values on the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	actx, cancel := context.WithTimeout(ctx, p.applyTimeout)
	defer cancel()
	if err := p.updater.UpsertAdd(actx, e.PlayerID, e.Earnings); err != nil {
		p.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "upsert")
		return fmt.Errorf("apply event %s: %w", e.EventID, err)
	}
	p.processed.Add(1)
	metrics.RecordIndexUpdate()
	metrics.RecordEventProcessed()
	return nil
}

func (p *Pool) reportRate(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	last := p.processed.Load()
	lastAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case now := <-ticker.C:
			n := p.processed.Load()
			if secs := now.Sub(lastAt).Seconds(); secs > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(n-last) / secs)
			}
			last, lastAt = n, now
		}
	}
}

// Processed returns the number of applied events.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns the number of events the updater rejected.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Done is closed once Shutdown has been called, whether or not the workers
// drained in time.
func (p *Pool) Done() <-chan struct{} { return p.stop }

// Shutdown closes the source and waits for the workers to drain it.
// Background reporting stops on every path.
func (p *Pool) Shutdown(ctx context.Context) error {
	defer p.stopOnce.Do(func() { close(p.stop) })

	if err := p.source.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
