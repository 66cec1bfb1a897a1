// Package service wires the leaderboard components together and exposes the
// operations used by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/adapters/ranking"
	"github.com/okian/podium/internal/adapters/records"
	"github.com/okian/podium/internal/adapters/seed"
	"github.com/okian/podium/internal/app/query"
	"github.com/okian/podium/internal/app/settlement"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const pingTimeout = 5 * time.Second

// Ack is the intake result for one event.
type Ack struct {
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started         bool               `json:"started"`
	IndexDriver     string             `json:"indexDriver"`
	StoreDriver     string             `json:"storeDriver"`
	Workers         int                `json:"workers"`
	QueueLength     int                `json:"queueLength"`
	QueueCapacity   int                `json:"queueCapacity"`
	Processed       int64              `json:"processed"`
	Failed          int64              `json:"failed"`
	RankedPlayers   int                `json:"rankedPlayers"`
	SettlementState string             `json:"settlementState"`
	LastSettlement  *settlement.Report `json:"lastSettlement,omitempty"`
}

// Service owns the index, the record store and everything that feeds or
// reads them.
type Service struct {
	cfg    *config.Config
	logger logger.Logger

	mu      sync.Mutex
	started bool
	stopped bool

	rawIndex   ranking.Index
	index      *ranking.Fenced
	store      records.Store
	deduper    dedupe.Deduper
	queue      *queue.InMemoryQueue
	pool       *worker.Pool
	query      *query.Service
	job        *settlement.Job
	scheduler  *settlement.Scheduler
	seedSource seed.Source
	seeder     *seed.Seeder

	closers []func() error
	last    atomic.Pointer[settlement.Report]
}

// New builds every component named by cfg. Connections are opened here;
// background work begins with Start.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		logger: logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.build(ctx); err != nil {
		_ = s.closeAll()
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}
	return s, nil
}

func (s *Service) build(ctx context.Context) error {
	var client *redis.Client
	if s.rawIndex == nil {
		switch strings.ToLower(s.cfg.IndexDriver) {
		case config.IndexRedis:
			client = redis.NewClient(&redis.Options{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			})
			s.closers = append(s.closers, client.Close)
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := client.Ping(pctx).Err()
			cancel()
			if err != nil {
				return fmt.Errorf("redis %s: %w", s.cfg.RedisAddr, err)
			}
			s.rawIndex = ranking.NewRedisIndex(s.cfg.RedisAddr,
				ranking.WithClient(client),
				ranking.WithKey(s.cfg.RedisKey),
			)
		default:
			s.rawIndex = ranking.NewTreapIndex()
		}
	}
	s.index = ranking.NewFenced(s.rawIndex)

	if s.store == nil {
		switch strings.ToLower(s.cfg.StoreDriver) {
		case config.StoreMemory:
			s.store = records.NewMemoryStore()
		default:
			gs, err := records.Open(ctx, s.cfg.StoreDriver, s.cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			s.closers = append(s.closers, gs.Close)
			s.store = gs
		}
	}

	if s.deduper == nil {
		if client != nil {
			s.deduper = dedupe.NewRedisDeduper(client, dedupe.WithTTL(s.cfg.DedupeTTL))
		} else {
			s.deduper = dedupe.NewMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
		}
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.EventQueueSize))
	s.pool = worker.NewPool(s.queue, s.index,
		worker.WithSize(s.cfg.WorkerCount),
		worker.WithLogger(s.logger.Named("worker-pool")),
	)

	s.query = query.New(s.index, s.store,
		query.WithLogger(s.logger.Named("query")),
		query.WithStoreTimeout(s.cfg.StoreTimeout()),
		query.WithEnrichConcurrency(s.cfg.EnrichConcurrency),
		query.WithCollation(s.cfg.Collation),
	)

	if s.seedSource == nil && s.cfg.SeedSource != "" {
		src, err := seed.Open(ctx, s.cfg.SeedSource, seed.S3Options{
			Region:          s.cfg.S3Region,
			Endpoint:        s.cfg.S3Endpoint,
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
		})
		if err != nil {
			return err
		}
		s.seedSource = src
	}
	if s.seedSource != nil {
		s.seeder = seed.NewSeeder(s.seedSource, s.store, s.index,
			seed.WithLogger(s.logger.Named("seed")),
		)
	}

	jobOpts := []settlement.Option{settlement.WithLogger(s.logger.Named("settlement"))}
	if s.cfg.ReseedOnSettlement && s.seeder != nil {
		jobOpts = append(jobOpts, settlement.WithSeeder(s.seeder))
	}
	s.job = settlement.NewJob(s.index, s.store, jobOpts...)
	return nil
}

// Start seeds the index when configured, starts the workers and schedules
// settlements. Calling it twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting leaderboard service...",
		logger.String("index", s.cfg.IndexDriver),
		logger.String("store", s.cfg.StoreDriver),
	)

	if s.cfg.SeedOnStart {
		if err := s.seed(ctx); err != nil {
			return err
		}
	}

	// Workers must outlive a cancelled parent so Stop can drain the queue.
	s.pool.Start(context.WithoutCancel(ctx))

	if s.cfg.SettlementEnabled {
		sched, err := settlement.NewScheduler(settlementRunner{s},
			settlement.WithPeriod(s.cfg.SettlementPeriod),
			settlement.WithSchedulerLogger(s.logger.Named("settlement-scheduler")),
		)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		s.scheduler = sched
	}

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queue.Capacity()),
		logger.Bool("settlement", s.cfg.SettlementEnabled),
	)
	return nil
}

// Stop halts the scheduler, drains the queue and closes connections.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	s.logger.Info(ctx, "stopping leaderboard service...")

	var errs []error
	if s.scheduler != nil {
		if err := s.scheduler.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.started {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	} else {
		_ = s.queue.Close()
	}
	if err := s.closeAll(); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info(ctx, "leaderboard service stopped",
		logger.Int64("processed", s.pool.Processed()),
		logger.Int64("failed", s.pool.Failed()),
	)
	return errors.Join(errs...)
}

func (s *Service) closeAll() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// SubmitEvent deduplicates e by event id and queues it for the workers.
// Events without an id get a random one.
func (s *Service) SubmitEvent(ctx context.Context, e model.ScoreEvent) (Ack, error) {
	if err := e.Validate(); err != nil {
		return Ack{}, err
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}

	seen, err := s.deduper.SeenAndRecord(ctx, e.EventID)
	if err != nil {
		return Ack{}, fmt.Errorf("dedupe %s: %w", e.EventID, err)
	}
	if seen {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event detected, skipping",
			logger.String("eventID", e.EventID),
			logger.String("playerID", e.PlayerID),
		)
		return Ack{EventID: e.EventID, Duplicate: true}, nil
	}

	if err := s.queue.Enqueue(ctx, e); err != nil {
		// Let a retry of the same event through.
		if uerr := s.deduper.Unrecord(context.WithoutCancel(ctx), e.EventID); uerr != nil {
			s.logger.Warn(ctx, "failed to unrecord event", logger.String("eventID", e.EventID), logger.Error(uerr))
		}
		switch {
		case errors.Is(err, queue.ErrFull):
			return Ack{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		case errors.Is(err, queue.ErrClosed):
			return Ack{}, fmt.Errorf("%w: %w", ErrStopped, err)
		default:
			return Ack{}, err
		}
	}
	return Ack{EventID: e.EventID}, nil
}

// ListTop returns the top n participants.
func (s *Service) ListTop(ctx context.Context, n int) ([]model.RankedParticipant, error) {
	return s.query.ListTop(ctx, n)
}

// ListTopByCountry returns the top n participants grouped by country.
func (s *Service) ListTopByCountry(ctx context.Context, n int) ([][]model.RankedParticipant, error) {
	return s.query.ListTopByCountry(ctx, n)
}

// Neighborhood returns the window of participants around name.
func (s *Service) Neighborhood(ctx context.Context, name string) ([]model.RankedParticipant, error) {
	return s.query.Neighborhood(ctx, name)
}

// Autocomplete suggests participant names containing partial.
func (s *Service) Autocomplete(ctx context.Context, partial string) ([]string, error) {
	return s.query.Autocomplete(ctx, partial)
}

// RunSettlement runs one settlement now.
func (s *Service) RunSettlement(ctx context.Context) (settlement.Report, error) {
	rep, err := s.job.RunOnce(ctx)
	if err == nil {
		s.last.Store(&rep)
	}
	return rep, err
}

// Seed loads the bootstrap dataset into the store and the index.
func (s *Service) Seed(ctx context.Context) (seed.Stats, error) {
	if s.seeder == nil {
		return seed.Stats{}, ErrNoSeedSource
	}
	return s.seeder.Run(ctx)
}

func (s *Service) seed(ctx context.Context) error {
	st, err := s.Seed(ctx)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "dataset loaded",
		logger.Int("players", st.Players),
		logger.Int("inserted", st.Inserted),
		logger.Int("failed", st.Failed),
	)
	return nil
}

// Stats reports queue, worker and settlement state.
func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	started := s.started && !s.stopped
	s.mu.Unlock()

	st := Stats{
		Started:         started,
		IndexDriver:     s.cfg.IndexDriver,
		StoreDriver:     s.cfg.StoreDriver,
		Workers:         s.pool.Size(),
		QueueLength:     s.queue.Len(),
		QueueCapacity:   s.queue.Capacity(),
		Processed:       s.pool.Processed(),
		Failed:          s.pool.Failed(),
		SettlementState: s.job.State().String(),
		LastSettlement:  s.last.Load(),
	}
	if n, err := s.index.Count(ctx); err == nil {
		st.RankedPlayers = n
	} else {
		s.logger.Warn(ctx, "count ranked players failed", logger.Error(err))
	}
	return st
}

type settlementRunner struct{ s *Service }

func (r settlementRunner) RunOnce(ctx context.Context) (settlement.Report, error) {
	return r.s.RunSettlement(ctx)
}
