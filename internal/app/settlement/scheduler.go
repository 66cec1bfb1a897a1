package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/okian/podium/pkg/logger"
)

// Runner executes one settlement.
type Runner interface {
	RunOnce(ctx context.Context) (Report, error)
}

// Scheduler runs a settlement every period. Runs never overlap.
type Scheduler struct {
	runner Runner
	period time.Duration
	logger logger.Logger

	mu     sync.Mutex
	sched  gocron.Scheduler
	cancel context.CancelFunc
}

// NewScheduler builds a scheduler for runner.
func NewScheduler(runner Runner, opts ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		runner: runner,
		period: DefaultPeriod,
		logger: logger.Get().Named("settlement-scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return s, nil
}

// Start schedules the job. The first run happens one period from now.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil {
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	_, err = sched.NewJob(
		gocron.DurationJob(s.period),
		gocron.NewTask(func() {
			if _, err := s.runner.RunOnce(runCtx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
				s.logger.Warn(runCtx, "scheduled settlement did not complete", logger.Error(err))
			}
		}),
		gocron.WithName("weekly-settlement"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return fmt.Errorf("schedule settlement: %w", err)
	}

	sched.Start()
	s.sched = sched
	s.cancel = cancel
	s.logger.Info(ctx, "settlement scheduled", logger.Duration("period", s.period))
	return nil
}

// Stop cancels the running settlement, if any, and waits for it to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched == nil {
		return nil
	}
	s.cancel()
	err := s.sched.Shutdown()
	s.sched = nil
	s.cancel = nil
	return err
}
