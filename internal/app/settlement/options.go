package settlement

import (
	"time"

	"github.com/okian/podium/pkg/logger"
)

// Default settlement settings.
const (
	DefaultPeriod       = 7 * 24 * time.Hour
	DefaultResetTimeout = 30 * time.Second
	// ResetStep separates consecutive ranks after a reset.
	ResetStep = 0.00001
)

// Option configures a Job.
type Option func(*Job)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithSeeder reloads the bootstrap dataset after every successful reset.
func WithSeeder(s Seeder) Option {
	return func(j *Job) {
		j.seeder = s
	}
}

// WithResetTimeout bounds the reset that follows a successful commit.
func WithResetTimeout(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.resetTimeout = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		if now != nil {
			j.now = now
		}
	}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithPeriod sets the interval between runs.
func WithPeriod(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.period = d
	}
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(l logger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}
