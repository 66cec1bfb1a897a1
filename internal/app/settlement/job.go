// Package settlement closes a weekly epoch: it pays out the reward pool,
// folds epoch scores into durable balances and resets the index.
package settlement

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/podium/internal/adapters/ranking"
	"github.com/okian/podium/internal/adapters/records"
	"github.com/okian/podium/internal/domain/rewards"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Seeder reloads the bootstrap dataset.
type Seeder interface {
	Seed(ctx context.Context) error
}

// Quiescer blocks index writes while fn runs.
type Quiescer interface {
	Quiesce(ctx context.Context, fn func(ctx context.Context) error) error
}

// Report summarizes one run.
type Report struct {
	RunID         string        `json:"run_id"`
	Skipped       bool          `json:"skipped"`
	Participants  int           `json:"participants"`
	TotalEarnings float64       `json:"total_earnings"`
	Pool          float64       `json:"pool"`
	Payouts       float64       `json:"payouts"`
	Reseeded      bool          `json:"reseeded"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// Job runs settlements. At most one run is active at a time.
type Job struct {
	index ranking.Index
	store records.Store

	seeder       Seeder
	logger       logger.Logger
	resetTimeout time.Duration
	now          func() time.Time

	state   atomic.Int32
	running atomic.Bool
}

// NewJob builds a settlement job.
func NewJob(index ranking.Index, store records.Store, opts ...Option) *Job {
	j := &Job{
		index:        index,
		store:        store,
		logger:       logger.Get().Named("settlement"),
		resetTimeout: DefaultResetTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// State returns the current phase.
func (j *Job) State() State {
	return State(j.state.Load())
}

func (j *Job) setState(s State) {
	j.state.Store(int32(s))
}

// RunOnce executes one settlement synchronously. When the index can be
// quiesced, scoring writes wait until the reset finished.
func (j *Job) RunOnce(ctx context.Context) (Report, error) {
	if !j.running.CompareAndSwap(false, true) {
		metrics.RecordSettlementRun(metrics.OutcomeBusy)
		return Report{}, ErrAlreadyRunning
	}
	defer j.running.Store(false)
	defer j.setState(Idle)

	rep := Report{RunID: uuid.NewString(), StartedAt: j.now()}
	run := func(ctx context.Context) error {
		return j.settle(ctx, &rep)
	}

	var err error
	if q, ok := j.index.(Quiescer); ok {
		err = q.Quiesce(ctx, run)
	} else {
		err = run(ctx)
	}
	rep.Duration = j.now().Sub(rep.StartedAt)

	switch {
	case err != nil:
		metrics.RecordSettlementRun(metrics.OutcomeFailed)
		j.logger.Error(ctx, "settlement failed",
			logger.String("run_id", rep.RunID),
			logger.Error(err),
		)
	case rep.Skipped:
		metrics.RecordSettlementRun(metrics.OutcomeSkipped)
		j.logger.Info(ctx, "settlement skipped, index empty", logger.String("run_id", rep.RunID))
	default:
		metrics.RecordSettlementRun(metrics.OutcomeSuccess)
		metrics.RecordSettlementDuration(float64(rep.Duration.Milliseconds()))
		metrics.UpdateSettlementSummary(j.now().Unix(), rep.Pool, rep.Participants)
		j.logger.Info(ctx, "settlement finished",
			logger.String("run_id", rep.RunID),
			logger.Int("participants", rep.Participants),
			logger.Float64("pool", rep.Pool),
			logger.Float64("payouts", rep.Payouts),
			logger.Duration("took", rep.Duration),
		)
	}
	return rep, err
}

func (j *Job) settle(ctx context.Context, rep *Report) error {
	runID := logger.String("run_id", rep.RunID)

	j.setState(Collecting)
	count, err := j.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("%w: count: %w", ErrCollect, err)
	}
	if count == 0 {
		rep.Skipped = true
		return nil
	}
	all, err := j.index.RangeByRankDesc(ctx, 0, count-1)
	if err != nil {
		return fmt.Errorf("%w: range: %w", ErrCollect, err)
	}
	if len(all) == 0 {
		rep.Skipped = true
		return nil
	}
	top := all[:min(len(all), rewards.Eligible)]
	j.logger.Debug(ctx, "collected standings", runID, logger.Int("participants", len(all)))
	if err := ctx.Err(); err != nil {
		return err
	}

	j.setState(Computing)
	plan := rewards.Compute(all, top)
	rep.Participants = len(all)
	rep.TotalEarnings = plan.TotalEarnings
	rep.Pool = plan.Pool
	rep.Payouts = plan.Payouts
	if err := ctx.Err(); err != nil {
		return err
	}

	j.setState(Committing)
	if err := j.store.ApplyEarnings(ctx, plan.Updates); err != nil {
		metrics.RecordErrorByComponent("settlement", "commit")
		return fmt.Errorf("%w: %w", ErrCommit, err)
	}
	j.logger.Info(ctx, "balances committed", runID,
		logger.Int("updates", len(plan.Updates)),
		logger.Float64("pool", plan.Pool),
	)

	// The commit is durable, so the reset must run even if ctx is done.
	j.setState(Resetting)
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.resetTimeout)
	defer cancel()
	if err := j.index.SetScores(rctx, resetScores(all)); err != nil {
		metrics.RecordErrorByComponent("settlement", "reset")
		return fmt.Errorf("%w: %w", ErrReset, err)
	}

	if j.seeder != nil {
		if err := j.seeder.Seed(rctx); err != nil {
			metrics.RecordErrorByComponent("settlement", "reseed")
			j.logger.Error(ctx, "reseed after settlement failed", runID, logger.Error(err))
		} else {
			rep.Reseeded = true
		}
	}
	return nil
}

// resetScores maps the collected order onto tiny descending negative scores
// so the next epoch starts from zero while keeping the previous order.
func resetScores(order []ranking.Entry) []ranking.Entry {
	out := make([]ranking.Entry, len(order))
	for i, e := range order {
		out[i] = ranking.Entry{ID: e.ID, Score: -float64(i) * ResetStep}
	}
	return out
}
