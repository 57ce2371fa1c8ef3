package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// Runner executes a job on a schedule, one run at a time. A run that overlaps the
// next tick delays it rather than running concurrently.
type Runner struct {
	schedule Schedule
	job      JobFunc
	logger   zerolog.Logger
	maxRuns  int
	onEvent  func(Event)
	now      func() time.Time

	mu    sync.RWMutex
	state JobState
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMaxRuns stops the runner after n runs; 0 means unbounded.
func WithMaxRuns(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxRuns = n
		}
	}
}

// WithOnEvent sets a callback invoked after every run.
func WithOnEvent(fn func(Event)) RunnerOption {
	return func(r *Runner) { r.onEvent = fn }
}

// NewRunner validates the schedule and returns a runner for job.
func NewRunner(schedule Schedule, job JobFunc, logger zerolog.Logger, opts ...RunnerOption) (*Runner, error) {
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	r := &Runner{
		schedule: schedule,
		job:      job,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run blocks until ctx is cancelled, the run limit is reached or an "at" schedule has
// fired. Job failures are recorded in the state and do not stop the runner.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if r.done() {
			return nil
		}

		next, err := r.schedule.Next(r.now())
		if err != nil {
			return err
		}
		r.setNext(next)

		delay := next.Sub(r.now())
		if delay < 0 {
			delay = 0
		}
		r.logger.Debug().Dur("delay", delay).Time("nextRun", next).Msg("Run scheduled")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		r.execute(ctx)
	}
}

func (r *Runner) done() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.maxRuns > 0 && r.state.Runs >= r.maxRuns {
		return true
	}
	return r.schedule.Kind == ScheduleKindAt && r.state.Runs > 0
}

func (r *Runner) setNext(next time.Time) {
	r.mu.Lock()
	r.state.NextRunAt = timePtr(next)
	r.mu.Unlock()
}

func (r *Runner) execute(ctx context.Context) {
	start := r.now()
	r.logger.Info().Int("run", r.State().Runs+1).Msg("Executing scheduled run")

	err := r.job(ctx)
	duration := r.now().Sub(start)

	r.mu.Lock()
	r.state.Runs++
	r.state.LastRunAt = timePtr(start)
	r.state.LastDuration = duration
	r.state.NextRunAt = nil
	evt := Event{Run: r.state.Runs, Duration: duration}
	if err != nil {
		r.state.LastStatus = StatusError
		r.state.LastError = err.Error()
		r.state.ConsecutiveErrors++
		evt.Status, evt.Error = StatusError, err.Error()
	} else {
		r.state.LastStatus = StatusOK
		r.state.LastError = ""
		r.state.ConsecutiveErrors = 0
		evt.Status = StatusOK
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error().Err(err).Int("run", evt.Run).Dur("duration", duration).Msg("Scheduled run failed")
	} else {
		r.logger.Info().Int("run", evt.Run).Dur("duration", duration).Msg("Scheduled run finished")
	}

	if r.onEvent != nil {
		r.onEvent(evt)
	}
}

// State returns a copy of the runner state.
func (r *Runner) State() JobState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}
