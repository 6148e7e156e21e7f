package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ogulcanaydogan/usagebot/pkg/metrics"
)

// Job is the work bound to a schedule.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// Schedule binds a job to a cron expression.
//
// Expr uses the standard 5-field syntax (minute, hour, day of month, month,
// day of week) or a descriptor such as "@daily":
//   - "0 0 * * *"  - Daily at midnight
//   - "0 0 * * 0"  - Weekly on Sunday at midnight
//   - "30 8 1 * *" - Monthly on the 1st at 08:30
type Schedule struct {
	Label string
	Expr  string
	Job   Job
}

// Entry is the observable state of one schedule.
type Entry struct {
	Label     string    `json:"label"`
	Expr      string    `json:"expr"`
	Next      time.Time `json:"next"`
	LastRun   time.Time `json:"last_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
}

// Parse validates a standard cron expression.
func Parse(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Next returns the first fire time of expr strictly after now.
func Next(expr string, now time.Time) (time.Time, error) {
	sched, err := Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	next := sched.Next(now)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("cron schedule %q never fires", expr)
	}
	return next, nil
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLocation sets the time zone cron expressions are evaluated in. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

// WithMetrics records job runs and next fire times.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// Scheduler runs each schedule in its own goroutine. After every run the next
// fire time is computed from the current clock, so a stall skips the missed
// slots and fires at most once to catch up.
type Scheduler struct {
	entries  []*entry
	clock    Clock
	location *time.Location
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type entry struct {
	schedule Schedule
	cron     cron.Schedule

	mu    sync.RWMutex
	state Entry
}

// New validates the schedules and returns a scheduler ready to Run.
func New(schedules []Schedule, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		clock:    realClock{},
		location: time.UTC,
		logger:   logger.With("component", "scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}

	var errs []error
	seen := make(map[string]bool, len(schedules))
	for _, sc := range schedules {
		if sc.Job == nil {
			errs = append(errs, fmt.Errorf("schedule %q has no job", sc.Label))
			continue
		}
		if seen[sc.Label] {
			errs = append(errs, fmt.Errorf("duplicate schedule label %q", sc.Label))
			continue
		}
		seen[sc.Label] = true

		parsed, err := Parse(sc.Expr)
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule %q: %w", sc.Label, err))
			continue
		}
		s.entries = append(s.entries, &entry{
			schedule: sc,
			cron:     parsed,
			state:    Entry{Label: sc.Label, Expr: sc.Expr},
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts every schedule and blocks until ctx is cancelled and all loops have exited.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range s.entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, e)
		}()
	}

	s.logger.Info("scheduler started", "schedules", len(s.entries))
	wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Entries returns a snapshot of every schedule's state.
func (s *Scheduler) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		e.mu.RLock()
		out = append(out, e.state)
		e.mu.RUnlock()
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	logger := s.logger.With("schedule", e.schedule.Label)

	next := e.cron.Next(s.clock.Now().In(s.location))
	for ctx.Err() == nil {
		if next.IsZero() {
			logger.Error("schedule has no future fire time", "expr", e.schedule.Expr)
			return
		}
		s.setNext(e, next)

		wait := next.Sub(s.clock.Now())
		logger.Info("next run scheduled", "at", next, "in", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(wait):
		}

		s.fire(ctx, e, logger)

		// Recompute from the clock, but never at or before the slot that just
		// fired, in case the timer woke slightly early.
		now := s.clock.Now().In(s.location)
		if now.Before(next) {
			now = next
		}
		next = e.cron.Next(now)
	}
}

func (s *Scheduler) fire(ctx context.Context, e *entry, logger *slog.Logger) {
	start := s.clock.Now()
	err := runJob(ctx, e.schedule.Job)
	duration := s.clock.Now().Sub(start)

	s.metrics.RecordJobRun(e.schedule.Label, err, duration)

	e.mu.Lock()
	e.state.LastRun = start
	e.state.Runs++
	e.state.LastError = ""
	if err != nil {
		e.state.LastError = err.Error()
	}
	e.mu.Unlock()

	if err != nil {
		logger.Error("job failed", "error", err, "duration", duration)
		return
	}
	logger.Info("job completed", "duration", duration)
}

func (s *Scheduler) setNext(e *entry, next time.Time) {
	e.mu.Lock()
	e.state.Next = next
	e.mu.Unlock()
	s.metrics.SetNextRun(e.schedule.Label, next)
}

// runJob isolates panics so one schedule cannot take down the process.
func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}
