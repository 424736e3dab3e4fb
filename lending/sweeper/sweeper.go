// Package sweeper runs the overdue sweep on a schedule.
package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AntonStoeckl/library-lending/lending/features/markoverdue"
	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	logMsgStarted       = "overdue sweeper started"
	logMsgStopped       = "overdue sweeper stopped"
	logMsgSweepFailed   = "overdue sweep failed"
	logMsgSweepSkipped  = "overdue sweep skipped, previous sweep still running"
	logAttrNextRun      = "next_run"
	logAttrTrigger      = "trigger"
	logAttrError        = "error"
	logAttrScheduleKind = "schedule"
)

// ErrSweepInProgress is returned when a sweep is requested while another one runs.
var ErrSweepInProgress = errors.New("overdue sweep already in progress")

// SweepHandler runs one sweep.
type SweepHandler interface {
	Handle(ctx context.Context, command markoverdue.Command) (int64, error)
}

// Schedule computes the next run after now.
type Schedule interface {
	Next(now time.Time) time.Time
	String() string
}

// DailyAt runs once a day at a wall-clock time in UTC.
type DailyAt struct {
	Hour   int
	Minute int
}

// Next returns the next occurrence of the wall-clock time strictly after now.
func (d DailyAt) Next(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), d.Hour, d.Minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

func (d DailyAt) String() string {
	return time.Date(0, 1, 1, d.Hour, d.Minute, 0, 0, time.UTC).Format("daily 15:04 UTC")
}

// Every runs at a fixed interval.
type Every time.Duration

// Next returns now plus the interval.
func (e Every) Next(now time.Time) time.Time {
	return now.Add(time.Duration(e))
}

func (e Every) String() string {
	return "every " + time.Duration(e).String()
}

// Sweeper triggers the overdue sweep. Sweeps never overlap: a request that arrives while
// one runs is skipped.
type Sweeper struct {
	handler  SweepHandler
	schedule Schedule
	clock    shell.Clock
	logger   shell.ContextualLogger
	running  sync.Mutex
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock overrides the time source used to plan runs.
func WithClock(clock shell.Clock) Option {
	return func(s *Sweeper) {
		s.clock = clock
	}
}

// WithLogger sets the logger for lifecycle and failure messages.
func WithLogger(logger shell.ContextualLogger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

// New creates a Sweeper. The schedule defaults to daily at 01:00 UTC when nil.
func New(handler SweepHandler, schedule Schedule, opts ...Option) *Sweeper {
	if schedule == nil {
		schedule = DailyAt{Hour: 1}
	}

	s := &Sweeper{
		handler:  handler,
		schedule: schedule,
		clock:    shell.SystemClock,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run sweeps on schedule until ctx is done. It returns ctx's error.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log(ctx, logMsgStarted, logAttrScheduleKind, s.schedule.String())
	defer s.log(context.WithoutCancel(ctx), logMsgStopped)

	for {
		next := s.schedule.Next(s.clock())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		_, err := s.SweepNow(ctx, markoverdue.TriggerSchedule)
		if err != nil && !errors.Is(err, ErrSweepInProgress) && ctx.Err() == nil {
			s.logErr(ctx, logMsgSweepFailed, logAttrTrigger, markoverdue.TriggerSchedule, logAttrError, err.Error())
		}
	}
}

// SweepNow runs one sweep immediately unless another one is in progress.
func (s *Sweeper) SweepNow(ctx context.Context, trigger string) (int64, error) {
	if !s.running.TryLock() {
		s.log(ctx, logMsgSweepSkipped, logAttrTrigger, trigger)
		return 0, ErrSweepInProgress
	}
	defer s.running.Unlock()

	return s.handler.Handle(ctx, markoverdue.BuildCommand(trigger))
}

func (s *Sweeper) log(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Sweeper) logErr(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, args...)
	}
}
