// Package dispatch runs the periodic outbox jobs: delivering pending
// notifications and queueing unclaimed-session reminders.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/officehours/internal/application"
)

const jobTimeout = 2 * time.Minute

type outbox interface {
	Dispatch(ctx context.Context, sender application.Sender, limit int) (application.DispatchResult, error)
	QueueReminders(ctx context.Context) (int, error)
}

// Locker serializes job bodies with request handlers.
type Locker interface {
	Do(fn func())
}

// Config controls the schedules. Specs use the standard five-field cron
// syntax or descriptors such as "@every 1m".
type Config struct {
	DispatchSpec string
	ReminderSpec string
	BatchSize    int
}

// Runner owns the cron scheduler.
type Runner struct {
	cron    *cron.Cron
	outbox  outbox
	sender  application.Sender
	locker  Locker
	batch   int
	logger  *slog.Logger
	entries []cron.EntryID
}

// NewRunner registers the dispatch and reminder jobs. An empty spec disables
// that job.
func NewRunner(cfg Config, box outbox, sender application.Sender, locker Locker, logger *slog.Logger) (*Runner, error) {
	if box == nil || sender == nil {
		return nil, fmt.Errorf("dispatch: outbox and sender are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dispatch")

	c := cron.New(
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.Recover(cronLogger{logger: logger}), cron.SkipIfStillRunning(cronLogger{logger: logger})),
	)
	r := &Runner{cron: c, outbox: box, sender: sender, locker: locker, batch: cfg.BatchSize, logger: logger}

	if cfg.DispatchSpec != "" {
		id, err := c.AddFunc(cfg.DispatchSpec, func() { r.RunDispatch(context.Background()) })
		if err != nil {
			return nil, fmt.Errorf("dispatch: schedule %q: %w", cfg.DispatchSpec, err)
		}
		r.entries = append(r.entries, id)
	}
	if cfg.ReminderSpec != "" {
		id, err := c.AddFunc(cfg.ReminderSpec, func() { r.RunReminders(context.Background()) })
		if err != nil {
			return nil, fmt.Errorf("dispatch: schedule %q: %w", cfg.ReminderSpec, err)
		}
		r.entries = append(r.entries, id)
	}
	return r, nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (r *Runner) Run(ctx context.Context) {
	r.cron.Start()
	r.logger.InfoContext(ctx, "dispatch runner started", "jobs", len(r.entries))
	<-ctx.Done()
	<-r.cron.Stop().Done()
	r.logger.Info("dispatch runner stopped")
}

// RunDispatch performs one delivery pass.
func (r *Runner) RunDispatch(ctx context.Context) application.DispatchResult {
	var (
		result application.DispatchResult
		err    error
	)
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	r.locked(func() {
		result, err = r.outbox.Dispatch(ctx, r.sender, r.batch)
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "dispatch pass failed", "error", err, "error_kind", application.ErrorKind(err))
	}
	return result
}

// RunReminders performs one reminder pass and returns the number queued.
func (r *Runner) RunReminders(ctx context.Context) int {
	var (
		queued int
		err    error
	)
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	r.locked(func() {
		queued, err = r.outbox.QueueReminders(ctx)
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "reminder pass failed", "error", err, "error_kind", application.ErrorKind(err))
	}
	return queued
}

func (r *Runner) locked(fn func()) {
	if r.locker == nil {
		fn()
		return
	}
	r.locker.Do(fn)
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
