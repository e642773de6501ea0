package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/amqp"
)

// Consumer delivers change events. *amqp.Client implements it.
type Consumer interface {
	ConsumeRecordChanges(ctx context.Context, handler func(context.Context, *amqp.RecordChangedMessage) error) error
}

// Runner drives a MirrorWorker from AMQP events and a cron schedule.
type Runner struct {
	worker   *MirrorWorker
	consumer Consumer
	schedule string

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewRunner builds a runner. consumer may be nil, in which case only the
// schedule triggers syncs.
func NewRunner(worker *MirrorWorker, consumer Consumer, schedule string) *Runner {
	return &Runner{worker: worker, consumer: consumer, schedule: schedule}
}

// Start performs an initial sync, then begins the schedule and the event
// consumer. Returns an error if already running or the schedule is invalid.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("mirror runner is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	_, err := c.AddFunc(r.schedule, func() { r.scheduledSync(runCtx) })
	if err != nil {
		cancel()
		return fmt.Errorf("invalid mirror schedule %q: %w", r.schedule, err)
	}

	if err := r.worker.Sync(runCtx); err != nil {
		slog.WarnContext(ctx, "Startup recap sync failed", "error", err)
	}

	r.cron = c
	r.cancel = cancel
	r.doneCh = make(chan struct{})
	r.running = true
	c.Start()

	go r.consume(runCtx)

	slog.InfoContext(ctx, "Mirror runner started",
		"schedule", r.schedule,
		"events", r.consumer != nil)
	return nil
}

// scheduledSync is the cron job: a full resync from the record store.
func (r *Runner) scheduledSync(ctx context.Context) {
	if err := r.worker.Resync(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled recap sync failed", "error", err)
	}
}

func (r *Runner) consume(ctx context.Context) {
	defer close(r.doneCh)
	if r.consumer == nil {
		<-ctx.Done()
		return
	}
	err := r.consumer.ConsumeRecordChanges(ctx, r.worker.HandleRecordChanged)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "Record change consumer stopped", "error", err)
	}
}

// Stop halts the schedule and the consumer and waits for running work.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	c, cancel, done := r.cron, r.cancel, r.doneCh
	r.mu.Unlock()

	cronDone := c.Stop()
	cancel()

	select {
	case <-cronDone.Done():
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror runner stop timed out")
		return ctx.Err()
	}
	select {
	case <-done:
		slog.InfoContext(ctx, "Mirror runner stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror runner stop timed out")
		return ctx.Err()
	}
	return nil
}

// IsRunning returns whether the runner is currently running
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
