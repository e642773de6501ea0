package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/amqp"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/dashboard"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/sheets"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/sheets/memory"
)

// fakeSource returns a read model over a mutable snapshot.
type fakeSource struct {
	mu          sync.Mutex
	snap        dashboard.Snapshot
	err         error
	invalidated int
}

func (f *fakeSource) ReadModel(_ context.Context, filter core.Filter) (dashboard.ReadModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return dashboard.ReadModel{}, f.err
	}
	return dashboard.Build(f.snap, filter, time.Now()), nil
}

func (f *fakeSource) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeSource) add(amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Installments = append(f.snap.Installments, core.InstallmentPayment{
		EmployeeID: "1", EmployeeName: "Andi", Month: "Januari", Year: 2024, Amount: decimal.NewFromInt(amount),
	})
}

// failingMirror cannot be read or written.
type failingMirror struct{}

func (failingMirror) WriteRecap(context.Context, sheets.Recap) error { return errors.New("quota exceeded") }
func (failingMirror) ReadRecap(context.Context) (sheets.Recap, error) {
	return sheets.Recap{}, errors.New("quota exceeded")
}

func TestMirrorWorker_Sync(t *testing.T) {
	src := &fakeSource{}
	src.add(1000)
	mirror := memory.New()
	w := NewMirrorWorker(src, mirror)
	ctx := context.Background()

	if err := w.Sync(ctx); err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	if mirror.Writes() != 1 {
		t.Fatalf("writes = %d, want 1", mirror.Writes())
	}
	recap, _ := mirror.ReadRecap(ctx)
	if recap.Rows[2][1] != "1000" {
		t.Errorf("BFKO total cell = %q, want 1000", recap.Rows[2][1])
	}

	if err := w.Sync(ctx); err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if mirror.Writes() != 1 {
		t.Errorf("unchanged data was rewritten")
	}

	src.add(500)
	if err := w.Sync(ctx); err != nil {
		t.Fatalf("third Sync() error = %v", err)
	}
	if mirror.Writes() != 2 {
		t.Errorf("writes = %d, want 2", mirror.Writes())
	}

	stats := w.Stats()
	if stats.Written != 2 || stats.Skipped != 1 || stats.Failed != 0 || stats.LastSync.IsZero() {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMirrorWorker_SyncErrors(t *testing.T) {
	ctx := context.Background()

	src := &fakeSource{err: errors.New("db locked")}
	w := NewMirrorWorker(src, memory.New())
	if err := w.Sync(ctx); err == nil {
		t.Error("expected read model error")
	}

	w = NewMirrorWorker(&fakeSource{}, failingMirror{})
	if err := w.Sync(ctx); err == nil {
		t.Error("expected write error")
	}
	if w.Stats().Failed != 1 {
		t.Errorf("failed = %d, want 1", w.Stats().Failed)
	}
}

func TestMirrorWorker_HandleRecordChanged(t *testing.T) {
	src := &fakeSource{}
	mirror := memory.New()
	w := NewMirrorWorker(src, mirror)

	msg := amqp.NewRecordChangedMessage(amqp.CategoryInstallment, amqp.ActionImported, 3, 2024)
	if err := w.HandleRecordChanged(context.Background(), msg); err != nil {
		t.Fatalf("HandleRecordChanged() error = %v", err)
	}
	if src.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", src.invalidated)
	}
	if mirror.Writes() != 1 {
		t.Errorf("writes = %d, want 1", mirror.Writes())
	}
}

// fakeConsumer delivers queued messages, then blocks until cancelled.
type fakeConsumer struct {
	msgs []*amqp.RecordChangedMessage
	done chan struct{}
}

func (c *fakeConsumer) ConsumeRecordChanges(ctx context.Context, handler func(context.Context, *amqp.RecordChangedMessage) error) error {
	for _, m := range c.msgs {
		_ = handler(ctx, m)
	}
	close(c.done)
	<-ctx.Done()
	return ctx.Err()
}

func TestRunner_Lifecycle(t *testing.T) {
	src := &fakeSource{}
	mirror := memory.New()
	consumer := &fakeConsumer{
		msgs: []*amqp.RecordChangedMessage{amqp.NewRecordChangedMessage(amqp.CategoryCard, amqp.ActionCreated, 1, 0)},
		done: make(chan struct{}),
	}
	r := NewRunner(NewMirrorWorker(src, mirror), consumer, "@hourly")
	ctx := context.Background()

	if r.IsRunning() {
		t.Fatal("runner should not be running initially")
	}
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("expected error when starting an already running runner")
	}

	select {
	case <-consumer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer never ran")
	}
	if src.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", src.invalidated)
	}
	// The startup sync wrote once; the event found nothing new.
	if mirror.Writes() != 1 {
		t.Errorf("writes = %d, want 1", mirror.Writes())
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if r.IsRunning() {
		t.Error("runner still running after Stop")
	}
	if err := r.Stop(stopCtx); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestRunner_InvalidSchedule(t *testing.T) {
	r := NewRunner(NewMirrorWorker(&fakeSource{}, memory.New()), nil, "whenever")
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected schedule error")
	}
	if r.IsRunning() {
		t.Error("runner should not be running after a failed start")
	}
}

func TestRunner_WithoutConsumer(t *testing.T) {
	mirror := memory.New()
	r := NewRunner(NewMirrorWorker(&fakeSource{}, mirror), nil, "@every 1h")
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if mirror.Writes() != 1 {
		t.Errorf("startup sync writes = %d, want 1", mirror.Writes())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestRunner_ScheduledSyncInvalidatesReadModel(t *testing.T) {
	src := &fakeSource{}
	src.add(1000)
	mirror := memory.New()
	r := NewRunner(NewMirrorWorker(src, mirror), nil, "@hourly")
	ctx := context.Background()

	r.scheduledSync(ctx)
	if src.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", src.invalidated)
	}
	if mirror.Writes() != 1 {
		t.Fatalf("writes = %d, want 1", mirror.Writes())
	}

	src.add(500)
	r.scheduledSync(ctx)
	if src.invalidated != 2 {
		t.Errorf("invalidated = %d, want 2", src.invalidated)
	}
	recap, _ := mirror.ReadRecap(ctx)
	if recap.Rows[2][1] != "1500" {
		t.Errorf("BFKO total cell = %q, want 1500", recap.Rows[2][1])
	}
}
