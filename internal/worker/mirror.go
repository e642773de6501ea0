package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/amqp"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/dashboard"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/sheets"
)

// ReadModelSource builds dashboard read models. *services.DashboardService
// implements it.
type ReadModelSource interface {
	ReadModel(ctx context.Context, f core.Filter) (dashboard.ReadModel, error)
	Invalidate()
}

// MirrorStats reports what the worker has done since start.
type MirrorStats struct {
	Written  int
	Skipped  int
	Failed   int
	LastSync time.Time
}

// MirrorWorker keeps the spreadsheet recap in line with the record store.
type MirrorWorker struct {
	source ReadModelSource
	mirror sheets.Mirror
	now    func() time.Time

	// mu serialises syncs; events and the schedule may fire together.
	mu    sync.Mutex
	stats MirrorStats
}

func NewMirrorWorker(source ReadModelSource, mirror sheets.Mirror) *MirrorWorker {
	return &MirrorWorker{source: source, mirror: mirror, now: time.Now}
}

// HandleRecordChanged processes a change event from AMQP.
func (w *MirrorWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	slog.InfoContext(ctx, "Processing record change",
		"category", msg.Category,
		"action", msg.Action,
		"count", msg.Count,
		"year", msg.Year)

	if err := w.Resync(ctx); err != nil {
		return fmt.Errorf("sync after %s %s: %w", msg.Category, msg.Action, err)
	}
	return nil
}

// Resync drops cached read models before syncing, so the recap reflects the
// record store rather than a model built up to one cache TTL ago.
func (w *MirrorWorker) Resync(ctx context.Context) error {
	w.source.Invalidate()
	return w.Sync(ctx)
}

// Sync rebuilds the recap over all records and writes it unless the mirror
// already holds the same data.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		model   dashboard.ReadModel
		current sheets.Recap
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		model, err = w.source.ReadModel(gctx, core.Filter{})
		if err != nil {
			return fmt.Errorf("build read model: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		current, err = w.mirror.ReadRecap(gctx)
		if err != nil {
			// A failed read only costs an unconditional write.
			slog.WarnContext(gctx, "Failed to read current recap", "error", err)
			current = sheets.Recap{}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		w.stats.Failed++
		return err
	}

	now := w.now()
	recap := sheets.BuildRecap(model, now)
	if current.SameData(recap) {
		w.stats.Skipped++
		w.stats.LastSync = now
		slog.DebugContext(ctx, "Recap unchanged, skipping write")
		return nil
	}

	if err := w.mirror.WriteRecap(ctx, recap); err != nil {
		w.stats.Failed++
		return fmt.Errorf("write recap: %w", err)
	}
	w.stats.Written++
	w.stats.LastSync = now

	slog.InfoContext(ctx, "Recap mirrored",
		"rows", len(recap.Rows),
		"grand_total", model.Totals.GrandTotal().String())
	return nil
}

func (w *MirrorWorker) Stats() MirrorStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
