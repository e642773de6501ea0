package services

import (
	"context"
	"log/slog"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/amqp"
)

// Publisher sends record change events. *amqp.Client implements it.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// Invalidator drops cached read models.
type Invalidator interface {
	Invalidate()
}

// changeNotifier runs after every successful write: cached read models are
// dropped, then an event is published. Publishing is best effort; the write
// has already been committed.
type changeNotifier struct {
	publisher Publisher
	cache     Invalidator
}

func (n changeNotifier) changed(ctx context.Context, category, action string, count, year int) {
	if n.cache != nil {
		n.cache.Invalidate()
	}
	if n.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping change event",
			"category", category, "action", action)
		return
	}
	msg := amqp.NewRecordChangedMessage(category, action, count, year)
	if err := n.publisher.PublishRecordChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"category", category,
			"action", action,
			"error", err)
	}
}
