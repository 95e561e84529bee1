// Package worker consumes transaction events and keeps the export mirrors current.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
)

// Mirrorer rewrites the mirrors of one owner. *services.MirrorProcessor satisfies it.
type Mirrorer interface {
	Mirror(ctx context.Context, owner string) error
}

// EventSource delivers transaction events to a handler until ctx ends.
// *amqp.Client satisfies it.
type EventSource interface {
	ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error
}

// MirrorWorker turns each event into a full mirror of the event's owner.
// Events carry identifiers only, so the kind does not change the work done.
type MirrorWorker struct {
	mirror Mirrorer
}

func NewMirrorWorker(m Mirrorer) *MirrorWorker {
	return &MirrorWorker{mirror: m}
}

// HandleEvent mirrors ev.Owner. On error the event is dropped and the next
// resync brings the owner's mirrors up to date.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"kind", ev.Kind,
		"owner", ev.Owner,
		"transaction_id", ev.TransactionID)

	if err := w.mirror.Mirror(ctx, ev.Owner); err != nil {
		return fmt.Errorf("mirror owner %s: %w", ev.Owner, err)
	}
	return nil
}

// Run consumes events from src until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, src EventSource) error {
	slog.InfoContext(ctx, "Mirror worker consuming transaction events")
	return src.ConsumeTransactionEvents(ctx, w.HandleEvent)
}
