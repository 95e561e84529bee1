package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/store"
)

// EventPublisher announces that an owner's transactions changed.
// *amqp.Client satisfies it.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService persists transactions and publishes a change event after
// every successful write. It is itself a store.TransactionStore, so callers
// can use it wherever a plain store is expected.
type TransactionService struct {
	store     store.TransactionStore
	publisher EventPublisher
}

var _ store.TransactionStore = (*TransactionService)(nil)

// NewTransactionService wraps s. publisher may be nil, in which case no
// events are sent.
func NewTransactionService(s store.TransactionStore, publisher EventPublisher) *TransactionService {
	return &TransactionService{store: s, publisher: publisher}
}

// Create saves t and publishes a created event.
func (s *TransactionService) Create(ctx context.Context, owner string, t core.Transaction) (string, error) {
	id, err := s.store.Create(ctx, owner, t)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	s.publish(ctx, amqp.EventCreated, owner, id)
	return id, nil
}

func (s *TransactionService) ListByOwner(ctx context.Context, owner string) ([]core.Transaction, error) {
	return s.store.ListByOwner(ctx, owner)
}

// Update applies patch and publishes an updated event for the owner in ctx.
func (s *TransactionService) Update(ctx context.Context, id string, patch core.TransactionPatch) error {
	if err := s.store.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	s.publish(ctx, amqp.EventUpdated, store.OwnerFromContext(ctx), id)
	return nil
}

// Delete removes id and publishes a deleted event for the owner in ctx.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, amqp.EventDeleted, store.OwnerFromContext(ctx), id)
	return nil
}

// ListOwners forwards to the wrapped store when it can enumerate owners.
func (s *TransactionService) ListOwners(ctx context.Context) ([]string, error) {
	lister, ok := s.store.(store.OwnerLister)
	if !ok {
		return nil, errors.New("store cannot list owners")
	}
	return lister.ListOwners(ctx)
}

// publish never fails the write: the transaction is already stored and the
// periodic resync repairs any mirror that missed the event.
func (s *TransactionService) publish(ctx context.Context, kind amqp.EventKind, owner, id string) {
	if s.publisher == nil {
		return
	}
	if owner == "" {
		slog.WarnContext(ctx, "No owner in context, skipping transaction event",
			"kind", kind, "transaction_id", id)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(kind, owner, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", kind, "owner", owner, "transaction_id", id, "error", err)
	}
}

// Close closes the store and publisher when they hold resources.
func (s *TransactionService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}
	return nil
}
