package store

import (
	"context"
	"errors"

	"budget/internal/core"
)

// ErrNotFound is returned when an id does not name a stored transaction.
var ErrNotFound = errors.New("transaction not found")

// Ports for outbound adapters.
type (
	// TransactionStore is the durable copy of every owner's transactions.
	TransactionStore interface {
		// Create persists t for owner and returns the assigned id.
		Create(ctx context.Context, owner string, t core.Transaction) (id string, err error)
		// ListByOwner returns every transaction of owner in no particular order.
		ListByOwner(ctx context.Context, owner string) ([]core.Transaction, error)
		Update(ctx context.Context, id string, patch core.TransactionPatch) error
		Delete(ctx context.Context, id string) error
	}

	// OwnerLister enumerates the owners that have at least one transaction.
	OwnerLister interface {
		ListOwners(ctx context.Context) ([]string, error)
	}
)
