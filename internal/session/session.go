package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/store"
)

// Result reports what a command did. A command that fails validation returns
// an error instead and touches neither local state nor the store.
type Result struct {
	// ID is the transaction the command acted on; for Add it is the id
	// assigned by the store.
	ID string
	// AppliedLocally is true when the local collection changed.
	AppliedLocally bool
	// RemoteErr is the store failure, if any.
	RemoteErr error
	// Reconciled is true when the collection was reloaded after RemoteErr.
	Reconciled bool
}

// Draft is user input for a new transaction.
type Draft struct {
	Text     string
	Amount   string
	Category string
	Period   string
}

// Session owns the State of one owner. It is safe for concurrent use; every
// state change goes through Reduce under the session lock.
type Session struct {
	store store.TransactionStore
	now   func() time.Time

	mu    sync.Mutex
	state State

	reload      singleflight.Group
	unsubscribe func()
}

func New(owner string, s store.TransactionStore) *Session {
	return &Session{
		store: s,
		now:   time.Now,
		state: State{Owner: owner, Transactions: []core.Transaction{}},
	}
}

// Watch clears the session when the owner signs out of p.
func (s *Session) Watch(p auth.Provider) {
	unsubscribe := p.OnAuthStateChange(s.Owner(), func(id *auth.Identity) {
		if id == nil {
			s.dispatch(SignedOut{})
		}
	})
	s.mu.Lock()
	prev := s.unsubscribe
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Close stops watching the auth provider.
func (s *Session) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Owner
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Transactions = append([]core.Transaction(nil), s.state.Transactions...)
	return st
}

// View derives the display view from the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Derive(s.state)
}

func (s *Session) SetFilter(f core.Filter, period string) {
	s.dispatch(FilterChanged{Filter: f, Period: period})
}

func (s *Session) dispatch(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, ev)
}

// dispatchFor applies ev only while owner is still signed in to the session.
// Store calls run unlocked, so a sign-out may land between the call and its result.
func (s *Session) dispatchFor(owner string, ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Owner != owner {
		return false
	}
	s.state = Reduce(s.state, ev)
	return true
}

// storeCtx carries the owner so store decorators can attribute Update and
// Delete.
func (s *Session) storeCtx(ctx context.Context) context.Context {
	return store.WithOwner(ctx, s.Owner())
}

// Add validates d, creates it in the store and, once stored, inserts it at the
// head of the collection.
func (s *Session) Add(ctx context.Context, d Draft) (Result, error) {
	owner := s.Owner()
	if owner == "" {
		return Result{}, core.ErrNotAuthenticated
	}
	amount, err := core.ParseAmount(d.Amount)
	if err != nil {
		return Result{}, err
	}
	t, err := core.NewTransaction(owner, d.Text, amount, d.Category, d.Period, s.now())
	if err != nil {
		return Result{}, err
	}

	id, err := s.store.Create(s.storeCtx(ctx), owner, t)
	if err != nil {
		slog.WarnContext(ctx, "Failed to create transaction", "owner", owner, "error", err)
		return Result{RemoteErr: err}, nil
	}
	t.ID = id
	if !s.dispatchFor(owner, Added{Transaction: t}) {
		return Result{ID: id}, nil
	}
	return Result{ID: id, AppliedLocally: true}, nil
}

// Edit validates patch, updates the store and then the local copy. A store
// failure leaves the local copy as it was.
func (s *Session) Edit(ctx context.Context, id string, patch core.TransactionPatch) (Result, error) {
	owner := s.Owner()
	if owner == "" {
		return Result{}, core.ErrNotAuthenticated
	}
	patch, err := patch.Normalize()
	if err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	_, ok := s.state.Find(id)
	s.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("edit %s: %w", id, store.ErrNotFound)
	}

	if err := s.store.Update(s.storeCtx(ctx), id, patch); err != nil {
		slog.WarnContext(ctx, "Failed to update transaction", "transaction_id", id, "error", err)
		return Result{ID: id, RemoteErr: err}, nil
	}
	if !s.dispatchFor(owner, Edited{ID: id, Patch: patch}) {
		return Result{ID: id}, nil
	}
	return Result{ID: id, AppliedLocally: true}, nil
}

// Delete removes id locally first, then from the store. If the store fails the
// collection is reloaded so it matches the store again.
func (s *Session) Delete(ctx context.Context, id string) (Result, error) {
	if s.Owner() == "" {
		return Result{}, core.ErrNotAuthenticated
	}
	s.mu.Lock()
	_, ok := s.state.Find(id)
	if ok {
		s.state = Reduce(s.state, Removed{ID: id})
	}
	s.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}

	res := Result{ID: id, AppliedLocally: true}
	if err := s.store.Delete(s.storeCtx(ctx), id); err != nil {
		slog.WarnContext(ctx, "Failed to delete transaction, reloading", "transaction_id", id, "error", err)
		res.RemoteErr = err
		if rerr := s.Reconcile(ctx); rerr != nil {
			slog.ErrorContext(ctx, "Failed to reload transactions", "owner", s.Owner(), "error", rerr)
		} else {
			res.Reconciled = true
		}
	}
	return res, nil
}

// Reconcile replaces the local collection with the store's listing for the
// owner. Concurrent calls share one store read. A sign-out during the read
// discards the listing and returns core.ErrNotAuthenticated.
func (s *Session) Reconcile(ctx context.Context) error {
	owner := s.Owner()
	if owner == "" {
		return core.ErrNotAuthenticated
	}
	_, err, _ := s.reload.Do(owner, func() (any, error) {
		txs, err := s.store.ListByOwner(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		if !s.dispatchFor(owner, Loaded{Transactions: txs}) {
			return nil, core.ErrNotAuthenticated
		}
		slog.DebugContext(ctx, "Reloaded transactions", "owner", owner, "count", len(txs))
		return nil, nil
	})
	return err
}
