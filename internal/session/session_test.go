package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/store"
	"budget/internal/store/memory"
)

// fakeStore lets each test script the store's answers.
type fakeStore struct {
	mu        sync.Mutex
	createErr error
	updateErr error
	deleteErr error
	listing   []core.Transaction
	lists     atomic.Int32
	listGate  chan struct{}
	owners    []string
}

func (f *fakeStore) Create(ctx context.Context, owner string, t core.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	return "new-id", nil
}

func (f *fakeStore) ListByOwner(ctx context.Context, owner string) ([]core.Transaction, error) {
	f.lists.Add(1)
	if f.listGate != nil {
		<-f.listGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Transaction(nil), f.listing...), nil
}

func (f *fakeStore) Update(ctx context.Context, id string, patch core.TransactionPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners = append(f.owners, store.OwnerFromContext(ctx))
	return f.updateErr
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners = append(f.owners, store.OwnerFromContext(ctx))
	return f.deleteErr
}

func seeded(t *testing.T, fs *fakeStore, txs ...core.Transaction) *Session {
	t.Helper()
	fs.listing = txs
	s := New("u1", fs)
	require.NoError(t, s.Reconcile(context.Background()))
	return s
}

func TestAddInsertsAtHeadWithStoreID(t *testing.T) {
	fs := &fakeStore{}
	s := seeded(t, fs, tx("a", -100, "food", "2026-01", base))

	res, err := s.Add(context.Background(), Draft{Text: "  Lương ", Amount: "1500,50", Category: "other", Period: "2026-01"})
	require.NoError(t, err)
	assert.True(t, res.AppliedLocally)
	assert.NoError(t, res.RemoteErr)
	assert.Equal(t, "new-id", res.ID)

	st := s.State()
	require.Len(t, st.Transactions, 2)
	assert.Equal(t, "new-id", st.Transactions[0].ID)
	assert.Equal(t, "Lương", st.Transactions[0].Text)
	assert.Equal(t, int64(150050), st.Transactions[0].Amount.Cents)
	assert.Equal(t, "u1", st.Transactions[0].Owner)
}

func TestAddValidationTouchesNothing(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		want  error
	}{
		{"empty text", Draft{Text: "   ", Amount: "10"}, core.ErrEmptyText},
		{"missing amount", Draft{Text: "x", Amount: ""}, core.ErrInvalidAmount},
		{"non-numeric amount", Draft{Text: "x", Amount: "abc"}, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeStore{createErr: errors.New("must not be called")}
			s := New("u1", fs)
			res, err := s.Add(context.Background(), tt.draft)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, Result{}, res)
			assert.Empty(t, s.State().Transactions)
		})
	}
}

func TestAddNotAuthenticated(t *testing.T) {
	s := New("", &fakeStore{})
	_, err := s.Add(context.Background(), Draft{Text: "x", Amount: "1"})
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}

func TestAddRemoteFailureLeavesStateUnchanged(t *testing.T) {
	boom := errors.New("network down")
	s := New("u1", &fakeStore{createErr: boom})

	res, err := s.Add(context.Background(), Draft{Text: "x", Amount: "-5"})
	require.NoError(t, err)
	assert.False(t, res.AppliedLocally)
	assert.ErrorIs(t, res.RemoteErr, boom)
	assert.Empty(t, s.State().Transactions)
}

func TestEdit(t *testing.T) {
	fs := &fakeStore{}
	s := seeded(t, fs, tx("a", -100, "food", "2026-01", base))

	text := "Cà phê"
	res, err := s.Edit(context.Background(), "a", core.TransactionPatch{Text: &text})
	require.NoError(t, err)
	assert.True(t, res.AppliedLocally)
	assert.Equal(t, "Cà phê", s.State().Transactions[0].Text)
	assert.Equal(t, []string{"u1"}, fs.owners, "owner travels with the store call")
}

func TestEditRemoteFailureKeepsLocalCopy(t *testing.T) {
	fs := &fakeStore{updateErr: errors.New("denied")}
	s := seeded(t, fs, tx("a", -100, "food", "2026-01", base))

	text := "changed"
	res, err := s.Edit(context.Background(), "a", core.TransactionPatch{Text: &text})
	require.NoError(t, err)
	assert.False(t, res.AppliedLocally)
	assert.Error(t, res.RemoteErr)
	assert.Equal(t, "tx a", s.State().Transactions[0].Text)
}

func TestEditValidation(t *testing.T) {
	s := seeded(t, &fakeStore{}, tx("a", -100, "food", "2026-01", base))

	_, err := s.Edit(context.Background(), "a", core.TransactionPatch{})
	assert.ErrorIs(t, err, core.ErrEmptyPatch)

	blank := "  "
	_, err = s.Edit(context.Background(), "a", core.TransactionPatch{Text: &blank})
	assert.ErrorIs(t, err, core.ErrEmptyText)

	text := "x"
	_, err = s.Edit(context.Background(), "missing", core.TransactionPatch{Text: &text})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteSuccess(t *testing.T) {
	fs := &fakeStore{}
	s := seeded(t, fs, tx("a", -100, "food", "2026-01", base), tx("b", -100, "food", "2026-01", base))

	res, err := s.Delete(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, res.AppliedLocally)
	assert.NoError(t, res.RemoteErr)
	assert.False(t, res.Reconciled)
	assert.Equal(t, []string{"b"}, ids(s.State().Transactions))
}

func TestDeleteFailureReconcilesToStoreListing(t *testing.T) {
	fs := &fakeStore{}
	s := seeded(t, fs,
		tx("a", -100, "food", "2026-01", base),
		tx("b", -200, "food", "2026-01", base.Add(time.Minute)),
	)

	// Another session changed the store meanwhile.
	authoritative := []core.Transaction{
		tx("a", -100, "food", "2026-01", base),
		tx("c", 900, "other", "2026-02", base.Add(2*time.Minute)),
	}
	fs.mu.Lock()
	fs.deleteErr = errors.New("permission denied")
	fs.listing = authoritative
	fs.mu.Unlock()

	res, err := s.Delete(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, res.AppliedLocally)
	assert.Error(t, res.RemoteErr)
	assert.True(t, res.Reconciled)

	assert.Equal(t, core.SortNewestFirst(authoritative), s.State().Transactions)
}

func TestDeleteUnknownID(t *testing.T) {
	s := seeded(t, &fakeStore{})
	_, err := s.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReconcileCollapsesConcurrentCalls(t *testing.T) {
	fs := &fakeStore{listGate: make(chan struct{})}
	s := New("u1", fs)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Reconcile(context.Background()))
		}()
	}
	// Let the callers pile up behind the first store read.
	time.Sleep(50 * time.Millisecond)
	close(fs.listGate)
	wg.Wait()

	assert.Less(t, int(fs.lists.Load()), 5)
}

func TestWatchClearsOnSignOut(t *testing.T) {
	p := auth.NewStaticProvider()
	ctx := context.Background()
	_, err := p.SignIn(ctx, "u1")
	require.NoError(t, err)

	s := seeded(t, &fakeStore{}, tx("a", -100, "food", "2026-01", base))
	s.Watch(p)
	defer s.Close()
	assert.Len(t, s.State().Transactions, 1, "signed-in owner keeps state")

	require.NoError(t, p.SignOut(ctx, "u1"))
	assert.Empty(t, s.State().Transactions)
	_, err = s.Add(ctx, Draft{Text: "x", Amount: "1"})
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}

func TestReconcileAfterSignOutKeepsStateCleared(t *testing.T) {
	p := auth.NewStaticProvider()
	ctx := context.Background()
	_, err := p.SignIn(ctx, "u1")
	require.NoError(t, err)

	fs := &fakeStore{listGate: make(chan struct{}), listing: []core.Transaction{tx("a", -100, "food", "2026-01", base)}}
	s := New("u1", fs)
	s.Watch(p)
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.Reconcile(ctx) }()
	require.Eventually(t, func() bool { return fs.lists.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.SignOut(ctx, "u1"))
	close(fs.listGate)

	assert.ErrorIs(t, <-done, core.ErrNotAuthenticated)
	st := s.State()
	assert.Empty(t, st.Owner)
	assert.Empty(t, st.Transactions)
}

func TestSessionWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := New("u1", memory.New())

	for _, d := range []Draft{
		{Text: "Lương", Amount: "500", Category: "food", Period: "2026-01"},
		{Text: "Phở", Amount: "-200", Category: "food", Period: "2026-01"},
		{Text: "Taxi", Amount: "-100", Category: "travel", Period: "2026-01"},
	} {
		res, err := s.Add(ctx, d)
		require.NoError(t, err)
		require.True(t, res.AppliedLocally)
	}

	v := s.View()
	assert.Equal(t, int64(20000), v.Total.Cents)
	assert.Equal(t, int64(50000), v.Income.Cents)
	assert.Equal(t, int64(30000), v.Expense.Cents)

	s.SetFilter(core.Filter{Category: "travel"}, "")
	v = s.View()
	require.Len(t, v.Transactions, 1)
	assert.Equal(t, "Taxi", v.Transactions[0].Text)

	require.NoError(t, s.Reconcile(ctx))
	assert.Len(t, s.State().Transactions, 3)
}
