package memory

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/store"
)

type Store struct {
	mu    sync.Mutex
	items map[string]core.Transaction
	now   func() time.Time
}

func New() *Store {
	return &Store{items: make(map[string]core.Transaction), now: time.Now}
}

// NewFromFile seeds the store from a file of "owner;period;category;amount;text" lines.
// Later lines are created later. Blank lines, comments and malformed lines are skipped.
// A missing file yields an empty store.
func NewFromFile(path string) *Store {
	s := New()
	ctx := context.Background()
	base := s.now()
	for i, line := range readLines(path) {
		parts := strings.SplitN(line, ";", 5)
		if len(parts) != 5 {
			continue
		}
		amount, err := core.ParseAmount(parts[3])
		if err != nil {
			continue
		}
		t, err := core.NewTransaction(parts[0], parts[4], amount, parts[2], parts[1], base.Add(time.Duration(i)*time.Millisecond))
		if err != nil {
			continue
		}
		_, _ = s.Create(ctx, t.Owner, t)
	}
	return s
}

// Create stores a copy of t under a fresh UUID.
func (s *Store) Create(_ context.Context, owner string, t core.Transaction) (string, error) {
	if owner == "" {
		return "", core.ErrNotAuthenticated
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.Owner = owner
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.items[t.ID] = t
	return t.ID, nil
}

func (s *Store) ListByOwner(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.items {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	return core.SortNewestFirst(out), nil
}

func (s *Store) Update(_ context.Context, id string, patch core.TransactionPatch) error {
	patch, err := patch.Normalize()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok {
		return store.ErrNotFound
	}
	s.items[id] = patch.Apply(t)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// ListOwners returns the distinct owners, sorted.
func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for _, t := range s.items {
		seen[t.Owner] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	sort.Strings(out)
	return out, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
