package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/store"
)

var (
	_ store.TransactionStore = (*Repository)(nil)
	_ store.OwnerLister      = (*Repository)(nil)
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	t0 := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	older, err := repo.Create(ctx, "u1", core.Transaction{Text: "Rent", Amount: core.Money{Cents: -80000}, Category: "bills", Period: "2026-01", CreatedAt: t0})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	newer, err := repo.Create(ctx, "u1", core.Transaction{Text: "Salary", Amount: core.Money{Cents: 250000}, Category: "other", Period: "2026-01", CreatedAt: t0.Add(time.Hour)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, "u2", core.Transaction{Text: "Bus", Amount: core.Money{Cents: -200}, Category: "travel", Period: "2026-01", CreatedAt: t0}); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := repo.ListByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer || list[1].ID != older {
		t.Fatalf("unexpected listing: %+v", list)
	}
	if !list[1].CreatedAt.Equal(t0) || list[1].Amount.Cents != -80000 || list[1].Owner != "u1" {
		t.Fatalf("round trip lost data: %+v", list[1])
	}

	text := "Rent (Jan)"
	amount := core.Money{Cents: -81000}
	if err := repo.Update(ctx, older, core.TransactionPatch{Text: &text, Amount: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, _ = repo.ListByOwner(ctx, "u1")
	if list[1].Text != "Rent (Jan)" || list[1].Amount.Cents != -81000 || list[1].Category != "bills" {
		t.Fatalf("update not applied: %+v", list[1])
	}

	if err := repo.Delete(ctx, newer); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, newer); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Update(ctx, "missing", core.TransactionPatch{Text: &text}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	owners, err := repo.ListOwners(ctx)
	if err != nil || len(owners) != 2 {
		t.Fatalf("owners: %v err=%v", owners, err)
	}
}

func TestRepositoryValidation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.Create(ctx, "", core.Transaction{Text: "x"}); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := repo.Update(ctx, "id", core.TransactionPatch{}); !errors.Is(err, core.ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo.Close()
	if err := RunMigrations(DialectSQLite, path); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: DialectPostgres}
	if got := pg.rebind("UPDATE t SET a = ?, b = ? WHERE id = ?"); got != "UPDATE t SET a = $1, b = $2 WHERE id = $3" {
		t.Fatalf("unexpected rebind: %s", got)
	}
	lite := &Repository{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite query rewritten: %s", got)
	}
}
