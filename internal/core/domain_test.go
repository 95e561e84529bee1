package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewTransaction(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	tx, err := NewTransaction("u1", "  Lunch  ", Money{Cents: -1500}, "food", "2026-01", now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.Text != "Lunch" {
		t.Fatalf("text not trimmed: %q", tx.Text)
	}
	if tx.Owner != "u1" || !tx.CreatedAt.Equal(now) || tx.ID != "" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}

	tx, err = NewTransaction("u1", "Salary", Money{Cents: 100000}, "", "", now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.Period != "2026-01" || tx.Category != string(DefaultCategory) {
		t.Fatalf("defaults not applied: %+v", tx)
	}

	cases := []struct {
		owner, text string
		want        error
	}{
		{"", "x", ErrNotAuthenticated},
		{"u1", "   ", ErrEmptyText},
	}
	for i, tc := range cases {
		if _, err := NewTransaction(tc.owner, tc.text, Money{Cents: 1}, "food", "2026-01", now); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestLongMultiByteText(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	long := strings.Repeat("ă", 300)

	tx, err := NewTransaction("u1", long, Money{Cents: -1500}, "food", "2026-01", now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.Text != long {
		t.Fatalf("text changed: %d runes", len([]rune(tx.Text)))
	}

	p, err := TransactionPatch{Text: &long}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if *p.Text != long {
		t.Fatalf("patch text changed")
	}
}

func TestNewTransactionKeepsUnknownCategory(t *testing.T) {
	tx, err := NewTransaction("u1", "gift", Money{Cents: 100}, "gifts", "2026-01", time.Now())
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.Category != "gifts" {
		t.Fatalf("category rewritten: %q", tx.Category)
	}
	if tx.Meta().Key != CategoryOther {
		t.Fatalf("expected other, got %q", tx.Meta().Key)
	}
}

func TestPatch(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := Transaction{ID: "a", Text: "old", Amount: Money{Cents: -100}, Category: "food", Period: "2026-01", Owner: "u1", CreatedAt: created}

	if _, err := (TransactionPatch{}).Normalize(); !errors.Is(err, ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}
	blank := "  "
	if _, err := (TransactionPatch{Text: &blank}).Normalize(); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}

	text := " new "
	amount := Money{Cents: 250}
	p, err := TransactionPatch{Text: &text, Amount: &amount}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	got := p.Apply(base)
	if got.Text != "new" || got.Amount.Cents != 250 {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.ID != base.ID || got.Owner != base.Owner || !got.CreatedAt.Equal(created) || got.Category != "food" {
		t.Fatalf("immutable fields changed: %+v", got)
	}
	if base.Text != "old" {
		t.Fatalf("Apply mutated its input")
	}
}

func TestSortNewestFirst(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Transaction{
		{ID: "old", CreatedAt: t0},
		{ID: "new", CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "mid", CreatedAt: t0.Add(time.Hour)},
	}
	out := SortNewestFirst(in)
	if out[0].ID != "new" || out[1].ID != "mid" || out[2].ID != "old" {
		t.Fatalf("unexpected order: %v %v %v", out[0].ID, out[1].ID, out[2].ID)
	}
	if in[0].ID != "old" {
		t.Fatalf("input reordered")
	}
}
