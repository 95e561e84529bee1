package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// PeriodLayout is the year-month layout used for period labels ("2026-01").
const PeriodLayout = "2006-01"

type (
	Money struct {
		Cents int64
	}

	// Transaction is a single income (positive amount) or expense (negative amount).
	Transaction struct {
		ID        string
		Text      string
		Amount    Money
		Category  string
		Period    string // year-month label, kept verbatim
		Owner     string
		CreatedAt time.Time
	}

	// TransactionPatch carries the mutable fields of an edit. Nil fields are left untouched.
	TransactionPatch struct {
		Text     *string
		Amount   *Money
		Category *string
		Period   *string
	}
)

var (
	ErrEmptyText        = errors.New("empty description")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrEmptyPatch       = errors.New("nothing to update")
)

// NewTransaction validates the input and builds a transaction without an ID.
// An empty period defaults to the month of now.
func NewTransaction(owner, text string, amount Money, category, period string, now time.Time) (Transaction, error) {
	if strings.TrimSpace(owner) == "" {
		return Transaction{}, ErrNotAuthenticated
	}
	if period == "" {
		period = now.Format(PeriodLayout)
	}
	if category == "" {
		category = string(DefaultCategory)
	}
	t := Transaction{
		Text:      strings.TrimSpace(text),
		Amount:    amount,
		Category:  category,
		Period:    period,
		Owner:     owner,
		CreatedAt: now,
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Text)) == 0 {
		return ErrEmptyText
	}
	return nil
}

// IsIncome reports whether the transaction counts toward income.
func (t Transaction) IsIncome() bool { return t.Amount.Cents > 0 }

// IsExpense reports whether the transaction counts toward expense.
func (t Transaction) IsExpense() bool { return t.Amount.Cents < 0 }

// Meta resolves the transaction's category through the registry.
func (t Transaction) Meta() CategoryMeta { return Resolve(t.Category) }

// Normalize trims the text fields of the patch and validates them.
func (p TransactionPatch) Normalize() (TransactionPatch, error) {
	if p.Text == nil && p.Amount == nil && p.Category == nil && p.Period == nil {
		return p, ErrEmptyPatch
	}
	if p.Text != nil {
		trimmed := strings.TrimSpace(*p.Text)
		if trimmed == "" {
			return p, ErrEmptyText
		}
		p.Text = &trimmed
	}
	return p, nil
}

// Apply returns a copy of t with the patch applied. ID, Owner and CreatedAt never change.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Period != nil {
		t.Period = *p.Period
	}
	return t
}

// SortNewestFirst returns a copy of txs ordered by CreatedAt descending.
func SortNewestFirst(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
