// Package session holds one owner's client state: the transaction collection,
// the active filter, and the commands that keep it in step with the store.
package session

import (
	"budget/internal/analytics"
	"budget/internal/core"
)

// State is the whole client state for one owner. Values are never shared
// with the caller; Reduce always returns fresh slices.
type State struct {
	Owner        string
	Transactions []core.Transaction // newest first
	Filter       core.Filter
	Period       string // "" means every period
}

// Event is a state transition understood by Reduce.
type Event interface{ isEvent() }

type (
	// Loaded replaces the collection with an authoritative listing.
	Loaded struct{ Transactions []core.Transaction }
	// Added inserts a stored transaction at the head.
	Added struct{ Transaction core.Transaction }
	// Edited applies a patch to the transaction with ID.
	Edited struct {
		ID    string
		Patch core.TransactionPatch
	}
	// Removed drops the transaction with ID.
	Removed struct{ ID string }
	// FilterChanged sets the category, search and period filters.
	FilterChanged struct {
		Filter core.Filter
		Period string
	}
	// SignedOut clears the owner and the collection; commands then fail
	// with core.ErrNotAuthenticated.
	SignedOut struct{}
)

func (Loaded) isEvent()        {}
func (Added) isEvent()         {}
func (Edited) isEvent()        {}
func (Removed) isEvent()       {}
func (FilterChanged) isEvent() {}
func (SignedOut) isEvent()     {}

// Reduce returns the state after ev. It does not modify s.
func Reduce(s State, ev Event) State {
	next := s
	switch e := ev.(type) {
	case Loaded:
		next.Transactions = core.SortNewestFirst(e.Transactions)
	case Added:
		txs := make([]core.Transaction, 0, len(s.Transactions)+1)
		txs = append(txs, e.Transaction)
		next.Transactions = append(txs, s.Transactions...)
	case Edited:
		txs := make([]core.Transaction, len(s.Transactions))
		copy(txs, s.Transactions)
		for i := range txs {
			if txs[i].ID == e.ID {
				txs[i] = e.Patch.Apply(txs[i])
			}
		}
		next.Transactions = txs
	case Removed:
		txs := make([]core.Transaction, 0, len(s.Transactions))
		for _, t := range s.Transactions {
			if t.ID != e.ID {
				txs = append(txs, t)
			}
		}
		next.Transactions = txs
	case FilterChanged:
		next.Filter = e.Filter
		next.Period = e.Period
	case SignedOut:
		next = State{Transactions: []core.Transaction{}}
	}
	return next
}

// Find returns the transaction with id.
func (s State) Find(id string) (core.Transaction, bool) {
	for _, t := range s.Transactions {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

// View is everything derived from a State for display.
type View struct {
	Owner        string
	Filter       core.Filter
	Period       string
	Transactions []core.Transaction // after category, search and period filters
	Periods      []string           // every period present, ascending

	Total        core.Money
	Income       core.Money
	Expense      core.Money
	IncomeCount  int
	ExpenseCount int

	Categories []core.CategoryGroup
	Months     []core.MonthGroup
	Report     analytics.Report
}

// Derive computes the view for s. Month groups ignore the period filter so
// that the monthly trend stays complete while one month is selected.
func Derive(s State) View {
	filtered := core.FilterBy(s.Transactions, s.Filter)
	inPeriod := core.FilterByPeriod(filtered, s.Period)

	return View{
		Owner:        s.Owner,
		Filter:       s.Filter,
		Period:       s.Period,
		Transactions: inPeriod,
		Periods:      core.Periods(s.Transactions),
		Total:        core.Sum(inPeriod),
		Income:       core.SumIncome(inPeriod),
		Expense:      core.SumExpense(inPeriod),
		IncomeCount:  core.CountIncome(inPeriod),
		ExpenseCount: core.CountExpense(inPeriod),
		Categories:   core.GroupByCategory(inPeriod, core.CategoryKeys()),
		Months:       core.GroupByMonth(filtered),
		Report:       analytics.Compute(inPeriod),
	}
}
