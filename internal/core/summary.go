package core

import (
	"sort"
	"strings"
)

// Filter narrows a transaction list. Empty fields match everything.
type Filter struct {
	Category string // "" or "all" for every category
	Search   string // case-insensitive substring of Text, not trimmed
}

// CategoryGroup is the income and expense of one category.
type CategoryGroup struct {
	Category string
	Expense  Money   // absolute
	Income   Money
	Percent  float64 // share of the grand total expense, 0..100
}

// MonthGroup is the income and expense of one period label.
type MonthGroup struct {
	Period  string
	Income  Money
	Expense Money // absolute
}

// FilterBy returns the transactions matching f in their original order.
func FilterBy(txs []Transaction, f Filter) []Transaction {
	needle := strings.ToLower(f.Search)
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if !IsWildcard(f.Category) && t.Category != f.Category {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Text), needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FilterByPeriod keeps the transactions of one period label. An empty period keeps all.
func FilterByPeriod(txs []Transaction, period string) []Transaction {
	if period == "" {
		out := make([]Transaction, len(txs))
		copy(out, txs)
		return out
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Period == period {
			out = append(out, t)
		}
	}
	return out
}

// Sum is the signed total of every amount.
func Sum(txs []Transaction) Money {
	var total int64
	for _, t := range txs {
		total += t.Amount.Cents
	}
	return Money{Cents: total}
}

// SumIncome adds the positive amounts.
func SumIncome(txs []Transaction) Money {
	var total int64
	for _, t := range txs {
		if t.IsIncome() {
			total += t.Amount.Cents
		}
	}
	return Money{Cents: total}
}

// SumExpense adds the absolute values of the negative amounts.
func SumExpense(txs []Transaction) Money {
	var total int64
	for _, t := range txs {
		if t.IsExpense() {
			total -= t.Amount.Cents
		}
	}
	return Money{Cents: total}
}

func CountIncome(txs []Transaction) int {
	n := 0
	for _, t := range txs {
		if t.IsIncome() {
			n++
		}
	}
	return n
}

func CountExpense(txs []Transaction) int {
	n := 0
	for _, t := range txs {
		if t.IsExpense() {
			n++
		}
	}
	return n
}

// GroupByCategory returns one group per key, in the order of keys.
func GroupByCategory(txs []Transaction, keys []string) []CategoryGroup {
	income := make(map[string]int64)
	expense := make(map[string]int64)
	for _, t := range txs {
		switch {
		case t.IsIncome():
			income[t.Category] += t.Amount.Cents
		case t.IsExpense():
			expense[t.Category] -= t.Amount.Cents
		}
	}
	total := SumExpense(txs).Cents

	groups := make([]CategoryGroup, 0, len(keys))
	for _, k := range keys {
		g := CategoryGroup{
			Category: k,
			Expense:  Money{Cents: expense[k]},
			Income:   Money{Cents: income[k]},
		}
		if total != 0 {
			g.Percent = float64(g.Expense.Cents) / float64(total) * 100
		}
		groups = append(groups, g)
	}
	return groups
}

// GroupByMonth groups by Period verbatim, sorted ascending by the label.
func GroupByMonth(txs []Transaction) []MonthGroup {
	idx := make(map[string]int)
	groups := make([]MonthGroup, 0)
	for _, t := range txs {
		i, ok := idx[t.Period]
		if !ok {
			i = len(groups)
			idx[t.Period] = i
			groups = append(groups, MonthGroup{Period: t.Period})
		}
		switch {
		case t.IsIncome():
			groups[i].Income.Cents += t.Amount.Cents
		case t.IsExpense():
			groups[i].Expense.Cents -= t.Amount.Cents
		}
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].Period < groups[b].Period })
	return groups
}

// Periods lists the distinct period labels in ascending order.
func Periods(txs []Transaction) []string {
	groups := GroupByMonth(txs)
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Period
	}
	return out
}
