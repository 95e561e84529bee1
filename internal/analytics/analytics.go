// Package analytics derives read-only metrics from a set of transactions.
//
// Every function is pure. Ratios and averages are expressed in currency units
// (float64); totals and extremes stay in core.Money.
package analytics

import (
	"math"
	"sort"

	"budget/internal/core"
)

const (
	// DaysPerMonth is the fixed divisor of the per-day average. It is not calendar-aware.
	DaysPerMonth = 30

	// TopN is the number of categories shown as "top categories".
	TopN = 3

	lowSavingsThreshold = 10.0
	excellentThreshold  = 30.0
	goodThreshold       = 15.0
	richDataThreshold   = 50
)

// Report bundles the metrics of one filtered transaction set.
type Report struct {
	TransactionCount int
	IncomeCount      int
	ExpenseCount     int

	TotalIncome  core.Money
	TotalExpense core.Money
	Balance      core.Money

	AverageExpensePerDay         float64
	AverageIncomePerTransaction  float64
	AverageExpensePerTransaction float64

	LargestIncome  core.Money
	LargestExpense core.Money

	SavingsRate float64
	SavingsTier Tier

	MonthlyProjectedExpense float64
	MonthlyProjectedIncome  float64
	MonthlyProjectedBalance float64

	Categories    []core.CategoryGroup
	TopCategories []core.CategoryGroup
	Insights      []Insight
}

// Compute builds the full report for txs, grouping over every registry category.
func Compute(txs []core.Transaction) Report {
	income := core.SumIncome(txs)
	expense := core.SumExpense(txs)
	perDay := AverageExpensePerDay(expense)
	rate := SavingsRate(income, expense)
	groups := core.GroupByCategory(txs, core.CategoryKeys())

	r := Report{
		TransactionCount: len(txs),
		IncomeCount:      core.CountIncome(txs),
		ExpenseCount:     core.CountExpense(txs),
		TotalIncome:      income,
		TotalExpense:     expense,
		Balance:          core.Sum(txs),

		AverageExpensePerDay:         perDay,
		AverageIncomePerTransaction:  AverageAmount(incomeOnly(txs)),
		AverageExpensePerTransaction: math.Abs(AverageAmount(expenseOnly(txs))),

		LargestIncome:  LargestIncome(txs),
		LargestExpense: LargestExpense(txs),

		SavingsRate: rate,
		SavingsTier: TierFor(rate),

		MonthlyProjectedExpense: MonthlyProjectedExpense(perDay),
		MonthlyProjectedIncome:  MonthlyProjectedIncome(income),

		Categories:    groups,
		TopCategories: TopCategories(groups, TopN),
	}
	r.MonthlyProjectedBalance = r.MonthlyProjectedIncome - r.MonthlyProjectedExpense
	r.Insights = Insights(Signals{
		SavingsRate:                 rate,
		AverageExpensePerDay:        perDay,
		AverageIncomePerTransaction: r.AverageIncomePerTransaction,
		TransactionCount:            len(txs),
	})
	return r
}

// AverageExpensePerDay spreads the total expense over a fixed 30-day month.
func AverageExpensePerDay(totalExpense core.Money) float64 {
	return totalExpense.Units() / DaysPerMonth
}

// AverageAmount is the mean signed amount of txs, 0 when txs is empty.
func AverageAmount(txs []core.Transaction) float64 {
	if len(txs) == 0 {
		return 0
	}
	return core.Sum(txs).Units() / float64(len(txs))
}

// LargestIncome is the highest positive amount, zero when there is no income.
func LargestIncome(txs []core.Transaction) core.Money {
	var best int64
	for _, t := range txs {
		if t.IsIncome() && t.Amount.Cents > best {
			best = t.Amount.Cents
		}
	}
	return core.Money{Cents: best}
}

// LargestExpense is the absolute value of the most negative amount, zero when there is no expense.
func LargestExpense(txs []core.Transaction) core.Money {
	var worst int64
	for _, t := range txs {
		if t.IsExpense() && t.Amount.Cents < worst {
			worst = t.Amount.Cents
		}
	}
	return core.Money{Cents: -worst}
}

// SavingsRate is (income - expense) / income * 100, or 0 without income.
// The value is not clamped.
func SavingsRate(totalIncome, totalExpense core.Money) float64 {
	if totalIncome.Cents == 0 {
		return 0
	}
	return float64(totalIncome.Cents-totalExpense.Cents) / float64(totalIncome.Cents) * 100
}

// MonthlyProjectedExpense multiplies the per-day average back by 30.
// This is algebraically the total expense; it is not a trend forecast.
func MonthlyProjectedExpense(averageExpensePerDay float64) float64 {
	return averageExpensePerDay * DaysPerMonth
}

// MonthlyProjectedIncome passes the total income through unchanged.
func MonthlyProjectedIncome(totalIncome core.Money) float64 {
	return totalIncome.Units()
}

// RankCategories keeps the groups with a non-zero expense, highest expense first.
// Ties keep their input order.
func RankCategories(groups []core.CategoryGroup) []core.CategoryGroup {
	ranked := make([]core.CategoryGroup, 0, len(groups))
	for _, g := range groups {
		if g.Expense.Cents != 0 {
			ranked = append(ranked, g)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Expense.Cents > ranked[j].Expense.Cents
	})
	return ranked
}

// TopCategories returns at most n ranked categories.
func TopCategories(groups []core.CategoryGroup, n int) []core.CategoryGroup {
	ranked := RankCategories(groups)
	if n < 0 {
		n = 0
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func incomeOnly(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.IsIncome() {
			out = append(out, t)
		}
	}
	return out
}

func expenseOnly(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.IsExpense() {
			out = append(out, t)
		}
	}
	return out
}
