package http

import (
	"time"

	"budget/internal/analytics"
	"budget/internal/core"
	"budget/internal/session"
)

type moneyJSON struct {
	Cents int64  `json:"cents"`
	Value string `json:"value"`
}

func money(m core.Money) moneyJSON {
	return moneyJSON{Cents: m.Cents, Value: m.String()}
}

type transactionJSON struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Amount       moneyJSON `json:"amount"`
	Category     string    `json:"category"`
	CategoryName string    `json:"category_name"`
	CategoryIcon string    `json:"category_icon"`
	Period       string    `json:"period"`
	CreatedAt    time.Time `json:"created_at"`
}

func transaction(t core.Transaction) transactionJSON {
	meta := t.Meta()
	return transactionJSON{
		ID:           t.ID,
		Text:         t.Text,
		Amount:       money(t.Amount),
		Category:     t.Category,
		CategoryName: meta.Name,
		CategoryIcon: meta.Icon,
		Period:       t.Period,
		CreatedAt:    t.CreatedAt.UTC(),
	}
}

func transactions(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txs))
	for i, t := range txs {
		out[i] = transaction(t)
	}
	return out
}

type filterJSON struct {
	Category string `json:"category"`
	Search   string `json:"q"`
	Period   string `json:"period"`
}

type listJSON struct {
	Filter       filterJSON        `json:"filter"`
	Count        int               `json:"count"`
	Transactions []transactionJSON `json:"transactions"`
}

type summaryJSON struct {
	Filter       filterJSON `json:"filter"`
	Periods      []string   `json:"periods"`
	Total        moneyJSON  `json:"total"`
	Income       moneyJSON  `json:"income"`
	Expense      moneyJSON  `json:"expense"`
	IncomeCount  int        `json:"income_count"`
	ExpenseCount int        `json:"expense_count"`
}

type categoryGroupJSON struct {
	Category string    `json:"category"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon"`
	Expense  moneyJSON `json:"expense"`
	Income   moneyJSON `json:"income"`
	Percent  float64   `json:"percent"`
}

func categoryGroups(groups []core.CategoryGroup) []categoryGroupJSON {
	out := make([]categoryGroupJSON, len(groups))
	for i, g := range groups {
		meta := core.Resolve(g.Category)
		out[i] = categoryGroupJSON{
			Category: g.Category,
			Name:     meta.Name,
			Icon:     meta.Icon,
			Expense:  money(g.Expense),
			Income:   money(g.Income),
			Percent:  g.Percent,
		}
	}
	return out
}

type monthGroupJSON struct {
	Period  string    `json:"period"`
	Income  moneyJSON `json:"income"`
	Expense moneyJSON `json:"expense"`
}

func monthGroups(groups []core.MonthGroup) []monthGroupJSON {
	out := make([]monthGroupJSON, len(groups))
	for i, g := range groups {
		out[i] = monthGroupJSON{Period: g.Period, Income: money(g.Income), Expense: money(g.Expense)}
	}
	return out
}

type analyticsJSON struct {
	Filter           filterJSON `json:"filter"`
	TransactionCount int        `json:"transaction_count"`
	IncomeCount      int        `json:"income_count"`
	ExpenseCount     int        `json:"expense_count"`

	TotalIncome  moneyJSON `json:"total_income"`
	TotalExpense moneyJSON `json:"total_expense"`
	Balance      moneyJSON `json:"balance"`

	AverageExpensePerDay         float64 `json:"average_expense_per_day"`
	AverageIncomePerTransaction  float64 `json:"average_income_per_transaction"`
	AverageExpensePerTransaction float64 `json:"average_expense_per_transaction"`

	LargestIncome  moneyJSON `json:"largest_income"`
	LargestExpense moneyJSON `json:"largest_expense"`

	SavingsRate float64        `json:"savings_rate"`
	SavingsTier analytics.Tier `json:"savings_tier"`

	MonthlyProjectedExpense float64 `json:"monthly_projected_expense"`
	MonthlyProjectedIncome  float64 `json:"monthly_projected_income"`
	MonthlyProjectedBalance float64 `json:"monthly_projected_balance"`

	Categories    []categoryGroupJSON `json:"categories"`
	TopCategories []categoryGroupJSON `json:"top_categories"`
	Insights      []analytics.Insight `json:"insights"`
}

func report(v session.View) analyticsJSON {
	r := v.Report
	return analyticsJSON{
		Filter:                       filter(v),
		TransactionCount:             r.TransactionCount,
		IncomeCount:                  r.IncomeCount,
		ExpenseCount:                 r.ExpenseCount,
		TotalIncome:                  money(r.TotalIncome),
		TotalExpense:                 money(r.TotalExpense),
		Balance:                      money(r.Balance),
		AverageExpensePerDay:         r.AverageExpensePerDay,
		AverageIncomePerTransaction:  r.AverageIncomePerTransaction,
		AverageExpensePerTransaction: r.AverageExpensePerTransaction,
		LargestIncome:                money(r.LargestIncome),
		LargestExpense:               money(r.LargestExpense),
		SavingsRate:                  r.SavingsRate,
		SavingsTier:                  r.SavingsTier,
		MonthlyProjectedExpense:      r.MonthlyProjectedExpense,
		MonthlyProjectedIncome:       r.MonthlyProjectedIncome,
		MonthlyProjectedBalance:      r.MonthlyProjectedBalance,
		Categories:                   categoryGroups(r.Categories),
		TopCategories:                categoryGroups(r.TopCategories),
		Insights:                     r.Insights,
	}
}

func filter(v session.View) filterJSON {
	return filterJSON{Category: v.Filter.Category, Search: v.Filter.Search, Period: v.Period}
}
