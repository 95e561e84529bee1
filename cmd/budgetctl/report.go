package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"budget/internal/core"
	"budget/internal/session"
)

type categoriesCmd struct{}

func (c *categoriesCmd) Run(_ *globals) error {
	return writeCategories(os.Stdout)
}

func writeCategories(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME")
	for _, meta := range core.Categories() {
		fmt.Fprintf(tw, "%s\t%s\n", meta.Key, meta.Name)
	}
	return tw.Flush()
}

type reportCmd struct {
	Owner    string `required:"" help:"Owner id to report on."`
	Period   string `help:"Only count this month (YYYY-MM)."`
	Category string `help:"Only count this category key."`
	Search   string `name:"q" help:"Only count transactions whose text contains this."`
}

func (c *reportCmd) Run(g *globals) error {
	ctx := context.Background()
	defer g.close()

	txs, err := g.backend(ctx).ListByOwner(ctx, c.Owner)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	view := session.Derive(session.State{
		Owner:        c.Owner,
		Transactions: core.SortNewestFirst(txs),
		Filter:       core.Filter{Category: c.Category, Search: c.Search},
		Period:       c.Period,
	})
	return writeReport(os.Stdout, view)
}

func writeReport(w io.Writer, v session.View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	period := v.Period
	if period == "" {
		period = "all"
	}

	fmt.Fprintf(tw, "Owner\t%s\n", v.Owner)
	fmt.Fprintf(tw, "Period\t%s\n", period)
	fmt.Fprintf(tw, "Transactions\t%d\n", len(v.Transactions))
	fmt.Fprintf(tw, "Income\t%s\t(%d)\n", v.Income, v.IncomeCount)
	fmt.Fprintf(tw, "Expense\t%s\t(%d)\n", v.Expense, v.ExpenseCount)
	fmt.Fprintf(tw, "Balance\t%s\n", v.Total)
	fmt.Fprintf(tw, "Savings rate\t%.1f%%\t%s\n", v.Report.SavingsRate, v.Report.SavingsTier)
	fmt.Fprintf(tw, "Avg expense/day\t%.2f\n", v.Report.AverageExpensePerDay)

	if len(v.Report.TopCategories) > 0 {
		fmt.Fprintln(tw, "\nCATEGORY\tEXPENSE\tSHARE")
		for _, g := range v.Report.TopCategories {
			fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", core.Resolve(g.Category).Name, g.Expense, g.Percent)
		}
	}
	if len(v.Months) > 0 {
		fmt.Fprintln(tw, "\nMONTH\tINCOME\tEXPENSE")
		for _, m := range v.Months {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Period, m.Income, m.Expense)
		}
	}
	for _, in := range v.Report.Insights {
		fmt.Fprintf(tw, "\n[%s] %s", in.Severity, in.Kind)
	}
	if len(v.Report.Insights) > 0 {
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
