// Package export gathers a month of ledger data for the exporters in its
// subpackages.
package export

import (
	"context"
	"fmt"
	"time"

	"mkwanja/internal/budget"
	"mkwanja/internal/core"
	"mkwanja/internal/ledger"
)

// MonthData is everything an exporter writes for one month.
type MonthData struct {
	Month       core.YearMonth
	Currency    string
	GeneratedAt time.Time
	Summary     budget.Summary
	Breakdown   []budget.CategoryShare
	// Expenses are ordered date descending.
	Expenses []core.Expense
}

// Exporter writes one month somewhere outside the ledger.
type Exporter interface {
	ExportMonth(ctx context.Context, data MonthData) error
}

// Collect reads a consistent snapshot for month from store.
func Collect(ctx context.Context, store ledger.Store, month core.YearMonth, currency string, recentN int) (MonthData, error) {
	if err := month.Validate(); err != nil {
		return MonthData{}, err
	}
	settings, err := store.GetSettings(ctx)
	if err != nil {
		return MonthData{}, fmt.Errorf("read settings: %w", err)
	}
	expenses, err := store.ListExpenses(ctx, &month)
	if err != nil {
		return MonthData{}, fmt.Errorf("list expenses for %s: %w", month, err)
	}
	return MonthData{
		Month:       month,
		Currency:    currency,
		GeneratedAt: time.Now(),
		Summary:     budget.Summarize(settings, expenses, recentN),
		Breakdown:   budget.Breakdown(expenses),
		Expenses:    expenses,
	}, nil
}
