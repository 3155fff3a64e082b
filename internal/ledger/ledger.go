// Package ledger defines the persistence contract for settings, categories
// and expenses. Implementations live in internal/storage (SQLite) and
// internal/ledger/memory.
package ledger

import (
	"context"
	"strings"
	"time"

	"mkwanja/internal/core"
)

// Store is durable CRUD over the ledger entities. It performs no derived
// computation; see internal/budget for that.
//
// Validation failures are returned as *core.ValidationError before any state
// changes. Storage failures are wrapped and returned as-is.
type Store interface {
	// GetSettings returns nil, nil when no settings were ever saved.
	GetSettings(ctx context.Context) (*core.Settings, error)
	// UpsertSettings replaces the single settings row.
	UpsertSettings(ctx context.Context, income, savings core.Money) error

	// ListCategories returns categories sorted by name ascending.
	ListCategories(ctx context.Context) ([]core.Category, error)
	// AddCategory trims name and inserts it, or returns the existing
	// category with the exact same stored name.
	AddCategory(ctx context.Context, name string) (core.Category, error)
	// DeleteCategory is idempotent.
	DeleteCategory(ctx context.Context, id int64) error

	// ListExpenses returns expenses sorted by date descending. A nil month
	// returns every expense.
	ListExpenses(ctx context.Context, month *core.YearMonth) ([]core.Expense, error)
	// AddExpense stamps the expense with the current instant.
	AddExpense(ctx context.Context, category string, amount core.Money, note string) (core.Expense, error)
	// UpdateExpense changes category, amount and note; the date is kept.
	// Returns *core.NotFoundError when id does not exist.
	UpdateExpense(ctx context.Context, id int64, category string, amount core.Money, note string) error
	// DeleteExpense is idempotent.
	DeleteExpense(ctx context.Context, id int64) error

	Close() error
}

// Clock returns the current instant. Stores accept one so tests can pin dates.
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time { return time.Now() }

// DefaultCategories are seeded into a fresh ledger.
var DefaultCategories = []string{"Food", "Transport", "Rent", "Shopping"}

// ValidateSettings checks an UpsertSettings call.
func ValidateSettings(income, savings core.Money) error {
	if err := income.Validate(); err != nil {
		return relabel(err, "monthly_income")
	}
	if err := savings.Validate(); err != nil {
		return relabel(err, "savings_target")
	}
	return nil
}

// ValidateExpense checks an AddExpense or UpdateExpense call.
func ValidateExpense(category string, amount core.Money, note string) error {
	return core.Expense{Category: category, Amount: amount, Note: note}.Validate()
}

// CleanCategoryName returns the stored form of a category name.
func CleanCategoryName(name string) (string, error) {
	if err := core.ValidateCategoryName(name); err != nil {
		return "", err
	}
	return strings.TrimSpace(name), nil
}

func relabel(err error, field string) error {
	if ve, ok := err.(*core.ValidationError); ok {
		cp := *ve
		cp.Field = field
		return &cp
	}
	return err
}
