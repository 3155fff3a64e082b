// Package budget derives the displayed figures from a snapshot of settings
// and expenses. Every function is pure: inputs are never mutated and the
// same inputs always give the same outputs.
package budget

import (
	"sort"

	"github.com/shopspring/decimal"

	"mkwanja/internal/core"
)

var hundred = decimal.NewFromInt(100)

// TotalSpent sums every amount. The sum of nothing is zero.
func TotalSpent(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Balance is income minus savings target minus spending. It goes negative
// on overspend.
func Balance(settings *core.Settings, expenses []core.Expense) core.Money {
	return settings.Income().Sub(settings.Savings()).Sub(TotalSpent(expenses))
}

// SafeToSpend is Balance floored at zero.
func SafeToSpend(settings *core.Settings, expenses []core.Expense) core.Money {
	b := Balance(settings, expenses)
	if b.Cents < 0 {
		return core.Money{}
	}
	return b
}

// CategoryTotals groups by the exact stored category string.
func CategoryTotals(expenses []core.Expense) map[string]core.Money {
	totals := make(map[string]core.Money, len(expenses))
	for _, e := range expenses {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return totals
}

// TopCategory returns the largest total. Ties go to the lexicographically
// first name. An empty map yields {NoCategory, 0}.
func TopCategory(totals map[string]core.Money) core.CategoryAmount {
	top := core.CategoryAmount{Name: core.NoCategory}
	found := false
	for name, amount := range totals {
		if !found ||
			amount.Cents > top.Amount.Cents ||
			(amount.Cents == top.Amount.Cents && name < top.Name) {
			top = core.CategoryAmount{Name: name, Amount: amount}
			found = true
		}
	}
	return top
}

// BudgetUsedPercent is spending as a share of income, rounded to one
// decimal place. It is zero when income is zero.
func BudgetUsedPercent(settings *core.Settings, expenses []core.Expense) decimal.Decimal {
	income := settings.Income()
	if income.IsZero() {
		return decimal.Zero
	}
	return percentOf(TotalSpent(expenses), income)
}

func percentOf(part, whole core.Money) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(part.Cents).
		Mul(hundred).
		DivRound(decimal.NewFromInt(whole.Cents), 8).
		Round(1)
}

// RecentExpenses returns the first n expenses by date descending. Equal
// dates are ordered by id descending, so the later insert comes first.
// A non-positive n returns nil.
func RecentExpenses(expenses []core.Expense, n int) []core.Expense {
	if n <= 0 || len(expenses) == 0 {
		return nil
	}
	sorted := make([]core.Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID > b.ID
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
