package budget

import (
	"sort"

	"mkwanja/internal/core"
)

// CategoryShare is one slice of the report pie chart.
type CategoryShare struct {
	Name    string     `json:"name"`
	Amount  core.Money `json:"amount"`
	Percent float64    `json:"percent"`
}

// Summary bundles every figure the home screen shows.
type Summary struct {
	MonthlyIncome     core.Money          `json:"monthly_income"`
	SavingsTarget     core.Money          `json:"savings_target"`
	TotalSpent        core.Money          `json:"total_spent"`
	SafeToSpend       core.Money          `json:"safe_to_spend"`
	Balance           core.Money          `json:"balance"`
	BudgetUsedPercent float64             `json:"budget_used_percent"`
	TopCategory       core.CategoryAmount `json:"top_category"`
	Recent            []core.Expense      `json:"recent"`
	ExpenseCount      int                 `json:"expense_count"`
	HasSettings       bool                `json:"has_settings"`
}

// Breakdown returns per-category totals with their share of total spending,
// largest first and then by name.
func Breakdown(expenses []core.Expense) []CategoryShare {
	totals := CategoryTotals(expenses)
	if len(totals) == 0 {
		return []CategoryShare{}
	}
	total := TotalSpent(expenses)

	shares := make([]CategoryShare, 0, len(totals))
	for name, amount := range totals {
		shares = append(shares, CategoryShare{
			Name:    name,
			Amount:  amount,
			Percent: percentOf(amount, total).InexactFloat64(),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount.Cents != shares[j].Amount.Cents {
			return shares[i].Amount.Cents > shares[j].Amount.Cents
		}
		return shares[i].Name < shares[j].Name
	})
	return shares
}

// DistinctCategories drops categories whose normalized name was already
// seen, keeping the first occurrence. Input order is preserved.
func DistinctCategories(categories []core.Category) []core.Category {
	seen := make(map[string]struct{}, len(categories))
	out := make([]core.Category, 0, len(categories))
	for _, c := range categories {
		key := core.NormalizeCategoryName(c.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Summarize computes a Summary from one snapshot.
func Summarize(settings *core.Settings, expenses []core.Expense, recentN int) Summary {
	recent := RecentExpenses(expenses, recentN)
	if recent == nil {
		recent = []core.Expense{}
	}
	return Summary{
		MonthlyIncome:     settings.Income(),
		SavingsTarget:     settings.Savings(),
		TotalSpent:        TotalSpent(expenses),
		SafeToSpend:       SafeToSpend(settings, expenses),
		Balance:           Balance(settings, expenses),
		BudgetUsedPercent: BudgetUsedPercent(settings, expenses).InexactFloat64(),
		TopCategory:       TopCategory(CategoryTotals(expenses)),
		Recent:            recent,
		ExpenseCount:      len(expenses),
		HasSettings:       settings != nil,
	}
}
