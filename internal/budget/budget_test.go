package budget

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkwanja/internal/core"
)

var base = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func exp(id int64, category string, cents int64, offset time.Duration) core.Expense {
	return core.Expense{
		ID:       id,
		Category: category,
		Amount:   core.Money{Cents: cents},
		Date:     base.Add(offset),
	}
}

func settings(income, savings int64) *core.Settings {
	return &core.Settings{
		MonthlyIncome: core.Money{Cents: income},
		SavingsTarget: core.Money{Cents: savings},
	}
}

func TestScenarioWithSettings(t *testing.T) {
	s := settings(50000, 10000)
	expenses := []core.Expense{
		exp(1, "Food", 12000, 0),
		exp(2, "Transport", 5000, time.Hour),
	}

	assert.Equal(t, int64(17000), TotalSpent(expenses).Cents)
	assert.Equal(t, int64(23000), SafeToSpend(s, expenses).Cents)
	assert.Equal(t, core.CategoryAmount{Name: "Food", Amount: core.Money{Cents: 12000}}, TopCategory(CategoryTotals(expenses)))
	// 17000 of 50000 is 34%.
	assert.Equal(t, "34.0", BudgetUsedPercent(s, expenses).StringFixed(1))
}

func TestScenarioWithoutSettings(t *testing.T) {
	expenses := []core.Expense{exp(1, "Rent", 8000, 0)}

	assert.True(t, SafeToSpend(nil, expenses).IsZero())
	assert.True(t, BudgetUsedPercent(nil, expenses).IsZero())
	assert.Equal(t, int64(-8000), Balance(nil, expenses).Cents)
}

func TestSafeToSpendNeverNegative(t *testing.T) {
	tests := []struct {
		name                   string
		income, savings, spent int64
		want                   int64
	}{
		{"under budget", 1000, 100, 200, 700},
		{"exactly spent", 1000, 100, 900, 0},
		{"overspent", 1000, 100, 5000, 0},
		{"savings above income", 100, 1000, 0, 0},
		{"all zero", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeToSpend(settings(tt.income, tt.savings), []core.Expense{exp(1, "X", tt.spent, 0)})
			assert.Equal(t, tt.want, got.Cents)
			assert.GreaterOrEqual(t, got.Cents, int64(0))
		})
	}
}

func TestTotalSpentIgnoresOrder(t *testing.T) {
	assert.True(t, TotalSpent(nil).IsZero())

	expenses := []core.Expense{
		exp(1, "A", 1, 0), exp(2, "B", 20, 0), exp(3, "C", 300, 0), exp(4, "D", 4000, 0),
	}
	want := TotalSpent(expenses)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]core.Expense(nil), expenses...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, TotalSpent(shuffled))
	}
}

func TestCategoryTotalsExactString(t *testing.T) {
	totals := CategoryTotals([]core.Expense{
		exp(1, "Food", 100, 0),
		exp(2, "food", 50, 0),
		exp(3, "Food", 25, 0),
	})
	require.Len(t, totals, 2)
	assert.Equal(t, int64(125), totals["Food"].Cents)
	assert.Equal(t, int64(50), totals["food"].Cents)
}

func TestTopCategory(t *testing.T) {
	assert.Equal(t, core.CategoryAmount{Name: "None"}, TopCategory(nil))
	assert.Equal(t, core.CategoryAmount{Name: "None"}, TopCategory(map[string]core.Money{}))

	tie := map[string]core.Money{"B": {Cents: 100}, "A": {Cents: 100}}
	for i := 0; i < 20; i++ {
		assert.Equal(t, core.CategoryAmount{Name: "A", Amount: core.Money{Cents: 100}}, TopCategory(tie))
	}

	// A zero total still outranks the sentinel.
	assert.Equal(t, "Gift", TopCategory(map[string]core.Money{"Gift": {}}).Name)
}

func TestBudgetUsedPercentRounding(t *testing.T) {
	tests := []struct {
		income, spent int64
		want          string
	}{
		{0, 12345, "0.0"},
		{300, 100, "33.3"},
		{300, 200, "66.7"},
		{1000, 1000, "100.0"},
		{1000, 2500, "250.0"},
	}
	for _, tt := range tests {
		got := BudgetUsedPercent(settings(tt.income, 0), []core.Expense{exp(1, "X", tt.spent, 0)})
		assert.Equal(t, tt.want, got.StringFixed(1), "income=%d spent=%d", tt.income, tt.spent)
	}
}

func TestRecentExpenses(t *testing.T) {
	expenses := []core.Expense{
		exp(1, "A", 1, 0),
		exp(2, "B", 1, 2*time.Hour),
		exp(3, "C", 1, time.Hour),
		exp(4, "D", 1, 2*time.Hour),
	}
	before := append([]core.Expense(nil), expenses...)

	got := RecentExpenses(expenses, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{4, 2, 3}, ids(got))
	assert.Equal(t, before, expenses, "input must not be reordered")

	assert.Len(t, RecentExpenses(expenses, 10), 4)
	assert.Nil(t, RecentExpenses(expenses, 0))
	assert.Nil(t, RecentExpenses(nil, 3))
}

func ids(expenses []core.Expense) []int64 {
	out := make([]int64, len(expenses))
	for i, e := range expenses {
		out[i] = e.ID
	}
	return out
}
