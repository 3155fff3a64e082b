package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkwanja/internal/core"
	"mkwanja/internal/ledger"
)

// Factory builds a fresh store seeded with ledger.DefaultCategories whose
// dates come from clock.
type Factory func(t *testing.T, clock ledger.Clock) ledger.Store

// Start is the first instant handed out by the suite clock: one hour before
// the end of March 2025, local time.
var Start = time.Date(2025, time.March, 31, 23, 0, 0, 0, time.Local)

// Run exercises the full ledger.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("settings", func(t *testing.T) { testSettings(t, newStore) })
	t.Run("categories", func(t *testing.T) { testCategories(t, newStore) })
	t.Run("category insert is atomic", func(t *testing.T) { testConcurrentCategoryInsert(t, newStore) })
	t.Run("expenses round trip", func(t *testing.T) { testExpenseRoundTrip(t, newStore) })
	t.Run("expense validation", func(t *testing.T) { testExpenseValidation(t, newStore) })
	t.Run("expense update", func(t *testing.T) { testExpenseUpdate(t, newStore) })
	t.Run("expense delete", func(t *testing.T) { testExpenseDelete(t, newStore) })
	t.Run("month filter and ordering", func(t *testing.T) { testMonthFilter(t, newStore) })
	t.Run("equal dates order by id", func(t *testing.T) { testEqualDateOrdering(t, newStore) })
}

func open(t *testing.T, newStore Factory) (ledger.Store, *StepClock) {
	t.Helper()
	clock := NewStepClock(Start, time.Hour)
	s := newStore(t, clock.Now)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func money(cents int64) core.Money { return core.Money{Cents: cents} }

func testSettings(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, _ := open(t, newStore)

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "settings should be absent on a fresh ledger")

	require.NoError(t, s.UpsertSettings(ctx, money(5000000), money(1000000)))
	got, err = s.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(5000000), got.MonthlyIncome.Cents)
	assert.Equal(t, int64(1000000), got.SavingsTarget.Cents)

	require.NoError(t, s.UpsertSettings(ctx, money(6000000), money(0)))
	got, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6000000), got.MonthlyIncome.Cents)
	assert.Equal(t, int64(0), got.SavingsTarget.Cents)

	err = s.UpsertSettings(ctx, money(-1), money(0))
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))

	err = s.UpsertSettings(ctx, money(100), money(-1))
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))

	got, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6000000), got.MonthlyIncome.Cents, "rejected upsert must not change state")
	assert.Equal(t, int64(0), got.SavingsTarget.Cents, "rejected upsert must not change state")
}

func testCategories(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, _ := open(t, newStore)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Rent", "Shopping", "Transport"}, names(cats))

	first, err := s.AddCategory(ctx, "  Airtime ")
	require.NoError(t, err)
	assert.Equal(t, "Airtime", first.Name)
	assert.NotZero(t, first.ID)

	again, err := s.AddCategory(ctx, "Airtime")
	require.NoError(t, err)
	assert.Equal(t, first, again, "exact duplicate returns the existing record")

	food, err := s.AddCategory(ctx, "Food")
	require.NoError(t, err)
	_, err = s.AddCategory(ctx, "Food")
	require.NoError(t, err)

	lower, err := s.AddCategory(ctx, "food")
	require.NoError(t, err)
	assert.NotEqual(t, food.ID, lower.ID, "storage uniqueness is case-sensitive")

	cats, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Airtime", "Food", "Rent", "Shopping", "Transport", "food"}, names(cats))

	_, err = s.AddCategory(ctx, "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrEmptyName))

	require.NoError(t, s.DeleteCategory(ctx, first.ID))
	require.NoError(t, s.DeleteCategory(ctx, first.ID), "delete is idempotent")
	require.NoError(t, s.DeleteCategory(ctx, 987654))

	cats, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names(cats), "Airtime")
}

func testConcurrentCategoryInsert(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, _ := open(t, newStore)

	const workers = 8
	var wg sync.WaitGroup
	ids := make([]int64, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := s.AddCategory(ctx, "Utilities")
			ids[i], errs[i] = c.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	count := 0
	for _, c := range cats {
		if c.Name == "Utilities" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func testExpenseRoundTrip(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, clock := open(t, newStore)

	want := clock.Peek()
	e, err := s.AddExpense(ctx, "Food", money(120000), "lunch")
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.True(t, e.Date.Equal(want), "date is the creation instant, got %v want %v", e.Date, want)

	e2, err := s.AddExpense(ctx, "Transport", money(0), "")
	require.NoError(t, err)
	assert.NotEqual(t, e.ID, e2.ID)

	all, err := s.ListExpenses(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	var found *core.Expense
	for i := range all {
		if all[i].ID == e.ID {
			found = &all[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "Food", found.Category)
	assert.Equal(t, int64(120000), found.Amount.Cents)
	assert.Equal(t, "lunch", found.Note)
	assert.True(t, found.Date.Equal(want))
}

func testExpenseValidation(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, _ := open(t, newStore)

	_, err := s.AddExpense(ctx, "", money(100), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrEmptyCategory))

	_, err = s.AddExpense(ctx, "Food", money(-100), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))

	all, err := s.ListExpenses(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all, "failed adds must not persist anything")
}

func testExpenseUpdate(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, _ := open(t, newStore)

	e, err := s.AddExpense(ctx, "Food", money(1000), "")
	require.NoError(t, err)

	require.NoError(t, s.UpdateExpense(ctx, e.ID, "Rent", money(2500), "fixed"))
	all, err := s.ListExpenses(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Rent", all[0].Category)
	assert.Equal(t, int64(2500), all[0].Amount.Cents)
	assert.Equal(t, "fixed", all[0].Note)
	assert.True(t, all[0].Date.Equal(e.Date), "update must not touch the date")

	err = s.UpdateExpense(ctx, e.ID+1000, "Rent", money(1), "")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))

	err = s.UpdateExpense(ctx, e.ID, "Rent", money(-1), "")
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	all, err = s.ListExpenses(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), all[0].Amount.Cents, "rejected update must not change state")
}

func testExpenseDelete(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, _ := open(t, newStore)

	e, err := s.AddExpense(ctx, "Food", money(1000), "")
	require.NoError(t, err)

	require.NoError(t, s.DeleteExpense(ctx, e.ID))
	require.NoError(t, s.DeleteExpense(ctx, e.ID), "second delete must not error")

	all, err := s.ListExpenses(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testMonthFilter(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s, _ := open(t, newStore)

	march, err := s.AddExpense(ctx, "Food", money(100), "")
	require.NoError(t, err)
	april1, err := s.AddExpense(ctx, "Rent", money(200), "")
	require.NoError(t, err)
	april2, err := s.AddExpense(ctx, "Food", money(300), "")
	require.NoError(t, err)

	all, err := s.ListExpenses(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{april2.ID, april1.ID, march.ID}, ids(all), "newest first")

	m := core.YearMonth{Year: 2025, Month: time.March}
	inMarch, err := s.ListExpenses(ctx, &m)
	require.NoError(t, err)
	assert.Equal(t, []int64{march.ID}, ids(inMarch))

	a := core.YearMonth{Year: 2025, Month: time.April}
	inApril, err := s.ListExpenses(ctx, &a)
	require.NoError(t, err)
	assert.Equal(t, []int64{april2.ID, april1.ID}, ids(inApril))

	empty := core.YearMonth{Year: 2024, Month: time.January}
	none, err := s.ListExpenses(ctx, &empty)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testEqualDateOrdering(t *testing.T, newStore Factory) {
	ctx := context.Background()
	clock := NewStepClock(Start, 0)
	s := newStore(t, clock.Now)
	t.Cleanup(func() { _ = s.Close() })

	var want []int64
	for _, c := range []string{"Food", "Rent", "Transport"} {
		e, err := s.AddExpense(ctx, c, money(100), "")
		require.NoError(t, err)
		want = append([]int64{e.ID}, want...)
	}

	all, err := s.ListExpenses(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Date.Equal(all[2].Date), "fixed clock should stamp equal dates")
	assert.Equal(t, want, ids(all), "equal dates put the newest id first")

	m := core.YearMonth{Year: 2025, Month: time.March}
	inMarch, err := s.ListExpenses(ctx, &m)
	require.NoError(t, err)
	assert.Equal(t, want, ids(inMarch))
}

func names(cats []core.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}

func ids(es []core.Expense) []int64 {
	out := make([]int64, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}
