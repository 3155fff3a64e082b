package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkwanja/internal/core"
	"mkwanja/internal/ledger"
	"mkwanja/internal/ledger/ledgertest"
)

func newTestRepo(t *testing.T, clock ledger.Clock) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), WithClock(clock))
	require.NoError(t, err)
	return repo
}

func TestSQLiteStoreContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T, clock ledger.Clock) ledger.Store {
		return newTestRepo(t, clock)
	})
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	at := time.Date(2025, time.May, 4, 10, 30, 0, 123, time.Local)
	clock := func() time.Time { return at }

	repo, err := NewSQLiteRepository(path, WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, repo.UpsertSettings(ctx, core.Money{Cents: 500000}, core.Money{Cents: 100000}))
	added, err := repo.AddExpense(ctx, "Food", core.Money{Cents: 1250}, "lunch")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Migrations are idempotent on an existing file.
	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	settings, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, int64(500000), settings.MonthlyIncome.Cents)
	assert.True(t, settings.UpdatedAt.Equal(at))

	month := core.MonthOf(at)
	expenses, err := repo.ListExpenses(ctx, &month)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, added.ID, expenses[0].ID)
	assert.Equal(t, "lunch", expenses[0].Note)
	assert.True(t, expenses[0].Date.Equal(at), "date %v != %v", expenses[0].Date, at)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(ledger.DefaultCategories))
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	v, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Zero(t, v, "fresh file has no schema")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	assert.Equal(t, uint(1), repo.SchemaVersion())

	v, err = RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v, "re-running is a no-op")
}

func TestDirtySchemaIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	_, err = repo.db.Exec(`UPDATE schema_migrations SET dirty = 1`)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = NewSQLiteRepository(path)
	assert.ErrorIs(t, err, ErrDirtySchema)
}

func TestPing(t *testing.T) {
	repo := newTestRepo(t, nil)
	defer repo.Close()
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestDateLayoutSortsLexically(t *testing.T) {
	a := formatDate(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	b := formatDate(time.Date(2025, 1, 2, 3, 4, 5, 1, time.UTC))
	c := formatDate(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, a, b)
	assert.Less(t, b, c)
	assert.Len(t, a, len(c))
}
