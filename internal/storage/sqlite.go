// Package storage is the SQLite implementation of ledger.Store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mkwanja/internal/core"
	"mkwanja/internal/ledger"

	_ "modernc.org/sqlite"
)

// Dates are stored as fixed-width UTC text so that lexical order is
// chronological order.
const dateLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db     *sql.DB
	now    ledger.Clock
	schema uint

	// mu serializes mutations so read-then-write steps are atomic.
	mu sync.Mutex
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// Option configures a SQLiteRepository.
type Option func(*SQLiteRepository)

// WithClock overrides the clock used to stamp new expenses.
func WithClock(now ledger.Clock) Option {
	return func(r *SQLiteRepository) {
		if now != nil {
			r.now = now
		}
	}
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the main pool touches the file.
	schema, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time is all SQLite offers anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db, now: ledger.SystemClock, schema: schema}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
// SchemaVersion is the migration version the file was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schema
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) GetSettings(ctx context.Context) (*core.Settings, error) {
	var (
		s         core.Settings
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT monthly_income, savings_target, updated_at FROM settings WHERE id = 1`,
	).Scan(&s.MonthlyIncome.Cents, &s.SavingsTarget.Cents, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if s.UpdatedAt, err = parseDate(updatedAt); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) UpsertSettings(ctx context.Context, income, savings core.Money) error {
	if err := ledger.ValidateSettings(income, savings); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, monthly_income, savings_target, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			monthly_income = excluded.monthly_income,
			savings_target = excluded.savings_target,
			updated_at     = excluded.updated_at`,
		income.Cents, savings.Cents, formatDate(r.now()))
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}

	slog.InfoContext(ctx, "Settings saved",
		"monthly_income_cents", income.Cents,
		"savings_target_cents", savings.Cents)
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, name string) (core.Category, error) {
	name, err := ledger.CleanCategoryName(name)
	if err != nil {
		return core.Category{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	var c core.Category
	err = r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE name = ?`, name).Scan(&c.ID, &c.Name)
	if err != nil {
		return core.Category{}, fmt.Errorf("select category %q: %w", name, err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name)
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, month *core.YearMonth) ([]core.Expense, error) {
	query := `SELECT id, category, amount_cents, date, note FROM expenses`
	var args []any
	if month != nil {
		start, end := month.Bounds(time.Local)
		query += ` WHERE date >= ? AND date < ?`
		args = append(args, formatDate(start), formatDate(end))
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e    core.Expense
			date string
		)
		if err := rows.Scan(&e.ID, &e.Category, &e.Amount.Cents, &date, &e.Note); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, category string, amount core.Money, note string) (core.Expense, error) {
	category = strings.TrimSpace(category)
	if err := ledger.ValidateExpense(category, amount, note); err != nil {
		return core.Expense{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := core.Expense{Category: category, Amount: amount, Note: note, Date: r.now()}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (category, amount_cents, date, note) VALUES (?, ?, ?, ?)`,
		e.Category, e.Amount.Cents, formatDate(e.Date), e.Note)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)

	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id int64, category string, amount core.Money, note string) error {
	category = strings.TrimSpace(category)
	if err := ledger.ValidateExpense(category, amount, note); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET category = ?, amount_cents = ?, note = ? WHERE id = ?`,
		category, amount.Cents, note, id)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "expense", ID: id}
	}

	slog.InfoContext(ctx, "Expense updated", "id", id, "amount_cents", amount.Cents)
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
