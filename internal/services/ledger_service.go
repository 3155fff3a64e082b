// Package services orchestrates ledger mutations, change events and the
// derived dashboard views.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"mkwanja/internal/amqp"
	"mkwanja/internal/budget"
	"mkwanja/internal/cache"
	"mkwanja/internal/core"
	"mkwanja/internal/ledger"
)

// Publisher sends ledger change notifications. *amqp.Client implements it.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

const (
	defaultRecentLimit = 3
	defaultCacheSize   = 24
)

// LedgerService is the entry point used by the HTTP API and the CLI. It
// parses raw input, writes through to the store and then announces the
// change. A failed announcement is logged and never fails the call.
type LedgerService struct {
	store     ledger.Store
	publisher Publisher
	now       ledger.Clock
	recent    int

	dashboards cache.Cache[Dashboard]
	group      singleflight.Group
	// generation is bumped by every mutation. Dashboard computations are
	// keyed by it and only cached while it is unchanged.
	generation atomic.Uint64
	cacheMu    sync.Mutex
}

type Option func(*LedgerService)

func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithDashboardCache memoises dashboards for ttl. Zero disables caching.
// Mutations made through this service purge the cache; writes by another
// process sharing the store stay invisible until the entry expires.
func WithDashboardCache(ttl time.Duration) Option {
	return func(s *LedgerService) {
		if ttl > 0 {
			s.dashboards = cache.NewLRUCache[Dashboard](defaultCacheSize, ttl)
		} else {
			s.dashboards = nil
		}
	}
}

func WithRecentLimit(n int) Option {
	return func(s *LedgerService) {
		if n > 0 {
			s.recent = n
		}
	}
}

func WithClock(now ledger.Clock) Option {
	return func(s *LedgerService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewLedgerService(store ledger.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  store,
		now:    ledger.SystemClock,
		recent: defaultRecentLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying ledger for read-only collaborators.
func (s *LedgerService) Store() ledger.Store {
	return s.store
}

// Janitor returns a sweeper for the dashboard cache, or nil when caching is off.
func (s *LedgerService) Janitor() *cache.Janitor {
	if c, ok := s.dashboards.(cache.Cleaner); ok {
		return cache.NewJanitor(c)
	}
	return nil
}

// ExpenseInput is an expense as typed by the user.
type ExpenseInput struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Note     string `json:"note"`
}

func (in ExpenseInput) parse() (core.Money, error) {
	return core.ParseAmount(in.Amount)
}

func (s *LedgerService) GetSettings(ctx context.Context) (*core.Settings, error) {
	return s.store.GetSettings(ctx)
}

// SaveSettings parses both amounts and replaces the settings row.
func (s *LedgerService) SaveSettings(ctx context.Context, income, savings string) (*core.Settings, error) {
	inc, err := core.ParseAmount(income)
	if err != nil {
		return nil, withField(err, "monthly_income")
	}
	sav, err := core.ParseAmount(savings)
	if err != nil {
		return nil, withField(err, "savings_target")
	}
	if err := s.SetSettings(ctx, inc, sav); err != nil {
		return nil, err
	}
	return s.store.GetSettings(ctx)
}

func (s *LedgerService) SetSettings(ctx context.Context, income, savings core.Money) error {
	if err := s.store.UpsertSettings(ctx, income, savings); err != nil {
		return err
	}
	s.changed(ctx, amqp.EntitySettings, amqp.OpUpdate, 0, "")
	return nil
}

func (s *LedgerService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// DisplayCategories hides case-variant duplicates, keeping the first by name.
func (s *LedgerService) DisplayCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return budget.DistinctCategories(cats), nil
}

func (s *LedgerService) AddCategory(ctx context.Context, name string) (core.Category, error) {
	c, err := s.store.AddCategory(ctx, name)
	if err != nil {
		return core.Category{}, err
	}
	s.changed(ctx, amqp.EntityCategory, amqp.OpCreate, c.ID, "")
	return c, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.EntityCategory, amqp.OpDelete, id, "")
	return nil
}

func (s *LedgerService) ListExpenses(ctx context.Context, month *core.YearMonth) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, month)
}

func (s *LedgerService) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	amount, err := in.parse()
	if err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.AddExpense(ctx, in.Category, amount, in.Note)
	if err != nil {
		return core.Expense{}, err
	}
	s.changed(ctx, amqp.EntityExpense, amqp.OpCreate, e.ID, core.CurrentMonth(e.Date).String())
	return e, nil
}

func (s *LedgerService) UpdateExpense(ctx context.Context, id int64, in ExpenseInput) error {
	amount, err := in.parse()
	if err != nil {
		return err
	}
	if err := s.store.UpdateExpense(ctx, id, in.Category, amount, in.Note); err != nil {
		return err
	}
	s.changed(ctx, amqp.EntityExpense, amqp.OpUpdate, id, "")
	return nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.EntityExpense, amqp.OpDelete, id, "")
	return nil
}

// changed invalidates derived views and announces a mutation.
func (s *LedgerService) changed(ctx context.Context, entity, op string, id int64, month string) {
	s.cacheMu.Lock()
	s.generation.Add(1)
	if s.dashboards != nil {
		s.dashboards.Purge()
	}
	s.cacheMu.Unlock()

	if s.publisher == nil {
		return
	}
	msg := amqp.NewLedgerChangedMessage(entity, op, id, month)
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger change",
			"entity", entity, "op", op, "entity_id", id, "error", err)
	}
}

func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}

func withField(err error, field string) error {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		cp := *ve
		cp.Field = field
		return &cp
	}
	return err
}
