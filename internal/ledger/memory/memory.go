// Package memory is an in-process ledger.Store. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mkwanja/internal/core"
	"mkwanja/internal/ledger"
)

type Store struct {
	mu         sync.Mutex
	now        ledger.Clock
	settings   *core.Settings
	categories []core.Category
	expenses   []core.Expense
	nextCatID  int64
	nextExpID  int64
}

var _ ledger.Store = (*Store)(nil)

// New returns an empty store seeded with the given category names.
func New(seed []string, now ledger.Clock) *Store {
	if now == nil {
		now = ledger.SystemClock
	}
	s := &Store{now: now, nextCatID: 1, nextExpID: 1}
	for _, name := range seed {
		name = strings.TrimSpace(name)
		if name == "" || s.findCategory(name) >= 0 {
			continue
		}
		s.categories = append(s.categories, core.Category{ID: s.nextCatID, Name: name})
		s.nextCatID++
	}
	return s
}

func (s *Store) GetSettings(_ context.Context) (*core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return nil, nil
	}
	cp := *s.settings
	return &cp, nil
}

func (s *Store) UpsertSettings(_ context.Context, income, savings core.Money) error {
	if err := ledger.ValidateSettings(income, savings); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &core.Settings{MonthlyIncome: income, SavingsTarget: savings, UpdatedAt: s.now()}
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Category(nil), s.categories...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) AddCategory(_ context.Context, name string) (core.Category, error) {
	name, err := ledger.CleanCategoryName(name)
	if err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.findCategory(name); i >= 0 {
		return s.categories[i], nil
	}
	c := core.Category{ID: s.nextCatID, Name: name}
	s.nextCatID++
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if c.ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ListExpenses(_ context.Context, month *core.YearMonth) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if month != nil && !month.Contains(e.Date) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) AddExpense(_ context.Context, category string, amount core.Money, note string) (core.Expense, error) {
	category = strings.TrimSpace(category)
	if err := ledger.ValidateExpense(category, amount, note); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := core.Expense{
		ID:       s.nextExpID,
		Category: category,
		Amount:   amount,
		Date:     s.now(),
		Note:     note,
	}
	s.nextExpID++
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, id int64, category string, amount core.Money, note string) error {
	category = strings.TrimSpace(category)
	if err := ledger.ValidateExpense(category, amount, note); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.expenses {
		if s.expenses[i].ID != id {
			continue
		}
		s.expenses[i].Category = category
		s.expenses[i].Amount = amount
		s.expenses[i].Note = note
		return nil
	}
	return &core.NotFoundError{Entity: "expense", ID: id}
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.ID == id {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) findCategory(name string) int {
	for i, c := range s.categories {
		if c.Name == name {
			return i
		}
	}
	return -1
}
