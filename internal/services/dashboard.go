package services

import (
	"context"
	"fmt"
	"time"

	"mkwanja/internal/budget"
	"mkwanja/internal/core"
)

// Dashboard is the home screen snapshot for one month.
type Dashboard struct {
	Month string `json:"month"`
	budget.Summary
}

// Report is the per-category breakdown for one month.
type Report struct {
	Month       string                 `json:"month"`
	TotalSpent  core.Money             `json:"total_spent"`
	TopCategory core.CategoryAmount    `json:"top_category"`
	Categories  []budget.CategoryShare `json:"categories"`
}

// Dashboard computes the month summary from a fresh store snapshot.
// Concurrent calls for the same month share one computation, but a call
// made after a mutation never joins one that started before it.
func (s *LedgerService) Dashboard(ctx context.Context, month core.YearMonth) (Dashboard, error) {
	if err := month.Validate(); err != nil {
		return Dashboard{}, err
	}
	key := month.String()

	if s.dashboards != nil {
		if d, ok := s.dashboards.Get(key); ok {
			return d, nil
		}
	}

	gen := s.generation.Load()
	v, err, _ := s.group.Do(fmt.Sprintf("dashboard:%s:%d", key, gen), func() (any, error) {
		settings, err := s.store.GetSettings(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		expenses, err := s.store.ListExpenses(ctx, &month)
		if err != nil {
			return Dashboard{}, err
		}

		d := Dashboard{Month: key, Summary: budget.Summarize(settings, expenses, s.recent)}
		s.remember(gen, key, d)
		return d, nil
	})
	if err != nil {
		return Dashboard{}, err
	}
	return v.(Dashboard), nil
}

// remember caches d unless a mutation happened since gen was read.
func (s *LedgerService) remember(gen uint64, key string, d Dashboard) {
	if s.dashboards == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation.Load() == gen {
		s.dashboards.Set(key, d)
	}
}

// CurrentDashboard is Dashboard for the local month of the service clock.
func (s *LedgerService) CurrentDashboard(ctx context.Context) (Dashboard, error) {
	return s.Dashboard(ctx, core.CurrentMonth(s.now()))
}

func (s *LedgerService) Report(ctx context.Context, month core.YearMonth) (Report, error) {
	if err := month.Validate(); err != nil {
		return Report{}, err
	}
	expenses, err := s.store.ListExpenses(ctx, &month)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Month:       month.String(),
		TotalSpent:  budget.TotalSpent(expenses),
		TopCategory: budget.TopCategory(budget.CategoryTotals(expenses)),
		Categories:  budget.Breakdown(expenses),
	}, nil
}

// Now returns the service clock reading.
func (s *LedgerService) Now() time.Time {
	return s.now()
}
