package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mkwanja/internal/amqp"
	"mkwanja/internal/core"
	"mkwanja/internal/ledger"
	"mkwanja/internal/ledger/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerChangedMessage
	err  error
}

func (p *recordingPublisher) PublishLedgerChanged(_ context.Context, msg *amqp.LedgerChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) last() *amqp.LedgerChangedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.msgs) == 0 {
		return nil
	}
	return p.msgs[len(p.msgs)-1]
}

var march = core.YearMonth{Year: 2025, Month: time.March}

func newService(t *testing.T, opts ...Option) (*LedgerService, *recordingPublisher) {
	t.Helper()
	clock := func() time.Time { return time.Date(2025, time.March, 15, 12, 0, 0, 0, time.Local) }
	pub := &recordingPublisher{}
	store := memory.New(ledger.DefaultCategories, clock)
	opts = append([]Option{WithPublisher(pub), WithClock(clock)}, opts...)
	return NewLedgerService(store, opts...), pub
}

func TestAddExpenseParsesAndPublishes(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	e, err := svc.AddExpense(ctx, ExpenseInput{Category: " Food ", Amount: "12,50", Note: "lunch"})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if e.Amount.Cents != 1250 || e.Category != "Food" {
		t.Errorf("unexpected expense %+v", e)
	}

	msg := pub.last()
	if msg == nil || msg.Entity != amqp.EntityExpense || msg.Op != amqp.OpCreate || msg.EntityID != e.ID || msg.Month != "2025-03" {
		t.Errorf("unexpected event %+v", msg)
	}
}

func TestAddExpenseRejectsBadAmount(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	for _, amount := range []string{"", "abc", "-5"} {
		_, err := svc.AddExpense(ctx, ExpenseInput{Category: "Food", Amount: amount})
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("amount %q: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if pub.last() != nil {
		t.Error("no event expected for rejected input")
	}
	got, _ := svc.ListExpenses(ctx, nil)
	if len(got) != 0 {
		t.Errorf("nothing should be stored, got %d", len(got))
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)
	pub.err = errors.New("broker down")

	if _, err := svc.AddCategory(ctx, "Airtime"); err != nil {
		t.Fatalf("AddCategory should succeed when publish fails: %v", err)
	}
}

func TestSaveSettingsFieldNames(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.SaveSettings(ctx, "x", "0")
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "monthly_income" {
		t.Fatalf("expected monthly_income validation error, got %v", err)
	}
	_, err = svc.SaveSettings(ctx, "100", "-1")
	if !errors.As(err, &ve) || ve.Field != "savings_target" {
		t.Fatalf("expected savings_target validation error, got %v", err)
	}

	s, err := svc.SaveSettings(ctx, "500", "100.5")
	if err != nil {
		t.Fatal(err)
	}
	if s.MonthlyIncome.Cents != 50000 || s.SavingsTarget.Cents != 10050 {
		t.Errorf("unexpected settings %+v", s)
	}
}

func TestUpdateMissingExpense(t *testing.T) {
	svc, pub := newService(t)
	err := svc.UpdateExpense(context.Background(), 99, ExpenseInput{Category: "Food", Amount: "1"})
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if pub.last() != nil {
		t.Error("no event expected")
	}
}

func TestDisplayCategoriesHidesCaseVariants(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	if _, err := svc.AddCategory(ctx, "food"); err != nil {
		t.Fatal(err)
	}

	all, _ := svc.ListCategories(ctx)
	shown, err := svc.DisplayCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 || len(shown) != 4 {
		t.Errorf("all=%d shown=%d", len(all), len(shown))
	}
}
