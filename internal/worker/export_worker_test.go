package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mkwanja/internal/amqp"
	"mkwanja/internal/core"
	"mkwanja/internal/export"
	"mkwanja/internal/ledger/memory"
)

type recordingExporter struct {
	mu     sync.Mutex
	months []string
	data   []export.MonthData
	err    error
}

func (r *recordingExporter) ExportMonth(_ context.Context, data export.MonthData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.months = append(r.months, data.Month.String())
	r.data = append(r.data, data)
	return r.err
}

func (r *recordingExporter) exported() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.months...)
}

var fixedNow = time.Date(2025, time.May, 20, 10, 0, 0, 0, time.Local)

func newWorker(exporters ...export.Exporter) *ExportWorker {
	store := memory.New(nil, func() time.Time { return fixedNow })
	w := NewExportWorker(store, "KES", 3, exporters...)
	w.now = func() time.Time { return fixedNow }
	return w
}

func TestHandleLedgerChangedUsesMessageMonth(t *testing.T) {
	rec := &recordingExporter{}
	w := newWorker(rec)

	msg := amqp.NewLedgerChangedMessage(amqp.EntityExpense, amqp.OpCreate, 1, "2025-02")
	if err := w.HandleLedgerChanged(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if got := rec.exported(); len(got) != 1 || got[0] != "2025-02" {
		t.Errorf("exported %v", got)
	}
}

func TestHandleLedgerChangedDefaultsToCurrentMonth(t *testing.T) {
	rec := &recordingExporter{}
	w := newWorker(rec)

	for _, month := range []string{"", "garbage"} {
		msg := amqp.NewLedgerChangedMessage(amqp.EntitySettings, amqp.OpUpdate, 0, month)
		if err := w.HandleLedgerChanged(context.Background(), msg); err != nil {
			t.Fatal(err)
		}
	}
	got := rec.exported()
	if len(got) != 2 || got[0] != "2025-05" || got[1] != "2025-05" {
		t.Errorf("exported %v", got)
	}
}

func TestExportMonthRunsEveryExporter(t *testing.T) {
	failing := &recordingExporter{err: errors.New("quota exceeded")}
	ok := &recordingExporter{}
	w := newWorker(failing, ok)

	err := w.ExportMonth(context.Background(), core.CurrentMonth(fixedNow))
	if err == nil {
		t.Fatal("expected error from failing exporter")
	}
	if len(ok.exported()) != 1 {
		t.Error("second exporter should still run")
	}
}

func TestExportMonthCarriesSummary(t *testing.T) {
	ctx := context.Background()
	rec := &recordingExporter{}
	w := newWorker(rec)
	if err := w.store.UpsertSettings(ctx, core.Money{Cents: 10000}, core.Money{}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.store.AddExpense(ctx, "Food", core.Money{Cents: 2500}, ""); err != nil {
		t.Fatal(err)
	}

	if err := w.ExportMonth(ctx, core.CurrentMonth(fixedNow)); err != nil {
		t.Fatal(err)
	}
	d := rec.data[0]
	if d.Currency != "KES" || d.Summary.SafeToSpend.Cents != 7500 || len(d.Expenses) != 1 {
		t.Errorf("unexpected data %+v", d)
	}
}

type stubConsumer struct {
	msgs []*amqp.LedgerChangedMessage
}

func (s stubConsumer) ConsumeLedgerChanged(ctx context.Context, h amqp.Handler) error {
	for _, m := range s.msgs {
		if err := h(ctx, m); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunStopsOnCancel(t *testing.T) {
	rec := &recordingExporter{}
	w := newWorker(rec)
	consumer := stubConsumer{msgs: []*amqp.LedgerChangedMessage{
		amqp.NewLedgerChangedMessage(amqp.EntityExpense, amqp.OpDelete, 4, "2025-01"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer, time.Hour) }()

	deadline := time.After(2 * time.Second)
	for len(rec.exported()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("exports so far: %v", rec.exported())
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
