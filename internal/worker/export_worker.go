// Package worker keeps external copies of the ledger fresh.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"mkwanja/internal/amqp"
	"mkwanja/internal/core"
	"mkwanja/internal/export"
	"mkwanja/internal/ledger"
)

// Consumer delivers ledger change messages. *amqp.Client implements it.
type Consumer interface {
	ConsumeLedgerChanged(ctx context.Context, handler amqp.Handler) error
}

// ExportWorker re-exports affected months on every ledger change and
// re-exports the current month on a timer, in case messages were lost.
type ExportWorker struct {
	store     ledger.Store
	exporters []export.Exporter
	currency  string
	recent    int
	now       ledger.Clock
}

func NewExportWorker(store ledger.Store, currency string, recent int, exporters ...export.Exporter) *ExportWorker {
	return &ExportWorker{
		store:     store,
		exporters: exporters,
		currency:  currency,
		recent:    recent,
		now:       ledger.SystemClock,
	}
}

// ExportMonth writes month through every exporter. All exporters run even
// when one fails.
func (w *ExportWorker) ExportMonth(ctx context.Context, month core.YearMonth) error {
	data, err := export.Collect(ctx, w.store, month, w.currency, w.recent)
	if err != nil {
		return err
	}

	var errs []error
	for _, e := range w.exporters {
		if err := e.ExportMonth(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", e, err))
		}
	}
	return errors.Join(errs...)
}

// HandleLedgerChanged exports the month named in msg, or the current month
// when the message does not say.
func (w *ExportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	month := core.CurrentMonth(w.now())
	if msg.Month != "" {
		m, err := core.ParseYearMonth(msg.Month)
		if err != nil {
			// Retrying cannot fix a bad month; fall back to the current one.
			slog.WarnContext(ctx, "Ignoring malformed month in message", "message_id", msg.ID, "month", msg.Month)
		} else {
			month = m
		}
	}

	slog.InfoContext(ctx, "Processing ledger change",
		"message_id", msg.ID,
		"entity", msg.Entity,
		"op", msg.Op,
		"month", month.String())

	if err := w.ExportMonth(ctx, month); err != nil {
		return fmt.Errorf("export %s: %w", month, err)
	}
	return nil
}

// RunPeriodic exports the current month immediately and then every interval
// until ctx is done. Failures are logged and retried on the next tick.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		month := core.CurrentMonth(w.now())
		if err := w.ExportMonth(ctx, month); err != nil {
			slog.ErrorContext(ctx, "Periodic export failed", "month", month.String(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Run drives the consumer (when set) and the periodic export side by side.
// It returns when ctx is cancelled or the consumer fails for good.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.RunPeriodic(ctx, interval)
	})

	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		slog.InfoContext(ctx, "No AMQP consumer configured, running periodic export only")
	}

	return g.Wait()
}
