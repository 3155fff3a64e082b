// Package csvexport writes a month of expenses as CSV.
package csvexport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"mkwanja/internal/core"
	"mkwanja/internal/export"
)

// Row is one CSV line.
type Row struct {
	ID       int64  `csv:"id"`
	Date     string `csv:"date"`
	Category string `csv:"category"`
	Amount   string `csv:"amount"`
	Note     string `csv:"note"`
}

const dateLayout = time.RFC3339

func toRows(expenses []core.Expense) []*Row {
	rows := make([]*Row, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, &Row{
			ID:       e.ID,
			Date:     e.Date.In(time.Local).Format(dateLayout),
			Category: e.Category,
			Amount:   e.Amount.String(),
			Note:     e.Note,
		})
	}
	return rows
}

// Write emits a header line followed by one line per expense.
func Write(w io.Writer, expenses []core.Expense) error {
	rows := toRows(expenses)
	if len(rows) == 0 {
		// gocsv writes nothing for an empty slice; keep the header.
		_, err := io.WriteString(w, "id,date,category,amount,note\n")
		return err
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Read parses CSV produced by Write.
func Read(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// Exporter writes <dir>/<YYYY-MM>.csv for each exported month.
type Exporter struct {
	dir string
}

var _ export.Exporter = (*Exporter)(nil)

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// FileName is the base name used for month on disk and in downloads.
func FileName(month core.YearMonth) string {
	return "mkwanja-" + month.String() + ".csv"
}

// Path returns the file ExportMonth writes for month.
func (e *Exporter) Path(month core.YearMonth) string {
	return filepath.Join(e.dir, FileName(month))
}

func (e *Exporter) ExportMonth(ctx context.Context, data export.MonthData) error {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	path := e.Path(data.Month)
	tmp, err := os.CreateTemp(e.dir, ".export-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, data.Expenses); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	slog.InfoContext(ctx, "Month exported to CSV", "month", data.Month.String(), "path", path, "rows", len(data.Expenses))
	return nil
}
