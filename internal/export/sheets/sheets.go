// Package sheets mirrors monthly ledger data into a Google Spreadsheet,
// one tab per month.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"mkwanja/internal/export"
)

// Credentials selects how the service account is loaded. JSON wins over
// File; with neither, GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case c.File != "":
		b, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	if path := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read GOOGLE_APPLICATION_CREDENTIALS: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ export.Exporter = (*Exporter)(nil)

func New(ctx context.Context, spreadsheetID string, creds Credentials) (*Exporter, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	credentialsJSON, err := creds.load()
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets exporter ready", "spreadsheet_id", spreadsheetID)
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// TabTitle names the tab holding month.
func TabTitle(month fmt.Stringer) string {
	return month.String() + " Ledger"
}

// ExportMonth replaces the month tab contents with a fresh snapshot.
func (e *Exporter) ExportMonth(ctx context.Context, data export.MonthData) error {
	title := TabTitle(data.Month)
	if err := e.ensureTab(ctx, title); err != nil {
		return err
	}

	rng := fmt.Sprintf("'%s'!A:F", title)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	vr := &gsheet.ValueRange{Values: BuildRows(data)}
	if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, fmt.Sprintf("'%s'!A1", title), vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Month exported to Google Sheets",
		"month", data.Month.String(), "tab", title, "rows", len(data.Expenses))
	return nil
}

func (e *Exporter) ensureTab(ctx context.Context, title string) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %q: %w", title, err)
	}
	slog.InfoContext(ctx, "Created spreadsheet tab", "tab", title)
	return nil
}

// BuildRows lays out the summary block, the category breakdown and the
// expense list, separated by blank rows.
func BuildRows(data export.MonthData) [][]any {
	s := data.Summary
	rows := [][]any{
		{"Month", data.Month.String()},
		{"Currency", data.Currency},
		{"Generated", data.GeneratedAt.In(time.Local).Format(time.RFC3339)},
		{"Monthly income", s.MonthlyIncome.String()},
		{"Savings target", s.SavingsTarget.String()},
		{"Total spent", s.TotalSpent.String()},
		{"Safe to spend", s.SafeToSpend.String()},
		{"Budget used %", fmt.Sprintf("%.1f", s.BudgetUsedPercent)},
		{"Top category", s.TopCategory.Name, s.TopCategory.Amount.String()},
		{},
		{"Category", "Amount", "Percent"},
	}
	for _, c := range data.Breakdown {
		rows = append(rows, []any{c.Name, c.Amount.String(), fmt.Sprintf("%.1f", c.Percent)})
	}
	rows = append(rows, []any{}, []any{"ID", "Date", "Category", "Amount", "Note"})
	for _, e := range data.Expenses {
		rows = append(rows, []any{
			e.ID,
			e.Date.In(time.Local).Format("2006-01-02 15:04"),
			e.Category,
			e.Amount.String(),
			e.Note,
		})
	}
	return rows
}
