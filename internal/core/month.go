package core

import (
	"fmt"
	"strings"
	"time"
)

const yearMonthLayout = "2006-01"

// YearMonth identifies a calendar month. Containment is evaluated in the
// location passed to Bounds, which is time.Local for the ledger.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(yearMonthLayout, strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, &ValidationError{Field: "month", Reason: fmt.Sprintf("%q is not YYYY-MM", s), Err: ErrInvalidMonth}
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the calendar month containing t in t's own location.
func MonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// CurrentMonth returns the local calendar month of now.
func CurrentMonth(now time.Time) YearMonth {
	return MonthOf(now.In(time.Local))
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Bounds returns the half-open interval [start, end) of the month in loc.
func (ym YearMonth) Bounds(loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the month in local time.
func (ym YearMonth) Contains(t time.Time) bool {
	start, end := ym.Bounds(time.Local)
	return !t.Before(start) && t.Before(end)
}

func (ym YearMonth) Validate() error {
	if ym.Month < time.January || ym.Month > time.December || ym.Year < 1 {
		return &ValidationError{Field: "month", Reason: ym.String(), Err: ErrInvalidMonth}
	}
	return nil
}
