package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNoteLength caps the free-text note attached to an expense.
const MaxNoteLength = 200

type (
	// Category is a user-defined label. Expenses reference it by name only.
	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Expense is a single ledger entry. Date is set once on creation.
	Expense struct {
		ID       int64     `json:"id"`
		Category string    `json:"category"` // free text, not a foreign key
		Amount   Money     `json:"amount"`
		Date     time.Time `json:"date"`
		Note     string    `json:"note,omitempty"`
	}

	// Settings is the singleton budget configuration row.
	Settings struct {
		MonthlyIncome Money     `json:"monthly_income"`
		SavingsTarget Money     `json:"savings_target"`
		UpdatedAt     time.Time `json:"updated_at"`
	}
)

// Income returns the monthly income, treating absent settings as zero.
func (s *Settings) Income() Money {
	if s == nil {
		return Money{}
	}
	return s.MonthlyIncome
}

// Savings returns the savings target, treating absent settings as zero.
func (s *Settings) Savings() Money {
	if s == nil {
		return Money{}
	}
	return s.SavingsTarget
}

// Validate checks the mutable fields of an expense.
func (e Expense) Validate() error {
	if err := ValidateCategoryLabel(e.Category); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return ValidateNote(e.Note)
}

// ValidateCategoryLabel rejects labels that trim to empty.
func ValidateCategoryLabel(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	return nil
}

// ValidateCategoryName is used when creating a category record.
func ValidateCategoryName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	return nil
}

func ValidateNote(note string) error {
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return &ValidationError{Field: "note", Reason: "max 200 characters", Err: ErrNoteTooLong}
	}
	return nil
}

// NormalizeCategoryName folds a category name into the key used to detect
// near-duplicates ("Food", " food ").
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
