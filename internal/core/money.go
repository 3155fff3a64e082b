// Package core provides the ledger domain types, money parsing and the
// error taxonomy shared by every other package.
package core

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// Money is an amount in minor units. The ledger is single-currency, so no
// currency code is carried.
type Money struct {
	Cents int64
}

// ParseAmount converts user input into Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimal places. Zero is allowed; negative, non-numeric and
// non-finite input is rejected with a *ValidationError wrapping ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,34")  -> 1234 cents
//	ParseAmount("1.005")  -> 101 cents
//	ParseAmount("-1")     -> error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, invalidAmount("empty")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return Money{}, invalidAmount("must not be negative")
	}
	s = strings.TrimPrefix(s, "+")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, invalidAmount("not a number")
	}
	return fromDecimal(d)
}

// maxMajorDigits is the integer digit count of math.MaxInt64 cents in
// major units.
const maxMajorDigits = 17

func fromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, invalidAmount("must not be negative")
	}
	// Check magnitude from the digit count and exponent alone, since
	// rescaling 1e2000000000 would build a two billion digit integer.
	magnitude := int64(d.NumDigits()) + int64(d.Exponent())
	if d.Exponent() > 0 && magnitude > maxMajorDigits {
		return Money{}, invalidAmount("too large")
	}
	if magnitude < -3 {
		// Below a tenth of a cent; rounds to zero.
		return Money{}, nil
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, invalidAmount("too large")
	}
	return Money{Cents: cents.IntPart()}, nil
}

func invalidAmount(reason string) error {
	return &ValidationError{Field: "amount", Reason: reason, Err: ErrInvalidAmount}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return invalidAmount("must not be negative")
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool { return m.Cents == 0 }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a plain JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
