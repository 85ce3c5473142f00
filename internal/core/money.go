// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user text,
// JSON payloads and model output, and for formatting them back as dollars.
package core

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents bounds any single amount accepted from users or models.
const MaxAmountCents int64 = 1_000_000_000_00

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount too large")
)

var hundred = decimal.NewFromInt(100)

type Money struct {
	Cents int64
}

// Validate requires a strictly positive amount within MaxAmountCents.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return nil
}

// Decimal returns the amount in dollars as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Dollars returns the dollar value as a float64 for display purposes.
// Use cents for calculations.
func (m Money) Dollars() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// String formats the amount as "$1,234.56" (negative as "-$1,234.56").
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := decimal.New(cents, -2).StringFixed(2)
	intPart, frac, _ := strings.Cut(whole, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	s := "$" + b.String() + "." + frac
	if neg {
		return "-" + s
	}
	return s
}

// MarshalJSON encodes money as a JSON number of dollars with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or numeric string of dollars.
// Negative values are accepted here; callers validate sign where it matters.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*m = Money{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	mon, err := moneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = mon
	return nil
}

// MoneyFromFloat converts a dollar float (typically from model output) to cents,
// rounding half away from zero.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}, ErrInvalidAmount
	}
	return moneyFromDecimal(decimal.NewFromFloat(f))
}

func moneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(MaxAmountCents)) {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseAmount parses a positive amount as typed by a person.
//
// It accepts an optional leading "$", thousands separators, and a "k" suffix
// for thousands. The result is rounded to cents and must be positive.
//
// Examples:
//
//	ParseAmount("$1,250.50") -> 125050
//	ParseAmount("200")       -> 20000
//	ParseAmount("2.5k")      -> 250000
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return Money{}, ErrInvalidAmount
	}

	multiplier := decimal.NewFromInt(1)
	if last := s[len(s)-1]; last == 'k' || last == 'K' {
		multiplier = decimal.NewFromInt(1000)
		s = strings.TrimSpace(s[:len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m, err := moneyFromDecimal(d.Mul(multiplier))
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// Percent returns current as a whole percentage of target, rounded half up.
// A zero target counts as reached once anything has been saved.
func Percent(current, target Money) int {
	if target.Cents <= 0 {
		if current.Cents > 0 {
			return 100
		}
		return 0
	}
	if current.Cents <= 0 {
		return 0
	}
	p := current.Decimal().Div(target.Decimal()).Mul(hundred).Round(0)
	return int(p.IntPart())
}
