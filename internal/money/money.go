// Package money converts between user-entered decimal strings and integer
// minor currency units. Nothing past this boundary handles fractional money.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorDigits is the number of minor-unit digits (cents).
const MinorDigits = 2

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
)

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// ParseMinor converts a decimal string such as "12.345" into minor units,
// rounding half to even ("0.125" -> 12, "0.135" -> 14). An empty string is zero.
func ParseMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	}
	minor := d.Shift(MinorDigits).RoundBank(0)
	if minor.GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, s)
	}
	return minor.IntPart(), nil
}

// ParseOptionalMinor is ParseMinor that maps an empty string to nil.
func ParseOptionalMinor(s string) (*int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	n, err := ParseMinor(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// FormatMinor renders minor units as a fixed two-decimal string.
func FormatMinor(n int64) string {
	return decimal.New(n, -MinorDigits).StringFixed(MinorDigits)
}
