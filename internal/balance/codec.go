// Package balance converts monetary values between their persisted string form
// and fixed-point decimals. Every balance carries exactly two fractional digits
// and nothing is ever rounded implicitly.
package balance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"economy-ledger/internal/util"
)

// Scale is the number of fractional digits of every persisted balance.
const Scale = 2

// Zero is 0.00.
var Zero = decimal.New(0, -Scale)

// Parse reads a decimal literal. It does not check the scale, see ParseExact.
func Parse(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", util.ErrInvalidBalanceFormat)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", util.ErrInvalidBalanceFormat, s)
	}
	return d, nil
}

// ParseExact parses s and rescales it to two digits, failing on extra precision.
func ParseExact(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero, err
	}
	return Rescale(d)
}

// Rescale returns d with exactly two fractional digits.
// Values such as 10.005 are rejected with util.ErrPrecisionLoss; 10.500 is fine.
func Rescale(d decimal.Decimal) (decimal.Decimal, error) {
	rounded := d.Round(Scale)
	if !rounded.Equal(d) {
		return decimal.Zero, fmt.Errorf("%w: %s", util.ErrPrecisionLoss, d.String())
	}
	return decimal.NewFromBigInt(rounded.Shift(Scale).BigInt(), -Scale), nil
}

// Format renders d with exactly two fractional digits.
func Format(d decimal.Decimal) (string, error) {
	r, err := Rescale(d)
	if err != nil {
		return "", err
	}
	return r.StringFixed(Scale), nil
}

// Add sums a and b exactly and rescales the result.
func Add(a, b decimal.Decimal) (decimal.Decimal, error) {
	return Rescale(a.Add(b))
}

// MustParse is like ParseExact but panics on error. Use for hardcoded values.
func MustParse(s string) decimal.Decimal {
	d, err := ParseExact(s)
	if err != nil {
		panic(fmt.Sprintf("balance: must parse %q: %v", s, err))
	}
	return d
}
