// internal/domain/currency.go
package domain

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"economy-ledger/internal/balance"
	"economy-ledger/internal/util"
)

// Currency describes the ledger's single currency.
type Currency struct {
	Code     string // ISO 4217 code, e.g. "USD"
	Name     string // Display name used in persisted keys, e.g. "Dollar"
	Symbol   string // e.g. "$"
	Fraction int    // Minor unit digits as defined by ISO 4217
}

// NewCurrency validates code against the ISO 4217 table and attaches a display name.
// Only currencies with two minor digits are accepted, matching the balance scale.
func NewCurrency(code, name string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	cur := money.GetCurrency(code)
	if cur == nil {
		return Currency{}, fmt.Errorf("%w: unknown currency code %q", util.ErrInvalidInput, code)
	}
	if cur.Fraction != balance.Scale {
		return Currency{}, fmt.Errorf("%w: currency %q has %d minor digits, balances carry %d", util.ErrInvalidInput, code, cur.Fraction, balance.Scale)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = code
	}
	return Currency{
		Code:     cur.Code,
		Name:     name,
		Symbol:   cur.Grapheme,
		Fraction: cur.Fraction,
	}, nil
}

// BalanceKey is the attribute under which an account's balance in c is stored.
func (c Currency) BalanceKey() string {
	return strings.ToLower(c.Name) + "-balance"
}

// Display formats amount the way players see it, e.g. "$10.00".
func (c Currency) Display(amount decimal.Decimal) string {
	minor := amount.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, c.Code).Display()
}

func (c Currency) String() string {
	return c.Code
}
