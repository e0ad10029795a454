// internal/domain/account.go
package domain

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

// Persisted attribute names, next to the per-currency balance key.
const (
	AttrJob           = "job"
	AttrNotifications = "jobnotifications"

	DefaultJob = "Unemployed"
)

// Account is a snapshot of one ledger record.
type Account struct {
	ID                   string          `json:"id"`                    // Canonical UUID for players, free-form for virtual accounts
	Virtual              bool            `json:"virtual"`               // True for shops, banks and other non-player entities
	Balance              decimal.Decimal `json:"balance"`               // Always two fractional digits
	Currency             Currency        `json:"currency"`              // The ledger's default currency
	Job                  string          `json:"job"`                   // Empty for virtual accounts
	NotificationsEnabled bool            `json:"notifications_enabled"` // Job notification preference
}

// NewPlayerAccount creates a player Account with default attributes.
func NewPlayerAccount(id uuid.UUID, currency Currency, startingBalance decimal.Decimal) *Account {
	return &Account{
		ID:                   id.String(),
		Balance:              startingBalance,
		Currency:             currency,
		Job:                  DefaultJob,
		NotificationsEnabled: true,
	}
}

// NewVirtualAccount creates a non-player Account. Virtual accounts only carry a balance.
func NewVirtualAccount(name string, currency Currency, startingBalance decimal.Decimal) *Account {
	return &Account{
		ID:       name,
		Virtual:  true,
		Balance:  startingBalance,
		Currency: currency,
	}
}

// CanonicalID normalizes an account identifier. Identifiers that parse as a
// UUID are player accounts and are returned in canonical lowercase form.
func CanonicalID(id string) (canonical string, player bool) {
	if u, err := uuid.Parse(strings.TrimSpace(id)); err == nil {
		return u.String(), true
	}
	return id, false
}
