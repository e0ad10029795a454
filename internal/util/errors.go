// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrInvalidInput         = errors.New("invalid input provided")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrStorageUnavailable   = errors.New("ledger storage unavailable")
	ErrInvalidBalanceFormat = errors.New("invalid balance format")
	ErrPrecisionLoss        = errors.New("balance exceeds two decimal places")
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// IsBalanceError returns true if the error comes from a malformed or over-precise balance.
func IsBalanceError(err error) bool {
	return errors.Is(err, ErrInvalidBalanceFormat) || errors.Is(err, ErrPrecisionLoss)
}
