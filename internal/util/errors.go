// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input provided")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrConcurrentUpdate  = errors.New("concurrent update detected")
	ErrInvalidTransition = errors.New("invalid transaction status transition")
	ErrInvalidSignature  = errors.New("invalid webhook signature")

	// Decline causes. Each one maps onto exactly one domain.DeclineReason.
	ErrCardNotFound          = errors.New("card not found")
	ErrCardInactive          = errors.New("card is not active")
	ErrCardExpired           = errors.New("card is expired")
	ErrDailyLimitExceeded    = errors.New("daily spending limit exceeded")
	ErrMonthlyLimitExceeded  = errors.New("monthly spending limit exceeded")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrOrganizationSuspended = errors.New("organization is not active")

	// ErrCompensationIncomplete is returned alongside a declined result when at least one
	// compensating action could not be applied.
	ErrCompensationIncomplete = errors.New("saga compensation incomplete")
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
