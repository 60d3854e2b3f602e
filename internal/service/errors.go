package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("error not found")
	ErrQuoteUnavailable   = errors.New("error quote unavailable")
	ErrHasTransactions    = errors.New("error asset has transactions, archive it instead")
	ErrInvalidCredentials = errors.New("error invalid credentials")
)

// ValidationError rejects a proposed transaction history before anything is
// persisted. It is advisory: nothing is auto-corrected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
