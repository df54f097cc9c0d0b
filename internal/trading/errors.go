package trading

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHoldings rejects a sell whose quantity exceeds the
	// held position. The trade is still persisted as failed for audit.
	ErrInsufficientHoldings = errors.New("insufficient shares held")

	// ErrInvalidStateTransition rejects any transition out of a terminal
	// trade status.
	ErrInvalidStateTransition = errors.New("invalid trade state transition")

	ErrTradeNotFound    = errors.New("trade not found")
	ErrPositionNotFound = errors.New("position not found")

	// ErrBusy means the per-position serialization could not be acquired
	// within the caller's deadline. Retryable.
	ErrBusy = errors.New("position is busy, retry later")
)

// ValidationError identifies a malformed field in a trade request. It is
// always raised before any state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
