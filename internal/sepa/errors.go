package sepa

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

var (
	// ErrUnknownGroup is matched by every *UnknownGroupError.
	ErrUnknownGroup = errors.New("unknown transaction group")

	// ErrValidationFailed is matched by every *ValidationError.
	ErrValidationFailed = errors.New("payment validation failed")

	// ErrFieldNotFound is returned by Reader.TransactionCustomField when the
	// addressed transaction does not exist.
	ErrFieldNotFound = errors.New("field not found")
)

// validationIntro prefixes every ValidationError message.
const validationIntro = "could not generate SEPA payment object for the following reason(s)"

// UnknownGroupError is returned by any mutation addressed to a transaction
// group that was never created.
type UnknownGroupError struct {
	// Op names what the caller tried to add ("currency", "debtor account",
	// "transaction").
	Op string

	// GroupID is the offending transaction group id.
	GroupID string
}

// Error implements the error interface.
func (e *UnknownGroupError) Error() string {
	return fmt.Sprintf("cannot add %s to non existing transaction group: %q", e.Op, e.GroupID)
}

// Is reports whether target is ErrUnknownGroup.
func (e *UnknownGroupError) Is(target error) bool {
	return target == ErrUnknownGroup
}

// ValidationError carries every rule violated by a payment at emission time.
type ValidationError struct {
	Reasons []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", validationIntro, strings.Join(e.Reasons, ","))
}

// Is reports whether target is ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
