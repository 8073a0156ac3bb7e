package dispatch

import (
	"errors"
	"fmt"
)

// Error represents a dispatch failure. All dispatch errors are fatal:
// they abort the invocation rather than substitute partial results.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Slot is the zero-based input slot involved, or -1 when unknown.
	Slot int
}

// ErrorCode categorizes dispatch errors.
type ErrorCode string

const (
	// ErrCodeArityMismatch indicates the resolved fragment count differs
	// from the declared source count. A configuration error, never a
	// partial result.
	ErrCodeArityMismatch ErrorCode = "ARITY_MISMATCH"

	// ErrCodeStageFailed indicates an importer or staging failure.
	ErrCodeStageFailed ErrorCode = "STAGE_FAILED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Slot >= 0 {
		return fmt.Sprintf("%s: input[%d]: %s", e.Code, e.Slot, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsArityMismatch returns true if the error is an arity-mismatch error.
// Uses errors.As to handle wrapped errors.
func IsArityMismatch(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == ErrCodeArityMismatch
}

// NewArityError builds the fatal error for a declared/resolved count
// mismatch on one input slot.
func NewArityError(declared, resolved int) *Error {
	return &Error{
		Code:    ErrCodeArityMismatch,
		Message: fmt.Sprintf("declared %d sources, resolved %d fragments", declared, resolved),
		Slot:    -1,
	}
}
