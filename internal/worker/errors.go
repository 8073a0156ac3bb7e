package worker

import (
	"errors"
	"fmt"
)

// Error represents a worker pipeline failure.
type Error struct {
	Code    ErrorCode
	Message string
}

// ErrorCode categorizes worker errors.
type ErrorCode string

const (
	// ErrCodeFunctionNotFound indicates no registered function matches
	// the declaration.
	ErrCodeFunctionNotFound ErrorCode = "FUNCTION_NOT_FOUND"

	// ErrCodeBadBinding indicates the declaration and the request
	// envelope cannot be paired (slot count mismatch, unknown plugin).
	ErrCodeBadBinding ErrorCode = "BAD_BINDING"

	// ErrCodeBadResult indicates the function's results cannot be
	// coerced to the declared output shape.
	ErrCodeBadResult ErrorCode = "BAD_RESULT"

	// ErrCodeInternal indicates an inconsistency between the execution
	// layer and the response writer, such as a produced table with
	// incomplete metadata.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsBadResult returns true if the error is a result-shape error.
// Uses errors.As to handle wrapped errors.
func IsBadResult(err error) bool {
	var we *Error
	return errors.As(err, &we) && we.Code == ErrCodeBadResult
}
