package envelope

import (
	"errors"
	"fmt"
)

// Error represents a malformed-envelope condition. Envelope errors are
// fatal: they abort the run before any user code executes.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the envelope file involved, when known.
	Path string

	// Field names the offending field or section, when known.
	Field string
}

// ErrorCode categorizes envelope errors.
type ErrorCode string

const (
	// ErrCodeUnknownVersion indicates an unrecognized document root tag.
	ErrCodeUnknownVersion ErrorCode = "UNKNOWN_VERSION"

	// ErrCodeUnknownTag indicates an unrecognized entry tag inside a
	// recognized document.
	ErrCodeUnknownTag ErrorCode = "UNKNOWN_TAG"

	// ErrCodeMissingName indicates a table entry without the required
	// name field.
	ErrCodeMissingName ErrorCode = "MISSING_NAME"

	// ErrCodeMalformed indicates any other structural defect.
	ErrCodeMalformed ErrorCode = "MALFORMED"

	// ErrCodeWorkAlreadySet indicates a second attempt to set the
	// envelope's work token.
	ErrCodeWorkAlreadySet ErrorCode = "WORK_ALREADY_SET"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownVersion returns true if the error is an unrecognized-version
// error. Uses errors.As to handle wrapped errors.
func IsUnknownVersion(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Code == ErrCodeUnknownVersion
}

// IsMissingName returns true if the error is a missing-table-name error.
func IsMissingName(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Code == ErrCodeMissingName
}
