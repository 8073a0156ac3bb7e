package importer

import (
	"errors"
	"fmt"
)

// Error represents an importer failure. Importer failures are fatal:
// they abort the dispatch of the slot rather than substitute nil.
type Error struct {
	Code    ErrorCode
	Message string

	// Query is the offending query text, truncated, for SQL failures.
	Query string
}

// ErrorCode categorizes importer errors.
type ErrorCode string

const (
	// ErrCodeQueryFailed indicates a SQL error from the source database.
	ErrCodeQueryFailed ErrorCode = "QUERY_FAILED"

	// ErrCodeTransportFailed indicates a file transport failure.
	ErrCodeTransportFailed ErrorCode = "TRANSPORT_FAILED"

	// ErrCodeBadConfig indicates an unusable source configuration.
	ErrCodeBadConfig ErrorCode = "BAD_SOURCE_CONFIG"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("%s: %s (query: %s)", e.Code, e.Message, e.Query)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsQueryFailed returns true if the error is a SQL execution error.
// Uses errors.As to handle wrapped errors.
func IsQueryFailed(err error) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.Code == ErrCodeQueryFailed
}

func truncateQuery(q string) string {
	const max = 120
	if len(q) > max {
		return q[:max] + "..."
	}
	return q
}
