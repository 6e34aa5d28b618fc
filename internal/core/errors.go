package core

import (
	"errors"
	"fmt"
)

// Error classes for the import pipeline. Every error returned by
// Service.Import wraps exactly one of these.
var (
	// ErrInput means the source file is missing, unreadable or too large.
	ErrInput = errors.New("input error")

	// ErrParse means the file is structurally bad or a required field is malformed.
	ErrParse = errors.New("parse error")

	// ErrOverflow means the duplicates file could not be written.
	ErrOverflow = errors.New("overflow write error")

	// ErrPersist means the destination rejected the bulk insert.
	ErrPersist = errors.New("persistence error")
)

// ErrSequenceConsumed is returned when a record sequence is iterated twice.
var ErrSequenceConsumed = errors.New("record sequence already consumed")

// ParseError describes a malformed field in the input file.
type ParseError struct {
	Line   int    // 1-based line in the file; 0 when unknown
	Column string // header name of the offending field
	Value  string // raw cell text
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: column %s: invalid value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

// Unwrap lets errors.Is match both ErrParse and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

func fieldError(column, value string, err error) *ParseError {
	return &ParseError{Column: column, Value: value, Err: err}
}
