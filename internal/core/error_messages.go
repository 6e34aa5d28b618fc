package core

// # Error Codes Reference
//
// User-facing messages carry a code that operators can quote when reporting a
// failed import. Pipeline error classes are matched first; technical messages
// from drivers are matched by substring after that.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Another import is running
//	IMP002 - Import timed out
//	IMP003 - Import cancelled
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File not found or unreadable
//	FILE002 - Duplicates file could not be written
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Malformed field in the CSV
//	VAL002 - Required column missing from the header
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Trip already loaded (unique index violation)
//	DB002 - Connection refused
//	DB003 - Connection reset
//	DB004 - Destination table missing
//	DB005 - Bulk insert rejected
//
// # Report Errors (RPT001-RPT099)
//
//	RPT001 - No trips match the report
//
// # Fallback
//
//	ERR000 - Unexpected error; check logs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorClass maps a sentinel to its message.
type errorClass struct {
	target error
	msg    UserMessage
}

var (
	msgDuplicateTrip = UserMessage{
		Message: "One or more trips are already loaded",
		Action:  "Remove previously imported rows from the file or clear the table",
		Code:    "DB001",
	}
	msgConnRefused = UserMessage{
		Message: "Unable to connect to the database",
		Action:  "Check DATABASE_URL and that the server is running",
		Code:    "DB002",
	}
	msgMissingColumn = UserMessage{
		Message: "A required column is missing from the CSV header",
		Action:  "Check that the header matches the trip record layout",
		Code:    "VAL002",
	}
)

// errorPatterns maps technical error substrings (lowercase) to user messages.
// The first match wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{pattern: "duplicate key", msg: msgDuplicateTrip},
	{pattern: "cannot insert duplicate key", msg: msgDuplicateTrip},
	{pattern: "violates unique", msg: msgDuplicateTrip},
	{pattern: "missing required columns", msg: msgMissingColumn},
	{pattern: "connection refused", msg: msgConnRefused},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Run the import again; nothing was committed",
			Code:    "DB003",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "The destination table does not exist",
			Action:  "Run 'tripctl migrate up' first",
			Code:    "DB004",
		},
	},
	{
		pattern: "invalid object name",
		msg: UserMessage{
			Message: "The destination table does not exist",
			Action:  "Run 'tripctl migrate up' first",
			Code:    "DB004",
		},
	},
}

// errorClasses are checked with errors.Is before any pattern matching.
var errorClasses = []errorClass{
	{
		target: ErrImportBusy,
		msg: UserMessage{
			Message: "Another import is already running",
			Action:  "Wait for it to finish and try again",
			Code:    "IMP001",
		},
	},
	{
		target: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "The import timed out",
			Action:  "Increase IMPORT_TIMEOUT or split the file",
			Code:    "IMP002",
		},
	},
	{
		target: context.Canceled,
		msg: UserMessage{
			Message: "The import was cancelled",
			Action:  "Run it again when ready",
			Code:    "IMP003",
		},
	},
	{
		target: ErrInput,
		msg: UserMessage{
			Message: "The input file could not be read",
			Action:  "Check the path and file permissions",
			Code:    "FILE001",
		},
	},
	{
		target: ErrOverflow,
		msg: UserMessage{
			Message: "The duplicates file could not be written",
			Action:  "Check IMPORT_DUPLICATES_PATH is writable",
			Code:    "FILE002",
		},
	},
	{
		target: ErrNoTrips,
		msg: UserMessage{
			Message: "No trips found",
			Action:  "Import a file first or choose another zone",
			Code:    "RPT001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Pipeline error classes are checked with errors.Is, then known driver
// messages are matched case-insensitively.
//
// Example:
//
//	_, err := svc.Import(ctx, "trips.csv")
//	msg := MapError(err)
//	// msg.Code == "VAL001" for a malformed date
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, ec := range errorClasses {
		if errors.Is(err, ec.target) {
			return ec.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		return UserMessage{
			Message: pe.Error(),
			Action:  "Fix the value in the CSV and import again",
			Code:    "VAL001",
		}
	}

	if errors.Is(err, ErrPersist) {
		return UserMessage{
			Message: "The database rejected the bulk insert",
			Action:  "Nothing was committed; check the logs and try again",
			Code:    "DB005",
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
