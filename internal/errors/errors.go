package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ArchiveUnreadable indicates a jar or class directory could not be opened or read
	ArchiveUnreadable ErrorCode = "ARCHIVE_UNREADABLE"
	// ClassMalformed indicates a .class file could not be parsed
	ClassMalformed ErrorCode = "CLASS_MALFORMED"
	// InputMissing indicates a required input (manifest, variant, class root) is absent
	InputMissing ErrorCode = "INPUT_MISSING"
	// InputInvalid indicates the host-supplied inputs are inconsistent
	InputInvalid ErrorCode = "INPUT_INVALID"
	// CatalogInvalid indicates a version catalog could not be parsed or resolved
	CatalogInvalid ErrorCode = "CATALOG_INVALID"
	// ReportWriteFailed indicates a report file could not be written
	ReportWriteFailed ErrorCode = "REPORT_WRITE_FAILED"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// HistoryUnavailable indicates the run history store could not be used
	HistoryUnavailable ErrorCode = "HISTORY_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AnalysisError represents an analyzer error with a code, message and cause
type AnalysisError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new AnalysisError
func New(code ErrorCode, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new AnalysisError without a cause and a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AnalysisError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AnalysisError) WithDetails(details interface{}) *AnalysisError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first AnalysisError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// HasCode reports whether err's chain contains an AnalysisError with the given code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var ae *AnalysisError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.cause
	}
	return false
}
