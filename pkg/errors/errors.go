// Package errors defines the error taxonomy for the reconciliation tool.
//
// Errors are grouped into categories that map to distinct CLI exit codes and
// user guidance: file access problems, ledger format problems, validation
// problems, configuration problems, reconciliation failures, report writing
// failures and unexpected internal errors. Row-level data issues are never
// represented here; parsers absorb those silently by dropping the row.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors.
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryReport         ErrorCategory = "report"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories.
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeEmptyLedger   ErrorCode = "empty_ledger"
	CodeEncodingError ErrorCode = "encoding_error"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeMissingField  ErrorCode = "missing_field"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeUnknownFund   ErrorCode = "unknown_fund"

	// Reconciliation errors
	CodeProcessingError ErrorCode = "processing_error"

	// Report errors
	CodeReportWrite ErrorCode = "report_write"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconError is the base error type for all application errors.
type ReconError struct {
	Category   ErrorCategory `json:"category"`
	Code       ErrorCode     `json:"code"`
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`
	Context    Context       `json:"context,omitempty"`
	Cause      error         `json:"-"`
}

// Context provides additional information about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *ReconError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *ReconError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error.
func (e *ReconError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryReport, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *ReconError) WithContext(key string, value interface{}) *ReconError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error.
func (e *ReconError) WithSuggestion(suggestion string) *ReconError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconError.
func New(category ErrorCategory, code ErrorCode, message string) *ReconError {
	return &ReconError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap wraps an existing error with ReconError context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}

	return &ReconError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    errors.WithStack(err),
	}
}

// FileError creates a file-related error carrying the offending path.
func FileError(code ErrorCode, path string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check if the file is open in another program and that you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file could not be read: %s", path)
		suggestion = "verify the file integrity and try exporting the ledger again"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates an input-format error for a ledger file.
func ParseError(code ErrorCode, file string, line int, detail string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in file %s at line %d: %s", file, line, detail)
		suggestion = "check that the file matches the selected fund layout"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column(s) in file %s: %s", file, detail)
		suggestion = "verify the file has all required columns with correct headers"
	case CodeEmptyLedger:
		message = fmt.Sprintf("no valid transaction rows found in file %s", file)
		suggestion = "verify the file format corresponds to the expected layout"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in file %s at line %d", file, line)
		suggestion = "export the ledger again using the Latin-1 (ISO 8859-1) encoding"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line)
}

// ValidationError creates a validation-related error.
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "amounts must use the Brazilian convention, e.g. '1.574,00'"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error.
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeUnknownFund:
		message = fmt.Sprintf("unknown fund type: %v", value)
		suggestion = "use one of the registered fund types (diamante, diamante-extrato, apoge, gpa)"
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError creates a reconciliation-related error.
func ReconciliationError(code ErrorCode, operation string, err error) *ReconError {
	message := fmt.Sprintf("reconciliation error during %s", operation)
	suggestion := "review the input ledgers and try again"

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryReconciliation, code, message)
	} else {
		result = New(CategoryReconciliation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ReportError creates a report-writing error.
func ReportError(path string, err error) *ReconError {
	message := fmt.Sprintf("failed to write report: %s", path)

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryReport, CodeReportWrite, message)
	} else {
		result = New(CategoryReport, CodeReportWrite, message)
	}

	return result.
		WithSuggestion("check if the report file is open in another program and that the directory is writable").
		WithContext("file_path", path)
}

// InternalError creates an internal error.
func InternalError(code ErrorCode, operation string, err error) *ReconError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// IsReconError checks if an error is a ReconError.
func IsReconError(err error) bool {
	_, ok := AsReconError(err)
	return ok
}

// AsReconError extracts a ReconError from an error chain.
func AsReconError(err error) (*ReconError, bool) {
	var reconErr *ReconError
	if errors.As(err, &reconErr) {
		return reconErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconError.
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}

	if reconErr, ok := AsReconError(err); ok {
		return reconErr
	}

	return Wrap(err, category, code, message)
}

// FormatContext renders the error context as "key: value" lines for display.
func FormatContext(ctx Context) string {
	if len(ctx) == 0 {
		return ""
	}

	var lines []string
	for key, value := range ctx {
		lines = append(lines, fmt.Sprintf("  %s: %v", key, value))
	}
	return strings.Join(lines, "\n")
}
