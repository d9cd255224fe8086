package errors

import (
	"errors"
	"fmt"
)

// FTSError is the structured error type for ftsync.
// It provides rich context for error handling, logging, and user presentation.
type FTSError struct {
	// Code is the unique error code (e.g., "ERR_402_QUERY_TOO_SHORT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Contention, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *FTSError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *FTSError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with FTSError.
func (e *FTSError) Is(target error) bool {
	if t, ok := target.(*FTSError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *FTSError) WithDetail(key, value string) *FTSError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *FTSError) WithSuggestion(suggestion string) *FTSError {
	e.Suggestion = suggestion
	return e
}

// New creates a new FTSError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *FTSError {
	return &FTSError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an FTSError from an existing error.
// The error's message becomes the FTSError message.
func Wrap(code string, err error) *FTSError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrQueryTooShort = &FTSError{Code: ErrCodeQueryTooShort}
	ErrSchemaInvalid = &FTSError{Code: ErrCodeSchemaInvalid}
	ErrUnitNotFound  = &FTSError{Code: ErrCodeUnitNotFound}
	ErrUnitAmbiguous = &FTSError{Code: ErrCodeUnitAmbiguous}
	ErrWriterBusy    = &FTSError{Code: ErrCodeWriterBusy}
	ErrCommitFailed  = &FTSError{Code: ErrCodeCommitFailed}
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *FTSError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// SchemaError creates an error for an unusable unit schema. Raised at
// registration time and fatal to startup.
func SchemaError(message string, cause error) *FTSError {
	return New(ErrCodeSchemaInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *FTSError {
	return New(ErrCodeInvalidInput, message, cause)
}

// QueryTooShortError reports search text shorter than the configured minimum.
func QueryTooShortError(text string, minLen int) *FTSError {
	return New(ErrCodeQueryTooShort,
		fmt.Sprintf("search string must have at least %d characters", minLen), nil).
		WithDetail("text", text)
}

// LookupError reports that no unit, or more than one, matches a type set.
func LookupError(code, message string) *FTSError {
	return New(code, message, nil).
		WithSuggestion("pass an explicit unit to the search")
}

// BusyError reports a writer slot that could not be acquired in time.
func BusyError(unit string, cause error) *FTSError {
	return New(ErrCodeWriterBusy, fmt.Sprintf("index writer for %s is busy", unit), cause).
		WithDetail("unit", unit).
		WithSuggestion("retry the batch, or run 'ftsync reindex' to repair drift")
}

// CommitError reports an index write that failed after the writer was acquired.
func CommitError(unit string, cause error) *FTSError {
	return New(ErrCodeCommitFailed, fmt.Sprintf("commit to %s failed", unit), cause).
		WithDetail("unit", unit)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *FTSError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if any FTSError in the chain has its Retryable flag set.
func IsRetryable(err error) bool {
	var fe *FTSError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var fe *FTSError
	if errors.As(err, &fe) {
		return fe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an FTSError.
// Returns empty string if not an FTSError.
func GetCode(err error) string {
	var fe *FTSError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// GetCategory extracts the category from an FTSError.
func GetCategory(err error) Category {
	var fe *FTSError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ""
}
