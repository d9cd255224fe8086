// Package errors provides structured error handling for ftsync.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (index files, record store)
//   - 3XX: Contention errors (writer slot, root lock)
//   - 4XX: Validation and lookup errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration or registration errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates index or record store I/O errors.
	CategoryIO Category = "IO"
	// CategoryContention indicates a resource held by another writer.
	CategoryContention Category = "CONTENTION"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeSchemaInvalid  = "ERR_103_SCHEMA_INVALID"

	// IO errors (200-299)
	ErrCodeIndexOpen    = "ERR_201_INDEX_OPEN"
	ErrCodeCorruptIndex = "ERR_202_CORRUPT_INDEX"
	ErrCodeStoreFailed  = "ERR_203_STORE_FAILED"

	// Contention errors (300-399)
	ErrCodeWriterBusy = "ERR_301_WRITER_BUSY"
	ErrCodeRootLocked = "ERR_302_ROOT_LOCKED"

	// Validation errors (400-499)
	ErrCodeInvalidInput  = "ERR_401_INVALID_INPUT"
	ErrCodeQueryTooShort = "ERR_402_QUERY_TOO_SHORT"
	ErrCodeUnitNotFound  = "ERR_403_UNIT_NOT_FOUND"
	ErrCodeUnitAmbiguous = "ERR_404_UNIT_AMBIGUOUS"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeSearchFailed  = "ERR_502_SEARCH_FAILED"
	ErrCodeHandlerFailed = "ERR_503_HANDLER_FAILED"
	ErrCodeCommitFailed  = "ERR_505_COMMIT_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryContention
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeCommitFailed, ErrCodeSchemaInvalid:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeWriterBusy, ErrCodeRootLocked:
		return true
	default:
		return false
	}
}
