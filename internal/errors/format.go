package errors

import (
	"errors"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var fe *FTSError
	if !errors.As(err, &fe) {
		fe = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", err.Error()))
	if fe.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", fe.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", fe.Code))

	return sb.String()
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	var fe *FTSError
	if !errors.As(err, &fe) {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": fe.Code,
		"message":    fe.Message,
		"category":   string(fe.Category),
		"severity":   string(fe.Severity),
		"retryable":  fe.Retryable,
	}

	if fe.Cause != nil {
		result["cause"] = fe.Cause.Error()
	}

	for k, v := range fe.Details {
		result["detail_"+k] = v
	}

	return result
}
