package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/attention/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\n💡 Suggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a suggestion to uncoded errors whose message points at
// a known cause. Coded errors already carry their own suggestions.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}

	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "no such host"):
		return NewErrorWithSuggestion(err,
			"Check api.base_url with 'attention config get api.base_url'")
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no route to host"):
		return NewErrorWithSuggestion(err,
			"Check your network connection and firewall settings")
	case strings.Contains(errMsg, "permission denied"):
		return NewErrorWithSuggestion(err,
			"Check the permissions of your attention home directory (~/.attention)")
	case strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "accepts"):
		return NewErrorWithSuggestion(err,
			"Run the command with --help to see its usage")
	}

	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}

// PrintError writes err for a human. Coded errors render their own
// suggestions; other errors get one from EnhanceError when a cause is known.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", EnhanceError(err))
}
