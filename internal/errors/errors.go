package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Session errors (SESSION-001 to SESSION-099)
	ErrCodeSessionMissing ErrorCode = "SESSION-001"
	ErrCodeSessionCorrupt ErrorCode = "SESSION-002"

	// Transport errors (NET-001 to NET-099)
	ErrCodeNetwork ErrorCode = "NET-001"

	// Response errors (RESP-001 to RESP-099)
	ErrCodeMalformedResponse ErrorCode = "RESP-001"

	// Backend errors (API-001 to API-099)
	ErrCodeRejected           ErrorCode = "API-001"
	ErrCodeUnauthorized       ErrorCode = "API-002"
	ErrCodeInvalidCredentials ErrorCode = "API-003"
	ErrCodeContractViolation  ErrorCode = "API-004"

	// Local validation errors (INPUT-001 to INPUT-099)
	ErrCodeInvalidInput ErrorCode = "INPUT-001"
	ErrCodeInvalidState ErrorCode = "INPUT-002"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
	ErrCodeFileUnmarshal   ErrorCode = "IO-005"
	ErrCodeFileMarshal     ErrorCode = "IO-006"
)

// AttentionError represents an enhanced error with code, suggestions, and documentation
type AttentionError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *AttentionError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AttentionError) Unwrap() error {
	return e.Cause
}

// New creates a new AttentionError
func New(code ErrorCode, message string) *AttentionError {
	return &AttentionError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AttentionError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *AttentionError {
	return &AttentionError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *AttentionError) WithSuggestion(suggestion string) *AttentionError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *AttentionError) WithSuggestions(suggestions ...string) *AttentionError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *AttentionError) WithDocs(url string) *AttentionError {
	e.DocsURL = url
	return e
}

// As reports the outermost AttentionError in err's chain.
func As(err error) (*AttentionError, bool) {
	var attErr *AttentionError
	if stderrors.As(err, &attErr) {
		return attErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost AttentionError in err's chain,
// or the empty code when there is none.
func CodeOf(err error) ErrorCode {
	if attErr, ok := As(err); ok {
		return attErr.Code
	}
	return ""
}

// HasCode reports whether any AttentionError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var attErr *AttentionError
		if !stderrors.As(err, &attErr) {
			return false
		}
		if attErr.Code == code {
			return true
		}
		err = attErr.Cause
	}
	return false
}

// Common error constructors for frequently used errors

// NewSessionMissingError is returned when an authenticated action runs without a live session.
func NewSessionMissingError(operation string) *AttentionError {
	return New(ErrCodeSessionMissing, fmt.Sprintf("could not %s: not logged in", operation)).
		WithSuggestion("Run 'attention login' to start a session").
		WithSuggestion("Check 'attention whoami' to see the current session")
}

// NewNetworkError wraps a transport failure for the named operation.
func NewNetworkError(operation string, cause error) *AttentionError {
	return Wrap(ErrCodeNetwork, fmt.Sprintf("could not %s", operation), cause).
		WithSuggestion("Check your network connection").
		WithSuggestion("Verify the API URL with 'attention config get api.base_url'")
}

// NewMalformedResponseError is returned when a response body has an unexpected shape.
func NewMalformedResponseError(operation string, cause error) *AttentionError {
	return Wrap(ErrCodeMalformedResponse, fmt.Sprintf("could not %s: unexpected response", operation), cause)
}

// NewRejectedError is returned when the backend answers without the expected success indicator.
func NewRejectedError(operation string, status int, detail string) *AttentionError {
	msg := fmt.Sprintf("could not %s (status %d)", operation, status)
	if detail != "" {
		msg = fmt.Sprintf("could not %s: %s (status %d)", operation, detail, status)
	}
	return New(ErrCodeRejected, msg)
}

// NewUnauthorizedError is returned when the backend refuses the bearer token.
func NewUnauthorizedError(operation string) *AttentionError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("could not %s: unauthorized", operation)).
		WithSuggestion("Your session may have been revoked; run 'attention login' again")
}

// NewInvalidCredentialsError is returned when login yields no token.
func NewInvalidCredentialsError() *AttentionError {
	return New(ErrCodeInvalidCredentials, "invalid credentials").
		WithSuggestion("Check the email and password and try again")
}

// NewInvalidInputError creates a local validation error.
func NewInvalidInputError(message string) *AttentionError {
	return New(ErrCodeInvalidInput, message)
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *AttentionError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *AttentionError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
