package exitcode

import (
	"os"
	"strings"

	atterrors "github.com/felixgeelhaar/attention/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// Rejected indicates the backend answered but refused the operation
	Rejected = 3

	// MalformedResponse indicates the backend answered with an unexpected body
	MalformedResponse = 4

	// AuthError indicates a missing session or an authentication failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted indicates the user cancelled with SIGINT or SIGTERM
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	code := DetermineExitCode(err)
	Exit(code)
}

// DetermineExitCode analyzes an error and returns the appropriate exit code.
// Coded errors are mapped by code; anything else falls back to message matching.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if code, ok := fromCode(atterrors.CodeOf(err)); ok {
		return code
	}

	errMsg := strings.ToLower(err.Error())

	// Authentication errors
	if strings.Contains(errMsg, "not logged in") || strings.Contains(errMsg, "unauthorized") {
		return AuthError
	}

	// Network errors
	if strings.Contains(errMsg, "network") || strings.Contains(errMsg, "connection") {
		return NetworkError
	}
	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "unreachable") {
		return NetworkError
	}

	// Usage errors (cobra phrases these)
	if strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "invalid argument") || strings.Contains(errMsg, "required flag") {
		return UsageError
	}
	if strings.Contains(errMsg, "accepts") && strings.Contains(errMsg, "arg(s)") {
		return UsageError
	}

	// Default to general error
	return GeneralError
}

func fromCode(code atterrors.ErrorCode) (int, bool) {
	switch code {
	case "":
		return 0, false
	case atterrors.ErrCodeSessionMissing, atterrors.ErrCodeUnauthorized, atterrors.ErrCodeInvalidCredentials:
		return AuthError, true
	case atterrors.ErrCodeNetwork:
		return NetworkError, true
	case atterrors.ErrCodeRejected, atterrors.ErrCodeContractViolation:
		return Rejected, true
	case atterrors.ErrCodeMalformedResponse:
		return MalformedResponse, true
	case atterrors.ErrCodeInvalidInput, atterrors.ErrCodeInvalidState:
		return UsageError, true
	default:
		return GeneralError, true
	}
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case Rejected:
		return "Rejected by the backend"
	case MalformedResponse:
		return "Malformed response"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted by user"
	default:
		return "Unknown error"
	}
}
