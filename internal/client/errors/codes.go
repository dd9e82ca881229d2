package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"os"

	"github.com/criteo/code-id-registry/internal/client"
)

// Exit codes for different error scenarios
const (
	ExitSuccess          = 0 // Success
	ExitGeneralError     = 1 // General error (network failure, server 500, unknown error)
	ExitInvalidArguments = 2 // Invalid arguments/usage (missing required flags, invalid format)
	ExitNotFound         = 3 // Resource not found (404)
	ExitConflict         = 4 // Conflict (409) - code ID taken or registration mismatch
	ExitAuthError        = 5 // Authentication error (401)
	ExitPermissionDenied = 6 // Permission denied (403) - caller is not the admin
)

// ExitWithError prints error message and exits with appropriate code
func ExitWithError(err error, message string) {
	if message != "" {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(ExitGeneralError)
}

// ExitWithCode prints error message and exits with specific code
func ExitWithCode(code int, message string) {
	if message != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
	os.Exit(code)
}

// MapHTTPStatusToExitCode maps HTTP status codes to exit codes
func MapHTTPStatusToExitCode(statusCode int) int {
	switch statusCode {
	case http.StatusUnauthorized:
		return ExitAuthError
	case http.StatusForbidden:
		return ExitPermissionDenied
	case http.StatusNotFound:
		return ExitNotFound
	case http.StatusConflict:
		return ExitConflict
	case http.StatusBadRequest:
		return ExitInvalidArguments
	default:
		if statusCode >= 400 && statusCode < 500 {
			return ExitInvalidArguments
		}
		return ExitGeneralError
	}
}

// Describe returns the exit code and message for an error returned by the
// registry client
func Describe(err error) (int, string) {
	var apiErr *client.APIError
	if !stderrors.As(err, &apiErr) {
		return ExitGeneralError, fmt.Sprintf("request failed: %v", err)
	}

	message := apiErr.Message
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		message += ". Try running 'codeid-regctl login' to authenticate"
	case http.StatusForbidden:
		message += ". Only the registry admin may do this; see 'codeid-regctl admin'"
	}
	return MapHTTPStatusToExitCode(apiErr.StatusCode), message
}

// ExitWithAPIError exits with the code mapped from a registry client error
func ExitWithAPIError(err error) {
	code, message := Describe(err)
	ExitWithCode(code, message)
}
