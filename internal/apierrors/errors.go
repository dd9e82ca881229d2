package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/criteo/code-id-registry/internal/registry"
	"github.com/criteo/code-id-registry/internal/storage"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	ErrCodeUnauthorized            ErrorCode = "UNAUTHORIZED"
	ErrCodeUnauthorizedUpdateAdmin ErrorCode = "UNAUTHORIZED_UPDATE_ADMIN"
	ErrCodeCodeIDAlreadyRegistered ErrorCode = "CODE_ID_ALREADY_REGISTERED"
	ErrCodeNotFound                ErrorCode = "NOT_FOUND"
	ErrCodeInvalidIdentity         ErrorCode = "INVALID_IDENTITY"
	ErrCodeValidationError         ErrorCode = "VALIDATION_ERROR"
	ErrCodeRegistrationMismatch    ErrorCode = "REGISTRATION_MISMATCH"
	ErrCodeStorageUnavailable      ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeUnauthenticated         ErrorCode = "UNAUTHENTICATED"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, code ErrorCode, message string, statusCode int, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// MapRegistryError maps registry and storage errors to HTTP responses.
// Details carry the fields of typed errors.
func MapRegistryError(err error) (ErrorCode, string, int, map[string]string) {
	var dup *registry.CodeIDAlreadyRegisteredError
	if errors.As(err, &dup) {
		return ErrCodeCodeIDAlreadyRegistered, dup.Error(), http.StatusConflict, map[string]string{
			"chain_id": dup.ChainID,
		}
	}

	var mismatch *registry.RegistrationMismatchError
	if errors.As(err, &mismatch) {
		return ErrCodeRegistrationMismatch, mismatch.Error(), http.StatusConflict, map[string]string{
			"index": mismatch.Index,
		}
	}

	switch {
	case errors.Is(err, registry.ErrUnauthorizedUpdateAdmin):
		return ErrCodeUnauthorizedUpdateAdmin, "Only the admin may update the admin", http.StatusForbidden, nil
	case errors.Is(err, registry.ErrUnauthorized):
		return ErrCodeUnauthorized, "Only the admin may register or unregister code IDs", http.StatusForbidden, nil
	case errors.Is(err, registry.ErrNotFound):
		return ErrCodeNotFound, "Registration not found", http.StatusNotFound, nil
	case errors.Is(err, registry.ErrInvalidIdentity):
		return ErrCodeInvalidIdentity, err.Error(), http.StatusBadRequest, nil
	case errors.Is(err, registry.ErrInvalidInput):
		return ErrCodeValidationError, err.Error(), http.StatusBadRequest, nil
	case errors.Is(err, registry.ErrNotInstantiated):
		return ErrCodeStorageUnavailable, "Registry has not been instantiated", http.StatusServiceUnavailable, nil
	case errors.Is(err, registry.ErrStorageFault), errors.Is(err, storage.ErrStorageUnavailable):
		return ErrCodeStorageUnavailable, "Storage service unavailable", http.StatusServiceUnavailable, nil
	default:
		return ErrCodeInternal, "Internal server error", http.StatusInternalServerError, nil
	}
}

// WriteRegistryError maps err and writes it
func WriteRegistryError(w http.ResponseWriter, err error) (ErrorCode, int) {
	code, msg, status, details := MapRegistryError(err)
	WriteError(w, code, msg, status, details)
	return code, status
}
