package dto

import (
	"net/http"

	"github.com/cuotas/backend/internal/domain/shared"
)

// Transport-level error codes. Ledger failures keep the code of their DomainError.
const (
	// ErrCodeInternal is used for failures that carry no ledger code
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests (bad JSON, bad path parameters)
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used when request binding fails field validation
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	shared.CodeInvalidInput: http.StatusBadRequest,
	shared.CodeNotFound:     http.StatusNotFound,

	// Conflicts with the current ledger state
	shared.CodeDuplicatePlan:   http.StatusConflict,
	shared.CodeAlreadyVerified: http.StatusConflict,
	shared.CodePlanHasPayments: http.StatusConflict,

	// Arithmetic rules -> 422 Unprocessable Entity
	shared.CodeAmountMismatch:            http.StatusUnprocessableEntity,
	shared.CodeExceedsOutstandingBalance: http.StatusUnprocessableEntity,

	// Storage failures are safe to retry
	shared.CodeStorageFailure: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
