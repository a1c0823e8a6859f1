package shared

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the ledger. Every failure returned to a caller carries one of these codes.
const (
	CodeDuplicatePlan             = "DUPLICATE_PLAN"
	CodeAmountMismatch            = "AMOUNT_MISMATCH"
	CodePlanHasPayments           = "PLAN_HAS_PAYMENTS"
	CodeExceedsOutstandingBalance = "EXCEEDS_OUTSTANDING_BALANCE"
	CodeAlreadyVerified           = "ALREADY_VERIFIED"
	CodeNotFound                  = "NOT_FOUND"
	CodeInvalidInput              = "INVALID_INPUT"
	CodeStorageFailure            = "STORAGE_FAILURE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches any DomainError with the same code, so sentinels work with errors.Is
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound                  = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput              = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrDuplicatePlan             = NewDomainError(CodeDuplicatePlan, "Enrollment already has a payment plan")
	ErrAmountMismatch            = NewDomainError(CodeAmountMismatch, "Installment amounts do not add up to the declared total")
	ErrPlanHasPayments           = NewDomainError(CodePlanHasPayments, "Plan has recorded payments")
	ErrExceedsOutstandingBalance = NewDomainError(CodeExceedsOutstandingBalance, "Payment exceeds the outstanding balance")
	ErrAlreadyVerified           = NewDomainError(CodeAlreadyVerified, "Payment is already verified")
	ErrStorageFailure            = NewDomainError(CodeStorageFailure, "Storage operation failed")
)

// NewNotFoundError reports a missing entity by kind and id
func NewNotFoundError(entity string, id fmt.Stringer) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", entity, id))
}

// NewInvalidInputError reports a rejected input value
func NewInvalidInputError(message string) *DomainError {
	return NewDomainError(CodeInvalidInput, message)
}

// NewStorageError wraps a transaction-layer failure. The operation is safe to retry.
func NewStorageError(op string, cause error) *DomainError {
	return &DomainError{
		Code:    CodeStorageFailure,
		Message: fmt.Sprintf("storage failure during %s: %v", op, cause),
		cause:   cause,
	}
}

// KindOf returns the code of the first DomainError in err's chain, or "" if there is none
func KindOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsKind reports whether err carries the given code
func IsKind(err error, code string) bool {
	return KindOf(err) == code
}
