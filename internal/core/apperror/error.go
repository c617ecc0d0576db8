// Package apperror provides structured error handling for the stock engine.
// All business errors must use AppError so callers can branch on Code.
package apperror

import (
	"errors"
	"fmt"
	"time"
)

// Error codes
const (
	// Infrastructure errors
	CodeInternal           = "INTERNAL_ERROR"
	CodeTransactionFailure = "TRANSACTION_FAILURE"
	CodeLockTimeout        = "LOCK_TIMEOUT"

	// Validation errors
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Business rule violations
	CodeBusinessRule     = "BUSINESS_RULE_VIOLATION"
	CodeRevertOutOfOrder = "REVERT_OUT_OF_ORDER"

	// Not found
	CodeNotFound = "NOT_FOUND"

	// Conflict
	CodeConflict  = "CONFLICT"
	CodeDuplicate = "DUPLICATE_ENTRY"
)

// AppError is the standard error type of the engine.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error.
// The operation was not attempted.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewLockTimeout is returned when an external lock or a store lock could not
// be acquired in time. Nothing was committed; the caller may retry.
func NewLockTimeout(resource string, timeout time.Duration) *AppError {
	return &AppError{
		Code:    CodeLockTimeout,
		Message: "Resource is busy, try again later",
		Details: map[string]any{"resource": resource, "timeout": timeout.String()},
	}
}

// NewTransactionFailure wraps a store error that aborted a transaction.
// The whole operation was rolled back.
func NewTransactionFailure(err error) *AppError {
	return &AppError{
		Code:    CodeTransactionFailure,
		Message: "Transaction failed and was rolled back",
		Err:     err,
	}
}

// NewRevertOutOfOrder is returned when strict revert ordering is enabled and
// a newer inventory still holds journal entries for the same articles.
func NewRevertOutOfOrder(inventoryID any, newer []string) *AppError {
	return &AppError{
		Code:    CodeRevertOutOfOrder,
		Message: "Newer inventories must be reverted first",
		Details: map[string]any{"inventory_id": inventoryID, "newer_inventories": newer},
	}
}

// NewInternal creates an internal error (hides details from the user)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal error",
		Err:     err,
	}
}

// NewConflict creates a conflict error
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

// NewDuplicate creates a duplicate entry error
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:    CodeDuplicate,
		Message: fmt.Sprintf("%s with this %s already exists", entity, field),
		Details: map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsValidation checks if error is CodeValidation
func IsValidation(err error) bool {
	return HasCode(err, CodeValidation)
}

// IsLockTimeout checks if error is CodeLockTimeout
func IsLockTimeout(err error) bool {
	return HasCode(err, CodeLockTimeout)
}

// IsTransactionFailure checks if error is CodeTransactionFailure
func IsTransactionFailure(err error) bool {
	return HasCode(err, CodeTransactionFailure)
}

// UserMessage returns the text a UI layer should show for err.
func UserMessage(err error) string {
	appErr, ok := AsAppError(err)
	if !ok {
		return "An unexpected error occurred, try again"
	}
	switch appErr.Code {
	case CodeTransactionFailure, CodeInternal:
		return "The operation could not be saved, try again"
	default:
		return appErr.Message
	}
}
