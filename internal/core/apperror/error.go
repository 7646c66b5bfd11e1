// Package apperror provides structured error handling for the platform.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by category
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeQuantityExceedsPending = "QUANTITY_EXCEEDS_PENDING"
	CodeExtraExceedsPending    = "EXTRA_QUANTITY_EXCEEDS_PENDING"
	CodeDamagedExceedsReceived = "DAMAGED_QUANTITY_EXCEEDS_RECEIVED"
	CodeReceiptLocked          = "RECEIPT_LOCKED"
	CodeSourceCancelled        = "SOURCE_DOCUMENT_CANCELLED"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the platform.
// It implements the error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400).
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404).
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422).
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewQuantityExceedsPending is returned when a receipt line tries to receive
// more than the outstanding quantity on the source commitment.
func NewQuantityExceedsPending(material string, received, pending float64) *AppError {
	return &AppError{
		Code:       CodeQuantityExceedsPending,
		Message:    "received quantity exceeds pending quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"material": material,
			"received": received,
			"pending":  pending,
		},
	}
}

// NewExtraExceedsPending is returned when a receipt line tries to receive more
// extra quantity than the remaining over-delivery tolerance.
func NewExtraExceedsPending(material string, extraReceived, extraPending float64) *AppError {
	return &AppError{
		Code:       CodeExtraExceedsPending,
		Message:    "extra received quantity exceeds pending extra quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"material":      material,
			"extraReceived": extraReceived,
			"extraPending":  extraPending,
		},
	}
}

// NewDamagedExceedsReceived is returned when a line reports more damaged
// pieces than it received.
func NewDamagedExceedsReceived(material string, damaged, received float64) *AppError {
	return &AppError{
		Code:       CodeDamagedExceedsReceived,
		Message:    "damaged quantity exceeds received quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"material": material,
			"damaged":  damaged,
			"received": received,
		},
	}
}

// NewReceiptLocked is returned when modifying a receipt that is not Partial.
func NewReceiptLocked(receiptID string, status string) *AppError {
	return &AppError{
		Code:       CodeReceiptLocked,
		Message:    "receipt is locked and can no longer be modified",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"receipt_id": receiptID, "status": status},
	}
}

// NewSourceCancelled is returned when receiving against a cancelled source document.
func NewSourceCancelled(sourceID string) *AppError {
	return &AppError{
		Code:       CodeSourceCancelled,
		Message:    "source document is cancelled",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"source_id": sourceID},
	}
}

// NewInsufficientStock creates a stock shortage error.
func NewInsufficientStock(product string, requested, available float64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product":   product,
			"requested": requested,
			"available": available,
		},
	}
}

// NewConcurrentModification creates an optimistic locking error.
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client).
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401).
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403).
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409).
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound.
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsValidation checks if error is CodeValidation.
func IsValidation(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeValidation
	}
	return false
}

// IsConcurrentModification checks if error is CodeConcurrentModification.
func IsConcurrentModification(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeConcurrentModification
	}
	return false
}
