// Package errors provides custom error types for the Custodia API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized  = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidAPIKey = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Audit event errors. An unrecorded audit event is itself a compliance gap,
// so persistence failures are always surfaced, never swallowed.
var (
	ErrAuditUnavailable = &AppError{Code: "AUDIT_UNAVAILABLE", Message: "Audit event could not be recorded", StatusCode: http.StatusServiceUnavailable}
	ErrEventNotFound    = &AppError{Code: "EVENT_NOT_FOUND", Message: "Audit event not found", StatusCode: http.StatusNotFound}
)

// Compliance rule errors.
var (
	ErrRuleNotFound  = &AppError{Code: "RULE_NOT_FOUND", Message: "Compliance rule not found", StatusCode: http.StatusNotFound}
	ErrInvalidRule   = &AppError{Code: "INVALID_RULE", Message: "Compliance rule definition is invalid", StatusCode: http.StatusBadRequest}
	ErrDuplicateRule = &AppError{Code: "DUPLICATE_RULE", Message: "A compliance rule with this ID already exists", StatusCode: http.StatusConflict}
)

// Violation errors.
var (
	ErrViolationNotFound = &AppError{Code: "VIOLATION_NOT_FOUND", Message: "Compliance violation not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransition = &AppError{Code: "INVALID_STATUS_TRANSITION", Message: "Violation status transition is not allowed", StatusCode: http.StatusBadRequest}
)

// Audit run errors.
var (
	ErrAuditRunFailed = &AppError{Code: "AUDIT_RUN_FAILED", Message: "Compliance audit run could not complete", StatusCode: http.StatusInternalServerError}
)
