package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for pipeline boundaries. Pipeline-internal conditions
// (malformed lines, unregistered drugs, ambiguous variants, explanation
// failures) are represented as data in the report, not as errors; these
// sentinels cover the genuine caller-facing failures.
var (
	// ErrSessionNotFound is returned when a caller references an unknown or
	// expired analysis session. This is the one pipeline condition reported
	// to the caller as a failure.
	ErrSessionNotFound = errors.New("session not found")

	ErrEmptyDrugList   = errors.New("no drugs requested")
	ErrEmptyInput      = errors.New("empty variant file input")
	ErrInvalidZygosity = errors.New("invalid zygosity")
)

// APIError represents a standardized error response payload.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodeStorageError    = "STORAGE_ERROR"
	ErrCodeInternalServer  = "INTERNAL_SERVER_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
