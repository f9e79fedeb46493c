// FilePath: internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Error types
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeDatabase    ErrorType = "database"
	ErrorTypeAuth        ErrorType = "authentication"
	ErrorTypeAuthorize   ErrorType = "authorization"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeUnavailable ErrorType = "service_unavailable"
)

// APIError represents a structured API error
type APIError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Details   any       `json:"details,omitempty"`
	err       error     // Internal error for logging
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// WithRequestID adds a request ID to the error
func (e *APIError) WithRequestID(id string) *APIError {
	e.RequestID = id
	return e
}

// WithDetails adds additional details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// NewValidationError creates a new validation error
func NewValidationError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Message: msg,
		Code:    http.StatusBadRequest,
		err:     err,
	}
}

// NewDatabaseError creates a new database error
func NewDatabaseError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeDatabase,
		Message: msg,
		Code:    http.StatusInternalServerError,
		err:     err,
	}
}

// NewAuthError creates a new authentication error
func NewAuthError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeAuth,
		Message: msg,
		Code:    http.StatusUnauthorized,
		err:     err,
	}
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeAuthorize,
		Message: msg,
		Code:    http.StatusForbidden,
		err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: msg,
		Code:    http.StatusNotFound,
		err:     err,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeConflict,
		Message: msg,
		Code:    http.StatusConflict,
		err:     err,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeInternal,
		Message: msg,
		Code:    http.StatusInternalServerError,
		err:     err,
	}
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsConflict checks if an error is a Conflict error
func IsConflict(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Type == ErrorTypeConflict
	}
	return false
}

// --- Ingestion pipeline taxonomy ---
//
// None of these are fatal: the MQTT consumer loop and the evaluator log the
// failure and move on to the next message or cycle.

// DecodeError indicates a payload that could not be parsed even after the
// bounded repair sequence. The message is dropped.
type DecodeError struct {
	Reason string
	err    error
}

func (e *DecodeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.err)
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.err }

// NewDecodeError creates a new payload decode error
func NewDecodeError(reason string, err error) *DecodeError {
	return &DecodeError{Reason: reason, err: err}
}

// IsDecodeError checks if an error is a DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// SinkWriteError indicates the time-series or cache write failed after one
// retry. The data point is lost; processing continues.
type SinkWriteError struct {
	Sink string // "influx" or "redis"
	err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink write (%s): %v", e.Sink, e.err)
}

func (e *SinkWriteError) Unwrap() error { return e.err }

// NewSinkWriteError creates a new sink write error
func NewSinkWriteError(sink string, err error) *SinkWriteError {
	return &SinkWriteError{Sink: sink, err: err}
}

// CommandPublishError indicates an outgoing actuator command did not reach
// the broker. The cached actuator state must NOT be updated in this case.
type CommandPublishError struct {
	Topic string
	err   error
}

func (e *CommandPublishError) Error() string {
	return fmt.Sprintf("command publish to %s: %v", e.Topic, e.err)
}

func (e *CommandPublishError) Unwrap() error { return e.err }

// NewCommandPublishError creates a new command publish error
func NewCommandPublishError(topic string, err error) *CommandPublishError {
	return &CommandPublishError{Topic: topic, err: err}
}

// ErrNoCachedReading is returned by the evaluator when a device has no
// latest-value cache entry. Distinct from "conditions not met".
var ErrNoCachedReading = errors.New("no cached sensor reading")
