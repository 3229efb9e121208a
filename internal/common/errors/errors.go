// Package errors provides standardized error handling for the triage pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInputValidationFailed  ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeGuardrailViolation     ErrorCode = "GUARDRAIL_VIOLATION"
	ErrCodeModelResponseInvalid   ErrorCode = "MODEL_RESPONSE_INVALID"
	ErrCodeModelCallFailed        ErrorCode = "MODEL_CALL_FAILED"
	ErrCodeOutputValidationFailed ErrorCode = "OUTPUT_VALIDATION_FAILED"
	ErrCodePersistenceFailed      ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeTicketNotFound         ErrorCode = "TICKET_NOT_FOUND"
	ErrCodeRunNotFound            ErrorCode = "RUN_NOT_FOUND"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf returns the error code of err, or empty when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// UserMessage returns the operator-facing message for err. Unstructured errors
// fall back to their Error() text.
func UserMessage(err error) string {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		if stdErr.Details != "" {
			return fmt.Sprintf("%s: %s", stdErr.Message, stdErr.Details)
		}
		return stdErr.Message
	}
	return err.Error()
}

// NewInputValidationError creates a non-retryable error for malformed email fields.
func NewInputValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputValidationFailed,
		Message:   "Email input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGuardrailViolationError creates a non-retryable error for injection-bearing
// input. The matched pattern goes into Metadata, not Details, so the
// user-facing message never echoes detector internals back to the sender.
func NewGuardrailViolationError(pattern string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGuardrailViolation,
		Message:   "Potential prompt-injection detected. Please remove instruction-like text from the email and resend.",
		Retryable: false,
		Metadata:  map[string]interface{}{"pattern": pattern},
		Timestamp: time.Now().UTC(),
	}
}

// NewModelResponseError creates a non-retryable error for non-JSON or
// schema-nonconforming model output.
func NewModelResponseError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelResponseInvalid,
		Message:   "Model returned a malformed response",
		Details:   fmt.Sprintf("stage: %s, error: %s", stage, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelCallFailedError creates an error for a failed model invocation.
func NewModelCallFailedError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelCallFailed,
		Message:   "Model invocation failed",
		Details:   fmt.Sprintf("stage: %s, error: %s", stage, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOutputValidationError creates a non-retryable error for an assembled
// result that fails its schema.
func NewOutputValidationError(schema string, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOutputValidationFailed,
		Message:   "Output validation failed",
		Details:   fmt.Sprintf("schema: %s, %s", schema, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceError creates an error for a failed storage operation.
func NewPersistenceError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Storage operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketNotFoundError creates a structured not-found result for ticket lookups.
func NewTicketNotFoundError(ticketID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTicketNotFound,
		Message:   "Ticket not found",
		Details:   fmt.Sprintf("ticketId: %s", ticketID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRunNotFoundError creates a structured not-found result for run subscriptions.
func NewRunNotFoundError(runID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRunNotFound,
		Message:   "Unknown run id",
		Details:   fmt.Sprintf("runId: %s", runID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
