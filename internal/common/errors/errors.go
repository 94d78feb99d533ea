// Package errors provides standardized error handling for the
// recommendation pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Request validation (user-correctable).
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Upstream collaborators.
	ErrCodePlaceSearchUnavailable ErrorCode = "PLACE_SEARCH_UNAVAILABLE"
	ErrCodePlaceSearchTimeout     ErrorCode = "PLACE_SEARCH_TIMEOUT"
	ErrCodeModelUnavailable       ErrorCode = "MODEL_UNAVAILABLE"
	ErrCodeModelTimeout           ErrorCode = "MODEL_TIMEOUT"
	ErrCodeModelOutputInvalid     ErrorCode = "MODEL_OUTPUT_INVALID"

	// Persistence (swallowed, never surfaced to callers).
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"

	// Lookups.
	ErrCodePlaceNotFound ErrorCode = "PLACE_NOT_FOUND"
	ErrCodeUserNotFound  ErrorCode = "USER_NOT_FOUND"

	// Pipeline.
	ErrCodeNoCandidates    ErrorCode = "NO_CANDIDATES"
	ErrCodeRankingDegraded ErrorCode = "RANKING_DEGRADED"
	ErrCodeInternalError   ErrorCode = "INTERNAL_ERROR"
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

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable bad-input error.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   fmt.Sprintf("Invalid value for %s", field),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewPlaceSearchUnavailableError creates a retryable candidate-source error.
// Fatal to the request: no candidates means nothing to rank.
func NewPlaceSearchUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePlaceSearchUnavailable,
		Message:   "Place search provider is unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlaceSearchTimeoutError creates a retryable candidate-source timeout.
func NewPlaceSearchTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodePlaceSearchTimeout,
		Message:   "Place search timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelUnavailableError creates a retryable model-call error. Never fatal:
// every model-backed operation has a deterministic fallback.
func NewModelUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelUnavailable,
		Message:   "Generative model call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelTimeoutError creates a retryable model timeout error.
func NewModelTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeModelTimeout,
		Message:   "Generative model call timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelOutputInvalidError marks structurally unusable model output.
// Recoverable: callers fall back to the deterministic path.
func NewModelOutputInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelOutputInvalid,
		Message:   "Model output failed structural validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailedError creates a swallowed storage error. Logged only;
// never changes the caller-visible outcome.
func NewPersistenceFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Persistence operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlaceNotFoundError creates a non-retryable missing-place error.
func NewPlaceNotFoundError(placeID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlaceNotFound,
		Message:   "Place not found",
		Details:   fmt.Sprintf("placeId: %s", placeID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserNotFoundError creates a non-retryable missing-user error.
func NewUserNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUserNotFound,
		Message:   "User not found",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoCandidatesError signals an empty candidate set handed to the
// reconciler. The orchestrator short-circuits before this can happen; it
// exists for direct callers of the reconciler.
func NewNoCandidatesError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNoCandidates,
		Message:   "Candidate set is empty, nothing to rank",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRankingDegradedError marks a request served from the deterministic
// fallback ranking. Non-fatal: the response still goes out, this error is
// only logged and counted.
func NewRankingDegradedError(cause error) *StandardError {
	e := &StandardError{
		Code:      ErrCodeRankingDegraded,
		Message:   "Ranking served from deterministic fallback",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternalError,
		Message:   "Unexpected internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// CodeOf extracts the ErrorCode from err, or INTERNAL_ERROR for plain errors.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternalError
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// IsUserCorrectable reports whether the caller can fix the request.
func IsUserCorrectable(code ErrorCode) bool {
	switch code {
	case ErrCodeValidationFailed, ErrCodePlaceNotFound, ErrCodeUserNotFound:
		return true
	}
	return false
}

// HTTPStatus maps an error code to the status the transport layer should use.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return 400
	case ErrCodePlaceNotFound, ErrCodeUserNotFound:
		return 404
	case ErrCodePlaceSearchUnavailable, ErrCodePlaceSearchTimeout:
		return 502
	default:
		return 500
	}
}

// GetErrorCategory returns a coarse bucket for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidationFailed:
		return "validation"
	case ErrCodePlaceSearchUnavailable, ErrCodePlaceSearchTimeout,
		ErrCodeModelUnavailable, ErrCodeModelTimeout:
		return "upstream"
	case ErrCodeModelOutputInvalid, ErrCodeRankingDegraded:
		return "degraded"
	case ErrCodePersistenceFailed:
		return "persistence"
	case ErrCodePlaceNotFound, ErrCodeUserNotFound:
		return "not_found"
	default:
		return "internal"
	}
}
