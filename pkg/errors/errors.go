package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Training/forecasting errors
	ErrInsufficientData = errors.New("insufficient historical data")
	ErrFeatureMismatch  = errors.New("feature columns do not match trained model")
	ErrModelNotTrained  = errors.New("model has not been trained")

	// External collaborator errors
	ErrUpstreamUnavailable = errors.New("upstream data source unavailable")
	ErrArtifactNotFound    = errors.New("artifact not found")

	// Ingestion/validation errors
	ErrInvalidObservation = errors.New("invalid observation")
	ErrNonMonotonicDates  = errors.New("observation dates are not monotonically increasing")
	ErrEmptySeries        = errors.New("empty observation series")

	// Storage errors
	ErrStorageWriteFailed = errors.New("storage write failed")
	ErrStorageReadFailed  = errors.New("storage read failed")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeTraining   ErrorType = "training"
	ErrorTypeForecast   ErrorType = "forecast"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeUpstream   ErrorType = "upstream"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Cause:      err,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// NewInsufficientDataError indicates the series is too short for the
// configured lag depth or lookback window. Fatal to a training run.
func NewInsufficientDataError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeTraining,
		Code:       CodeInsufficientData,
		Message:    message,
		Cause:      ErrInsufficientData,
		HTTPStatus: 422,
	}
}

// NewFeatureMismatchError indicates the inference-time feature column set or
// order differs from what the tree model was trained with.
func NewFeatureMismatchError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForecast,
		Code:       CodeFeatureMismatch,
		Message:    message,
		Cause:      ErrFeatureMismatch,
		HTTPStatus: 500,
	}
}

// NewUpstreamUnavailableError indicates an external API or artifact load
// failed. Callers degrade to "output absent" rather than aborting.
func NewUpstreamUnavailableError(message string, cause error) *AppError {
	e := &AppError{
		Type:       ErrorTypeUpstream,
		Code:       CodeUpstreamUnavailable,
		Message:    message,
		Cause:      ErrUpstreamUnavailable,
		HTTPStatus: 503,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewNotFoundError indicates a persisted artifact is absent, meaning the
// model has not been trained yet. Not a crash.
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeStorage,
		Code:       CodeArtifactNotFound,
		Message:    message,
		Cause:      ErrArtifactNotFound,
		HTTPStatus: 404,
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *AppError {
	return NewAppError(ErrorTypeStorage, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, "INTERNAL_ERROR", message)
}

// getDefaultHTTPStatus returns the default HTTP status for an error type
func getDefaultHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation:
		return 400
	case ErrorTypeStorage:
		return 404
	case ErrorTypeTraining:
		return 422
	case ErrorTypeUpstream:
		return 503
	case ErrorTypeForecast, ErrorTypeInternal:
		return 500
	default:
		return 500
	}
}

// Error codes for different error scenarios
const (
	CodeInsufficientData    = "INSUFFICIENT_DATA"
	CodeFeatureMismatch     = "FEATURE_MISMATCH"
	CodeModelNotTrained     = "MODEL_NOT_TRAINED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeArtifactNotFound    = "ARTIFACT_NOT_FOUND"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidConfig       = "INVALID_CONFIG"
	CodeWriteFailed         = "WRITE_FAILED"
	CodeReadFailed          = "READ_FAILED"
)
