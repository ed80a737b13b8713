package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors
type ErrorType string

const (
	ErrTypeMalformedInput  ErrorType = "MALFORMED_INPUT"
	ErrTypeUnparseableDate ErrorType = "UNPARSEABLE_DATE"
	ErrTypeEmptyResult     ErrorType = "EMPTY_RESULT"
	ErrTypeAuthFailure     ErrorType = "AUTH_FAILURE"
	ErrTypeNoInput         ErrorType = "NO_INPUT"
	ErrTypeValidation      ErrorType = "VALIDATION"
	ErrTypeNotFound        ErrorType = "NOT_FOUND"
	ErrTypeConfig          ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewMalformedInputError reports a source that cannot be read as a table.
func NewMalformedInputError(source string, cause error) *AppError {
	return NewAppError(ErrTypeMalformedInput, fmt.Sprintf("malformed input %q", source), cause).
		WithContext("source", source)
}

// NewAuthFailureError reports a shared secret mismatch.
func NewAuthFailureError() *AppError {
	return NewAppError(ErrTypeAuthFailure, "incorrect password", nil)
}

// NewNoInputError reports that no files were supplied.
func NewNoInputError() *AppError {
	return NewAppError(ErrTypeNoInput, "no files uploaded", nil)
}

// NewEmptyResultError reports a selection that produced nothing to render.
func NewEmptyResultError(message string) *AppError {
	return NewAppError(ErrTypeEmptyResult, message, nil)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether err wraps an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}
