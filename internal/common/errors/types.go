// Package errors defines the structured error type shared by every engine
// component and the taxonomy used to classify rejected requests.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType classifies an AppError
type ErrorType string

const (
	// ErrTypeInvalidArgument marks a malformed request shape (nil pointers, out-of-range counts)
	ErrTypeInvalidArgument ErrorType = "invalid_argument"
	// ErrTypeInvalidOperation marks a well-formed but semantically illegal request
	ErrTypeInvalidOperation ErrorType = "invalid_operation"
	// ErrTypeNotFound marks a reference to a port, module, handle or mix that does not exist
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeNoInit marks use of the engine before a successful initialization
	ErrTypeNoInit ErrorType = "no_init"
	// ErrTypeHardware marks a failure reported by the hardware-abstraction collaborator
	ErrTypeHardware ErrorType = "hardware"
	// ErrTypeConfig marks an invalid configuration or topology description
	ErrTypeConfig ErrorType = "config"
	// ErrTypeInternal marks a broken internal invariant
	ErrTypeInternal ErrorType = "internal"
)

// AppError is a classified error carrying an optional reason and context
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
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

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// New creates an AppError of the given type
func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: msg,
		Cause:   cause,
	}
}

// InvalidArgumentError creates a new invalid-argument error
func InvalidArgumentError(msg string, cause error) *AppError {
	return New(ErrTypeInvalidArgument, msg, cause)
}

// InvalidOperationError creates a new invalid-operation error
func InvalidOperationError(msg string, cause error) *AppError {
	return New(ErrTypeInvalidOperation, msg, cause)
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NotFoundErrorWithCause creates a not found error carrying a reason
func NotFoundErrorWithCause(resource string, cause error) *AppError {
	err := NotFoundError(resource)
	err.Cause = cause
	return err
}

// NoInitError creates a new uninitialized-engine error
func NoInitError(msg string, cause error) *AppError {
	return New(ErrTypeNoInit, msg, cause)
}

// HardwareError creates a new hardware collaborator error
func HardwareError(msg string, cause error) *AppError {
	return New(ErrTypeHardware, msg, cause)
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return New(ErrTypeInternal, msg, cause)
}

// IsType reports whether err, or any error it wraps, is an AppError of errType
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if err wraps an AppError, otherwise ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return ErrTypeInternal
	}

	return appErr.Type
}
