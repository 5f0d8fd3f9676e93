// Package errors defines the structured error taxonomy used across markd.
// Every subsystem error carries a type, a stable code, and enough context
// for logs and HTTP handlers to act on it without string matching.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeSecurity ErrorType = "security"
	ErrorTypeNotFound ErrorType = "not_found"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeBridge   ErrorType = "bridge"
	ErrorTypeDelivery ErrorType = "delivery"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeRender   ErrorType = "render"
	ErrorTypeInternal ErrorType = "internal"
)

// MarkdError is a structured error with context.
type MarkdError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Path        string
	Recoverable bool
}

// Error implements the error interface.
func (e *MarkdError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *MarkdError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on type and code.
func (e *MarkdError) Is(target error) bool {
	var t *MarkdError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *MarkdError) WithContext(key string, value interface{}) *MarkdError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath adds the file path the error relates to.
func (e *MarkdError) WithPath(path string) *MarkdError {
	e.Path = path

	return e
}

// WithComponent adds component context.
func (e *MarkdError) WithComponent(component string) *MarkdError {
	e.Component = component

	return e
}

// Error creation functions

// NewSecurityError creates a security error. Security errors never expose
// resolved absolute paths; the message is safe to return to clients.
func NewSecurityError(code, message string) *MarkdError {
	return &MarkdError{
		Type:        ErrorTypeSecurity,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(code, message string) *MarkdError {
	return &MarkdError{
		Type:        ErrorTypeNotFound,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *MarkdError {
	return &MarkdError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewBridgeError creates a watcher-to-scheduler handoff error.
func NewBridgeError(code, message string) *MarkdError {
	return &MarkdError{
		Type:        ErrorTypeBridge,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewDeliveryError creates a connection delivery error.
func NewDeliveryError(code, message string, cause error) *MarkdError {
	return &MarkdError{
		Type:        ErrorTypeDelivery,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *MarkdError {
	return &MarkdError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewRenderError creates a markdown rendering error.
func NewRenderError(code, message string, cause error) *MarkdError {
	return &MarkdError{
		Type:        ErrorTypeRender,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *MarkdError {
	return &MarkdError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Predicates

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var me *MarkdError
	if errors.As(err, &me) {
		return me.Recoverable
	}

	return false
}

// IsSecurityError checks if an error is security-related.
func IsSecurityError(err error) bool {
	var me *MarkdError
	if errors.As(err, &me) {
		return me.Type == ErrorTypeSecurity
	}

	return false
}

// IsNotFoundError checks if an error is a missing-path error.
func IsNotFoundError(err error) bool {
	var me *MarkdError
	if errors.As(err, &me) {
		return me.Type == ErrorTypeNotFound
	}

	return false
}

// IsBridgeError checks if an error came from the event bridge.
func IsBridgeError(err error) bool {
	var me *MarkdError
	if errors.As(err, &me) {
		return me.Type == ErrorTypeBridge
	}

	return false
}

// IsConfigError checks if an error stems from invalid configuration
// or arguments.
func IsConfigError(err error) bool {
	var me *MarkdError
	if errors.As(err, &me) {
		return me.Type == ErrorTypeConfig
	}

	return false
}

// HasCode checks if an error carries the given markd error code.
func HasCode(err error, code string) bool {
	var me *MarkdError
	if errors.As(err, &me) {
		return me.Code == code
	}

	return false
}

// Common error codes.
const (
	ErrCodePathTraversal   = "ERR_PATH_TRAVERSAL"
	ErrCodePathNotFound    = "ERR_PATH_NOT_FOUND"
	ErrCodeInvalidPath     = "ERR_INVALID_PATH"
	ErrCodeWatchFailed     = "ERR_WATCH_FAILED"
	ErrCodeReadFailed      = "ERR_READ_FAILED"
	ErrCodeWriteFailed     = "ERR_WRITE_FAILED"
	ErrCodeBridgeTimeout   = "ERR_BRIDGE_TIMEOUT"
	ErrCodeBridgeDown      = "ERR_BRIDGE_DOWN"
	ErrCodeDeliveryFailed  = "ERR_DELIVERY_FAILED"
	ErrCodeConfigInvalid   = "ERR_CONFIG_INVALID"
	ErrCodeRenderFailed    = "ERR_RENDER_FAILED"
	ErrCodeFileTooLarge    = "ERR_FILE_TOO_LARGE"
	ErrCodeInvalidOrigin   = "ERR_INVALID_ORIGIN"
	ErrCodeRegistryClosed  = "ERR_REGISTRY_CLOSED"
	ErrCodeInternalError   = "ERR_INTERNAL"
)

// Helper constructors for common errors

// ErrPathTraversal reports a path escaping the serve root. The offending
// path is recorded in context for logs, not in the client-facing message.
func ErrPathTraversal(requested string) *MarkdError {
	return NewSecurityError(ErrCodePathTraversal, "path resolves outside the served root").
		WithContext("requested", requested)
}

// ErrPathNotFound reports a path inside the root that does not exist.
func ErrPathNotFound(requested string) *MarkdError {
	return NewNotFoundError(ErrCodePathNotFound, "path not found").
		WithContext("requested", requested)
}

// ErrWatchFailed reports an OS watch subscription failure.
func ErrWatchFailed(path string, cause error) *MarkdError {
	return NewIOError(ErrCodeWatchFailed, "cannot watch path", cause).WithPath(path)
}

// ErrBridgeTimeout reports that the scheduler did not accept an event in time.
func ErrBridgeTimeout(path string) *MarkdError {
	return NewBridgeError(ErrCodeBridgeTimeout, "scheduler did not accept event in time").
		WithPath(path)
}

// ErrBridgeDown reports a submission while the scheduler loop is not running.
func ErrBridgeDown(path string) *MarkdError {
	return NewBridgeError(ErrCodeBridgeDown, "scheduler is not running").WithPath(path)
}

// ErrFileTooLarge reports a file over the configured render size limit.
func ErrFileTooLarge(path string, size, limit int64) *MarkdError {
	return NewRenderError(ErrCodeFileTooLarge, "file exceeds size limit", nil).
		WithPath(path).
		WithContext("size", size).
		WithContext("limit", limit)
}

// ErrInvalidOrigin creates an invalid origin security error.
func ErrInvalidOrigin(origin string) *MarkdError {
	return NewSecurityError(ErrCodeInvalidOrigin, "invalid origin: "+origin)
}
