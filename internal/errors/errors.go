// Package errors provides structured error handling for tcpscan operations.
// It defines error codes and typed errors so that configuration mistakes,
// resource exhaustion and resolution failures can unwind to the process
// boundary and be reported with the right exit status.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"

	// Network and scanning errors.
	CodeResolve     ErrorCode = "RESOLVE"
	CodeNoAddresses ErrorCode = "NO_ADDRESSES"
	CodeScanFailed  ErrorCode = "SCAN_FAILED"

	// Resource exhaustion. Never retried.
	CodeResource         ErrorCode = "RESOURCE_EXHAUSTED"
	CodeQueueOverflow    ErrorCode = "QUEUE_OVERFLOW"
	CodeQueueSealed      ErrorCode = "QUEUE_SEALED"
	CodeSocketExhaustion ErrorCode = "SOCKET_EXHAUSTED"
)

// Exit statuses returned to the shell.
const (
	ExitOK     = 0
	ExitFatal  = 1
	ExitConfig = 2
)

// ScanError represents an error that occurred during scanning operations.
type ScanError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
	}
}

// ConfigError represents configuration-related errors. The CLI prints usage
// for these and exits before any scanning begins.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// ResourceError reports an unrecoverable environment failure such as running
// out of file descriptors. It aborts the whole scan.
type ResourceError struct {
	Code      ErrorCode
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Operation, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Operation)
}

// Unwrap returns the underlying error.
func (e *ResourceError) Unwrap() error {
	return e.Cause
}

// NewResourceError creates a resource exhaustion error for the given operation.
func NewResourceError(code ErrorCode, operation string, cause error) *ResourceError {
	return &ResourceError{
		Code:      code,
		Operation: operation,
		Cause:     cause,
	}
}

// ResolveError reports a failed or empty hostname resolution.
type ResolveError struct {
	Code  ErrorCode
	Host  string
	Cause error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] cannot resolve %s: %v", e.Code, e.Host, e.Cause)
	}
	return fmt.Sprintf("[%s] cannot resolve %s", e.Code, e.Host)
}

// Unwrap returns the underlying error.
func (e *ResolveError) Unwrap() error {
	return e.Cause
}

// Utility functions for common error operations

// GetCode extracts the error code from the first coded error in the chain.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var scanErr *ScanError
	if stderrors.As(err, &scanErr) {
		return scanErr.Code
	}
	var cfgErr *ConfigError
	if stderrors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	var resErr *ResourceError
	if stderrors.As(err, &resErr) {
		return resErr.Code
	}
	var resolveErr *ResolveError
	if stderrors.As(err, &resolveErr) {
		return resolveErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	var cfgErr *ConfigError
	return stderrors.As(err, &cfgErr)
}

// IsResource reports whether err is a resource exhaustion error.
func IsResource(err error) bool {
	var resErr *ResourceError
	return stderrors.As(err, &resErr)
}

// IsResolve reports whether err is a host resolution error.
func IsResolve(err error) bool {
	var resolveErr *ResolveError
	return stderrors.As(err, &resolveErr)
}

// IsFatal determines if an error indicates a condition that must stop the scan.
// Per-target network outcomes never reach this point.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if IsConfig(err) || IsResource(err) {
		return true
	}
	switch GetCode(err) {
	case CodeResolve, CodeNoAddresses, CodeConfiguration:
		return true
	default:
		return false
	}
}

// ExitCode maps an error returned from a scan run to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsConfig(err):
		return ExitConfig
	default:
		return ExitFatal
	}
}

// Common error creation functions

// ErrConfigInvalid creates an error for a configuration value that failed
// validation. reason says what was expected.
func ErrConfigInvalid(field, reason string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, reason, field, value)
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "Required configuration field missing", field, nil)
}

// ErrNoAddresses creates an error for a hostname that resolved to nothing.
func ErrNoAddresses(host string) *ResolveError {
	return &ResolveError{Code: CodeNoAddresses, Host: host}
}

// ErrResolve wraps a resolver failure for host.
func ErrResolve(host string, err error) *ResolveError {
	return &ResolveError{Code: CodeResolve, Host: host, Cause: err}
}
