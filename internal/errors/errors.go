package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeInvalidCredentials indicates the login credentials were wrong.
	// User-correctable; shown inline.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeAccountBlocked indicates the account is blocked. Terminal.
	ErrCodeAccountBlocked ErrorCode = "account_blocked"
	// ErrCodeAccountNotFound indicates the account does not exist. Terminal.
	ErrCodeAccountNotFound ErrorCode = "account_not_found"
	// ErrCodeAccountDeleted indicates the account was deleted. Terminal.
	ErrCodeAccountDeleted ErrorCode = "account_deleted"
	// ErrCodeSessionExpired indicates an authoritative rejection of the
	// current session. Handled like an explicit logout: full local clear.
	ErrCodeSessionExpired ErrorCode = "session_expired"
	// ErrCodeTransient indicates a retry-safe failure (network error, 5xx)
	// that must not destroy local state.
	ErrCodeTransient ErrorCode = "transient"
	// ErrCodeForbidden indicates the caller is authenticated but the role is
	// not in the view's allow-list.
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message,
// and optional cause. It supports error wrapping and unwrapping for use with
// errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// InvalidCredentials creates a new InvalidCredentials error.
func InvalidCredentials(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidCredentials, Message: message}
}

// AccountBlocked creates a new AccountBlocked error.
func AccountBlocked(message string) *AppError {
	return &AppError{Code: ErrCodeAccountBlocked, Message: message}
}

// AccountNotFound creates a new AccountNotFound error.
func AccountNotFound(message string) *AppError {
	return &AppError{Code: ErrCodeAccountNotFound, Message: message}
}

// AccountDeleted creates a new AccountDeleted error.
func AccountDeleted(message string) *AppError {
	return &AppError{Code: ErrCodeAccountDeleted, Message: message}
}

// SessionExpired creates a new SessionExpired error.
func SessionExpired(message string) *AppError {
	return &AppError{Code: ErrCodeSessionExpired, Message: message}
}

// Transient creates a new Transient error.
func Transient(message string) *AppError {
	return &AppError{Code: ErrCodeTransient, Message: message}
}

// Transientf creates a new Transient error with formatted message.
func Transientf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeTransient, Message: fmt.Sprintf(format, args...)}
}

// Forbidden creates a new Forbidden error.
func Forbidden(message string) *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidCredentials checks if an error is an InvalidCredentials error.
func IsInvalidCredentials(err error) bool {
	return isCode(err, ErrCodeInvalidCredentials)
}

// IsAccountBlocked checks if an error is an AccountBlocked error.
func IsAccountBlocked(err error) bool {
	return isCode(err, ErrCodeAccountBlocked)
}

// IsAccountNotFound checks if an error is an AccountNotFound error.
func IsAccountNotFound(err error) bool {
	return isCode(err, ErrCodeAccountNotFound)
}

// IsAccountDeleted checks if an error is an AccountDeleted error.
func IsAccountDeleted(err error) bool {
	return isCode(err, ErrCodeAccountDeleted)
}

// IsSessionExpired checks if an error is a SessionExpired error.
func IsSessionExpired(err error) bool {
	return isCode(err, ErrCodeSessionExpired)
}

// IsTransient checks if an error is a Transient error.
func IsTransient(err error) bool {
	return isCode(err, ErrCodeTransient)
}

// IsForbidden checks if an error is a Forbidden error.
func IsForbidden(err error) bool {
	return isCode(err, ErrCodeForbidden)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
