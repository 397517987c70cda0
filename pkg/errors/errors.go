package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType classifies every error of the editor, both AppError values and
// the DomainError sentinels
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeBusinessRule ErrorType = "BUSINESS_RULE"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeRateLimit    ErrorType = "RATE_LIMIT"

	// the types below are unrecoverable for an edit session
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeDatabase    ErrorType = "DATABASE"
	ErrorTypeNetwork     ErrorType = "NETWORK"
	ErrorTypeExternal    ErrorType = "EXTERNAL"
	ErrorTypeFileAccess  ErrorType = "FILE_ACCESS"
)

// Status is the HTTP status code answered for errors of type t
func (t ErrorType) Status() int {
	switch t {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeBusinessRule:
		return http.StatusUnprocessableEntity
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeExternal:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Infrastructure reports whether t stems from storage, transport or a
// downstream service rather than from the request
func (t ErrorType) Infrastructure() bool {
	switch t {
	case ErrorTypeInternal, ErrorTypeUnavailable, ErrorTypeDatabase,
		ErrorTypeNetwork, ErrorTypeExternal, ErrorTypeFileAccess:
		return true
	}
	return false
}

// AppError is an error raised while serving one request. Its message and
// details are specific to that request, unlike the DomainError sentinels.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func newAppError(t ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       t,
		Code:       code,
		Message:    message,
		HTTPStatus: t.Status(),
		StackTrace: captureStackTrace(),
	}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func captureStackTrace() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}

// NewValidationError creates an error for a malformed request
func NewValidationError(message string) *AppError {
	return newAppError(ErrorTypeValidation, "", message)
}

// NewNotFoundError reports a missing resource, session or schema
func NewNotFoundError(what string) *AppError {
	return newAppError(ErrorTypeNotFound, "", fmt.Sprintf("%s not found", what))
}

// NewConflictError reports a request clashing with stored state
func NewConflictError(message string) *AppError {
	return newAppError(ErrorTypeConflict, "", message)
}

// NewUnauthorizedError reports a request without a usable identity
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newAppError(ErrorTypeUnauthorized, "", message)
}

// NewInternalError reports a programming error
func NewInternalError(message string) *AppError {
	return newAppError(ErrorTypeInternal, "", message)
}

// NewUnavailableError reports a dependency that cannot serve right now
func NewUnavailableError(service string) *AppError {
	return newAppError(ErrorTypeUnavailable, "", fmt.Sprintf("%s is unavailable", service))
}

// NewDatabaseError wraps a failed session, lock or form store operation
func NewDatabaseError(operation string, err error) *AppError {
	return newAppError(ErrorTypeDatabase, "", fmt.Sprintf("database operation failed: %s", operation)).WithCause(err)
}

// NewExternalError wraps a failed call to the mail relay or the workflow
func NewExternalError(service string, err error) *AppError {
	return newAppError(ErrorTypeExternal, "", fmt.Sprintf("%s request failed", service)).WithCause(err)
}

// NewFileAccessError reports a resource or temporary file that could not
// be read or written
func NewFileAccessError(path string, err error) *AppError {
	e := newAppError(ErrorTypeFileAccess, "FILE_ACCESS", fmt.Sprintf("cannot access resource '%s'", path))
	e.Details = map[string]interface{}{"path": path}
	return e.WithCause(err)
}

// NewTempFileConflictError reports a resource at a temporary file path that
// is not a temporary file
func NewTempFileConflictError(tempPath string) *AppError {
	e := newAppError(ErrorTypeConflict, "TEMPFILE_CONFLICT", fmt.Sprintf("'%s' exists and is not a temporary file", tempPath))
	e.Details = map[string]interface{}{"path": tempPath}
	return e
}

// NewLockedError reports a resource locked by another user
func NewLockedError(path, owner string) *AppError {
	e := newAppError(ErrorTypeConflict, ErrResourceLocked.Code, fmt.Sprintf("resource '%s' is locked by another user", path))
	e.Details = map[string]interface{}{"path": path, "owner": owner}
	return e
}

// NewLocaleError reports a locale the content does not carry or cannot take
func NewLocaleError(locale, message string) *AppError {
	e := newAppError(ErrorTypeBusinessRule, "LOCALE", fmt.Sprintf("locale '%s': %s", locale, message))
	e.Details = map[string]interface{}{"locale": locale}
	return e
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// TypeOf returns the type of the first AppError or DomainError in the
// chain of err
func TypeOf(err error) (ErrorType, bool) {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Type, true
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type, true
	}
	return "", false
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

func IsNotFound(err error) bool     { return IsType(err, ErrorTypeNotFound) }
func IsValidation(err error) bool   { return IsType(err, ErrorTypeValidation) }
func IsUnauthorized(err error) bool { return IsType(err, ErrorTypeUnauthorized) }
func IsConflict(err error) bool     { return IsType(err, ErrorTypeConflict) }
