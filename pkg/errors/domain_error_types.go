package errors

import (
	"fmt"
	"strings"
)

// DomainError is a reusable editor error. The package level sentinels are
// matched with errors.Is; Clone them before adding details.
type DomainError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		StatusCode: errorType.Status(),
	}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Clone returns a copy that can carry its own details and cause
func (e *DomainError) Clone() *DomainError {
	c := *e
	c.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		c.Details[k] = v
	}
	return &c
}

func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// Is matches clones of the same sentinel
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

var (
	// resources and locks
	ErrResourceNotFound       = NewDomainError(ErrorTypeNotFound, "RESOURCE_NOT_FOUND", "The requested resource does not exist")
	ErrResourceLocked         = NewDomainError(ErrorTypeConflict, "RESOURCE_LOCKED", "The resource is locked by another user")
	ErrConcurrentModification = NewDomainError(ErrorTypeConflict, "CONCURRENT_MODIFICATION", "The resource was modified by another process")

	// editor actions and buffers
	ErrUnknownAction      = NewDomainError(ErrorTypeValidation, "UNKNOWN_ACTION", "The editor action is not known")
	ErrActionNotSupported = NewDomainError(ErrorTypeBusinessRule, "ACTION_NOT_SUPPORTED", "The editor does not support this action")
	ErrBufferTooLong      = NewDomainError(ErrorTypeValidation, "BUFFER_TOO_LONG", "Editor content exceeds maximum length")

	// locales and elements
	ErrLastLocale            = NewDomainError(ErrorTypeBusinessRule, "LAST_LOCALE", "The last remaining locale of a content cannot be deleted")
	ErrLocaleNotFound        = NewDomainError(ErrorTypeNotFound, "LOCALE_NOT_FOUND", "The locale does not exist in the content")
	ErrTooManyLocales        = NewDomainError(ErrorTypeBusinessRule, "TOO_MANY_LOCALES", "Maximum number of locales exceeded")
	ErrElementNotAddressable = NewDomainError(ErrorTypeValidation, "ELEMENT_NOT_ADDRESSABLE", "The element is not declared for this content")
	ErrElementNotFound       = NewDomainError(ErrorTypeNotFound, "ELEMENT_NOT_FOUND", "The element does not exist in the content")
	ErrMaxOccurs             = NewDomainError(ErrorTypeBusinessRule, "MAX_OCCURS", "The element cannot occur more often")
	ErrInvalidContent        = NewDomainError(ErrorTypeValidation, "INVALID_CONTENT", "The content could not be parsed")

	// infrastructure
	ErrEventPublishFailed = NewDomainError(ErrorTypeInternal, "EVENT_PUBLISH_FAILED", "Failed to publish domain event")
	ErrMailQueueFull      = NewDomainError(ErrorTypeUnavailable, "MAIL_QUEUE_FULL", "The mail queue is full")
)

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(ErrorTypeValidation, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// AddAt adds a validation error for an element path inside one locale
func (v *ValidationErrors) AddAt(locale, path, message string) {
	err := NewDomainError(ErrorTypeValidation, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", path).
		WithDetail("locale", locale)
	v.Errors = append(v.Errors, err)
}

// AddError adds a pre-existing domain error
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}

		if _, exists := result[field]; !exists {
			result[field] = make([]string, 0)
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}

// ByLocale groups the errors by locale and element path. Errors without a
// locale are grouped under the empty string.
func (v *ValidationErrors) ByLocale() map[string]map[string][]string {
	result := make(map[string]map[string][]string)
	for _, err := range v.Errors {
		locale, _ := err.Details["locale"].(string)
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		if result[locale] == nil {
			result[locale] = make(map[string][]string)
		}
		result[locale][field] = append(result[locale][field], err.Message)
	}
	return result
}

// Has reports whether an error was recorded for the given field
func (v *ValidationErrors) Has(field string) bool {
	for _, err := range v.Errors {
		if f, ok := err.Details["field"].(string); ok && f == field {
			return true
		}
	}
	return false
}
