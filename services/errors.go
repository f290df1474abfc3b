package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeInternal        ErrorType = "internal"
	ErrorTypePolicyViolation ErrorType = "policy_violation"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrItemNotFound       = NewDomainError(ErrorTypeNotFound, "content item not found", nil)
	ErrAttachmentNotFound = NewDomainError(ErrorTypeNotFound, "attachment not found", nil)

	// Validation Errors
	ErrInvalidInput       = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidStatus      = NewDomainError(ErrorTypeValidation, "invalid post status", nil)
	ErrInvalidPostType    = NewDomainError(ErrorTypeValidation, "invalid post type", nil)
	ErrInvalidMinimumSize = NewDomainError(ErrorTypeValidation, "minimum size must not be negative", nil)
	ErrInvalidImage       = NewDomainError(ErrorTypeValidation, "invalid featured image", nil)

	// Authorization Errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
	ErrTokenExpired = NewDomainError(ErrorTypeUnauthorized, "authentication token expired", nil)

	// Permission Errors
	ErrForbidden               = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrInsufficientPermissions = NewDomainError(ErrorTypeForbidden, "insufficient permissions", nil)

	// Conflict Errors
	ErrConcurrentUpdate = NewDomainError(ErrorTypeConflict, "concurrent update detected", nil)

	// Internal Errors
	ErrInternal          = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError     = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrTransactionFailed = NewDomainError(ErrorTypeInternal, "transaction failed", nil)

	// Policy Violation Errors
	ErrPolicyViolation = NewDomainError(ErrorTypePolicyViolation, "policy violation", nil)
	ErrPublishBlocked  = NewDomainError(ErrorTypePolicyViolation, "publish blocked by featured image policy", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return hasType(err, ErrorTypeForbidden)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// IsPolicyViolationError checks if an error is a policy violation error
func IsPolicyViolationError(err error) bool {
	return hasType(err, ErrorTypePolicyViolation)
}

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapNotFound wraps an error as a not found error
func WrapNotFound(message string, err error) error {
	return NewDomainError(ErrorTypeNotFound, message, err)
}
