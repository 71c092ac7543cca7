package domain

import (
	"errors"
	"fmt"
)

type ErrorCategory string

const (
	CategoryValidation         ErrorCategory = "validation"
	CategoryNotFound           ErrorCategory = "not_found"
	CategoryConflict           ErrorCategory = "conflict"
	CategoryInvalidState       ErrorCategory = "invalid_state"
	CategoryCircularDependency ErrorCategory = "circular_dependency"
	CategoryInternal           ErrorCategory = "internal"
)

type ErrorContextInfo struct {
	WorkflowID  string
	ExecutionID string
	Operation   string
	Details     map[string]interface{}
}

// Error is the engine's error taxonomy. Validation and state errors surface
// synchronously to callers; anything raised inside fire-and-forget execution
// is captured onto the owning record instead of propagating.
type Error struct {
	Category   ErrorCategory
	Code       string
	Message    string
	Retryable  bool
	UserFacing bool
	Context    ErrorContextInfo
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithWorkflowID(id string) *Error {
	e.Context.WorkflowID = id
	return e
}

func (e *Error) WithExecutionID(id string) *Error {
	e.Context.ExecutionID = id
	return e
}

func (e *Error) WithOperation(op string) *Error {
	e.Context.Operation = op
	return e
}

func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context.Details == nil {
		e.Context.Details = make(map[string]interface{})
	}
	e.Context.Details[key] = value
	return e
}

func NewValidationError(message string, cause error) *Error {
	return &Error{
		Category:   CategoryValidation,
		Code:       "VALIDATION_INVALID",
		Message:    message,
		UserFacing: true,
		Cause:      cause,
	}
}

func NewNotFoundError(resource, id string) *Error {
	return &Error{
		Category:   CategoryNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		UserFacing: true,
	}
}

func NewConflictError(message string) *Error {
	return &Error{
		Category:   CategoryConflict,
		Code:       "CONFLICT",
		Message:    message,
		UserFacing: true,
	}
}

func NewInvalidStateError(message string) *Error {
	return &Error{
		Category:   CategoryInvalidState,
		Code:       "INVALID_STATE",
		Message:    message,
		UserFacing: true,
	}
}

func NewCircularDependencyError(chainID string, cycle []string) *Error {
	return (&Error{
		Category:   CategoryCircularDependency,
		Code:       "CIRCULAR_DEPENDENCY",
		Message:    fmt.Sprintf("chain %s has a dependency cycle", chainID),
		UserFacing: true,
	}).WithContext("cycle", cycle)
}

func NewInternalError(message string, cause error) *Error {
	return &Error{
		Category:  CategoryInternal,
		Code:      "INTERNAL",
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

func categoryOf(err error) (ErrorCategory, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Category, true
	}
	return "", false
}

func IsValidationError(err error) bool {
	cat, ok := categoryOf(err)
	return ok && cat == CategoryValidation
}

func IsNotFoundError(err error) bool {
	cat, ok := categoryOf(err)
	return ok && cat == CategoryNotFound
}

func IsConflictError(err error) bool {
	cat, ok := categoryOf(err)
	return ok && cat == CategoryConflict
}

func IsInvalidStateError(err error) bool {
	cat, ok := categoryOf(err)
	return ok && cat == CategoryInvalidState
}

func IsCircularDependencyError(err error) bool {
	cat, ok := categoryOf(err)
	return ok && cat == CategoryCircularDependency
}
