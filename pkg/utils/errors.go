// Package utils provides shared helpers for The Forge API.
package utils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorCode is the machine-readable error code carried by API error envelopes.
type ErrorCode string

const (
	CodeNotFound                 ErrorCode = "NOT_FOUND"
	CodeUnauthenticated          ErrorCode = "UNAUTHENTICATED"
	CodeInvalidCredentials       ErrorCode = "INVALID_CREDENTIALS"
	CodePasswordLoginUnavailable ErrorCode = "PASSWORD_LOGIN_UNAVAILABLE"
	CodeValidationFailed         ErrorCode = "VALIDATION_FAILED"
	CodeForbidden                ErrorCode = "FORBIDDEN"
	CodeRateLimited              ErrorCode = "RATE_LIMITED"
	CodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// Common error values for reuse.
var (
	ErrBadRequest          = NewError(fiber.StatusBadRequest, "Invalid request")
	ErrUnauthorized        = NewError(fiber.StatusUnauthorized, "Unauthenticated")
	ErrForbidden           = NewError(fiber.StatusForbidden, "Forbidden")
	ErrNotFound            = NewError(fiber.StatusNotFound, "Resource not found")
	ErrInternalServerError = NewError(fiber.StatusInternalServerError, "Internal server error")
)

// CustomError represents a structured error for the API.
type CustomError struct {
	Status  int       `json:"-"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewError creates a new CustomError with a status code, message, and optional details.
func NewError(status int, message string, details ...string) *CustomError {
	e := &CustomError{
		Status:  status,
		Code:    defaultCode(status),
		Message: message,
	}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

// WrapError wraps an existing error with a status and message.
func WrapError(err error, status int, message string) *CustomError {
	return NewError(status, message, err.Error())
}

func defaultCode(status int) ErrorCode {
	switch status {
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusUnauthorized:
		return CodeUnauthenticated
	case fiber.StatusForbidden:
		return CodeForbidden
	case fiber.StatusUnprocessableEntity, fiber.StatusBadRequest:
		return CodeValidationFailed
	case fiber.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return CodeInternal
	}
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return fmt.Sprintf("status %d [%s]: %s", e.Status, e.Code, e.Message)
}

// WithCode returns a copy with the machine-readable code overridden. Copying
// keeps the shared sentinel errors immutable.
func (e *CustomError) WithCode(code ErrorCode) *CustomError {
	clone := *e
	clone.Code = code
	return &clone
}

// WithCause returns a copy with underlying details attached.
func (e *CustomError) WithCause(err error) *CustomError {
	clone := *e
	if err != nil {
		clone.Details = err.Error()
	}
	return &clone
}

// As unwraps a *CustomError from err, if present.
func As(err error, target **CustomError) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*CustomError); ok {
		*target = e
		return true
	}
	return false
}
