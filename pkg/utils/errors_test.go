package utils

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestDefaultCodes(t *testing.T) {
	assert.Equal(t, CodeNotFound, NewError(fiber.StatusNotFound, "x").Code)
	assert.Equal(t, CodeUnauthenticated, NewError(fiber.StatusUnauthorized, "x").Code)
	assert.Equal(t, CodeForbidden, NewError(fiber.StatusForbidden, "x").Code)
	assert.Equal(t, CodeValidationFailed, NewError(fiber.StatusUnprocessableEntity, "x").Code)
	assert.Equal(t, CodeRateLimited, NewError(fiber.StatusTooManyRequests, "x").Code)
	assert.Equal(t, CodeInternal, NewError(fiber.StatusInternalServerError, "x").Code)
}

func TestWithCodeDoesNotMutateSentinels(t *testing.T) {
	overridden := ErrUnauthorized.WithCode(CodeInvalidCredentials)
	assert.Equal(t, CodeInvalidCredentials, overridden.Code)
	assert.Equal(t, CodeUnauthenticated, ErrUnauthorized.Code)

	caused := ErrInternalServerError.WithCause(errors.New("db down"))
	assert.Equal(t, "db down", caused.Details)
	assert.Empty(t, ErrInternalServerError.Details)
}

func TestAs(t *testing.T) {
	var target *CustomError
	assert.True(t, As(ErrNotFound, &target))
	assert.Equal(t, ErrNotFound, target)

	assert.False(t, As(errors.New("plain"), &target))
	assert.False(t, As(nil, &target))
}

func TestWrapError(t *testing.T) {
	wrapped := WrapError(errors.New("underlying"), fiber.StatusBadRequest, "Bad input")
	assert.Equal(t, fiber.StatusBadRequest, wrapped.Status)
	assert.Equal(t, "Bad input", wrapped.Message)
	assert.Equal(t, "underlying", wrapped.Details)
}
