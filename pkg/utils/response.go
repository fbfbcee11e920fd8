package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/theforge/forge/pkg/logger"
)

// ResponseBuilder builds an API response envelope with a fluent interface.
// Success envelopes are {success, data, links?, meta?}; error envelopes are
// {success:false, code, message}.
type ResponseBuilder struct {
	Ctx     context.Context
	C       *fiber.Ctx
	Ok      bool
	Status  int
	Message string
	Data    interface{}
	Meta    interface{}
	Links   interface{}
	Err     *CustomError
}

// Success starts a success response.
func Success(c *fiber.Ctx) *ResponseBuilder {
	return &ResponseBuilder{
		Ctx:    c.UserContext(),
		C:      c,
		Ok:     true,
		Status: fiber.StatusOK,
	}
}

// Error starts an error response from a CustomError.
func Error(c *fiber.Ctx, err *CustomError) *ResponseBuilder {
	return &ResponseBuilder{
		Ctx: c.UserContext(),
		C:   c,
		Err: err,
	}
}

// WithStatus overrides the HTTP status of a success response.
func (b *ResponseBuilder) WithStatus(status int) *ResponseBuilder {
	b.Status = status
	return b
}

// WithMessage adds a message to the response.
func (b *ResponseBuilder) WithMessage(msg string) *ResponseBuilder {
	b.Message = msg
	return b
}

// WithData adds the data payload.
func (b *ResponseBuilder) WithData(data interface{}) *ResponseBuilder {
	b.Data = data
	return b
}

// WithMeta adds pagination metadata.
func (b *ResponseBuilder) WithMeta(meta interface{}) *ResponseBuilder {
	b.Meta = meta
	return b
}

// WithLinks adds pagination links.
func (b *ResponseBuilder) WithLinks(links interface{}) *ResponseBuilder {
	b.Links = links
	return b
}

// Send writes the envelope and logs the outcome.
func (b *ResponseBuilder) Send() error {
	status := b.Status
	body := fiber.Map{"success": b.Ok}

	if b.Ok {
		if b.Message != "" {
			body["message"] = b.Message
		}
		if b.Data != nil {
			body["data"] = b.Data
		}
		if b.Meta != nil {
			body["meta"] = b.Meta
		}
		if b.Links != nil {
			body["links"] = b.Links
		}
	} else {
		status = b.Err.Status
		body["code"] = b.Err.Code
		msg := b.Message
		if msg == "" {
			msg = b.Err.Message
		}
		body["message"] = msg
	}

	if log, ok := b.C.Locals("logger").(*logger.Logger); ok {
		meta := map[string]string{
			"status":  fmt.Sprintf("%d", status),
			"path":    b.C.Path(),
			"method":  b.C.Method(),
			"latency": time.Since(b.C.Context().Time()).String(),
		}
		if b.Ok {
			log.Info(b.Ctx).WithMeta(meta).Logs("Response sent")
		} else {
			log.Warn(b.Ctx).WithMeta(meta).Logs(fmt.Sprintf("Error response sent: %s", b.Err.Error()))
		}
	}

	return b.C.Status(status).JSON(body)
}

// SendError is a convenience function to send an error response directly.
func SendError(c *fiber.Ctx, err error) error {
	var appErr *CustomError
	if !As(err, &appErr) {
		appErr = ErrInternalServerError.WithCause(err)
	}
	return Error(c, appErr).Send()
}

// SendSuccess is a convenience function to send a success response directly.
func SendSuccess(c *fiber.Ctx, data interface{}) error {
	return Success(c).WithData(data).Send()
}
