package logging

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDLocal = "requestID"

// RequestID returns the id assigned to the current request.
func RequestID(c fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocal).(string)
	return id
}

// Middleware assigns a request id, stores a request-scoped logger in the
// request context and logs one line per completed request.
func Middleware(logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals(requestIDLocal, requestID)
		c.Set(RequestIDHeader, requestID)

		reqLogger := logger.With("requestID", requestID)
		c.SetContext(WithLogger(c.Context(), reqLogger))

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"durationMs", time.Since(start).Milliseconds(),
		}
		if status >= 500 {
			reqLogger.Error("request failed", attrs...)
		} else {
			reqLogger.Info("request completed", attrs...)
		}
		return err
	}
}
