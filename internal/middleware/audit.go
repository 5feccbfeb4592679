package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits one structured log line per request. Rejected transfers are
// logged at warn so they can be told apart from server faults.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if requestID, _ := c.Locals(RequestIDHeader).(string); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}

		switch {
		case err == nil:
			logger.Info("request completed", attrs...)
		case status < fiber.StatusInternalServerError:
			logger.Warn("request rejected", append(attrs, slog.Any("error", err))...)
		default:
			logger.Error("request failed", append(attrs, slog.Any("error", err))...)
		}
		return err
	}
}
