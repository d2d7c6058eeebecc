package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wochuna/Sacco/internal/logging"
	"github.com/wochuna/Sacco/internal/ussd"
)

// Audit writes one "request completed" record per callback with the masked
// caller, the session id and whether the reply continued or ended the
// session. Rejected callbacks log at warn.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if id := RequestIDFrom(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if sid := ussd.Param(c, ussd.ParamSessionID); sid != "" {
			attrs = append(attrs,
				slog.String("session_id", sid),
				logging.Phone(ussd.Param(c, ussd.ParamPhoneNumber)),
				slog.String("reply", replyKind(c.Response().Body())),
			)
		}

		switch {
		case err != nil:
			logger.Error("request completed", append(attrs, slog.Any("error", err))...)
			return err
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
		return nil
	}
}

func replyKind(body []byte) string {
	switch {
	case bytes.HasPrefix(body, []byte("CON ")):
		return "con"
	case bytes.HasPrefix(body, []byte("END ")):
		return "end"
	default:
		return "other"
	}
}
