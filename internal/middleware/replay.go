package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wochuna/Sacco/internal/metrics"
	"github.com/wochuna/Sacco/internal/ussd"
)

const (
	replayPrefix  = "ussd:replay:v1:"
	replayTimeout = 2 * time.Second
)

type storedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Replay answers a repeated USSD callback (same session id and text) from
// Redis so retries that land on another replica never re-run a step. The
// opening callback of a session, which carries empty text, is never cached.
// Lookup failures fall through to the handler.
func Replay(cache *redis.Client, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		sessionID := ussd.Param(c, ussd.ParamSessionID)
		text := ussd.Param(c, ussd.ParamText)
		if sessionID == "" || text == "" {
			return c.Next()
		}
		key := replayPrefix + sessionID + ":" + text

		ctx, cancel := context.WithTimeout(c.UserContext(), replayTimeout)
		defer cancel()

		cached, err := cache.Get(ctx, key).Result()
		switch {
		case err == nil:
			var stored storedResponse
			if err := json.Unmarshal([]byte(cached), &stored); err == nil {
				m.Replayed()
				return ussd.RenderRaw(c, stored.Status, stored.Body)
			}
			logger.Warn("failed to decode cached ussd response", slog.String("session_id", sessionID), slog.Any("error", err))
		case !errors.Is(err, redis.Nil):
			logger.Error("replay lookup failed", slog.String("session_id", sessionID), slog.Any("error", err))
		}

		if err := c.Next(); err != nil {
			return err
		}
		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		payload, err := json.Marshal(storedResponse{
			Status: c.Response().StatusCode(),
			Body:   string(c.Response().Body()),
		})
		if err != nil {
			logger.Error("failed to encode ussd response", slog.String("session_id", sessionID), slog.Any("error", err))
			return nil
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), replayTimeout)
		defer persistCancel()
		if err := cache.Set(persistCtx, key, payload, ttl).Err(); err != nil {
			logger.Error("failed to persist ussd response", slog.String("session_id", sessionID), slog.Any("error", err))
		}
		return nil
	}
}
