package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"

	"github.com/wochuna/Sacco/internal/metrics"
	"github.com/wochuna/Sacco/internal/ussd"
	"github.com/wochuna/Sacco/internal/validation"
)

const rateLimitPrefix = "rl:ussd:"

// PhoneRateLimit caps callbacks per caller phone number within window. With
// Redis the counter is shared across replicas; without it the in-process
// Fiber limiter is used. onLimit renders the rejection.
func PhoneRateLimit(cache *redis.Client, max int, window time.Duration, onLimit fiber.Handler, m *metrics.Metrics) fiber.Handler {
	if max <= 0 {
		max = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	rejected := func(c *fiber.Ctx) error {
		m.RateLimited()
		return onLimit(c)
	}

	if cache == nil {
		return limiter.New(limiter.Config{
			Max:          max,
			Expiration:   window,
			KeyGenerator: rateLimitKey,
			LimitReached: rejected,
		})
	}

	return func(c *fiber.Ctx) error {
		key := rateLimitPrefix + rateLimitKey(c)
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, window)
		}
		if cnt > int64(max) {
			return rejected(c)
		}
		return c.Next()
	}
}

func rateLimitKey(c *fiber.Ctx) string {
	phone := validation.NormalizePhoneNumber(ussd.Param(c, ussd.ParamPhoneNumber))
	if phone == "" {
		return "ip:" + c.IP()
	}
	return "phone:" + phone
}
