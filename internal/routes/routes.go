package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wochuna/Sacco/internal/config"
	"github.com/wochuna/Sacco/internal/metrics"
	"github.com/wochuna/Sacco/internal/middleware"
	"github.com/wochuna/Sacco/internal/ussd"
)

const ussdPrefix = "/api/ussd"

// CallbackPath is where the gateway delivers USSD callbacks.
const CallbackPath = ussdPrefix + "/callback"

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in development.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	USSD     *ussd.Handler
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app, d.Gatherer)

	rateLimit := middleware.PhoneRateLimit(d.Cache, d.Cfg.RateLimitMax, d.Cfg.RateWindow, func(c *fiber.Ctx) error {
		return ussd.Render(c, ussd.RateLimited())
	}, d.Metrics)
	replay := middleware.Replay(d.Cache, d.Cfg.ReplayTTL, d.Metrics, d.Logger)

	callbacks := app.Group(ussdPrefix, rateLimit, replay)
	d.USSD.Register(callbacks, "/callback")
}
