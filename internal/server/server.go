package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wochuna/Sacco/internal/config"
	"github.com/wochuna/Sacco/internal/identity"
	"github.com/wochuna/Sacco/internal/infra"
	"github.com/wochuna/Sacco/internal/ledger"
	"github.com/wochuna/Sacco/internal/metrics"
	"github.com/wochuna/Sacco/internal/notification"
	"github.com/wochuna/Sacco/internal/routes"
	"github.com/wochuna/Sacco/internal/session"
	"github.com/wochuna/Sacco/internal/ussd"
)

// Server wraps the Fiber application and the components it owns.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	sessions session.Store
}

// New builds the member, ledger and session services on top of the given
// backends and mounts the HTTP routes. A nil backend selects the in-memory
// implementation. reg receives the Prometheus collectors.
func New(cfg config.Config, b *infra.Backends, reg *prometheus.Registry, logger *slog.Logger) *Server {
	m := metrics.New(reg)

	var users identity.Repository
	var store ledger.Store
	if b.DB != nil {
		users = identity.NewPostgresRepository(b.DB)
		store = ledger.NewPostgresStore(b.DB)
	} else {
		users = identity.NewMemoryRepository()
		store = ledger.NewInMemory(users)
	}

	var sessions session.Store
	if b.Cache != nil {
		sessions = session.NewRedisStore(b.Cache, cfg.SessionTTL, logger.With("component", "session"))
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL, cfg.SweepInterval, m)
	}

	notifier := newNotifier(cfg, logger)
	hasher := identity.NewBcryptHasher(cfg.BcryptCost)
	members := identity.NewService(users, hasher, notifier, logger.With("component", "identity"))
	ledgerSvc := ledger.NewService(store, members, notifier, m, logger.With("component", "ledger"))
	machine := ussd.NewMachine(sessions, members, ledgerSvc, hasher, m, logger.With("component", "ussd"))

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: !cfg.IsDev(),
	})
	routes.Setup(app, routes.Deps{
		Cfg:      cfg,
		DB:       b.DB,
		Cache:    b.Cache,
		Logger:   logger,
		Metrics:  m,
		Gatherer: reg,
		USSD:     ussd.NewHandler(machine),
	})

	return &Server{app: app, cfg: cfg, sessions: sessions}
}

func newNotifier(cfg config.Config, logger *slog.Logger) notification.Notifier {
	logged := notification.NewLoggerNotifier(logger.With("component", "notification"))
	if !cfg.SMS.Enabled() {
		return logged
	}
	sms := notification.NewSMSNotifier(notification.SMSConfig{
		APIURL:   cfg.SMS.APIURL,
		Username: cfg.SMS.Username,
		APIKey:   cfg.SMS.APIKey,
		SenderID: cfg.SMS.SenderID,
	}, nil)
	return notification.WithFallback(sms, logged)
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server and the session sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if ms, ok := s.sessions.(*session.MemoryStore); ok {
		ms.Close()
	}
	return err
}
