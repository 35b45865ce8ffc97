// Package api serves the opportunity solution tree REST API over fiber.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/meikuraledutech/ost"
	"github.com/meikuraledutech/ost/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type options struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	timeout  time.Duration
}

// Option configures New.
type Option func(*options)

// WithLogger sets the access and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry sets the registry request metrics are recorded in and /metrics serves.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithTimeout bounds every store call made by a request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

type server struct {
	store    ost.Store
	validate *validator.Validate
	timeout  time.Duration
}

// New builds the fiber app serving store.
func New(store ost.Store, opts ...Option) *fiber.App {
	o := options{logger: logging.Discard(), timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	s := &server{store: store, validate: validator.New(validator.WithRequiredStructEnabled()), timeout: o.timeout}

	app := fiber.New(fiber.Config{
		AppName:      "ostd",
		ErrorHandler: errorHandler,
	})
	app.Use(recoverer.New())
	app.Use(logging.Middleware(o.logger))
	app.Use(newMetrics(o.registry).middleware)

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})))

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		ctx, cancel := s.ctx(c)
		defer cancel()
		if err := store.CreateSchema(ctx); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})
	app.Delete("/schema", func(c fiber.Ctx) error {
		ctx, cancel := s.ctx(c)
		defer cancel()
		if err := store.DropSchema(ctx); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Entities ──────────────────────────────────────────────────────
	app.Get("/outcomes", list(s, store.ListOutcomes))
	app.Post("/outcomes", create(s, store.CreateOutcome))
	app.Put("/outcomes", update(s, store.UpdateOutcome))
	app.Delete("/outcomes/:id", remove(s, store.DeleteOutcome))

	app.Get("/opportunities", list(s, store.ListOpportunities))
	app.Post("/opportunities", create(s, store.CreateOpportunity))
	app.Put("/opportunities", update(s, store.UpdateOpportunity))
	app.Delete("/opportunities/:id", remove(s, store.DeleteOpportunity))

	app.Get("/solutions", list(s, store.ListSolutions))
	app.Post("/solutions", create(s, store.CreateSolution))
	app.Put("/solutions", update(s, store.UpdateSolution))
	app.Delete("/solutions/:id", remove(s, store.DeleteSolution))

	app.Get("/interviews", list(s, store.ListInterviews))
	app.Post("/interviews", create(s, store.CreateInterview))
	app.Put("/interviews", update(s, store.UpdateInterview))
	app.Delete("/interviews/:id", remove(s, store.DeleteInterview))

	app.Get("/evidence", list(s, store.ListEvidence))
	app.Post("/evidence", create(s, store.CreateEvidence))
	app.Put("/evidence", update(s, store.UpdateEvidence))
	app.Delete("/evidence/:id", remove(s, store.DeleteEvidence))

	return app
}

// ctx derives the store context for a request.
func (s *server) ctx(c fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), s.timeout)
}
