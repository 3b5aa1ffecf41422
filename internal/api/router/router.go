package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/counseling-booking/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/counseling-booking/internal/http/middleware"
	"github.com/wolfman30/counseling-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	WizardHandler      *handlers.WizardHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP limit on session-mutating routes; zero disables it.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	wh := cfg.WizardHandler
	r.Get("/health", wh.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/wizard", func(r chi.Router) {
		r.Get("/counselors", wh.ListCounselors)
		r.Get("/payment-account", wh.PaymentAccount)

		r.Route("/sessions", func(r chi.Router) {
			if cfg.RateLimitPerSecond > 0 {
				burst := cfg.RateLimitBurst
				if burst < 1 {
					burst = 1
				}
				r.Use(httpmiddleware.RateLimit(httpmiddleware.NewRateLimiter(cfg.RateLimitPerSecond, burst), cfg.Logger))
			}
			r.Post("/", wh.CreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", wh.GetSession)
				r.Delete("/", wh.Reset)
				r.Patch("/fields", wh.UpdateFields)
				r.Post("/next", wh.Next)
				r.Post("/back", wh.Back)
				r.Post("/submit", wh.Submit)
				r.Get("/confirmation", wh.Confirmation)
			})
		})
	})

	return r
}
