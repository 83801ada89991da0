package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iqbaliqra/Weatherapp/internal/config"
	"github.com/iqbaliqra/Weatherapp/internal/middleware"
	apierrors "github.com/iqbaliqra/Weatherapp/internal/pkg/errors"
	"github.com/iqbaliqra/Weatherapp/internal/pkg/response"
)

const requestTimeout = 30 * time.Second

// RouterConfig holds everything NewRouter wires together.
type RouterConfig struct {
	Logger          *slog.Logger
	AppURL          string
	SessionStore    sessions.Store
	ValidateSession middleware.SessionValidator

	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter middleware.Counter
	RateLimit   config.RateLimitConfig

	Auth      *AuthHandler
	Plans     *PlanHandler
	Billing   *BillingHandler
	Locations *LocationHandler
	Weather   *WeatherHandler
	Health    *HealthHandler
}

// NewRouter builds the HTTP router with the global middleware stack.
func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.AppURL))
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierrors.ErrNotFound)
	})

	// Operational endpoints
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Browser redirects for Google sign-in
	r.Mount("/auth/google", cfg.Auth.GoogleRoutes())

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
		}

		// Public endpoints
		r.Post("/register", cfg.Auth.Register)
		r.Post("/auth/login", cfg.Auth.Login)
		r.Post("/auth/logout", cfg.Auth.Logout)
		r.Post("/stripe/webhook", cfg.Billing.Webhook)

		// Session required
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(cfg.SessionStore, cfg.ValidateSession))

			r.Get("/me", cfg.Auth.Me)
			cfg.Plans.Register(r)
			cfg.Billing.Register(r)
			r.Mount("/locations", cfg.Locations.Routes())
			r.Mount("/weather", cfg.Weather.Routes())
		})
	})

	return r
}
