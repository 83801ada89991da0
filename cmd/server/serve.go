package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iqbaliqra/Weatherapp/internal/config"
	"github.com/iqbaliqra/Weatherapp/internal/database"
	"github.com/iqbaliqra/Weatherapp/internal/handler"
	"github.com/iqbaliqra/Weatherapp/internal/middleware"
	"github.com/iqbaliqra/Weatherapp/internal/openweather"
	"github.com/iqbaliqra/Weatherapp/internal/repository"
	"github.com/iqbaliqra/Weatherapp/internal/service"
)

const (
	shutdownTimeout        = 30 * time.Second
	sessionCleanupInterval = 15 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().Bool("skip-migrations", false, "Do not apply pending migrations on startup")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("Starting Weatherapp API",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	if skip, _ := cmd.Flags().GetBool("skip-migrations"); !skip {
		if err := database.RunMigrations(cfg.Database); err != nil {
			return err
		}
		logger.Info("Database migrations completed")
	}

	// Connect to Redis
	redis, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Repositories
	userRepo := repository.NewUserRepository(db.Pool())
	sessionRepo := repository.NewSessionRepository(db.Pool())
	locationRepo := repository.NewLocationRepository(db.Pool())
	eventRepo := repository.NewSubscriptionEventRepository(db.Pool())

	// Services
	authService := service.NewAuthService(userRepo, sessionRepo, cfg.Auth.SessionExpiry)
	oauthService := service.NewOAuthService(&cfg.Auth, userRepo, sessionRepo)
	billingService := service.NewBillingService(
		userRepo,
		eventRepo,
		service.NewStripeGateway(cfg.Stripe.SecretKey),
		&cfg.Stripe,
		cfg.Auth.AppURL,
	)
	planService := service.NewPlanService(eventRepo, billingService)
	locationService := service.NewLocationService(locationRepo)

	weatherClient := openweather.NewClient(cfg.Weather,
		openweather.WithHTTPClient(&http.Client{Timeout: cfg.Weather.Timeout}),
		openweather.WithCache(redis, cfg.Weather.CacheTTL),
	)
	weatherService := service.NewWeatherService(weatherClient, locationRepo, service.WeatherOptions{
		MaxConcurrency: cfg.Weather.MaxConcurrency,
		HistoryDays:    cfg.Weather.HistoryDays,
	})

	if !oauthService.Enabled() {
		logger.Warn("Google sign-in disabled: client id or secret missing")
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn("Stripe webhook secret missing: all webhook deliveries will be rejected")
	}

	sessionStore := middleware.NewSessionStore(cfg.Auth.SessionSecret, cfg.Server.IsProduction(), cfg.Auth.SessionExpiry)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:          logger,
		AppURL:          cfg.Auth.AppURL,
		SessionStore:    sessionStore,
		ValidateSession: authService.ValidateSession,
		RateLimiter:     redis,
		RateLimit:       cfg.RateLimit,
		Auth:            handler.NewAuthHandler(authService, oauthService, sessionStore, cfg.Auth.AppURL),
		Plans:           handler.NewPlanHandler(planService),
		Billing:         handler.NewBillingHandler(billingService),
		Locations:       handler.NewLocationHandler(locationService),
		Weather:         handler.NewWeatherHandler(weatherService),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": db,
			"redis":    redis,
		}),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		cleanupSessions(gctx, logger, authService)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// cleanupSessions periodically deletes expired sessions until ctx is done.
func cleanupSessions(ctx context.Context, logger *slog.Logger, auth service.AuthService) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.CleanupSessions(ctx)
			if err != nil {
				logger.Error("session cleanup failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				logger.Debug("expired sessions removed", slog.Int64("count", n))
			}
		}
	}
}
