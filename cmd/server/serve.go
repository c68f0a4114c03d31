package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/DukeRupert/tradeslink/internal"
	"github.com/DukeRupert/tradeslink/internal/billing"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/email"
	"github.com/DukeRupert/tradeslink/internal/handler"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/middleware"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/service"
	"github.com/DukeRupert/tradeslink/internal/session"
	"github.com/DukeRupert/tradeslink/internal/storage"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Run migrations and start the HTTP API",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Database
	pool, err := internal.ConnectDB(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	if err := internal.MigratePool(pool); err != nil {
		return err
	}
	logger.Info("Database ready")

	store := repository.NewStore(pool)

	// External providers
	files, err := storage.New(cfg.StorageConfig(), logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("email initialization failed: %w", err)
	}

	var payments billing.Service
	if cfg.StripeSecretKey != "" {
		payments = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			ProPriceID:     cfg.StripeProPriceID,
			PremiumPriceID: cfg.StripePremiumPriceID,
		})
	} else {
		logger.Warn("Stripe is not configured; billing endpoints will fail")
	}

	// Services
	users := service.NewUserService(store, service.UserServiceConfig{
		SessionDuration: cfg.SessionDuration,
		AdminEmails:     cfg.AdminEmails,
	}, logger)
	if n, err := users.DeleteExpiredSessions(ctx); err != nil {
		logger.Warn("Failed to prune expired sessions", "error", err)
	} else if n > 0 {
		logger.Info("Pruned expired sessions", "count", n)
	}

	profiles := service.NewProfileService(store, files, service.NewImagingProcessor(), logger)
	reviews := service.NewReviewService(store, notifier, logger)
	moderation := service.NewModerationService(store, notifier, logger)
	verifications := service.NewVerificationService(store, files, logger)
	badPayers := service.NewBadPayerService(store, logger)
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	billingService := service.NewBillingService(store, payments, profiles, service.BillingURLs{
		SuccessURL: baseURL + "/billing/success",
		CancelURL:  baseURL + "/billing",
		ReturnURL:  baseURL + "/billing",
	}, logger)

	// Middleware
	hashKey, blockKey, err := cfg.CookieKeys()
	if err != nil {
		return err
	}
	cookies := session.NewCodec(hashKey, blockKey, cfg.SessionDuration, cfg.IsSecure())
	authMw := middleware.NewAuthMiddleware(users, cookies, logger)
	authLimiter := middleware.NewAuthRateLimiter(cfg.LoginAttempts, logger)
	defer authLimiter.Stop()
	requireUser := authMw.RequireUser
	requireAdmin := authMw.RequireRole(domain.RoleAdmin)

	// ==========================================================================
	// Routes
	// ==========================================================================

	mux := http.NewServeMux()

	handler.NewHealthHandler(pool, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword).Handler(promhttp.Handler()))

	if local, ok := files.(*storage.LocalStorage); ok {
		mux.Handle("GET /files/", http.StripPrefix("/files/", local.Handler()))
	}

	handler.NewAuthHandler(users, cookies, authLimiter, logger).
		RegisterRoutes(mux, authLimiter.LimitLogin, authLimiter.LimitRegister, requireUser)
	handler.NewProfileHandler(profiles, reviews, service.NewUsageService(store, logger), logger).
		RegisterRoutes(mux, requireUser)
	handler.NewJobHandler(service.NewJobService(store, logger), service.NewApplicationService(store, notifier, logger), logger).
		RegisterRoutes(mux, requireUser)
	handler.NewQuoteHandler(service.NewQuoteService(store, notifier, logger), logger).
		RegisterRoutes(mux, requireUser)
	handler.NewReviewHandler(reviews, logger).RegisterRoutes(mux, requireUser)
	handler.NewVerificationHandler(verifications, logger).RegisterRoutes(mux, requireUser)
	handler.NewReportHandler(moderation, service.NewMessageService(store, logger), logger).
		RegisterRoutes(mux, requireUser)
	handler.NewBadPayerHandler(badPayers, logger).RegisterRoutes(mux, requireUser)
	handler.NewBillingHandler(billingService, logger).RegisterRoutes(mux, requireUser)
	handler.NewAdminHandler(handler.AdminServices{
		Reviews:       reviews,
		Moderation:    moderation,
		Verifications: verifications,
		BadPayers:     badPayers,
		Profiles:      profiles,
	}, logger).RegisterRoutes(mux, requireAdmin)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// Outermost first. Logging runs inside WithUser so entries carry the
	// user id; the webhook authenticates by signature, not by CSRF token.
	root := middleware.Stack(
		middleware.NewSecurityHeadersMiddleware(cfg.IsSecure()).Handler,
		metrics.Middleware,
		authMw.WithUser,
		middleware.NewRequestLoggingMiddleware(logger).Handler,
		middleware.NewCSRFMiddleware(logger, "/webhooks/").Handler,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newNotifier picks the email transport named by EMAIL_PROVIDER.
func newNotifier(cfg *internal.Config, logger *slog.Logger) (email.EmailService, error) {
	if cfg.EmailProvider != "smtp" {
		return email.NewLogEmailService(logger), nil
	}
	smtp, err := email.NewSMTPEmailService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, cfg.BaseURL, logger)
	if err != nil {
		return nil, err
	}
	return smtp, nil
}
