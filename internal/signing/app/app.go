package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/quill/internal/signing/http"
	"github.com/aussiebroadwan/quill/internal/signing/service"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/internal/signing/store/drivers/postgres"
	"github.com/aussiebroadwan/quill/internal/signing/store/drivers/sqlite"
	"github.com/aussiebroadwan/quill/internal/signing/telemetry"
	"github.com/aussiebroadwan/quill/internal/signing/upstream"
	"github.com/aussiebroadwan/quill/pkg/slogx"
	"github.com/aussiebroadwan/quill/pkg/viewticket"
)

const (
	// BuildVersion is overridden at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the signing service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	tickets *viewticket.Issuer
	metrics *telemetry.Metrics

	requestService      *service.RequestService
	signingService      *service.SigningService
	completionService   *service.CompletionService
	previewService      *service.PreviewService
	idempotencyService  *service.IdempotencyService
	housekeepingService *service.HousekeepingService
	outboxWorker        *service.OutboxWorker

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if cfg.GatewayKey == "" {
		return nil, errors.New("SIGNING_GATEWAY_KEY is required")
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "signing-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: telemetry.New(),
	}

	tickets, err := InitViewTickets(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize view tickets: %w", err)
	}
	app.tickets = tickets

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()
	app.outboxWorker.Start()

	app.logger.Info("signing service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"db_driver", app.cfg.DatabaseDriver,
		"enforce_order", app.cfg.EnforceOrder,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting requests, then drains the background workers
// before closing the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down signing service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Jobs in flight keep their lease and are reclaimed after restart.
	app.outboxWorker.Stop()
	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("signing service stopped")
	return nil
}

// initDatabase opens the configured driver and applies migrations.
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DatabaseDriver {
	case "postgres", "pgx":
		if app.cfg.DatabaseURL == "" {
			return errors.New("SIGNING_DATABASE_URL is required for the postgres driver")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db, err = postgres.Connect(ctx, app.cfg.DatabaseURL)
	case "sqlite", "":
		db, err = sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	default:
		return fmt.Errorf("unknown database driver %q", app.cfg.DatabaseDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) sealer() upstream.Sealer {
	if app.cfg.SealingServiceURL == "" {
		app.logger.Warn("SEALING_SERVICE_URL not set - documents are sealed by the local no-op sealer")
		return upstream.NoopSealer{}
	}
	return upstream.NewHTTPSealer(app.cfg.SealingServiceURL, app.cfg.UpstreamTimeout)
}

func (app *Application) notifier() upstream.Notifier {
	if app.cfg.NotifyWebhookURL == "" {
		app.logger.Warn("NOTIFY_WEBHOOK_URL not set - domain events are only logged")
		return upstream.LogNotifier{}
	}
	return upstream.NewWebhookNotifier(app.cfg.NotifyWebhookURL, app.cfg.NotifySecret, app.cfg.UpstreamTimeout)
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.previewService = &service.PreviewService{
		Store:      app.db,
		Tickets:    app.tickets,
		Metrics:    app.metrics,
		TTL:        app.cfg.PreviewTTL,
		MaxAccess:  app.cfg.PreviewMaxAccess,
		MaxRetries: app.cfg.MaxRetries,
	}

	app.completionService = &service.CompletionService{
		Store:       app.db,
		Sealer:      app.sealer(),
		Notifier:    app.notifier(),
		Previews:    app.previewService,
		Metrics:     app.metrics,
		MaxAttempts: app.cfg.OutboxMaxAttempts,
	}

	app.signingService = &service.SigningService{
		Store:         app.db,
		Completion:    app.completionService,
		Metrics:       app.metrics,
		MaxRetries:    app.cfg.MaxRetries,
		EnforceOrder:  app.cfg.EnforceOrder,
		InlineTimeout: app.cfg.InlineTimeout,
	}

	app.requestService = &service.RequestService{Store: app.db}

	app.idempotencyService = &service.IdempotencyService{
		Store: app.db,
		TTL:   app.cfg.IdempotencyTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(app.db, app.logger, app.cfg.HousekeepingInterval)
	app.housekeepingService.Metrics = app.metrics
	app.housekeepingService.JobRetention = app.cfg.JobRetention
	app.housekeepingService.IdempotencyTTL = app.cfg.IdempotencyTTL

	app.outboxWorker = service.NewOutboxWorker(app.completionService, app.logger, app.cfg.OutboxWorkers, app.cfg.OutboxPollInterval)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(app.cfg.GatewayKey, BuildVersion, app.db, app.tickets, app.metrics, app.logger)

	app.router.RequestService = app.requestService
	app.router.SigningService = app.signingService
	app.router.PreviewService = app.previewService
	app.router.IdempotencyService = app.idempotencyService

	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
