package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/billfold/accounts/internal/accounts/http"
	"github.com/billfold/accounts/internal/accounts/kvstore"
	"github.com/billfold/accounts/internal/accounts/mail"
	"github.com/billfold/accounts/internal/accounts/service"
	"github.com/billfold/accounts/internal/accounts/store"
	"github.com/billfold/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/billfold/accounts/pkg/jwtx"
	"github.com/billfold/accounts/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the accounts service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	tokens kvstore.TokenStore
	memory *kvstore.MemoryStore // fallback store, swept by housekeeping
	signer *jwtx.HS256
	mailer mail.Mailer

	// Services
	userService         *service.UserService
	tokenService        *service.TokenService
	resetService        *service.ResetService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "accounts-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.signer = jwtx.NewHS256([]byte(cfg.JWTSecret), cfg.Issuer)

	app.initTokenStore()
	app.initMailer()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("accounts service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down accounts service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.tokens.Close(); err != nil {
		app.logger.Error("error closing token store", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("accounts service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initTokenStore sets up the reset-token store. With Redis configured the
// in-memory store rides along as a failover target; without it, memory-only
// (fine for a single dev instance, tokens don't survive restarts).
func (app *Application) initTokenStore() {
	app.memory = kvstore.NewMemoryStore()

	if app.cfg.RedisAddr == "" {
		app.logger.Warn("REDIS_ADDR not set, reset tokens held in memory only")
		app.tokens = app.memory
		return
	}

	redis := kvstore.NewRedisStore(
		app.cfg.RedisAddr,
		app.cfg.RedisPassword,
		"password_reset:",
		app.cfg.RedisDB,
	)
	app.tokens = kvstore.NewFailoverStore(redis, app.memory)
	app.logger.Info("reset token store using redis with in-memory failover", "addr", app.cfg.RedisAddr)
}

// initMailer picks SMTP delivery when a relay is configured, log-only
// delivery otherwise.
func (app *Application) initMailer() {
	if app.cfg.SMTPAddr == "" {
		app.logger.Warn("SMTP_ADDR not set, reset emails will be logged instead of sent")
		app.mailer = &mail.LogMailer{
			BaseURL:  app.cfg.FrontendBaseURL,
			TokenTTL: app.cfg.ResetTokenTTL,
		}
		return
	}

	app.mailer = &mail.SMTPMailer{
		Addr:     app.cfg.SMTPAddr,
		From:     app.cfg.SMTPFrom,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		BaseURL:  app.cfg.FrontendBaseURL,
		TokenTTL: app.cfg.ResetTokenTTL,
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.userService = &service.UserService{Store: app.db}

	app.tokenService = &service.TokenService{
		Signer:     app.signer,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.resetService = &service.ResetService{
		Store:    app.db,
		Tokens:   app.tokens,
		Mailer:   app.mailer,
		TokenTTL: app.cfg.ResetTokenTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.memory,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.tokens,
		app.logger,
	)

	// Wire services to router
	router.UserService = app.userService
	router.TokenService = app.tokenService
	router.ResetService = app.resetService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
