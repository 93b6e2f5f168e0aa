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

	httpapi "github.com/caveo-app/caveo-api/internal/account/http"
	"github.com/caveo-app/caveo-api/internal/account/identity"
	"github.com/caveo-app/caveo-api/internal/account/identity/cognito"
	"github.com/caveo-app/caveo-api/internal/account/metrics"
	"github.com/caveo-app/caveo-api/internal/account/service"
	"github.com/caveo-app/caveo-api/internal/account/store"
	"github.com/caveo-app/caveo-api/internal/account/store/drivers/postgres"
	"github.com/caveo-app/caveo-api/internal/account/store/drivers/sqlite"
	"github.com/caveo-app/caveo-api/pkg/httpx"
	"github.com/caveo-app/caveo-api/pkg/jwtx"
	"github.com/caveo-app/caveo-api/pkg/slogx"
	"golang.org/x/sync/errgroup"
)

// BuildVersion is overridden at build time with -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "dev"

// Application owns every long-lived dependency of the account API.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	provider identity.Provider
	verifier jwtx.Verifier
	metrics  *metrics.Metrics

	authService    *service.AuthService
	accountService *service.AccountService
	reconciler     *service.Reconciler

	server *http.Server
	router *httpapi.Router
}

// New validates cfg and initializes the store, the Cognito client and the
// HTTP server. Nothing is started until Run.
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &Application{
		cfg:    cfg,
		logger: NewLogger(cfg),
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initIdentity(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	m, err := metrics.New(nil)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	app.metrics = m

	app.initServices()
	app.initHTTP()

	return app, nil
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "caveo-api",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// Run serves HTTP and runs the reconciler until ctx is cancelled or SIGINT
// or SIGTERM arrives, then shuts down gracefully.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.reconciler.Start()
	app.logger.Info("caveo api starting", "port", app.cfg.Port, "version", BuildVersion)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutdown requested", "cause", context.Cause(gctx))
		return app.Shutdown()
	})

	return g.Wait()
}

// Shutdown drains in-flight requests, stops the reconciler and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down caveo api...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.reconciler.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("caveo api stopped")
	return nil
}

// Handler exposes the routed handler, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenStore(ctx, app.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.Database.Driver)
	return nil
}

// OpenStore opens the profile store for the configured driver without
// migrating it.
func OpenStore(ctx context.Context, cfg DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite.NewStore(cfg.DSN)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func (app *Application) initIdentity(ctx context.Context) error {
	client, err := cognito.New(ctx, cognito.Config{
		Region:      app.cfg.AWSRegion,
		UserPoolID:  app.cfg.Cognito.UserPoolID,
		ClientID:    app.cfg.Cognito.ClientID,
		Timeout:     app.cfg.Cognito.Timeout,
		MaxAttempts: app.cfg.Cognito.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cognito client: %w", err)
	}
	app.provider = client

	issuer := jwtx.CognitoIssuer(app.cfg.AWSRegion, app.cfg.Cognito.UserPoolID)
	keys := jwtx.NewRemoteKeySet(jwtx.JWKSURL(issuer), jwtx.WithCacheTTL(app.cfg.JWKSCacheTTL))
	app.verifier = jwtx.NewCognitoVerifier(keys, jwtx.VerifyOptions{
		Issuer:   issuer,
		ClientID: app.cfg.Cognito.ClientID,
		Leeway:   30 * time.Second,
	})

	app.logger.Info("cognito configured", "issuer", issuer)
	return nil
}

func (app *Application) initServices() {
	sink := &service.SyncSink{Store: app.db, Metrics: app.metrics}

	app.authService = &service.AuthService{
		Store:    app.db,
		Provider: app.provider,
		Sync:     sink,
		Metrics:  app.metrics,
	}
	app.accountService = &service.AccountService{
		Store:    app.db,
		Provider: app.provider,
		Sync:     sink,
		Metrics:  app.metrics,
	}

	app.reconciler = service.NewReconciler(
		app.db,
		app.provider,
		app.logger,
		app.cfg.Reconcile.Interval,
		app.cfg.Reconcile.Batch,
		app.cfg.Reconcile.MaxAttempts,
	)
	app.reconciler.Metrics = app.metrics
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Verifier:     app.verifier,
		Store:        app.db,
		Logger:       app.logger,
		Metrics:      app.metrics,
		RateLimits:   app.cfg.RateLimits,
		CORS:         httpx.DefaultCORSConfig(app.cfg.CORSAllowedOrigins),
		BuildVersion: BuildVersion,
	})

	router.AuthService = app.authService
	router.AccountService = app.accountService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
