// Package server wires the credential subsystem together: configuration,
// logging, the PostgreSQL connection with schema migrations, the signer,
// the transactional executor and the authentication services. Transport
// layers embed App and call its services; the bundled binary just runs
// migrations and idles until it is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/emsuite/authcore/internal/logging"
	"github.com/emsuite/authcore/internal/server/auth"
	"github.com/emsuite/authcore/internal/server/config"
	"github.com/emsuite/authcore/internal/server/repositories/repomanager"
	"github.com/emsuite/authcore/internal/server/services"
	"github.com/emsuite/authcore/internal/server/txn"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	rm      repomanager.RepositoryManager
	auth    *services.AuthService
	journal *services.ExceptionJournal
}

func NewApp(cfg *config.Config) (*App, error) {
	handler := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(handler)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	signer, err := auth.NewSigner(cfg)
	if err != nil {
		return nil, fmt.Errorf("signer init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	executor := txn.NewExecutor(db, cfg.TxRetryCount, cfg.TxRetryBackoff, logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		rm:      rm,
		auth:    services.NewAuthService(db, rm, signer, executor, cfg, logger),
		journal: services.NewExceptionJournal(db, rm, executor, cfg.ExceptionLogCap, logger),
	}, nil
}

// Auth exposes the authentication service to embedding transports.
func (app *App) Auth() *services.AuthService { return app.auth }

// Journal exposes the exception journal to embedding transports.
func (app *App) Journal() *services.ExceptionJournal { return app.journal }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run applies pending schema migrations and blocks until the context is
// cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	<-ctx.Done()

	app.logger.Info(ctx, "Shutting down...")
	if err := app.db.Close(); err != nil {
		return fmt.Errorf("db close error: %w", err)
	}
	return nil
}
