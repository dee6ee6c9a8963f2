// Package server initializes and runs the user directory server.
// It selects the storage backend, applies migrations, seeds the bootstrap
// admin and starts the HTTP server with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/userdir/internal/logging"
	"github.com/dmitrijs2005/userdir/internal/server/config"
	"github.com/dmitrijs2005/userdir/internal/server/httpapi"
	"github.com/dmitrijs2005/userdir/internal/server/shared/db"
	"github.com/dmitrijs2005/userdir/internal/server/users"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	manager     db.RepositoryManager
	userService *users.Service
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	var (
		manager db.RepositoryManager
		err     error
	)
	if cfg.DatabaseDSN != "" {
		manager, err = db.NewPostgresRepositoryManager(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := manager.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("migration error: %w", err)
		}
	} else {
		logger.Info(ctx, "No database DSN configured, using in-memory store")
		manager = db.NewInMemoryRepositoryManager()
	}

	if err := manager.Seed(ctx, bootstrapAdmin(cfg)); err != nil {
		return nil, fmt.Errorf("admin seed error: %w", err)
	}

	us := users.NewService(manager.Users(), manager.RefreshTokens(), cfg)

	return &App{config: cfg, logger: logger, manager: manager, userService: us}, nil
}

// bootstrapAdmin is the record inserted on first start so the API is usable
// before any other user exists.
func bootstrapAdmin(cfg *config.Config) *users.User {
	return &users.User{
		ID:        uuid.NewString(),
		Login:     cfg.AdminLogin,
		Password:  cfg.AdminPassword,
		Name:      cfg.AdminName,
		Gender:    users.GenderUnspecified,
		Admin:     true,
		CreatedOn: time.Now().UTC(),
		CreatedBy: cfg.AdminLogin,
	}
}

func (app *App) authenticator() httpapi.Authenticator {
	if app.config.AuthMode == config.AuthModeHeader {
		return httpapi.NewCredentialAuthenticator(app.manager.Users())
	}
	return httpapi.NewTokenAuthenticator(app.manager.Users(), app.config.SecretKey)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddr, app.logger, app.userService, app.authenticator())

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "error closing storage", "error", err)
	}
}
