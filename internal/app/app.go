// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/forumvac/forumvac/internal/config"
	"github.com/forumvac/forumvac/internal/logging"
	"github.com/forumvac/forumvac/internal/rpc"
	"github.com/forumvac/forumvac/internal/store"
	"github.com/forumvac/forumvac/internal/store/memory"
	"github.com/forumvac/forumvac/internal/store/postgres"
)

// App holds the shared, long-lived services of the harvester: the
// logger, the persistence backend, and the RPC client for the remote
// site. It is initialized once at startup and handed to the commands
// that need it.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	store  store.Store
	client *rpc.Client
}

// NewApp loads configuration and initializes every service, failing
// fast when a critical one cannot be built.
func NewApp(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	var st store.Store
	switch cfg.Store.Provider {
	case "postgres":
		logger.Info("connecting to postgres")
		st, err = postgres.New(ctx, postgres.Config{
			DSN:      cfg.Store.DSN,
			MaxConns: cfg.Store.MaxConns,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize store: %w", err)
		}
	case "memory":
		logger.Info("using in-memory store, nothing will survive this process")
		st = memory.New()
	case "noop":
		logger.Info("using no-op store, harvested content will be discarded")
		st = store.NoOp{}
	default:
		return nil, fmt.Errorf("unknown store provider: %s", cfg.Store.Provider)
	}

	client := rpc.NewClient(cfg.Remote.BaseURL, cfg.Remote.RequestTimeout(), logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		store:  st,
		client: client,
	}, nil
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetStore exposes the configured persistence backend.
func (a *App) GetStore() store.Store {
	return a.store
}

// GetClient returns the RPC client for the remote site.
func (a *App) GetClient() *rpc.Client {
	return a.client
}

// ResolveSession returns the session id for harvest calls, logging in
// with the configured credentials unless one was supplied directly.
func (a *App) ResolveSession(ctx context.Context) (string, error) {
	if a.cfg.Remote.SessionID != "" {
		a.logger.Info("using configured session id")
		return a.cfg.Remote.SessionID, nil
	}
	fields := []zap.Field{}
	if !a.cfg.Remote.SanitizeLog {
		fields = append(fields, zap.String("email", a.cfg.Remote.Email))
	}
	a.logger.Info("logging in", fields...)
	sessionID, err := a.client.Login(ctx, a.cfg.Remote.Email, a.cfg.Remote.Password)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return sessionID, nil
}

// Close gracefully shuts down all services in the container. It is
// called by a Cobra hook after the command finishes.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	a.store.Close()
	// Flush buffered log entries; stderr may reject the sync, which is
	// harmless.
	_ = a.logger.Sync()
}
