package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yousefmohseen/chatroom/internal/config"
	"github.com/yousefmohseen/chatroom/internal/core"
	"github.com/yousefmohseen/chatroom/internal/store"
	"github.com/yousefmohseen/chatroom/internal/store/sqlite"
	transporthttp "github.com/yousefmohseen/chatroom/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
// An empty DatabasePath keeps history in memory.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	var (
		st       store.Store
		msgStore store.MessageStore
	)
	if cfg.DatabasePath != "" {
		s, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		st, msgStore = s, s
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
	} else {
		logger.Warn().Msg("no database path, history is kept in memory")
	}

	hub := core.NewHub(msgStore, core.Options{
		HistoryLimit:    cfg.HistoryLimit,
		MaxMessageBytes: cfg.MaxMessageBytes,
		Logger:          logger,
	})
	server := transporthttp.NewServer(hub, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		stopHub()
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
