package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/guilded-university/tokenvault/internal/api"
	"github.com/guilded-university/tokenvault/internal/tokenerr"
	"github.com/guilded-university/tokenvault/internal/tokenstore"
)

// App exposes the store and retrieve operations to the CLI and HTTP API.
type App struct {
	cfg   *Config
	store tokenstore.TokenStore
}

// Compile-time check to ensure App can back the HTTP API
var _ api.Vault = (*App)(nil)

// New creates a new App instance. No I/O is performed; key material and the
// token file are only touched by Store and Retrieve.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	return &App{
		cfg:   cfg,
		store: store,
	}, nil
}

// Store encrypts token and writes it to the configured token file.
func (a *App) Store(ctx context.Context, token string) error {
	logger := a.operationLogger("store")

	if err := a.store.Write(ctx, token); err != nil {
		logger.ErrorContext(ctx, "failed to store token", "error", err, "cause", kindName(err))
		return err
	}

	logger.InfoContext(ctx, "token stored")
	return nil
}

// Retrieve reads and decrypts the token from the configured token file.
func (a *App) Retrieve(ctx context.Context) (string, error) {
	logger := a.operationLogger("retrieve")

	token, err := a.store.Read(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to retrieve token", "error", err, "cause", kindName(err))
		return "", err
	}

	logger.DebugContext(ctx, "token retrieved")
	return token, nil
}

// operationLogger tags every record of one operation with a fresh id.
// The token itself is never logged.
func (a *App) operationLogger(operation string) *slog.Logger {
	return slog.With(
		"operation", operation,
		"op_id", uuid.NewString(),
		"path", a.cfg.Token.File,
	)
}

func kindName(err error) string {
	cause := tokenerr.Cause(err)
	if cause == tokenerr.KindUnknown {
		return "unclassified"
	}
	return cause.String()
}

// Serve starts the HTTP API and blocks until ctx is canceled or the server fails.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Serve(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	server, err := api.New(a, api.WithAllowedHosts(a.cfg.Server.Host))
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting api server", "address", address)
	serverErrCh, err := server.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("api startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, server.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "api runtime error", "error", err)
				return fmt.Errorf("api: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", server.Addr())

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
