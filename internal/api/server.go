package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Vault is the application surface exposed over HTTP.
type Vault interface {
	Store(ctx context.Context, token string) error
	Retrieve(ctx context.Context) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	mux      *http.ServeMux
	server   *http.Server
	listener net.Listener
}

// Compile-time check that Server implements http.Handler
var _ http.Handler = (*Server)(nil)

// Option configures a Server.
type Option func(*options)

type options struct {
	allowedHosts []string
}

// WithAllowedHosts accepts requests addressed to hosts in addition to the loopback names.
func WithAllowedHosts(hosts ...string) Option {
	return func(o *options) {
		o.allowedHosts = append(o.allowedHosts, hosts...)
	}
}

// New creates a Server backed by vault.
func New(vault Vault, opts ...Option) (*Server, error) {
	if vault == nil {
		return nil, fmt.Errorf("missing vault")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	hostCheck := HostCheck(o.allowedHosts...)

	logger := slog.Default()
	h := &handlers{vault: vault}

	mux := http.NewServeMux()
	mux.Handle("PUT /token", applyMiddlewares(http.HandlerFunc(h.storeToken),
		Logging(logger),
		Recovery,
		hostCheck,
	))
	mux.Handle("GET /token", applyMiddlewares(http.HandlerFunc(h.retrieveToken),
		Logging(logger),
		Recovery,
		hostCheck,
	))

	return &Server{mux: mux}, nil
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	// Startup phase: Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second, // Tokens are small, slow clients are cut off early
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
