package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/cells/pkg/sheet"
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address (default ":8080").
	Addr string

	// MetricsPath is where Registry is served (default "/metrics").
	MetricsPath string

	// WatchBuffer is the number of messages queued per watcher before it
	// is disconnected (default 64).
	WatchBuffer int

	// ShutdownTimeout bounds Shutdown (default 5s).
	ShutdownTimeout time.Duration

	// WriteTimeout bounds each WebSocket write (default 10s).
	WriteTimeout time.Duration

	// Registry receives the server's metrics and is served at MetricsPath.
	// When nil the metrics are kept in a private registry and not served.
	Registry *prometheus.Registry

	// Logger is the server's logger (default slog.Default()).
	Logger *slog.Logger
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		MetricsPath:     "/metrics",
		WatchBuffer:     64,
		ShutdownTimeout: 5 * time.Second,
		WriteTimeout:    10 * time.Second,
		Logger:          slog.Default(),
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.MetricsPath == "" {
		c.MetricsPath = d.MetricsPath
	}
	if c.WatchBuffer <= 0 {
		c.WatchBuffer = d.WatchBuffer
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
}

// Server serves one sheet.
type Server struct {
	config  *Config
	logger  *slog.Logger
	metrics *metrics
	handler http.Handler

	// mu serialises access to sheet. Watch callbacks run with it held.
	mu    sync.Mutex
	sheet *sheet.Sheet

	// wmu guards watchers.
	wmu      sync.Mutex
	watchers map[string]*watcher
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// New creates a server for s. A nil config uses DefaultConfig.
func New(s *sheet.Sheet, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		c := *config
		config = &c
		config.applyDefaults()
	}

	reg := prometheus.Registerer(config.Registry)
	if config.Registry == nil {
		reg = prometheus.NewRegistry()
	}

	srv := &Server{
		config:   config,
		logger:   config.Logger.With("component", "server"),
		metrics:  newMetrics(reg),
		sheet:    s,
		watchers: make(map[string]*watcher),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	srv.handler = srv.routes()
	return srv
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger, s.metrics))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/cells", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/{name}", s.handleGet)
		r.Put("/{name}", s.handleSet)
	})
	r.Post("/update", s.handleUpdate)
	r.Get("/watch/{name}", s.handleWatch)

	if s.config.Registry != nil {
		r.Method(http.MethodGet, s.config.MetricsPath,
			promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Config returns the server's configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Run listens on the configured address and blocks until ctx is done, an
// interrupt arrives, or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Addr, "sheet", s.Sheet().Name())
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown disconnects every watcher and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.closeWatchers()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Sheet returns the sheet being served.
func (s *Server) Sheet() *sheet.Sheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheet
}

// Reload replaces the served sheet. Watchers of the old sheet are
// disconnected; clients reconnect to follow the new one.
func (s *Server) Reload(next *sheet.Sheet) {
	s.mu.Lock()
	s.sheet = next
	s.mu.Unlock()

	s.closeWatchers()
	s.logger.Info("sheet reloaded", "sheet", next.Name(), "cells", len(next.Names()))
}
