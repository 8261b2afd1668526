// Package server exposes the REST, metrics and WebSocket endpoints over
// echo.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/aigeo-prime/firewatch/internal/metrics"
	"github.com/aigeo-prime/firewatch/internal/monitor"
	"github.com/aigeo-prime/firewatch/internal/storage"
	"github.com/aigeo-prime/firewatch/pkg/core"
)

// Engine is the read side of the simulation engine.
type Engine interface {
	CurrentSnapshot() []core.TelemetrySnapshot
	Assets() []core.Asset
	Running() bool
}

// FireData serves the pre-rendered hotspot GeoJSON.
type FireData interface {
	GeoJSON() []byte
}

// StatusProvider reports service status.
type StatusProvider interface {
	Status() monitor.Status
}

// Config for the HTTP server.
type Config struct {
	CORSOrigins []string
	StaticDir   string
}

// Dependencies wires the server to the rest of the process. History, Status,
// Hub and Metrics may be nil.
type Dependencies struct {
	Engine  Engine
	Fire    FireData
	History storage.HistoryProvider
	Status  StatusProvider
	Hub     http.Handler
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Server owns the echo instance.
type Server struct {
	echo *echo.Echo
	deps Dependencies
	log  *slog.Logger
	srv  *http.Server
}

// New builds the router.
func New(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo: e,
		deps: deps,
		log:  deps.Logger.With("component", "http"),
		srv: &http.Server{
			Handler:           e,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.routes()
	if cfg.StaticDir != "" {
		e.Static("/", cfg.StaticDir)
	}
	return s, nil
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve blocks serving on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("HTTP server listening", "addr", ln.Addr().String())
	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			elapsed := time.Since(start)

			req := c.Request()
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			s.deps.Metrics.ObserveRequest(req.Method, route, status, elapsed)

			level := slog.LevelDebug
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			s.log.Log(req.Context(), level, "HTTP request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", status,
				"elapsed", elapsed,
				"remote", c.RealIP(),
			)
			return nil
		}
	}
}
