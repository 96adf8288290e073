// Package server exposes the portfolio statistics and contact relay over a
// small JSON HTTP API.
package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marioleme/gitfolio/internal/contact"
)

// Server wraps the Echo server.
type Server struct {
	echo *echo.Echo
}

// New wires the API routes.
func New(stats StatsProvider, relay contact.Relay) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64K"))

	h := NewHandler(stats, relay)

	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/users/:username/stats", h.UserStats)
	api.POST("/users/:username/stats/refresh", h.RefreshStats)
	api.GET("/users/:username/repos", h.Repositories)
	api.GET("/users/:username/repos/:repo", h.Repository)
	api.POST("/contact", h.Contact)
	api.GET("/cache", h.CacheInfo)
	api.DELETE("/cache", h.ClearCache)

	return &Server{echo: e}
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler so the server works with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
