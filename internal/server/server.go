// Package server exposes the registry store as a read-only JSON API.
package server

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/registree/registree/internal/registry"
)

type Server struct {
	echo  *echo.Echo
	store *registry.Store
}

func New(store *registry.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger)

	s := &Server{echo: e, store: store}

	e.GET("/repositories", s.handleRepositories)
	e.GET("/repositories/*", s.handleRepository)
	e.GET("/revisions/:digest/repository/*", s.handleManifest)

	return s
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler, used by tests to mount
// the API on an httptest server.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}

// requestLogger emits one structured line per request.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		requestID := uuid.NewString()
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		log.Info("HTTP request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"bytes", c.Response().Size,
			"duration", time.Since(start),
			"request_id", requestID,
		)
		return err
	}
}
