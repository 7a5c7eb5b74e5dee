// Copyright 2019 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/xerrors"
	"zombiezen.com/go/graphql-echo/graphqlecho"
	"zombiezen.com/go/graphql-echo/graphqlmock"
	"zombiezen.com/go/graphql-echo/internal/config"
	"zombiezen.com/go/graphql-echo/internal/metrics"
)

// newServer builds the echo instance serving the mocked schema.
func newServer(cfg *config.Config, sdl string, reg *prometheus.Registry, logger *slog.Logger) (*echo.Echo, error) {
	schema, err := graphqlmock.New(sdl, graphqlmock.WithListLength(cfg.GraphQL.ListLength))
	if err != nil {
		return nil, err
	}
	engineOpts := cfg.GraphQL.EngineOptions()
	engineOpts.WillStart = func(ctx context.Context) error {
		logger.InfoContext(ctx, "graphql: first request received", "types", len(schema.Schema().Types))
		return nil
	}
	srv, err := graphqlecho.NewServer(schema, engineOpts)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "http: request", attrs...)
			return nil
		},
	}))
	if cfg.Metrics.Enabled {
		m, err := metrics.New(reg)
		if err != nil {
			return nil, xerrors.Errorf("register metrics: %w", err)
		}
		e.Use(m.Middleware())
		e.GET(cfg.Metrics.Path, metrics.Handler(reg))
	}
	if cfg.Server.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Skipper:      func(c echo.Context) bool { return c.IsWebSocket() },
			ErrorMessage: "Request timed out",
			Timeout:      cfg.Server.RequestTimeout,
		}))
	}

	routeOpts := &graphqlecho.RouteOptions{
		DisableHealthCheck: !cfg.GraphQL.HealthCheck,
		BodyLimit:          cfg.Server.BodyLimit,
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		routeOpts.CORS = &middleware.CORSConfig{AllowOrigins: cfg.Server.CORSOrigins}
	}
	srv.RegisterRoutes(e, routeOpts)
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Hello World")
	})
	return e, nil
}

// serve runs e until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, e *echo.Echo, cfg *config.Config, logger *slog.Logger) error {
	addr := net.JoinHostPort(cfg.Server.Address, strconv.Itoa(cfg.Server.Port))
	errc := make(chan error, 1)
	go func() {
		errc <- e.Start(addr)
	}()
	logger.Info("graphql-echo: listening", "url", "http://"+addr+cfg.GraphQL.Path)

	select {
	case err := <-errc:
		return xerrors.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	logger.Info("graphql-echo: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return xerrors.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !xerrors.Is(err, http.ErrServerClosed) {
		return xerrors.Errorf("serve: %w", err)
	}
	return nil
}
