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

// Package metrics records Prometheus metrics for the graphql-echo server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/xerrors"
)

// Metrics holds the server's collectors.
type Metrics struct {
	// RequestsTotal counts requests by method and status class.
	RequestsTotal *prometheus.CounterVec
	// RequestDuration records request durations in seconds by method.
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphql_echo_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphql_echo_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
	for _, c := range []prometheus.Collector{m.RequestsTotal, m.RequestDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Middleware returns an echo middleware that records each request. Requests
// whose handler returns an error are counted with the status the error maps
// to, since echo writes the error response after the middleware returns.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if xerrors.As(err, &he) {
					status = he.Code
				}
			}
			method := c.Request().Method
			m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status/100)+"xx").Inc()
			m.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler returns an echo handler that serves the metrics in g.
func Handler(g prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
