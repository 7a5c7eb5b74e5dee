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

package graphqlecho

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"zombiezen.com/go/graphql-echo/graphqlhttp"
)

// Router is the subset of *echo.Echo and *echo.Group used to register routes.
type Router interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	OPTIONS(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RouteOptions configures RegisterRoutes.
type RouteOptions struct {
	// OnHealthCheck is called for each health check request.
	OnHealthCheck graphqlhttp.OnHealthCheck
	// DisableHealthCheck skips registering the health check route.
	DisableHealthCheck bool
	// CORS enables cross-origin requests on the GraphQL routes.
	CORS *middleware.CORSConfig
	// BodyLimit limits the size of POST bodies, like "2M". Empty means no
	// limit.
	BodyLimit string
}

// RegisterRoutes registers the GraphQL, subscription and health check routes
// on r at the paths the engine was configured with. opts may be nil.
func (s *Server) RegisterRoutes(r Router, opts *RouteOptions) {
	if opts == nil {
		opts = new(RouteOptions)
	}
	var mw []echo.MiddlewareFunc
	if opts.CORS != nil {
		mw = append(mw, middleware.CORSWithConfig(*opts.CORS))
	}
	engineOpts := s.engine.Options()
	get := s.Handler()
	if sub := s.SubscriptionHandler(); sub != nil {
		if engineOpts.SubscriptionsPath == engineOpts.GraphQLPath {
			get = websocketOr(sub, get)
		} else {
			r.GET(engineOpts.SubscriptionsPath, sub, mw...)
		}
	}
	r.GET(engineOpts.GraphQLPath, get, mw...)
	post := mw
	if opts.BodyLimit != "" {
		post = append(post[:len(post):len(post)], middleware.BodyLimit(opts.BodyLimit))
	}
	r.POST(engineOpts.GraphQLPath, s.GraphQLHandler(), post...)
	if opts.CORS != nil {
		r.OPTIONS(engineOpts.GraphQLPath, noContent, mw...)
	}
	if !opts.DisableHealthCheck {
		r.GET(graphqlhttp.HealthCheckURL, s.HealthCheckHandler(opts.OnHealthCheck))
	}
}

func websocketOr(ws, h echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.IsWebSocket() {
			return ws(c)
		}
		return h(c)
	}
}

func noContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
