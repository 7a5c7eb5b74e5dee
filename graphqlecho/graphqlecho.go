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

// Package graphqlecho serves a GraphQL engine from the echo web framework.
//
// Problems with a GraphQL request (bad JSON, validation failures, disallowed
// methods) are written to the client directly and the handler returns nil.
// Every other error, including a failure to read the request body, is
// returned to echo for its HTTPErrorHandler to deal with.
package graphqlecho

import (
	"net/http"

	"github.com/99designs/gqlgen/graphql"
	"github.com/labstack/echo/v4"
	"golang.org/x/xerrors"
	"zombiezen.com/go/graphql-echo/graphqlhttp"
)

// Server adapts a graphqlhttp.Engine to echo handlers.
type Server struct {
	engine *graphqlhttp.Engine
}

// New returns a server that serves requests with the given engine.
func New(engine *graphqlhttp.Engine) *Server {
	return &Server{engine: engine}
}

// NewServer creates an engine for the schema and returns a server for it.
func NewServer(es graphql.ExecutableSchema, opts *graphqlhttp.Options) (*Server, error) {
	engine, err := graphqlhttp.NewEngine(es, opts)
	if err != nil {
		return nil, err
	}
	return New(engine), nil
}

// Engine returns the server's engine.
func (s *Server) Engine() *graphqlhttp.Engine {
	return s.engine
}

// GraphQLHandler returns a handler that executes GraphQL requests.
func (s *Server) GraphQLHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		ctx := r.Context()
		opts, err := s.engine.RequestOptions(ctx, c.Response(), r)
		if err != nil {
			return err
		}
		res, err := s.engine.RunQuery(ctx, &graphqlhttp.Query{
			Method:  r.Method,
			Request: r,
			Options: opts,
		})
		if err != nil {
			var qe *graphqlhttp.QueryError
			if !xerrors.As(err, &qe) {
				return unwrapHTTPError(err)
			}
			return writeRaw(c, graphqlhttp.StatusCode(qe), qe.Header, []byte(qe.Message))
		}
		return writeRaw(c, http.StatusOK, res.Header, res.Body)
	}
}

// PlaygroundMiddleware returns a middleware that answers GET requests from
// browsers with the Playground page. Other requests are passed to the next
// handler.
func (s *Server) PlaygroundMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			page, ok := s.engine.Playground()
			r := c.Request()
			if !ok || r.Method != http.MethodGet || !graphqlhttp.PrefersHTML(r.Header.Get(echo.HeaderAccept)) {
				return next(c)
			}
			return c.Blob(http.StatusOK, echo.MIMETextHTML, page)
		}
	}
}

// Handler returns a handler that serves the Playground to browsers and
// executes GraphQL requests otherwise. It can be mounted for both GET and
// POST.
func (s *Server) Handler() echo.HandlerFunc {
	return s.PlaygroundMiddleware()(s.GraphQLHandler())
}

// HealthCheckHandler returns a handler that reports the result of check as an
// application/health+json document. A nil check always passes.
func (s *Server) HealthCheckHandler(check graphqlhttp.OnHealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := graphqlhttp.CheckHealth(c.Request(), check)
		return c.Blob(h.StatusCode, graphqlhttp.HealthContentType, h.Body)
	}
}

// SubscriptionHandler returns a handler that serves subscriptions over
// websockets, or nil if the engine does not support subscriptions. Errors from
// the Context and WillStart hooks are returned before the connection is
// upgraded.
func (s *Server) SubscriptionHandler() echo.HandlerFunc {
	if s.engine.SubscriptionHandler() == nil {
		return nil
	}
	return func(c echo.Context) error {
		r := c.Request()
		opts, err := s.engine.RequestOptions(r.Context(), c.Response(), r)
		if err != nil {
			return err
		}
		return s.engine.ServeSubscriptions(c.Response(), r, opts)
	}
}

// unwrapHTTPError returns the *echo.HTTPError err wraps, if any. echo's
// default error handler does not unwrap errors.
func unwrapHTTPError(err error) error {
	var he *echo.HTTPError
	if xerrors.As(err, &he) {
		return he
	}
	return err
}

// writeRaw writes a response without any further encoding.
func writeRaw(c echo.Context, status int, header http.Header, body []byte) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	dst := c.Response().Header()
	for k, v := range header {
		dst[k] = v
	}
	c.Response().WriteHeader(status)
	_, err := c.Response().Write(body)
	return err
}
