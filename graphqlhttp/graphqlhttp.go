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

// Package graphqlhttp provides a framework-neutral layer for serving GraphQL
// over HTTP as described in https://graphql.org/learn/serving-over-http/.
//
// An Engine wraps a gqlgen executable schema. Framework adapters call
// RequestOptions and RunQuery for each request and write the Result (or the
// QueryError) with their own response primitives.
package graphqlhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/executor"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.opencensus.io/trace"
	"golang.org/x/xerrors"
)

// DefaultPath is the path GraphQL requests are served on if Options does not
// name one.
const DefaultPath = "/graphql"

// Options configures an Engine.
type Options struct {
	// SupportsUploads enables multipart/form-data requests that follow the
	// GraphQL multipart request convention.
	SupportsUploads bool
	// SupportsSubscriptions enables the websocket transport returned by
	// Engine.SubscriptionHandler.
	SupportsSubscriptions bool
	// Introspection enables the __schema and __type fields.
	Introspection bool
	// Debug includes panic details in error messages.
	Debug bool

	// GraphQLPath is the path queries are served on. Empty means DefaultPath.
	GraphQLPath string
	// SubscriptionsPath is the path websocket connections are accepted on.
	// Empty means GraphQLPath.
	SubscriptionsPath string

	// Playground configures the GraphQL Playground page. Nil disables it.
	Playground *PlaygroundConfig

	// Context derives the context that operations for a request run in,
	// including the operations of a websocket connection. If nil, the
	// request's context is used.
	Context func(ctx context.Context, r *http.Request, w http.ResponseWriter) (context.Context, error)
	// WillStart is called once before the first operation is run, whether
	// it arrives over HTTP or a websocket. If it returns an error, every
	// RunQuery and ServeSubscriptions call fails with that error.
	WillStart func(ctx context.Context) error

	// QueryCacheSize is the number of parsed queries to keep. Zero disables
	// caching.
	QueryCacheSize int
	// ComplexityLimit rejects operations whose complexity exceeds it. Zero
	// means no limit.
	ComplexityLimit int

	ErrorPresenter graphql.ErrorPresenterFunc
	RecoverFunc    graphql.RecoverFunc
}

// DefaultOptions returns the options used when NewEngine is passed nil:
// subscriptions, introspection and the Playground are enabled.
func DefaultOptions() *Options {
	return &Options{
		SupportsSubscriptions: true,
		Introspection:         true,
		GraphQLPath:           DefaultPath,
		Playground:            new(PlaygroundConfig),
	}
}

// Engine executes GraphQL requests against an executable schema. It is safe
// to use from multiple goroutines.
type Engine struct {
	es            graphql.ExecutableSchema
	exec          *executor.Executor
	opts          Options
	playground    []byte
	subscriptions http.Handler

	startOnce sync.Once
	startErr  error
}

// NewEngine returns a new engine for the given schema. If opts is nil,
// DefaultOptions is used.
func NewEngine(es graphql.ExecutableSchema, opts *Options) (*Engine, error) {
	if es == nil {
		return nil, xerrors.New("new graphql engine: nil schema")
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	e := &Engine{
		es:   es,
		exec: executor.New(es),
		opts: *opts,
	}
	if e.opts.GraphQLPath == "" {
		e.opts.GraphQLPath = DefaultPath
	}
	if e.opts.SubscriptionsPath == "" {
		e.opts.SubscriptionsPath = e.opts.GraphQLPath
	}
	for _, path := range []string{e.opts.GraphQLPath, e.opts.SubscriptionsPath} {
		if !strings.HasPrefix(path, "/") {
			return nil, xerrors.Errorf("new graphql engine: path %q does not start with a slash", path)
		}
	}
	if e.opts.QueryCacheSize < 0 || e.opts.ComplexityLimit < 0 {
		return nil, xerrors.New("new graphql engine: negative query cache size or complexity limit")
	}
	e.configure(e.exec)
	if e.opts.SupportsSubscriptions {
		srv := handler.New(es)
		srv.AddTransport(transport.Websocket{
			KeepAlivePingInterval: 10 * time.Second,
		})
		e.configure(srv)
		e.subscriptions = srv
	}
	if e.opts.Playground != nil {
		cfg := *e.opts.Playground
		if cfg.Endpoint == "" {
			cfg.Endpoint = e.opts.GraphQLPath
		}
		if cfg.SubscriptionEndpoint == "" && e.opts.SupportsSubscriptions {
			cfg.SubscriptionEndpoint = e.opts.SubscriptionsPath
		}
		page, err := RenderPlayground(&cfg)
		if err != nil {
			return nil, xerrors.Errorf("new graphql engine: %w", err)
		}
		e.playground = page
	}
	return e, nil
}

// configurable is the part of the API shared by gqlgen's executor and its
// transport server.
type configurable interface {
	Use(graphql.HandlerExtension)
	SetQueryCache(graphql.Cache)
	SetErrorPresenter(graphql.ErrorPresenterFunc)
	SetRecoverFunc(graphql.RecoverFunc)
}

func (e *Engine) configure(x configurable) {
	if e.opts.Introspection {
		x.Use(extension.Introspection{})
	}
	if e.opts.ComplexityLimit > 0 {
		x.Use(extension.FixedComplexityLimit(e.opts.ComplexityLimit))
	}
	if e.opts.QueryCacheSize > 0 {
		x.SetQueryCache(lru.New(e.opts.QueryCacheSize))
	}
	if e.opts.ErrorPresenter != nil {
		x.SetErrorPresenter(e.opts.ErrorPresenter)
	}
	if e.opts.RecoverFunc != nil {
		x.SetRecoverFunc(e.opts.RecoverFunc)
	} else {
		x.SetRecoverFunc(recoverPanic)
	}
}

// Options returns a copy of the options the engine was created with, with
// defaults filled in.
func (e *Engine) Options() Options {
	return e.opts
}

// ExecutableSchema returns the schema the engine executes against.
func (e *Engine) ExecutableSchema() graphql.ExecutableSchema {
	return e.es
}

// Playground returns the rendered Playground page. It reports false if the
// Playground is disabled.
func (e *Engine) Playground() ([]byte, bool) {
	return e.playground, e.playground != nil
}

// SubscriptionHandler returns a handler that serves subscriptions over
// websockets. It runs the Context and WillStart hooks before upgrading the
// connection and responds with 500 if either fails. It returns nil if
// subscriptions are not supported.
func (e *Engine) SubscriptionHandler() http.Handler {
	if e.subscriptions == nil {
		return nil
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ro, err := e.RequestOptions(r.Context(), w, r)
		if err == nil {
			err = e.ServeSubscriptions(w, r, ro)
		}
		if err != nil {
			code := StatusCode(err)
			http.Error(w, http.StatusText(code), code)
		}
	})
}

// ServeSubscriptions upgrades r to a websocket and serves subscriptions on it.
// Operations run in the context from ro, or r's context if ro is nil. The
// WillStart hook is run before the upgrade and its error is returned without
// writing a response.
func (e *Engine) ServeSubscriptions(w http.ResponseWriter, r *http.Request, ro *RequestOptions) error {
	if e.subscriptions == nil {
		return badRequest(http.StatusBadRequest, nil, "subscriptions are not supported")
	}
	ctx := r.Context()
	debug := e.opts.Debug
	if ro != nil {
		if ro.Context != nil {
			ctx = ro.Context
		}
		debug = ro.Debug
	}
	if err := e.Start(ctx); err != nil {
		return err
	}
	if debug {
		ctx = context.WithValue(ctx, debugKey{}, true)
	}
	e.subscriptions.ServeHTTP(w, r.WithContext(ctx))
	return nil
}

// Start runs the WillStart hook if it has not been run yet and returns its
// error. Later calls return the same error without running the hook again.
func (e *Engine) Start(ctx context.Context) error {
	e.startOnce.Do(func() {
		if e.opts.WillStart == nil {
			return
		}
		if err := e.opts.WillStart(ctx); err != nil {
			e.startErr = xerrors.Errorf("start graphql engine: %w", err)
		}
	})
	return e.startErr
}

// RequestOptions holds the per-request execution options.
type RequestOptions struct {
	// Context is the context operations run in.
	Context context.Context
	// Debug includes panic details in error messages.
	Debug bool
}

// RequestOptions derives the execution options for a single request. The only
// error it returns is one returned by the Options.Context hook, unchanged.
func (e *Engine) RequestOptions(ctx context.Context, w http.ResponseWriter, r *http.Request) (*RequestOptions, error) {
	ro := &RequestOptions{
		Context: ctx,
		Debug:   e.opts.Debug,
	}
	if e.opts.Context == nil {
		return ro, nil
	}
	derived, err := e.opts.Context(ctx, r, w)
	if err != nil {
		return nil, err
	}
	if derived != nil {
		ro.Context = derived
	}
	return ro, nil
}

// Query is a GraphQL HTTP request to run.
type Query struct {
	// Method is the HTTP method. Empty means Request.Method.
	Method string
	// Request is the HTTP request carrying the operation.
	Request *http.Request
	// Options are the options returned by Engine.RequestOptions. Nil means
	// the defaults.
	Options *RequestOptions
}

// Result is a successfully executed GraphQL HTTP request.
type Result struct {
	// Header holds Content-Type and Content-Length.
	Header http.Header
	// Body is the JSON-encoded GraphQL response, or an array of them for a
	// batched request.
	Body []byte
}

// RunQuery parses and executes a GraphQL HTTP request. Problems with the
// request itself, including GraphQL parse and validation failures, are
// returned as a *QueryError describing the HTTP response to send. Any other
// error (such as a failed WillStart hook) is returned unchanged.
//
// If q.Options carries a context, operations run in it instead of ctx.
func (e *Engine) RunQuery(ctx context.Context, q *Query) (_ *Result, err error) {
	method := q.Method
	if method == "" {
		method = q.Request.Method
	}
	debug := e.opts.Debug
	if q.Options != nil {
		if q.Options.Context != nil {
			ctx = q.Options.Context
		}
		debug = q.Options.Debug
	}
	ctx, span := trace.StartSpan(ctx, "graphqlhttp.RunQuery")
	span.AddAttributes(trace.StringAttribute("http.method", method))
	defer func() {
		span.AddAttributes(trace.Int64Attribute("http.status_code", int64(StatusCode(err))))
		if err != nil {
			var code int32 = trace.StatusCodeInternal
			var qe *QueryError
			if xerrors.As(err, &qe) {
				code = trace.StatusCodeInvalidArgument
			}
			span.SetStatus(trace.Status{Code: code, Message: err.Error()})
		}
		span.End()
	}()

	if err := e.Start(ctx); err != nil {
		return nil, err
	}
	batch, err := parse(method, q.Request, e.opts.SupportsUploads)
	if err != nil {
		return nil, err
	}
	defer batch.Close()
	if debug {
		ctx = context.WithValue(ctx, debugKey{}, true)
	}
	if !batch.IsBatch {
		resp, err := e.execute(ctx, method, batch.Params[0])
		if err != nil {
			return nil, err
		}
		return newResult(resp)
	}
	resps := make([]*graphql.Response, len(batch.Params))
	for i, params := range batch.Params {
		resp, err := e.execute(ctx, method, params)
		if err != nil {
			resp, err = batchResponse(err)
			if err != nil {
				return nil, err
			}
		}
		resps[i] = resp
	}
	return newResult(resps)
}

// execute runs a single operation.
func (e *Engine) execute(ctx context.Context, method string, params *graphql.RawParams) (*graphql.Response, error) {
	if params.Query == "" {
		return nil, badRequest(http.StatusBadRequest, nil, "Must provide query string.")
	}
	ctx = graphql.StartOperationTrace(ctx)
	rc, errs := e.exec.CreateOperationContext(ctx, params)
	if len(errs) > 0 {
		return nil, validationError(e.exec.DispatchError(graphql.WithOperationContext(ctx, rc), errs))
	}
	if rc.Operation == nil {
		return nil, badRequest(http.StatusBadRequest, nil, "operation %q not found", params.OperationName)
	}
	op := rc.Operation.Operation
	if method != http.MethodPost && op != ast.Query {
		qe := badRequest(http.StatusMethodNotAllowed, nil, "GET supports only query operation")
		qe.Header.Set("Allow", "POST")
		return nil, qe
	}
	if op == ast.Subscription {
		return nil, badRequest(http.StatusBadRequest, nil, "subscriptions are only supported over websockets")
	}
	next, ctx := e.exec.DispatchOperation(ctx, rc)
	resp := next(ctx)
	if resp == nil {
		return nil, xerrors.New("graphql engine returned no response")
	}
	return resp, nil
}

// batchResponse converts a request problem for one operation in a batch into
// that operation's response.
func batchResponse(err error) (*graphql.Response, error) {
	var qe *QueryError
	if !xerrors.As(err, &qe) {
		return nil, err
	}
	var list gqlerror.List
	if xerrors.As(qe, &list) {
		return &graphql.Response{Errors: list}, nil
	}
	return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("%s", qe.Message)}}, nil
}

func newResult(v interface{}) (*Result, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, xerrors.Errorf("marshal graphql response: %w", err)
	}
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	return &Result{Header: h, Body: body}, nil
}

type debugKey struct{}

// recoverPanic converts a resolver panic into an error. The panic value is
// only exposed for debug requests.
func recoverPanic(ctx context.Context, v interface{}) error {
	if debug, _ := ctx.Value(debugKey{}).(bool); debug {
		return xerrors.Errorf("internal system error: %v", v)
	}
	return xerrors.New("internal system error")
}
