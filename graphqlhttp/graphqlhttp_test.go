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

package graphqlhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"
	"golang.org/x/xerrors"
	"zombiezen.com/go/graphql-echo/graphqlmock"
)

const testSchema = `
	type Query {
		me: User
	}

	type Mutation {
		rename(name: String!): User!
	}

	type Subscription {
		userChanged: User!
	}

	type User {
		name: String!
	}
`

func newTestEngine(t *testing.T, opts *Options, mockOpts ...graphqlmock.Option) *Engine {
	t.Helper()
	schema, err := graphqlmock.New(testSchema, mockOpts...)
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(schema, opts)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// runQuery runs a request the way a framework adapter would and returns the
// status code, headers and body that would be written.
func runQuery(t *testing.T, e *Engine, r *http.Request) (int, http.Header, string) {
	t.Helper()
	ctx := r.Context()
	opts, err := e.RequestOptions(ctx, httptest.NewRecorder(), r)
	if err != nil {
		t.Fatal("RequestOptions:", err)
	}
	res, err := e.RunQuery(ctx, &Query{Request: r, Options: opts})
	if err != nil {
		var qe *QueryError
		if !xerrors.As(err, &qe) {
			t.Fatal("RunQuery:", err)
		}
		return StatusCode(err), qe.Header, qe.Message
	}
	return http.StatusOK, res.Header, string(res.Body)
}

func newRequest(method, target, contentType, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestRunQuery(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		target      string
		contentType string
		body        string

		wantStatus  int
		wantHeader  http.Header
		wantBody    string
		wantContain string
	}{
		{
			name:       "GET",
			method:     http.MethodGet,
			target:     "/graphql?query=%7Bme%7Bname%7D%7D",
			wantStatus: http.StatusOK,
			wantHeader: http.Header{
				"Content-Type":   {"application/json"},
				"Content-Length": {"38"},
			},
			wantBody: `{"data":{"me":{"name":"Hello World"}}}`,
		},
		{
			name:        "POST",
			method:      http.MethodPost,
			target:      "/graphql",
			contentType: "application/json",
			body:        `{"query": "{me{name}}"}`,
			wantStatus:  http.StatusOK,
			wantBody:    `{"data":{"me":{"name":"Hello World"}}}`,
		},
		{
			name:        "Mutation",
			method:      http.MethodPost,
			target:      "/graphql",
			contentType: "application/json",
			body:        `{"query": "mutation { rename(name: \"Bob\") { name } }"}`,
			wantStatus:  http.StatusOK,
			wantBody:    `{"data":{"rename":{"name":"Hello World"}}}`,
		},
		{
			name:        "ValidationError",
			method:      http.MethodPost,
			target:      "/graphql",
			contentType: "application/json",
			body:        `{"query": "{me{nope}}"}`,
			wantStatus:  http.StatusBadRequest,
			wantHeader:  http.Header{"Content-Type": {"application/json"}},
			wantContain: `Cannot query field \"nope\" on type \"User\"`,
		},
		{
			name:        "SyntaxError",
			method:      http.MethodPost,
			target:      "/graphql",
			contentType: "application/json",
			body:        `{"query": "{me{"}`,
			wantStatus:  http.StatusBadRequest,
			wantHeader:  http.Header{"Content-Type": {"application/json"}},
			wantContain: `"errors"`,
		},
		{
			name:       "GETMutation",
			method:     http.MethodGet,
			target:     "/graphql?query=mutation%7Brename(name%3A%22x%22)%7Bname%7D%7D",
			wantStatus: http.StatusMethodNotAllowed,
			wantHeader: http.Header{
				"Allow":        {"POST"},
				"Content-Type": {"text/plain; charset=utf-8"},
			},
			wantBody: "GET supports only query operation",
		},
		{
			name:       "PUT",
			method:     http.MethodPut,
			target:     "/graphql",
			wantStatus: http.StatusMethodNotAllowed,
			wantHeader: http.Header{
				"Allow":        {"GET, POST"},
				"Content-Type": {"text/plain; charset=utf-8"},
			},
			wantContain: "method PUT not allowed",
		},
		{
			name:        "MissingQuery",
			method:      http.MethodPost,
			target:      "/graphql",
			contentType: "application/json",
			body:        `{"variables": {}}`,
			wantStatus:  http.StatusBadRequest,
			wantBody:    "Must provide query string.",
		},
		{
			name:        "EmptyBody",
			method:      http.MethodPost,
			target:      "/graphql",
			contentType: "application/json",
			wantStatus:  http.StatusBadRequest,
			wantBody:    "POST body missing.",
		},
		{
			name:        "UnsupportedContentType",
			method:      http.MethodPost,
			target:      "/graphql",
			contentType: "text/plain",
			body:        "{me{name}}",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
		{
			name:        "Subscription",
			method:      http.MethodPost,
			target:      "/graphql",
			contentType: "application/json",
			body:        `{"query": "subscription { userChanged { name } }"}`,
			wantStatus:  http.StatusBadRequest,
			wantContain: "websockets",
		},
		{
			name:        "UnknownOperationName",
			method:      http.MethodPost,
			target:      "/graphql",
			contentType: "application/json",
			body:        `{"query": "query A {me{name}}", "operationName": "B"}`,
			wantStatus:  http.StatusBadRequest,
			wantContain: `"errors"`,
		},
	}
	e := newTestEngine(t, nil)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			status, header, body := runQuery(t, e, newRequest(test.method, test.target, test.contentType, test.body))
			if status != test.wantStatus {
				t.Errorf("status = %d; want %d (body = %q)", status, test.wantStatus, body)
			}
			for k := range test.wantHeader {
				if diff := cmp.Diff(test.wantHeader.Values(k), header.Values(k)); diff != "" {
					t.Errorf("header %s (-want +got):\n%s", k, diff)
				}
			}
			if test.wantBody != "" {
				if diff := cmp.Diff(test.wantBody, body); diff != "" {
					t.Errorf("body (-want +got):\n%s", diff)
				}
			}
			if !strings.Contains(body, test.wantContain) {
				t.Errorf("body = %q; want to contain %q", body, test.wantContain)
			}
		})
	}
}

func TestRunQueryBatch(t *testing.T) {
	e := newTestEngine(t, nil)
	const body = `[
		{"query": "{me{name}}"},
		{"query": "{me{nope}}"},
		{"variables": {}},
		{"query": "mutation { rename(name: \"x\") { name } }"}
	]`
	status, header, got := runQuery(t, e, newRequest(http.MethodPost, "/graphql", "application/json", body))
	if status != http.StatusOK {
		t.Fatalf("status = %d; want %d (body = %q)", status, http.StatusOK, got)
	}
	if ct := header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q; want \"application/json\"", ct)
	}
	if n := gjson.Get(got, "#").Int(); n != 4 {
		t.Fatalf("len(responses) = %d; want 4 (body = %s)", n, got)
	}
	if name := gjson.Get(got, "0.data.me.name").String(); name != "Hello World" {
		t.Errorf("responses[0].data.me.name = %q; want \"Hello World\"", name)
	}
	if msg := gjson.Get(got, "1.errors.0.message").String(); !strings.Contains(msg, "Cannot query field") {
		t.Errorf("responses[1].errors[0].message = %q; want validation error", msg)
	}
	if msg := gjson.Get(got, "2.errors.0.message").String(); msg != "Must provide query string." {
		t.Errorf("responses[2].errors[0].message = %q; want \"Must provide query string.\"", msg)
	}
	if name := gjson.Get(got, "3.data.rename.name").String(); name != "Hello World" {
		t.Errorf("responses[3].data.rename.name = %q; want \"Hello World\"", name)
	}
}

func TestRunQueryIdempotent(t *testing.T) {
	e := newTestEngine(t, &Options{QueryCacheSize: 10})
	const target = "/graphql?query=%7Bme%7Bname%7D%7D"
	_, _, first := runQuery(t, e, newRequest(http.MethodGet, target, "", ""))
	_, _, second := runQuery(t, e, newRequest(http.MethodGet, target, "", ""))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second response differs (-first +second):\n%s", diff)
	}
}

func TestWillStart(t *testing.T) {
	t.Run("Once", func(t *testing.T) {
		calls := 0
		e := newTestEngine(t, &Options{
			WillStart: func(ctx context.Context) error {
				calls++
				return nil
			},
		})
		for i := 0; i < 3; i++ {
			status, _, body := runQuery(t, e, newRequest(http.MethodGet, "/graphql?query=%7Bme%7Bname%7D%7D", "", ""))
			if status != http.StatusOK {
				t.Fatalf("status = %d; want %d (body = %q)", status, http.StatusOK, body)
			}
		}
		if calls != 1 {
			t.Errorf("WillStart called %d times; want 1", calls)
		}
	})
	t.Run("Error", func(t *testing.T) {
		errStart := xerrors.New("database unavailable")
		calls := 0
		e := newTestEngine(t, &Options{
			WillStart: func(ctx context.Context) error {
				calls++
				return errStart
			},
		})
		for i := 0; i < 2; i++ {
			r := newRequest(http.MethodGet, "/graphql?query=%7Bme%7Bname%7D%7D", "", "")
			_, err := e.RunQuery(r.Context(), &Query{Request: r})
			if !xerrors.Is(err, errStart) {
				t.Fatalf("RunQuery error = %v; want %v", err, errStart)
			}
			var qe *QueryError
			if xerrors.As(err, &qe) {
				t.Errorf("RunQuery error is a *QueryError; want plain error")
			}
			if got := StatusCode(err); got != http.StatusInternalServerError {
				t.Errorf("StatusCode(err) = %d; want %d", got, http.StatusInternalServerError)
			}
		}
		if calls != 1 {
			t.Errorf("WillStart called %d times; want 1", calls)
		}
	})
}

type contextKey struct{}

func TestRequestOptions(t *testing.T) {
	t.Run("Derived", func(t *testing.T) {
		e := newTestEngine(t,
			&Options{
				Context: func(ctx context.Context, r *http.Request, w http.ResponseWriter) (context.Context, error) {
					return context.WithValue(ctx, contextKey{}, r.Header.Get("X-User")), nil
				},
			},
			graphqlmock.WithMock("String", func(ctx context.Context) (interface{}, error) {
				return ctx.Value(contextKey{}), nil
			}),
		)
		r := newRequest(http.MethodGet, "/graphql?query=%7Bme%7Bname%7D%7D", "", "")
		r.Header.Set("X-User", "alice")
		_, _, body := runQuery(t, e, r)
		if diff := cmp.Diff(`{"data":{"me":{"name":"alice"}}}`, body); diff != "" {
			t.Errorf("body (-want +got):\n%s", diff)
		}
	})
	t.Run("Error", func(t *testing.T) {
		errDerive := xerrors.New("bad token")
		e := newTestEngine(t, &Options{
			Context: func(ctx context.Context, r *http.Request, w http.ResponseWriter) (context.Context, error) {
				return nil, errDerive
			},
		})
		r := newRequest(http.MethodGet, "/graphql", "", "")
		_, err := e.RequestOptions(r.Context(), httptest.NewRecorder(), r)
		if err != errDerive {
			t.Errorf("RequestOptions error = %v; want %v", err, errDerive)
		}
	})
}

func TestDebugPanics(t *testing.T) {
	panicky := graphqlmock.WithMock("String", func(ctx context.Context) (interface{}, error) {
		panic("boom")
	})
	tests := []struct {
		debug bool
		want  string
	}{
		{debug: false, want: "internal system error"},
		{debug: true, want: "internal system error: boom"},
	}
	for _, test := range tests {
		e := newTestEngine(t, &Options{Debug: test.debug}, panicky)
		_, _, body := runQuery(t, e, newRequest(http.MethodGet, "/graphql?query=%7Bme%7Bname%7D%7D", "", ""))
		if got := gjson.Get(body, "errors.0.message").String(); got != test.want {
			t.Errorf("Debug=%t: errors[0].message = %q; want %q", test.debug, got, test.want)
		}
		if got := gjson.Get(body, "data.me").Raw; got != "null" {
			t.Errorf("Debug=%t: data.me = %s; want null", test.debug, got)
		}
	}
}

func TestComplexityLimit(t *testing.T) {
	e := newTestEngine(t, &Options{ComplexityLimit: 1})
	status, _, body := runQuery(t, e, newRequest(http.MethodGet, "/graphql?query=%7Bme%7Bname%7D%7D", "", ""))
	if status != http.StatusBadRequest {
		t.Errorf("status = %d; want %d", status, http.StatusBadRequest)
	}
	if !strings.Contains(body, "exceeds the limit") {
		t.Errorf("body = %q; want complexity error", body)
	}
}

func TestIntrospectionOption(t *testing.T) {
	const target = "/graphql?query=%7B__schema%7BqueryType%7Bname%7D%7D%7D"
	enabled := newTestEngine(t, &Options{Introspection: true})
	_, _, body := runQuery(t, enabled, newRequest(http.MethodGet, target, "", ""))
	if diff := cmp.Diff(`{"data":{"__schema":{"queryType":{"name":"Query"}}}}`, body); diff != "" {
		t.Errorf("enabled body (-want +got):\n%s", diff)
	}
	disabled := newTestEngine(t, &Options{Introspection: false})
	_, _, body = runQuery(t, disabled, newRequest(http.MethodGet, target, "", ""))
	if msg := gjson.Get(body, "errors.0.message").String(); !strings.Contains(msg, "introspection disabled") {
		t.Errorf("disabled errors[0].message = %q; want introspection disabled", msg)
	}
}

func TestNewEngine(t *testing.T) {
	schema, err := graphqlmock.New(testSchema)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(nil, nil); err == nil {
		t.Error("NewEngine(nil, nil) succeeded")
	}
	if _, err := NewEngine(schema, &Options{GraphQLPath: "graphql"}); err == nil {
		t.Error("NewEngine with relative path succeeded")
	}

	e, err := NewEngine(schema, nil)
	if err != nil {
		t.Fatal(err)
	}
	opts := e.Options()
	if opts.GraphQLPath != DefaultPath || opts.SubscriptionsPath != DefaultPath {
		t.Errorf("paths = %q, %q; want %q, %q", opts.GraphQLPath, opts.SubscriptionsPath, DefaultPath, DefaultPath)
	}
	if _, ok := e.Playground(); !ok {
		t.Error("default Playground disabled")
	}
	if e.SubscriptionHandler() == nil {
		t.Error("default SubscriptionHandler() = <nil>")
	}

	e, err = NewEngine(schema, &Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Playground(); ok {
		t.Error("Playground enabled without config")
	}
	if e.SubscriptionHandler() != nil {
		t.Error("SubscriptionHandler() != <nil> without subscription support")
	}
}
