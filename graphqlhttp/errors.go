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
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/99designs/gqlgen/graphql"
	"golang.org/x/xerrors"
)

// QueryError is a GraphQL-level failure that maps directly onto an HTTP
// response: a status code, optional headers, and a message to use as the
// response body. Handlers are expected to write a QueryError to the client
// themselves rather than treat it as an internal error.
type QueryError struct {
	// StatusCode is the HTTP status code for the response. Zero means
	// http.StatusInternalServerError.
	StatusCode int
	// Header holds headers to add to the response. It may be nil.
	Header http.Header
	// Message is the response body.
	Message string

	err error
}

// Error returns e.Message.
func (e *QueryError) Error() string {
	return e.Message
}

// Unwrap returns the error that caused e, if any.
func (e *QueryError) Unwrap() error {
	return e.err
}

// badRequest returns a plain text QueryError. If cause is not nil, its
// message is appended to the formatted message.
func badRequest(code int, cause error, format string, args ...interface{}) *QueryError {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &QueryError{
		StatusCode: code,
		Header:     http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Message:    msg,
		err:        cause,
	}
}

// validationError returns a QueryError whose message is the JSON encoding of
// a GraphQL response carrying parse or validation errors.
func validationError(resp *graphql.Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return xerrors.Errorf("marshal graphql errors: %w", err)
	}
	e := &QueryError{
		StatusCode: http.StatusBadRequest,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Message:    string(body),
	}
	if len(resp.Errors) > 0 {
		e.err = resp.Errors
	}
	return e
}

// StatusCode returns the HTTP status code an error indicates.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *QueryError
	if !xerrors.As(err, &e) || e.StatusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.StatusCode
}
