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
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/99designs/gqlgen/graphql"
	"golang.org/x/xerrors"
)

// Batch is the set of GraphQL operations carried by a single HTTP request.
type Batch struct {
	// Params holds one entry per operation. It always has at least one
	// element.
	Params []*graphql.RawParams
	// IsBatch is true if the request body was a JSON array. The response to
	// a batch is a JSON array with one response per operation.
	IsBatch bool

	closers []io.Closer
}

// Close releases any files opened for uploads.
func (b *Batch) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// Parse parses a GraphQL HTTP request. If an error is returned, StatusCode
// will return the proper HTTP status code to use.
//
// Request methods may be GET, HEAD, or POST. If the method is not one of these,
// then an error is returned that will make StatusCode return
// http.StatusMethodNotAllowed. POST bodies may be application/json (a single
// request object or an array of them), application/graphql, or
// application/x-www-form-urlencoded. If supportsUploads is true, then
// multipart/form-data bodies are accepted as well.
func Parse(r *http.Request, supportsUploads bool) (*Batch, error) {
	return parse(r.Method, r, supportsUploads)
}

func parse(method string, r *http.Request, supportsUploads bool) (*Batch, error) {
	switch method {
	case http.MethodGet, http.MethodHead:
		params, err := paramsFromValues(r.URL.Query())
		if err != nil {
			return nil, err
		}
		return &Batch{Params: []*graphql.RawParams{params}}, nil
	case http.MethodPost:
		batch, err := parseBody(r, supportsUploads)
		if err != nil {
			return nil, err
		}
		if q := r.URL.Query().Get("query"); q != "" && !batch.IsBatch && batch.Params[0].Query == "" {
			batch.Params[0].Query = q
		}
		return batch, nil
	default:
		e := badRequest(http.StatusMethodNotAllowed, nil, "parse graphql request: method %s not allowed", method)
		e.Header.Set("Allow", "GET, POST")
		return nil, e
	}
}

func parseBody(r *http.Request, supportsUploads bool) (*Batch, error) {
	rawContentType := r.Header.Get("Content-Type")
	contentType, _, err := mime.ParseMediaType(rawContentType)
	if err != nil {
		return nil, badRequest(http.StatusUnsupportedMediaType, nil, "parse graphql request: invalid content type: %s", rawContentType)
	}
	switch contentType {
	case "application/json":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, readError(err)
		}
		return decodeParams(data)
	case "application/x-www-form-urlencoded":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, readError(err)
		}
		form, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, badRequest(http.StatusBadRequest, err, "parse graphql request")
		}
		for k, v := range r.URL.Query() {
			form[k] = append(form[k], v...)
		}
		params, err := paramsFromValues(form)
		if err != nil {
			return nil, err
		}
		return &Batch{Params: []*graphql.RawParams{params}}, nil
	case "application/graphql":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, readError(err)
		}
		params, err := paramsFromValues(r.URL.Query())
		if err != nil {
			return nil, err
		}
		if len(data) > 0 {
			params.Query = string(data)
		}
		return &Batch{Params: []*graphql.RawParams{params}}, nil
	case "multipart/form-data":
		if !supportsUploads {
			return nil, badRequest(http.StatusUnsupportedMediaType, nil, "parse graphql request: file uploads are not supported")
		}
		body := &bodyReader{r: r.Body}
		r.Body = body
		return parseMultipart(r, body)
	default:
		return nil, badRequest(http.StatusUnsupportedMediaType, nil, "parse graphql request: unrecognized content type: %s", contentType)
	}
}

// decodeParams decodes a JSON request body holding either a single request
// object or an array of them.
func decodeParams(data []byte) (*Batch, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, badRequest(http.StatusBadRequest, nil, "POST body missing.")
	}
	if data[0] != '[' {
		params := new(graphql.RawParams)
		if err := jsonDecode(data, params); err != nil {
			return nil, badRequest(http.StatusBadRequest, err, "parse graphql request")
		}
		return &Batch{Params: []*graphql.RawParams{params}}, nil
	}
	var list []*graphql.RawParams
	if err := jsonDecode(data, &list); err != nil {
		return nil, badRequest(http.StatusBadRequest, err, "parse graphql request")
	}
	if len(list) == 0 {
		return nil, badRequest(http.StatusBadRequest, nil, "parse graphql request: empty batch")
	}
	for i, params := range list {
		if params == nil {
			return nil, badRequest(http.StatusBadRequest, nil, "parse graphql request: batch element %d is null", i)
		}
	}
	return &Batch{Params: list, IsBatch: true}, nil
}

func paramsFromValues(v url.Values) (*graphql.RawParams, error) {
	params := &graphql.RawParams{
		Query:         v.Get("query"),
		OperationName: v.Get("operationName"),
	}
	if s := v.Get("variables"); s != "" {
		if err := jsonDecode([]byte(s), &params.Variables); err != nil {
			return nil, badRequest(http.StatusBadRequest, err, "parse graphql request: variables are invalid JSON")
		}
	}
	if s := v.Get("extensions"); s != "" {
		if err := jsonDecode([]byte(s), &params.Extensions); err != nil {
			return nil, badRequest(http.StatusBadRequest, err, "parse graphql request: extensions are invalid JSON")
		}
	}
	return params, nil
}

// jsonDecode decodes numbers as json.Number so that the engine can coerce
// them to the declared input type.
func jsonDecode(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return xerrors.New("unexpected data after JSON value")
	}
	return nil
}

// readError reports a failure to read the request body. It is never a
// *QueryError.
func readError(err error) error {
	return xerrors.Errorf("parse graphql request: read body: %w", err)
}

// bodyReader records the first error from reading a request body so that
// read failures can be told apart from malformed content.
type bodyReader struct {
	r   io.ReadCloser
	err error
}

func (br *bodyReader) Read(p []byte) (int, error) {
	n, err := br.r.Read(p)
	if err != nil && err != io.EOF && br.err == nil {
		br.err = err
	}
	return n, err
}

func (br *bodyReader) Close() error {
	return br.r.Close()
}
