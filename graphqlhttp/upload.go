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
	"net/http"
	"strconv"
	"strings"

	"github.com/99designs/gqlgen/graphql"
	"golang.org/x/xerrors"
)

// maxUploadMemory is the number of bytes of a multipart body held in memory
// before spilling files to disk.
const maxUploadMemory = 32 << 20

// parseMultipart parses a request following the GraphQL multipart request
// convention: an "operations" field holding the JSON request(s), a "map" field
// from file field names to variable paths, and the files themselves.
func parseMultipart(r *http.Request, body *bodyReader) (*Batch, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		if body.err != nil {
			return nil, readError(body.err)
		}
		return nil, badRequest(http.StatusBadRequest, err, "parse graphql request")
	}
	operations := r.MultipartForm.Value["operations"]
	if len(operations) == 0 {
		return nil, badRequest(http.StatusBadRequest, nil, "parse graphql request: missing operations field")
	}
	batch, err := decodeParams([]byte(operations[0]))
	if err != nil {
		return nil, err
	}
	var mapping map[string][]string
	if m := r.MultipartForm.Value["map"]; len(m) > 0 {
		if err := json.Unmarshal([]byte(m[0]), &mapping); err != nil {
			return nil, badRequest(http.StatusBadRequest, err, "parse graphql request: invalid map field")
		}
	}
	for key, paths := range mapping {
		files := r.MultipartForm.File[key]
		if len(files) == 0 {
			batch.Close()
			return nil, badRequest(http.StatusBadRequest, nil, "parse graphql request: missing file %q", key)
		}
		fh := files[0]
		f, err := fh.Open()
		if err != nil {
			batch.Close()
			return nil, badRequest(http.StatusBadRequest, err, "parse graphql request: open file %q", key)
		}
		batch.closers = append(batch.closers, f)
		upload := graphql.Upload{
			File:        f,
			Filename:    fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
		}
		for _, path := range paths {
			if err := batch.setUpload(path, upload); err != nil {
				batch.Close()
				return nil, badRequest(http.StatusBadRequest, err, "parse graphql request: map %q", key)
			}
		}
	}
	return batch, nil
}

// setUpload places upload at a path like "variables.file" or, for batches,
// "0.variables.files.1".
func (b *Batch) setUpload(path string, upload graphql.Upload) error {
	parts := strings.Split(path, ".")
	params := b.Params[0]
	if b.IsBatch {
		i, err := strconv.Atoi(parts[0])
		if err != nil || i < 0 || i >= len(b.Params) {
			return xerrors.Errorf("invalid operation index in path %q", path)
		}
		params = b.Params[i]
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[0] != "variables" {
		return xerrors.Errorf("path %q does not refer to a variable", path)
	}
	if params.Variables == nil {
		return xerrors.Errorf("path %q: operation has no variables", path)
	}
	return setPath(params.Variables, parts[1:], upload)
}

func setPath(vars map[string]interface{}, parts []string, v interface{}) error {
	var curr interface{} = vars
	for i, part := range parts {
		last := i == len(parts)-1
		switch c := curr.(type) {
		case map[string]interface{}:
			if last {
				c[part] = v
				return nil
			}
			curr = c[part]
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(c) {
				return xerrors.Errorf("invalid list index %q", part)
			}
			if last {
				c[idx] = v
				return nil
			}
			curr = c[idx]
		default:
			return xerrors.Errorf("cannot descend into %q", part)
		}
	}
	return nil
}
