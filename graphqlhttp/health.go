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
	"net/http"

	"golang.org/x/xerrors"
)

// Health check endpoint constants.
const (
	HealthCheckURL    = "/.well-known/apollo/server-health"
	HealthContentType = "application/health+json"
)

// OnHealthCheck reports whether the server is healthy. A non-nil error means
// the server is unhealthy.
type OnHealthCheck func(r *http.Request) error

// Health is the outcome of a health check.
type Health struct {
	// StatusCode is http.StatusOK or http.StatusServiceUnavailable.
	StatusCode int
	// Body is the application/health+json document.
	Body []byte
	// Err is the reason the check failed, if it did.
	Err error
}

var (
	healthPass = []byte(`{"status":"pass"}`)
	healthFail = []byte(`{"status":"fail"}`)
)

// CheckHealth runs check once. A nil check always passes. A check that returns
// an error or panics fails.
func CheckHealth(r *http.Request, check OnHealthCheck) *Health {
	if check == nil {
		return &Health{StatusCode: http.StatusOK, Body: healthPass}
	}
	if err := runHealthCheck(r, check); err != nil {
		return &Health{StatusCode: http.StatusServiceUnavailable, Body: healthFail, Err: err}
	}
	return &Health{StatusCode: http.StatusOK, Body: healthPass}
}

func runHealthCheck(r *http.Request, check OnHealthCheck) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = xerrors.Errorf("health check panicked: %v", v)
		}
	}()
	return check(r)
}
