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

package config

import (
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/xerrors"
)

// Validate checks the configuration for valid values. The returned error
// lists every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, xerrors.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port))
	}
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, xerrors.Errorf("server.request_timeout must not be negative, got %v", c.Server.RequestTimeout))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, xerrors.Errorf("server.shutdown_timeout must not be negative, got %v", c.Server.ShutdownTimeout))
	}

	for _, p := range []struct{ name, value string }{
		{"graphql.path", c.GraphQL.Path},
		{"graphql.subscriptions_path", c.GraphQL.SubscriptionsPath},
		{"metrics.path", c.Metrics.Path},
	} {
		if p.value != "" && !strings.HasPrefix(p.value, "/") {
			errs = append(errs, xerrors.Errorf("%s must start with \"/\", got %q", p.name, p.value))
		}
	}
	if c.GraphQL.Path == "" {
		errs = append(errs, xerrors.New("graphql.path is required"))
	}
	if c.GraphQL.QueryCacheSize < 0 {
		errs = append(errs, xerrors.Errorf("graphql.query_cache_size must not be negative, got %d", c.GraphQL.QueryCacheSize))
	}
	if c.GraphQL.ComplexityLimit < 0 {
		errs = append(errs, xerrors.Errorf("graphql.complexity_limit must not be negative, got %d", c.GraphQL.ComplexityLimit))
	}
	if c.GraphQL.ListLength < 0 {
		errs = append(errs, xerrors.Errorf("graphql.list_length must not be negative, got %d", c.GraphQL.ListLength))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		errs = append(errs, xerrors.New("metrics.path is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}

// SlogLevel parses the configured level.
func (c *LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, xerrors.Errorf("log.level must be \"debug\", \"info\", \"warn\" or \"error\", got %q", c.Level)
	}
	return level, nil
}
