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
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file looked for in the working directory.
const DefaultConfigFile = "graphql-echo.yaml"

// envPrefix is the prefix of every environment variable read by Load,
// except PORT.
const envPrefix = "GRAPHQL_ECHO_"

// Load loads configuration from the layered sources. configPath and envFile
// may be empty, in which case they are discovered.
func Load(configPath, envFile string) (*Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, xerrors.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, xerrors.Errorf("load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. GRAPHQL_ECHO_CONFIG environment variable
// 3. ./graphql-echo.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(envPrefix + "CONFIG"); envPath != "" {
		return envPath
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// loadYAMLFile reads a YAML file into cfg. Fields not present in the file
// retain their current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadEnvFile sets variables from a .env file without overriding ones that
// are already set. An explicit file must exist; the default ./.env is
// optional.
func loadEnvFile(path string) error {
	if path == "" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return xerrors.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return xerrors.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	str := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v := os.Getenv(envPrefix + name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, xerrors.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, xerrors.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v := os.Getenv(envPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, xerrors.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("ADDRESS", &cfg.Server.Address)
	integer("PORT", &cfg.Server.Port)
	integer(envPrefix+"PORT", &cfg.Server.Port)
	duration("REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	duration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	str("BODY_LIMIT", &cfg.Server.BodyLimit)
	if v := os.Getenv(envPrefix + "CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}

	str("SCHEMA", &cfg.GraphQL.Schema)
	str("PATH", &cfg.GraphQL.Path)
	str("SUBSCRIPTIONS_PATH", &cfg.GraphQL.SubscriptionsPath)
	boolean("PLAYGROUND", &cfg.GraphQL.Playground)
	boolean("INTROSPECTION", &cfg.GraphQL.Introspection)
	boolean("SUBSCRIPTIONS", &cfg.GraphQL.Subscriptions)
	boolean("UPLOADS", &cfg.GraphQL.Uploads)
	boolean("DEBUG", &cfg.GraphQL.Debug)
	integer(envPrefix+"QUERY_CACHE_SIZE", &cfg.GraphQL.QueryCacheSize)
	integer(envPrefix+"COMPLEXITY_LIMIT", &cfg.GraphQL.ComplexityLimit)
	boolean("HEALTH_CHECK", &cfg.GraphQL.HealthCheck)

	str("LOG_LEVEL", &cfg.Log.Level)
	boolean("LOG_COLOR", &cfg.Log.Color)

	boolean("METRICS", &cfg.Metrics.Enabled)
	str("METRICS_PATH", &cfg.Metrics.Path)

	return errors.Join(errs...)
}
