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

// Package config loads the configuration of the graphql-echo server.
//
// Configuration is layered:
//  1. Built-in defaults
//  2. YAML config file (explicit path, GRAPHQL_ECHO_CONFIG, ./graphql-echo.yaml)
//  3. .env file (never overrides variables already set)
//  4. Environment variable overrides (GRAPHQL_ECHO_ prefix, plus PORT)
//  5. Validation
package config

import (
	"time"

	"zombiezen.com/go/graphql-echo/graphqlhttp"
)

// Config holds all configuration for the server.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	GraphQL GraphQLConfig `yaml:"graphql"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string        `yaml:"address"`          // default: "localhost"
	Port            int           `yaml:"port"`             // default: 8080
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
	BodyLimit       string        `yaml:"body_limit"`       // default: "2M"
	CORSOrigins     []string      `yaml:"cors_origins"`     // empty disables CORS
}

// GraphQLConfig holds the GraphQL engine settings.
type GraphQLConfig struct {
	Schema            string `yaml:"schema"`             // SDL file; empty uses the built-in schema
	Path              string `yaml:"path"`               // default: "/graphql"
	SubscriptionsPath string `yaml:"subscriptions_path"` // default: same as path
	Playground        bool   `yaml:"playground"`         // default: true
	Introspection     bool   `yaml:"introspection"`      // default: true
	Subscriptions     bool   `yaml:"subscriptions"`      // default: true
	Uploads           bool   `yaml:"uploads"`            // default: false
	Debug             bool   `yaml:"debug"`              // default: false
	QueryCacheSize    int    `yaml:"query_cache_size"`   // default: 1000
	ComplexityLimit   int    `yaml:"complexity_limit"`   // default: 0 (no limit)
	HealthCheck       bool   `yaml:"health_check"`       // default: true
	ListLength        int    `yaml:"list_length"`        // mocked list length, default: 2
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn" or "error", default: "info"
	Color bool   `yaml:"color"` // default: true, ignored when stdout is not a terminal
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Address:         "localhost",
			Port:            8080,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       "2M",
		},
		GraphQL: GraphQLConfig{
			Path:           graphqlhttp.DefaultPath,
			Playground:     true,
			Introspection:  true,
			Subscriptions:  true,
			QueryCacheSize: 1000,
			HealthCheck:    true,
			ListLength:     2,
		},
		Log: LogConfig{
			Level: "info",
			Color: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// EngineOptions returns the engine options the GraphQL section describes.
func (c *GraphQLConfig) EngineOptions() *graphqlhttp.Options {
	opts := &graphqlhttp.Options{
		SupportsUploads:       c.Uploads,
		SupportsSubscriptions: c.Subscriptions,
		Introspection:         c.Introspection,
		Debug:                 c.Debug,
		GraphQLPath:           c.Path,
		SubscriptionsPath:     c.SubscriptionsPath,
		QueryCacheSize:        c.QueryCacheSize,
		ComplexityLimit:       c.ComplexityLimit,
	}
	if c.Playground {
		opts.Playground = new(graphqlhttp.PlaygroundConfig)
	}
	return opts
}
