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
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "/graphql", cfg.GraphQL.Path)
	assert.True(t, cfg.GraphQL.Playground)
	assert.True(t, cfg.GraphQL.Subscriptions)
	assert.False(t, cfg.GraphQL.Uploads)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFromYAML(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
server:
  port: 9090
  request_timeout: 5s
  cors_origins:
    - https://example.com
graphql:
  path: /api/graphql
  playground: false
  uploads: true
  complexity_limit: 50
log:
  level: debug
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/api/graphql", cfg.GraphQL.Path)
	assert.False(t, cfg.GraphQL.Playground)
	assert.True(t, cfg.GraphQL.Uploads)
	assert.Equal(t, 50, cfg.GraphQL.ComplexityLimit)
	// Unset fields keep their defaults.
	assert.True(t, cfg.GraphQL.Introspection)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	path := writeTemp(t, "env.yaml", "server:\n  port: 7070\n")
	t.Setenv("GRAPHQL_ECHO_CONFIG", path)
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	path := writeTemp(t, "config.yaml", "server:\n  port: 9090\n")
	t.Setenv("PORT", "3000")
	t.Setenv("GRAPHQL_ECHO_DEBUG", "true")
	t.Setenv("GRAPHQL_ECHO_PLAYGROUND", "false")
	t.Setenv("GRAPHQL_ECHO_REQUEST_TIMEOUT", "1m")
	t.Setenv("GRAPHQL_ECHO_CORS_ORIGINS", "https://a.example,https://b.example")
	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.GraphQL.Debug)
	assert.False(t, cfg.GraphQL.Playground)
	assert.Equal(t, time.Minute, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)

	t.Setenv("GRAPHQL_ECHO_PORT", "4000")
	cfg, err = Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port, "GRAPHQL_ECHO_PORT takes precedence over PORT")
}

func TestEnvOverridesInvalid(t *testing.T) {
	t.Setenv("GRAPHQL_ECHO_DEBUG", "maybe")
	t.Setenv("GRAPHQL_ECHO_QUERY_CACHE_SIZE", "lots")
	_, err := Load(writeTemp(t, "config.yaml", ""), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRAPHQL_ECHO_DEBUG")
	assert.Contains(t, err.Error(), "GRAPHQL_ECHO_QUERY_CACHE_SIZE")
}

func TestLoadEnvFile(t *testing.T) {
	const key = "GRAPHQL_ECHO_LOG_LEVEL"
	t.Cleanup(func() { os.Unsetenv(key) })
	envFile := writeTemp(t, "test.env", key+"=warn\n")
	cfg, err := Load(writeTemp(t, "config.yaml", ""), envFile)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err, "explicit .env file must exist")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "BadPort",
			modify:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "RelativePath",
			modify:  func(c *Config) { c.GraphQL.Path = "graphql" },
			wantErr: "graphql.path",
		},
		{
			name:    "EmptyPath",
			modify:  func(c *Config) { c.GraphQL.Path = "" },
			wantErr: "graphql.path is required",
		},
		{
			name:    "NegativeCache",
			modify:  func(c *Config) { c.GraphQL.QueryCacheSize = -1 },
			wantErr: "graphql.query_cache_size",
		},
		{
			name:    "BadLevel",
			modify:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log.level",
		},
		{
			name:    "MetricsWithoutPath",
			modify:  func(c *Config) { c.Metrics.Path = "" },
			wantErr: "metrics.path",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Defaults()
			test.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.wantErr)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = -1
	cfg.Log.Level = "loud"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "log.level")
}

func TestEngineOptions(t *testing.T) {
	cfg := Defaults()
	cfg.GraphQL.Uploads = true
	cfg.GraphQL.ComplexityLimit = 10
	opts := cfg.GraphQL.EngineOptions()
	assert.True(t, opts.SupportsUploads)
	assert.True(t, opts.SupportsSubscriptions)
	assert.True(t, opts.Introspection)
	assert.Equal(t, "/graphql", opts.GraphQLPath)
	assert.Equal(t, 1000, opts.QueryCacheSize)
	assert.Equal(t, 10, opts.ComplexityLimit)
	assert.NotNil(t, opts.Playground)

	cfg.GraphQL.Playground = false
	assert.Nil(t, cfg.GraphQL.EngineOptions().Playground)
}
