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

// graphql-echo serves a mocked GraphQL schema over HTTP with echo.
package main

import (
	_ "embed"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
	"zombiezen.com/go/graphql-echo/internal/config"
)

//go:embed schema.graphql
var defaultSchema string

var cmd = &cobra.Command{
	Use:          "graphql-echo [flags]",
	Short:        "graphql-echo serves a mocked GraphQL schema over HTTP",
	Args:         cobra.NoArgs,
	RunE:         run,
	Version:      versioninfo.Short(),
	SilenceUsage: true,
}

var flags struct {
	config  string
	envFile string
	address string
	port    int
	schema  string
	debug   bool
	noColor bool
}

func init() {
	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "YAML config file (default ./"+config.DefaultConfigFile+" if present)")
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "file of environment variables to load (default ./.env if present)")
	cmd.Flags().StringVar(&flags.address, "address", "", "HTTP address to listen on")
	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "HTTP port to listen on")
	cmd.Flags().StringVar(&flags.schema, "schema", "", "GraphQL SDL file to mock (default built-in schema)")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "log at debug level and include panic details in errors")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored log output")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flags.config, flags.envFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return xerrors.Errorf("config validation: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	sdl := defaultSchema
	if cfg.GraphQL.Schema != "" {
		data, err := os.ReadFile(cfg.GraphQL.Schema)
		if err != nil {
			return xerrors.Errorf("read schema: %w", err)
		}
		sdl = string(data)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	e, err := newServer(cfg, sdl, reg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return serve(ctx, e, cfg, logger)
}

// applyFlags overrides loaded configuration with flags given on the command
// line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("address") {
		cfg.Server.Address = flags.address
	}
	if f.Changed("port") {
		cfg.Server.Port = flags.port
	}
	if f.Changed("schema") {
		cfg.GraphQL.Schema = flags.schema
	}
	if flags.debug {
		cfg.GraphQL.Debug = true
		cfg.Log.Level = "debug"
	}
	if flags.noColor {
		cfg.Log.Color = false
	}
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	logOpts := new(tint.Options)
	logOpts.Level = level
	logOpts.AddSource = level <= slog.LevelDebug
	logOpts.NoColor = !cfg.Log.Color || !isatty.IsTerminal(os.Stdout.Fd())
	logOpts.TimeFormat = "[15:04:05.000]"
	return slog.New(tint.NewHandler(os.Stdout, logOpts)), nil
}

func main() {
	cobra.CheckErr(cmd.Execute())
}
