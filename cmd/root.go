// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for panelq.
// It implements subcommands for running read-only query batches against many
// PostgreSQL datasets, managing dataset endpoints and inspecting the query log,
// using the Cobra CLI framework with pterm for terminal output.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"panelq/cli/internal/config"
	"panelq/cli/internal/errors"
	"panelq/cli/internal/logging"
)

var (
	showVersion bool
	configPath  string
	logLevel    string
	logFormat   string

	// cfg and logger are set by the root PersistentPreRunE before any subcommand runs.
	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "panelq",
	Short: "Read-only parallel SQL over many panel-survey datasets",
	Long: `panelq runs batches of read-only SELECT queries against many independently
credentialed PostgreSQL datasets in parallel. Every query is checked before it runs,
raw row dumps are capped, and results are normalized by panel-survey conventions
(weight and socio-economic segment columns).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			c.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			c.Log.Format = logFormat
		}
		cfg = c
		logger = logging.New(logging.Options{Level: c.Log.Level, Format: c.Log.Format})
		slog.SetDefault(logger)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("panelq %s (%s)\n", Version, Commit)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if kind := errors.KindOf(err); kind != "" {
			fmt.Fprint(os.Stderr, logging.FormatFailure(kind, errors.Describe(err)))
		} else {
			fmt.Fprintln(os.Stderr, logging.Mask(err.Error()))
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/panelq/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}
