// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loglens-dev/loglens/internal/config"
	"github.com/loglens-dev/loglens/internal/secrets"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// NewRootCmd creates the root loglens command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "loglens",
		Short:         "LogLens — operational error report deduplication",
		Long:          "LogLens deduplicates operational error reports from integration platforms using content fingerprints, vector similarity, and a typed relationship graph.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newSearchCmd(),
		newInsightsCmd(),
		newVersionCmd(),
	)

	return root
}

func setupLogging(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig builds the effective configuration for a command: defaults,
// env overrides, an explicit or discovered config file, and keyring secret
// resolution, in the standard precedence (env > file > defaults).
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.NewViper()

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, llerr.Errorf(llerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// Auto-discover loglens.yaml from standard locations. No config
		// file is fine; parse or permission errors must surface.
		v.SetConfigName("loglens")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/loglens")
		v.AddConfigPath("/etc/loglens")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, llerr.Errorf(llerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	if err := secrets.ResolveViperSecrets(v, secrets.NewKeyringStore()); err != nil {
		return nil, err
	}

	return config.FromViper(v)
}
