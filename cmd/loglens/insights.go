// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package main

import (
	"github.com/spf13/cobra"
)

func newInsightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights <ticket-ref>",
		Short: "Show graph insights for a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			app, err := WireApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			ins, err := app.Engine.Insights(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), ins)
		},
	}
}
