// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/loglens-dev/loglens/internal/engine"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <file>",
		Short: "Find and classify incidents similar to a payload",
		Long:  "Search the ingested corpus for incidents similar to the payload in the given file. Use - to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			topN, _ := cmd.Flags().GetInt("top-n")

			payloads, err := readPayloads(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if len(payloads) != 1 {
				return llerr.Errorf(llerr.CodeCLIInputInvalid, "search expects a single incident payload, got %d", len(payloads))
			}

			app, err := WireApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			resp, err := app.Engine.Search(cmd.Context(), engine.SearchRequest{
				RawPayload: payloads[0],
				TopN:       topN,
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().IntP("top-n", "n", 0, "number of candidates to return (default from config)")
	return cmd
}
