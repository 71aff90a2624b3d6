// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest raw incident payloads from files",
		Long:  "Ingest one or more raw incident payload files. Each file holds a single JSON incident or a JSON array of incidents. Use - to read from stdin.",
		Args:  cobra.MinimumNArgs(1),
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

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)

			for _, path := range args {
				payloads, err := readPayloads(cmd.InOrStdin(), path)
				if err != nil {
					return err
				}

				for _, payload := range payloads {
					res, err := app.Engine.Ingest(cmd.Context(), payload)
					if err != nil {
						return llerr.Wrapf(err, llerr.CodeCLIInputInvalid, "ingesting from %s", path)
					}
					if err := enc.Encode(res); err != nil {
						return err
					}
				}
			}

			return nil
		},
	}
}

// readPayloads loads a file (or stdin for "-") as either one JSON incident
// or a JSON array of incidents.
func readPayloads(stdin io.Reader, path string) ([]json.RawMessage, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, llerr.Errorf(llerr.CodeCLIInputInvalid, "reading %s: %w", path, err)
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(raw, &batch); err == nil {
		return batch, nil
	}

	var single json.RawMessage
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, llerr.Errorf(llerr.CodeCLIInputInvalid, "%s is not valid JSON: %w", path, err)
	}
	return []json.RawMessage{single}, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
