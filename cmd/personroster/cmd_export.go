package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the roster as a JSON snapshot",
		Long: `Write every person, document link, connection, and timeline event
to a single JSON snapshot that import can read back.

Use - as the file path to write to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("export: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			var snap rosterSnapshot
			if snap.Persons, err = st.ListPersons(ctx); err != nil {
				return fmt.Errorf("export: listing persons: %w", err)
			}
			if snap.PersonDocuments, err = st.ListPersonDocuments(ctx); err != nil {
				return fmt.Errorf("export: listing document links: %w", err)
			}
			if snap.Connections, err = st.ListConnections(ctx); err != nil {
				return fmt.Errorf("export: listing connections: %w", err)
			}
			if snap.TimelineEvents, err = st.ListTimelineEvents(ctx); err != nil {
				return fmt.Errorf("export: listing events: %w", err)
			}

			var w io.Writer
			if filePath == "" || filePath == "-" {
				w = os.Stdout
			} else {
				f, createErr := os.Create(filePath)
				if createErr != nil {
					return fmt.Errorf("export: creating file: %w", createErr)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				return fmt.Errorf("export: encoding snapshot: %w", err)
			}

			if filePath != "" && filePath != "-" {
				fmt.Fprintf(os.Stderr, "Exported %d persons to %s\n", len(snap.Persons), filePath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "-", "path to output file (- for stdout)")
	return cmd
}
