package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/personroster/internal/models"
)

// rosterSnapshot is the on-disk interchange format shared by the
// import and export commands.
type rosterSnapshot struct {
	Persons         []models.Person         `json:"persons"`
	PersonDocuments []models.PersonDocument `json:"person_documents,omitempty"`
	Connections     []models.Connection     `json:"connections,omitempty"`
	TimelineEvents  []models.TimelineEvent  `json:"timeline_events,omitempty"`
}

func importCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a roster snapshot from a JSON file",
		Long: `Import persons, document links, connections, and timeline events
from a snapshot produced by the export command (or by the extraction
pipeline). Person ids from the file are preserved.

Use - as the file path to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			var r io.Reader
			if filePath == "" || filePath == "-" {
				r = os.Stdin
			} else {
				f, openErr := os.Open(filePath)
				if openErr != nil {
					return fmt.Errorf("import: opening file: %w", openErr)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			var snap rosterSnapshot
			dec := json.NewDecoder(r)
			if decErr := dec.Decode(&snap); decErr != nil {
				return fmt.Errorf("import: decoding JSON: %w", decErr)
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("import: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err = st.Setup(ctx); err != nil {
				return fmt.Errorf("import: preparing store: %w", err)
			}

			var imported, skipped int
			for i := range snap.Persons {
				p := snap.Persons[i]
				if strings.TrimSpace(p.Name) == "" {
					skipped++
					continue
				}
				if p.Status == "" {
					p.Status = models.StatusNamed
				}
				if createErr := st.CreatePerson(ctx, &p); createErr != nil {
					return fmt.Errorf("import: creating person %q: %w", p.Name, createErr)
				}
				imported++
			}

			for _, link := range snap.PersonDocuments {
				if linkErr := st.AddPersonDocument(ctx, link); linkErr != nil {
					return fmt.Errorf("import: linking person %d to document %d: %w",
						link.PersonID, link.DocumentID, linkErr)
				}
			}
			for i := range snap.Connections {
				c := snap.Connections[i]
				if connErr := st.AddConnection(ctx, &c); connErr != nil {
					return fmt.Errorf("import: creating connection %d-%d: %w",
						c.PersonID1, c.PersonID2, connErr)
				}
			}
			for i := range snap.TimelineEvents {
				ev := snap.TimelineEvents[i]
				if evErr := st.AddTimelineEvent(ctx, &ev); evErr != nil {
					return fmt.Errorf("import: creating event %q: %w", ev.Title, evErr)
				}
			}

			fmt.Printf("Imported %d persons (%d skipped), %d document links, %d connections, %d events\n",
				imported, skipped, len(snap.PersonDocuments), len(snap.Connections), len(snap.TimelineEvents))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "-", "path to input file (- for stdin)")
	return cmd
}
