package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/personroster/internal/models"
)

func listCmd() *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persons in the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if status != "" && !models.PersonStatus(status).IsValid() {
				return fmt.Errorf("list: unknown status %q", status)
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("list: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			persons, err := st.ListPersons(ctx)
			if err != nil {
				return fmt.Errorf("list: fetching persons: %w", err)
			}

			rows := make([][]string, 0, len(persons))
			for _, p := range persons {
				if status != "" && string(p.Status) != status {
					continue
				}
				if limit > 0 && len(rows) >= limit {
					break
				}
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10),
					truncate(p.Name, 40),
					string(p.Status),
					truncate(strings.Join(p.Aliases, ", "), 40),
					strconv.Itoa(p.DocumentCount),
					strconv.Itoa(p.ConnectionCount),
				})
			}

			fmt.Println(renderTable(
				[]string{"ID", "Name", "Status", "Aliases", "Docs", "Conns"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			fmt.Printf("%d persons\n", len(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (named, victim, convicted, witness, charged)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum rows to print (0 = all)")
	return cmd
}
