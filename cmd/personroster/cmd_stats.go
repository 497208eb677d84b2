package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show roster statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("stats: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: fetching statistics: %w", err)
			}

			fmt.Printf("Persons:         %d\n", stats.Persons)
			fmt.Printf("Document links:  %d\n", stats.DocumentLinks)
			fmt.Printf("Connections:     %d\n", stats.Connections)
			fmt.Printf("Timeline events: %d\n", stats.TimelineEvents)

			if len(stats.ByStatus) > 0 {
				fmt.Println("\nBy status:")
				statuses := make([]string, 0, len(stats.ByStatus))
				for s := range stats.ByStatus {
					statuses = append(statuses, s)
				}
				sort.Strings(statuses)
				for _, s := range statuses {
					fmt.Printf("  %-12s %d\n", s, stats.ByStatus[s])
				}
			}

			return nil
		},
	}
}
