package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func applyCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run every cleanup pass and apply the results immediately",
		Long: `Analyze the roster and apply every proposed deletion and merge in
one shot, without the plan review step. Individual failures are logged
and skipped so one bad group does not abort the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("apply: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			eng, err := newEngine(st, logger)
			if err != nil {
				return fmt.Errorf("apply: %w", err)
			}

			if !yes {
				count, countErr := st.CountPersons(ctx)
				if countErr != nil {
					return fmt.Errorf("apply: counting persons: %w", countErr)
				}
				fmt.Printf("This will modify the roster (%d persons) in place. Continue? [y/N] ", count)
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			report, err := eng.Apply(ctx)
			if err != nil {
				return fmt.Errorf("apply: %w", err)
			}

			fmt.Printf("Applied %d merges and %d deletions (%d failures)\n",
				report.Merges, report.Deletes, report.Failures)
			fmt.Printf("Persons: %d -> %d\n", report.PersonsBefore, report.PersonsAfter)

			passes := make([]int, 0, len(report.ByPass))
			for pass := range report.ByPass {
				passes = append(passes, pass)
			}
			sort.Ints(passes)
			for _, pass := range passes {
				fmt.Printf("  pass %d: %d actions\n", pass, report.ByPass[pass])
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
