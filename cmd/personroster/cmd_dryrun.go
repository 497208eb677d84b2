package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/personroster/internal/models"
	"github.com/ajitpratap0/personroster/internal/plan"
)

func dryRunCmd() *cobra.Command {
	var (
		output  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "dry-run",
		Short: "Analyze the roster and write a cleanup plan without touching data",
		Long: `Run every cleanup pass against the current roster and record the
proposed deletions and merges as a plan file. Nothing is modified; the
plan can be reviewed, edited, and later executed with execute-plan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("dry-run: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			eng, err := newEngine(st, logger)
			if err != nil {
				return fmt.Errorf("dry-run: %w", err)
			}

			p, err := eng.DryRun(ctx)
			if err != nil {
				return fmt.Errorf("dry-run: %w", err)
			}

			if output == "" {
				output = cfg.Dedupe.PlanPath
			}
			if err := plan.Save(output, p); err != nil {
				return fmt.Errorf("dry-run: saving plan: %w", err)
			}

			fmt.Printf("Plan %s: %d proposed actions across %d persons\n\n",
				p.ID, p.Summary.TotalActions, p.PersonCountBefore)
			printPlanSummary(p)
			if verbose {
				fmt.Println()
				printPlanActions(p)
			}
			fmt.Printf("\nPlan written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "plan file path (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every proposed action")
	return cmd
}

func printPlanSummary(p *models.DeduplicationPlan) {
	passes := make([]int, 0, len(p.Summary.ByPass))
	for pass := range p.Summary.ByPass {
		passes = append(passes, pass)
	}
	sort.Ints(passes)

	rows := make([][]string, 0, len(passes))
	for _, pass := range passes {
		s := p.Summary.ByPass[pass]
		rows = append(rows, []string{
			strconv.Itoa(pass), s.Label, string(s.Type), strconv.Itoa(s.Count),
		})
	}
	fmt.Println(renderTable(
		[]string{"Pass", "Description", "Type", "Actions"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	))
}

func printPlanActions(p *models.DeduplicationPlan) {
	rows := make([][]string, 0, len(p.Actions))
	for _, a := range p.Actions {
		var detail string
		switch a.Type {
		case models.ActionMerge:
			detail = fmt.Sprintf("%s <- %d duplicates", a.CanonicalName, len(a.DuplicateIDs))
		case models.ActionDelete:
			if len(a.TargetNames) == 1 {
				detail = a.TargetNames[0]
			} else {
				detail = fmt.Sprintf("%d persons", len(a.TargetIDs))
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(a.Pass), string(a.Type), truncate(detail, 48), truncate(a.Reason, 40), string(a.Status),
		})
	}
	fmt.Println(renderTable(
		[]string{"Pass", "Type", "Target", "Reason", "Status"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}
