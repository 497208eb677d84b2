package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/personroster/internal/dedupe"
	"github.com/ajitpratap0/personroster/internal/models"
	"github.com/ajitpratap0/personroster/internal/plan"
)

func executePlanCmd() *cobra.Command {
	var (
		batchSize  int
		batchPause time.Duration
	)

	cmd := &cobra.Command{
		Use:   "execute-plan <plan-file>",
		Short: "Execute the pending actions of a reviewed plan",
		Long: `Load a plan written by dry-run and execute its pending actions.
Actions marked rejected are left alone. Each action is re-validated
against the live store first, so a plan can be resumed after an
interrupted run: work already done is skipped, not repeated. The plan
file is rewritten with updated statuses as execution progresses.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			planPath := args[0]

			p, err := plan.Load(planPath)
			if err != nil {
				return fmt.Errorf("execute-plan: %w", err)
			}
			pending := len(p.Pending())
			if pending == 0 {
				fmt.Println("Nothing to do: plan has no pending actions.")
				return nil
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("execute-plan: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			eng, err := newEngine(st, logger)
			if err != nil {
				return fmt.Errorf("execute-plan: %w", err)
			}

			batchSize, batchPause = resolveBatchOptions(batchSize, batchPause)
			opts := dedupe.ExecuteOptions{
				BatchSize:  batchSize,
				BatchPause: batchPause,
				Checkpoint: func(cp *models.DeduplicationPlan) error {
					return plan.Save(planPath, cp)
				},
			}

			fmt.Printf("Executing %d pending actions from plan %s\n", pending, p.ID)
			report, err := eng.ExecutePlan(ctx, p, opts)
			if err != nil {
				return fmt.Errorf("execute-plan: %w", err)
			}

			fmt.Printf("Executed %d, skipped %d, remaining %d\n",
				report.Executed, report.Skipped, report.Remaining)
			if report.Interrupted {
				fmt.Println("Interrupted: progress saved, re-run execute-plan to resume.")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch", 0, "actions per checkpoint batch (default from config)")
	cmd.Flags().DurationVar(&batchPause, "pause", 0, "pause between batches, e.g. 200ms (default from config)")
	return cmd
}

// resolveBatchOptions fills unset batch flags from the loaded config.
func resolveBatchOptions(batchSize int, batchPause time.Duration) (int, time.Duration) {
	if batchSize <= 0 {
		batchSize = cfg.Dedupe.BatchSize
	}
	if batchPause <= 0 {
		batchPause = cfg.Dedupe.BatchPause
	}
	return batchSize, batchPause
}
