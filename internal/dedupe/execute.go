package dedupe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ajitpratap0/personroster/internal/metrics"
	"github.com/ajitpratap0/personroster/internal/models"
	"github.com/ajitpratap0/personroster/internal/store"
)

// driftWarnRatio is the fraction by which the live person count may
// diverge from the count recorded in the plan before a warning is
// logged.
const driftWarnRatio = 0.10

// ExecuteOptions tunes plan execution. The zero value executes every
// pending action in one batch with no pauses and no checkpointing.
type ExecuteOptions struct {
	// BatchSize is the number of actions executed between checkpoints.
	// Zero means no batching.
	BatchSize int
	// BatchPause is slept between batches to let the store breathe.
	BatchPause time.Duration
	// Checkpoint, when set, persists the plan's current statuses. It
	// is called at batch boundaries and before returning.
	Checkpoint func(*models.DeduplicationPlan) error
}

// ExecuteReport summarizes one ExecutePlan run.
type ExecuteReport struct {
	Executed    int
	Skipped     int
	Remaining   int
	Interrupted bool
}

// ExecutePlan applies a reviewed plan's pending actions against the
// store. Each action is re-validated before execution: targets that no
// longer exist cause the action to be skipped rather than failed, so a
// plan can be resumed after a partial run. Rejected actions are never
// touched. Cancellation is observed between actions; the in-flight
// action always completes.
func (e *Engine) ExecutePlan(ctx context.Context, plan *models.DeduplicationPlan, opts ExecuteOptions) (*ExecuteReport, error) {
	if err := e.checkDrift(ctx, plan); err != nil {
		return nil, err
	}

	report := &ExecuteReport{}
	checkpoint := func() error {
		if opts.Checkpoint == nil {
			return nil
		}
		return opts.Checkpoint(plan)
	}

	pending := plan.Pending()
	report.Remaining = len(pending)
	sinceCheckpoint := 0
	for _, idx := range pending {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		action := &plan.Actions[idx]
		// The action body runs to completion even if ctx is cancelled
		// mid-flight; the poll above honors cancellation between actions.
		status, err := e.executeAction(context.WithoutCancel(ctx), action)
		if err != nil {
			e.logger.Error("action failed, skipping",
				"action", action.ID, "pass", action.Pass, "error", err)
			metrics.Inc(metrics.GroupFailures)
			status = models.ActionSkipped
		}
		action.Status = status
		report.Remaining--
		switch status {
		case models.ActionExecuted:
			report.Executed++
			metrics.Inc(metrics.ActionsExecuted)
		case models.ActionSkipped:
			report.Skipped++
			metrics.Inc(metrics.ActionsSkipped)
		}

		sinceCheckpoint++
		if opts.BatchSize > 0 && sinceCheckpoint >= opts.BatchSize {
			if err := checkpoint(); err != nil {
				return report, fmt.Errorf("checkpointing plan: %w", err)
			}
			sinceCheckpoint = 0
			if opts.BatchPause > 0 {
				select {
				case <-time.After(opts.BatchPause):
				case <-ctx.Done():
				}
			}
		}
	}

	if err := checkpoint(); err != nil {
		return report, fmt.Errorf("checkpointing plan: %w", err)
	}
	e.logger.Info("plan execution finished",
		"plan", plan.ID, "executed", report.Executed, "skipped", report.Skipped,
		"remaining", report.Remaining, "interrupted", report.Interrupted)
	return report, nil
}

// executeAction re-validates one action against the live store and
// applies it. A vanished target means a skip, not an error.
func (e *Engine) executeAction(ctx context.Context, action *models.DeduplicationAction) (models.ActionStatus, error) {
	switch action.Type {
	case models.ActionDelete:
		ids, err := e.existingIDs(ctx, action.TargetIDs)
		if err != nil {
			return models.ActionSkipped, err
		}
		if len(ids) == 0 {
			e.logger.Debug("delete targets gone, skipping", "action", action.ID)
			return models.ActionSkipped, nil
		}
		if _, err := e.DeletePersonsCascade(ctx, ids); err != nil {
			return models.ActionSkipped, err
		}
		return models.ActionExecuted, nil

	case models.ActionMerge:
		if _, err := e.store.GetPerson(ctx, action.CanonicalID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				e.logger.Debug("canonical gone, skipping", "action", action.ID, "canonical_id", action.CanonicalID)
				return models.ActionSkipped, nil
			}
			return models.ActionSkipped, err
		}
		dups, err := e.existingIDs(ctx, action.DuplicateIDs)
		if err != nil {
			return models.ActionSkipped, err
		}
		if len(dups) == 0 {
			e.logger.Debug("duplicates gone, skipping", "action", action.ID)
			return models.ActionSkipped, nil
		}
		if err := e.MergePersonGroup(ctx, action.CanonicalID, dups, action.MergedNames); err != nil {
			return models.ActionSkipped, err
		}
		return models.ActionExecuted, nil

	default:
		return models.ActionSkipped, fmt.Errorf("unknown action type %q", action.Type)
	}
}

func (e *Engine) existingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		if _, err := e.store.GetPerson(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("checking person %d: %w", id, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func (e *Engine) checkDrift(ctx context.Context, plan *models.DeduplicationPlan) error {
	count, err := e.store.CountPersons(ctx)
	if err != nil {
		return fmt.Errorf("counting persons: %w", err)
	}
	if plan.PersonCountBefore <= 0 {
		return nil
	}
	drift := float64(count-plan.PersonCountBefore) / float64(plan.PersonCountBefore)
	if drift < 0 {
		drift = -drift
	}
	if drift > driftWarnRatio {
		e.logger.Warn("store has drifted since the plan was created",
			"plan_count", plan.PersonCountBefore, "live_count", count)
	}
	return nil
}
