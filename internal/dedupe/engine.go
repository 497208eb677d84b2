// Package dedupe resolves noisy extracted person entities into a clean
// deduplicated roster. Seven ordered passes propose deletions and
// merges; a coordinator runs them against a read-once snapshot in
// dry-run mode (emitting a persistable plan), apply mode (mutating the
// store directly), or execute-plan mode (re-validating and applying a
// previously persisted plan).
package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/personroster/internal/classifier"
	"github.com/ajitpratap0/personroster/internal/metrics"
	"github.com/ajitpratap0/personroster/internal/models"
	"github.com/ajitpratap0/personroster/internal/rules"
	"github.com/ajitpratap0/personroster/internal/store"
)

// Engine orchestrates the deduplication passes against a store.
// Execution is strictly sequential; nothing here is concurrency-safe.
type Engine struct {
	store  store.Store
	rules  *rules.Ruleset
	junk   *classifier.JunkClassifier
	logger *slog.Logger
}

// New creates a deduplication engine.
func New(st store.Store, rs *rules.Ruleset, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		rules:  rs,
		junk:   classifier.NewJunkClassifier(logger),
		logger: logger,
	}
}

// snapshot is the read-once view of the store taken at the start of a
// run. Passes never re-read the store; they consult the working state
// derived from this snapshot.
type snapshot struct {
	persons []models.Person
	links   []models.PersonDocument
	conns   []models.Connection
	events  []models.TimelineEvent
}

func (e *Engine) loadSnapshot(ctx context.Context) (*snapshot, error) {
	persons, err := e.store.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading persons: %w", err)
	}
	links, err := e.store.ListPersonDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading person documents: %w", err)
	}
	conns, err := e.store.ListConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading connections: %w", err)
	}
	events, err := e.store.ListTimelineEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading timeline events: %w", err)
	}
	e.logger.Info("snapshot loaded",
		"persons", len(persons), "links", len(links),
		"connections", len(conns), "events", len(events))
	return &snapshot{persons: persons, links: links, conns: conns, events: events}, nil
}

// runState tracks the cumulative effect of proposals within a run so
// later passes see earlier merges and deletions without re-reading the
// store.
type runState struct {
	persons map[int64]*models.Person
}

func newRunState(persons []models.Person) *runState {
	st := &runState{persons: make(map[int64]*models.Person, len(persons))}
	for i := range persons {
		p := persons[i]
		st.persons[p.ID] = &p
	}
	return st
}

// live returns copies of the surviving persons, ascending by id.
func (s *runState) live() []models.Person {
	out := make([]models.Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, *p)
	}
	sortByID(out)
	return out
}

func (s *runState) alive(id int64) bool {
	_, ok := s.persons[id]
	return ok
}

func (s *runState) remove(ids []int64) {
	for _, id := range ids {
		delete(s.persons, id)
	}
}

// absorb applies a proposed merge to the working state: the canonical
// gains the merged names as aliases and the duplicates disappear.
func (s *runState) absorb(canonicalID int64, duplicateIDs []int64, names []string) {
	if canonical, ok := s.persons[canonicalID]; ok {
		canonical.Aliases = mergeAliases(canonical, names)
	}
	s.remove(duplicateIDs)
}

// actionSink receives each proposed action. Dry-run appends to a plan;
// apply executes immediately.
type actionSink func(ctx context.Context, action models.DeduplicationAction) error

// fold applies a proposal's effect to the working state.
func (s *runState) fold(action models.DeduplicationAction) {
	switch action.Type {
	case models.ActionDelete:
		s.remove(action.TargetIDs)
	case models.ActionMerge:
		s.absorb(action.CanonicalID, action.DuplicateIDs, action.MergedNames)
	}
}

// passTypes records the dominant action type of each pass for plan
// summaries. Pass 4 also deletes junk variants but is merge-led.
var passTypes = map[int]models.ActionType{
	0: models.ActionDelete,
	1: models.ActionMerge,
	2: models.ActionMerge,
	3: models.ActionDelete,
	4: models.ActionMerge,
	5: models.ActionMerge,
	6: models.ActionMerge,
}

// DryRun runs all passes without mutating the store and returns the
// resulting plan.
func (e *Engine) DryRun(ctx context.Context) (*models.DeduplicationPlan, error) {
	snap, err := e.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	state := newRunState(snap.persons)
	ix := NewEvidenceIndex(snap.links, snap.conns)

	plan := &models.DeduplicationPlan{
		ID:                uuid.NewString(),
		CreatedAt:         time.Now().UTC(),
		PersonCountBefore: int64(len(snap.persons)),
	}
	sink := func(_ context.Context, action models.DeduplicationAction) error {
		action.ID = len(plan.Actions) + 1
		action.Status = models.ActionPending
		plan.Actions = append(plan.Actions, action)
		state.fold(action)
		return nil
	}

	if err := e.runPasses(ctx, state, ix, sink); err != nil {
		return nil, err
	}
	plan.Summary = summarize(plan.Actions)
	e.logger.Info("dry run complete", "actions", plan.Summary.TotalActions, "plan_id", plan.ID)
	return plan, nil
}

// ApplyReport summarizes a mutating run.
type ApplyReport struct {
	ByPass        map[int]int `json:"by_pass"`
	Merges        int         `json:"merges"`
	Deletes       int         `json:"deletes"`
	Failures      int         `json:"failures"`
	PersonsBefore int64       `json:"persons_before"`
	PersonsAfter  int64       `json:"persons_after"`
}

// Apply runs all passes, mutating the store directly. Per-group
// failures are logged and skipped; they never abort the run.
func (e *Engine) Apply(ctx context.Context) (*ApplyReport, error) {
	snap, err := e.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	state := newRunState(snap.persons)
	ix := NewEvidenceIndex(snap.links, snap.conns)

	report := &ApplyReport{
		ByPass:        make(map[int]int),
		PersonsBefore: int64(len(snap.persons)),
	}
	sink := func(ctx context.Context, action models.DeduplicationAction) error {
		// Store mutations for an accepted action run to completion even
		// if ctx is cancelled mid-flight; runPasses honors cancellation
		// between actions.
		actionCtx := context.WithoutCancel(ctx)
		var execErr error
		switch action.Type {
		case models.ActionDelete:
			_, execErr = e.DeletePersonsCascade(actionCtx, action.TargetIDs)
		case models.ActionMerge:
			execErr = e.MergePersonGroup(actionCtx, action.CanonicalID, action.DuplicateIDs, action.MergedNames)
		}
		if execErr != nil {
			e.logger.Error("action failed, skipping group",
				"pass", action.Pass, "type", action.Type, "reason", action.Reason, "error", execErr)
			report.Failures++
			metrics.Inc(metrics.GroupFailures)
			return nil
		}
		switch action.Type {
		case models.ActionDelete:
			report.Deletes++
		case models.ActionMerge:
			report.Merges++
		}
		report.ByPass[action.Pass]++
		state.fold(action)
		return nil
	}

	if err := e.runPasses(ctx, state, ix, sink); err != nil {
		return nil, err
	}

	after, err := e.store.CountPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting persons after run: %w", err)
	}
	report.PersonsAfter = after
	e.logger.Info("apply complete",
		"merges", report.Merges, "deletes", report.Deletes, "failures", report.Failures,
		"persons_before", report.PersonsBefore, "persons_after", report.PersonsAfter)
	return report, nil
}

func summarize(actions []models.DeduplicationAction) models.PlanSummary {
	summary := models.PlanSummary{
		TotalActions: len(actions),
		ByPass:       make(map[int]models.PassSummary),
	}
	for _, action := range actions {
		ps := summary.ByPass[action.Pass]
		ps.Count++
		ps.Type = passTypes[action.Pass]
		ps.Label = models.PassLabels[action.Pass]
		summary.ByPass[action.Pass] = ps
	}
	return summary
}
