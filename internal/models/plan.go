package models

import "time"

// ActionType distinguishes the two kinds of deduplication action.
type ActionType string

const (
	ActionDelete ActionType = "delete"
	ActionMerge  ActionType = "merge"
)

// ActionStatus tracks an action through the execute-plan state machine.
// Rejected is reserved for human review of a persisted plan; the engine
// never sets it.
type ActionStatus string

const (
	ActionPending  ActionStatus = "pending"
	ActionRejected ActionStatus = "rejected"
	ActionExecuted ActionStatus = "executed"
	ActionSkipped  ActionStatus = "skipped"
)

// DeduplicationAction is one proposed change recorded by a dry run.
// Actions are appended in pass order and never removed; they form the
// audit trail of the run.
type DeduplicationAction struct {
	ID     int          `json:"id"`
	Pass   int          `json:"pass"`
	Type   ActionType   `json:"type"`
	Reason string       `json:"reason"`
	Status ActionStatus `json:"status"`

	// Delete actions.
	TargetIDs   []int64  `json:"target_ids,omitempty"`
	TargetNames []string `json:"target_names,omitempty"`

	// Merge actions.
	CanonicalID   int64    `json:"canonical_id,omitempty"`
	CanonicalName string   `json:"canonical_name,omitempty"`
	DuplicateIDs  []int64  `json:"duplicate_ids,omitempty"`
	MergedNames   []string `json:"merged_names,omitempty"`

	Evidence string `json:"evidence,omitempty"`
}

// PassSummary counts the actions one pass produced.
type PassSummary struct {
	Count int        `json:"count"`
	Type  ActionType `json:"type"`
	Label string     `json:"label"`
}

// PlanSummary aggregates a plan's actions by pass.
type PlanSummary struct {
	TotalActions int                 `json:"total_actions"`
	ByPass       map[int]PassSummary `json:"by_pass"`
}

// DeduplicationPlan is the persisted output of a dry run, consumed and
// mutated in place by execute-plan.
type DeduplicationPlan struct {
	ID                string                `json:"id"`
	CreatedAt         time.Time             `json:"created_at"`
	PersonCountBefore int64                 `json:"person_count_before"`
	Summary           PlanSummary           `json:"summary"`
	Actions           []DeduplicationAction `json:"actions"`
}

// Pending returns the indices of actions still awaiting execution, in
// original order.
func (p *DeduplicationPlan) Pending() []int {
	var idx []int
	for i := range p.Actions {
		if p.Actions[i].Status == ActionPending {
			idx = append(idx, i)
		}
	}
	return idx
}

// PassLabels names the seven pipeline passes for reporting.
var PassLabels = map[int]string{
	0: "junk removal",
	1: "exact normalized match",
	2: "single-word evidence merge",
	3: "delete remaining single-word",
	4: "key figure variants",
	5: "middle-initial variant merge",
	6: "ocr/nickname merge",
}
