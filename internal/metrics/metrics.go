// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when net/http/pprof is imported in the main binary.
package metrics

import "expvar"

// Operation counters.
var (
	MergesTotal     = expvar.NewInt("roster_merges_total")
	DeletesTotal    = expvar.NewInt("roster_persons_deleted_total")
	ActionsExecuted = expvar.NewInt("roster_actions_executed_total")
	ActionsSkipped  = expvar.NewInt("roster_actions_skipped_total")
	AmbiguousSkips  = expvar.NewInt("roster_ambiguous_skips_total")
	GroupFailures   = expvar.NewInt("roster_group_failures_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }

// Add increments the given counter by n.
func Add(counter *expvar.Int, n int64) { counter.Add(n) }
