package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/personroster/internal/models"
	"github.com/ajitpratap0/personroster/internal/rules"
	"github.com/ajitpratap0/personroster/internal/store"
)

func planOf(personCount int64, actions ...models.DeduplicationAction) *models.DeduplicationPlan {
	for i := range actions {
		actions[i].ID = i + 1
		if actions[i].Status == "" {
			actions[i].Status = models.ActionPending
		}
	}
	return &models.DeduplicationPlan{
		ID:                "test-plan",
		PersonCountBefore: personCount,
		Actions:           actions,
	}
}

func TestExecutePlan_ExecutesPendingActions(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	ids := seedPersons(t, st, "FBI", "Sarah Kellen", "sarah kellen")

	p := planOf(3,
		models.DeduplicationAction{
			Pass: 0, Type: models.ActionDelete,
			TargetIDs: []int64{ids[0]}, TargetNames: []string{"FBI"},
		},
		models.DeduplicationAction{
			Pass: 1, Type: models.ActionMerge,
			CanonicalID: ids[1], DuplicateIDs: []int64{ids[2]},
			MergedNames: []string{"sarah kellen"},
		},
	)

	report, err := eng.ExecutePlan(ctx, p, ExecuteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Executed)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Remaining)
	assert.False(t, report.Interrupted)
	assert.Equal(t, models.ActionExecuted, p.Actions[0].Status)
	assert.Equal(t, models.ActionExecuted, p.Actions[1].Status)

	count, err := st.CountPersons(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestExecutePlan_SkipsVanishedTargets(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	ids := seedPersons(t, st, "Survivor Person")

	p := planOf(1,
		models.DeduplicationAction{
			Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{999},
		},
		models.DeduplicationAction{
			Pass: 1, Type: models.ActionMerge,
			CanonicalID: 998, DuplicateIDs: []int64{ids[0]},
		},
		models.DeduplicationAction{
			Pass: 1, Type: models.ActionMerge,
			CanonicalID: ids[0], DuplicateIDs: []int64{997},
		},
	)

	report, err := eng.ExecutePlan(ctx, p, ExecuteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Executed)
	assert.Equal(t, 3, report.Skipped)
	for _, a := range p.Actions {
		assert.Equal(t, models.ActionSkipped, a.Status)
	}

	// Nothing touched.
	_, err = st.GetPerson(ctx, ids[0])
	assert.NoError(t, err)
}

func TestExecutePlan_NeverTouchesRejected(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	ids := seedPersons(t, st, "Kept Person", "Doomed Person")

	p := planOf(2,
		models.DeduplicationAction{
			Pass: 0, Type: models.ActionDelete, Status: models.ActionRejected,
			TargetIDs: []int64{ids[0]},
		},
		models.DeduplicationAction{
			Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{ids[1]},
		},
	)

	report, err := eng.ExecutePlan(ctx, p, ExecuteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Executed)
	assert.Equal(t, models.ActionRejected, p.Actions[0].Status)
	assert.Equal(t, models.ActionExecuted, p.Actions[1].Status)

	_, err = st.GetPerson(ctx, ids[0])
	assert.NoError(t, err)
	_, err = st.GetPerson(ctx, ids[1])
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExecutePlan_CheckpointsAtBatchBoundaries(t *testing.T) {
	eng, st := testEngine(t, "")
	ids := seedPersons(t, st, "Doomed One", "Doomed Two", "Doomed Three")

	p := planOf(3,
		models.DeduplicationAction{Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{ids[0]}},
		models.DeduplicationAction{Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{ids[1]}},
		models.DeduplicationAction{Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{ids[2]}},
	)

	var checkpoints int
	opts := ExecuteOptions{
		BatchSize: 2,
		Checkpoint: func(cp *models.DeduplicationPlan) error {
			checkpoints++
			return nil
		},
	}

	report, err := eng.ExecutePlan(context.Background(), p, opts)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Executed)
	// One at the batch boundary plus the final one.
	assert.Equal(t, 2, checkpoints)
}

func TestExecutePlan_ResumesAfterPartialRun(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	ids := seedPersons(t, st, "Doomed One", "Doomed Two")

	p := planOf(2,
		models.DeduplicationAction{
			Pass: 0, Type: models.ActionDelete, Status: models.ActionExecuted,
			TargetIDs: []int64{ids[0]},
		},
		models.DeduplicationAction{Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{ids[1]}},
	)
	// Simulate the first action having run in a previous invocation.
	_, err := eng.DeletePersonsCascade(ctx, []int64{ids[0]})
	require.NoError(t, err)

	report, err := eng.ExecutePlan(ctx, p, ExecuteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Executed)
	assert.Equal(t, 0, report.Skipped)

	count, err := st.CountPersons(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExecutePlan_CancellationFinishesInFlight(t *testing.T) {
	eng, st := testEngine(t, "")
	ids := seedPersons(t, st, "Doomed One", "Doomed Two")

	p := planOf(2,
		models.DeduplicationAction{Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{ids[0]}},
		models.DeduplicationAction{Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{ids[1]}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var checkpointed bool
	report, err := eng.ExecutePlan(ctx, p, ExecuteOptions{
		Checkpoint: func(cp *models.DeduplicationPlan) error {
			checkpointed = true
			return nil
		},
	})
	require.NoError(t, err)

	assert.True(t, report.Interrupted)
	assert.Equal(t, 0, report.Executed)
	assert.Equal(t, 2, report.Remaining)
	assert.True(t, checkpointed)
	assert.Equal(t, models.ActionPending, p.Actions[0].Status)
}

// signalingStore delegates to an inner store, cancelling the run
// context on its first cascade call and failing any later call whose
// context has been cancelled. It simulates a signal arriving while an
// action's store operations are underway.
type signalingStore struct {
	store.Store
	cancel context.CancelFunc
	fired  bool
}

func (s *signalingStore) gate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.fired {
		s.fired = true
		s.cancel()
	}
	return nil
}

func (s *signalingStore) DeleteConnectionsFor(ctx context.Context, ids []int64) (int64, error) {
	if err := s.gate(ctx); err != nil {
		return 0, err
	}
	return s.Store.DeleteConnectionsFor(ctx, ids)
}

func (s *signalingStore) DeletePersonDocumentsFor(ctx context.Context, ids []int64) (int64, error) {
	if err := s.gate(ctx); err != nil {
		return 0, err
	}
	return s.Store.DeletePersonDocumentsFor(ctx, ids)
}

func (s *signalingStore) DeletePersons(ctx context.Context, ids []int64) (int64, error) {
	if err := s.gate(ctx); err != nil {
		return 0, err
	}
	return s.Store.DeletePersons(ctx, ids)
}

func TestExecutePlan_SignalMidActionCompletesIt(t *testing.T) {
	mock := store.NewMockStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := &signalingStore{Store: mock, cancel: cancel}
	rs, err := rules.Parse([]byte("version: 1\n"))
	require.NoError(t, err)
	eng := New(st, rs, testLogger())

	ids := seedPersons(t, mock, "Doomed Person", "Survivor Person")
	connect(t, mock, ids[0], ids[1])
	linkDoc(t, mock, ids[0], 100)

	p := planOf(2,
		models.DeduplicationAction{Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{ids[0]}},
		models.DeduplicationAction{Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{ids[1]}},
	)

	report, err := eng.ExecutePlan(ctx, p, ExecuteOptions{})
	require.NoError(t, err)

	// The in-flight delete ran to completion; only the next action was
	// left pending for a resumed run.
	assert.Equal(t, 1, report.Executed)
	assert.Equal(t, 0, report.Skipped)
	assert.True(t, report.Interrupted)
	assert.Equal(t, models.ActionExecuted, p.Actions[0].Status)
	assert.Equal(t, models.ActionPending, p.Actions[1].Status)
	assert.Equal(t, []int{1}, p.Pending())

	bg := context.Background()
	_, err = mock.GetPerson(bg, ids[0])
	assert.ErrorIs(t, err, store.ErrNotFound)
	links, err := mock.PersonDocumentsFor(bg, []int64{ids[0]})
	require.NoError(t, err)
	assert.Empty(t, links)
	conns, err := mock.ConnectionsFor(bg, []int64{ids[0]})
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestExecutePlan_DriftWarningDoesNotAbort(t *testing.T) {
	eng, st := testEngine(t, "")
	ids := seedPersons(t, st, "Doomed Person")

	// Plan claims far more persons than the store holds.
	p := planOf(5000,
		models.DeduplicationAction{Pass: 0, Type: models.ActionDelete, TargetIDs: []int64{ids[0]}},
	)

	report, err := eng.ExecutePlan(context.Background(), p, ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Executed)
}
