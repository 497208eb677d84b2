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

func TestDryRun_CaseVariantMergesIntoMixedCase(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	// The mixed-case form wins even though its id is higher.
	require.NoError(t, st.CreatePerson(ctx, &models.Person{ID: 10, Name: "Ghislaine Maxwell"}))
	require.NoError(t, st.CreatePerson(ctx, &models.Person{ID: 4, Name: "GHISLAINE MAXWELL"}))

	plan, err := eng.DryRun(ctx)
	require.NoError(t, err)

	require.Len(t, plan.Actions, 1)
	action := plan.Actions[0]
	assert.Equal(t, 1, action.Pass)
	assert.EqualValues(t, 10, action.CanonicalID)
	assert.Equal(t, []int64{4}, action.DuplicateIDs)
}

func TestApply_SignalMidActionFinishesCascade(t *testing.T) {
	mock := store.NewMockStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := &signalingStore{Store: mock, cancel: cancel}
	rs, err := rules.Parse([]byte("version: 1\n"))
	require.NoError(t, err)
	eng := New(st, rs, testLogger())

	// Two junk names so the run has a next proposal at which to observe
	// the cancellation raised during the first cascade.
	ids := seedPersons(t, mock, "FBI", "CIA", "Sarah Kellen")
	connect(t, mock, ids[0], ids[2])
	linkDoc(t, mock, ids[0], 100)

	_, err = eng.Apply(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The first delete was not stranded half-applied: the person, its
	// document link, and its connection are all gone.
	bg := context.Background()
	_, err = mock.GetPerson(bg, ids[0])
	assert.ErrorIs(t, err, store.ErrNotFound)
	links, err := mock.PersonDocumentsFor(bg, []int64{ids[0]})
	require.NoError(t, err)
	assert.Empty(t, links)
	conns, err := mock.ConnectionsFor(bg, []int64{ids[0]})
	require.NoError(t, err)
	assert.Empty(t, conns)

	// The second junk person was never touched.
	_, err = mock.GetPerson(bg, ids[1])
	assert.NoError(t, err)
}

func TestApply_Idempotent(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	seedPersons(t, st, "FBI", "Sarah Kellen", "sarah kellen", "Maxwell")

	first, err := eng.Apply(ctx)
	require.NoError(t, err)
	require.Zero(t, first.Failures)

	after1, err := st.ListPersons(ctx)
	require.NoError(t, err)

	second, err := eng.Apply(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Merges)
	assert.Zero(t, second.Deletes)

	after2, err := st.ListPersons(ctx)
	require.NoError(t, err)
	assert.Equal(t, after1, after2)
}
