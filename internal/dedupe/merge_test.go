package dedupe

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/personroster/internal/models"
	"github.com/ajitpratap0/personroster/internal/store"
)

func TestMergeAliases_CapsAndDeduplicates(t *testing.T) {
	canonical := &models.Person{Name: "Jeffrey Epstein", Aliases: []string{"Jeff Epstein"}}

	aliases := mergeAliases(canonical, []string{
		"Jeffrey Epstein", // own name dropped
		"Jeff Epstein",    // already present
		"Jeffery Epstein",
		"Jeffery Epstein", // repeated in the same group
		"",
	})
	assert.Equal(t, []string{"Jeff Epstein", "Jeffery Epstein"}, aliases)
	// Writing the result back is the caller's job.
	assert.Equal(t, []string{"Jeff Epstein"}, canonical.Aliases)

	// Overflow past the cap is silently discarded.
	var many []string
	for i := 0; i < models.MaxAliases+5; i++ {
		many = append(many, fmt.Sprintf("Variant %d", i))
	}
	aliases = mergeAliases(canonical, many)
	assert.Len(t, aliases, models.MaxAliases)
}

func TestMergePersonGroup_UnionsDocumentLinks(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	ids := seedPersons(t, st, "Jeffrey Epstein", "Jeffery Epstein")
	linkDoc(t, st, ids[0], 10)
	linkDoc(t, st, ids[1], 10) // shared, must collapse
	linkDoc(t, st, ids[1], 11) // unique, must repoint

	require.NoError(t, eng.MergePersonGroup(ctx, ids[0], []int64{ids[1]}, []string{"Jeffery Epstein"}))

	links, err := st.PersonDocumentsFor(ctx, []int64{ids[0]})
	require.NoError(t, err)
	docs := make([]int64, 0, len(links))
	for _, l := range links {
		docs = append(docs, l.DocumentID)
	}
	assert.ElementsMatch(t, []int64{10, 11}, docs)

	orphans, err := st.PersonDocumentsFor(ctx, []int64{ids[1]})
	require.NoError(t, err)
	assert.Empty(t, orphans)

	survivor, err := st.GetPerson(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"Jeffery Epstein"}, survivor.Aliases)
	assert.Equal(t, 2, survivor.DocumentCount)
}

func TestMergePersonGroup_RewiresConnections(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	ids := seedPersons(t, st, "Canonical Person", "Duplicate Person", "Peer Person")
	connect(t, st, ids[0], ids[2]) // canonical already knows peer
	connect(t, st, ids[1], ids[2]) // duplicate's edge collapses into it
	connect(t, st, ids[0], ids[1]) // becomes a self-loop, dropped

	require.NoError(t, eng.MergePersonGroup(ctx, ids[0], []int64{ids[1]}, nil))

	conns, err := st.ListConnections(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.True(t, conns[0].Involves(ids[0]))
	assert.True(t, conns[0].Involves(ids[2]))

	survivor, err := st.GetPerson(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, survivor.ConnectionCount)
}

func TestMergePersonGroup_RewritesTimelineEvents(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	ids := seedPersons(t, st, "Canonical Person", "Duplicate Person", "Bystander Person")

	ev := &models.TimelineEvent{Title: "flight", PersonIDs: []int64{ids[1], ids[2], ids[0]}}
	require.NoError(t, st.AddTimelineEvent(ctx, ev))

	require.NoError(t, eng.MergePersonGroup(ctx, ids[0], []int64{ids[1]}, nil))

	events, err := st.ListTimelineEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	// Duplicate id replaced by the canonical, then de-duplicated.
	assert.Equal(t, []int64{ids[0], ids[2]}, events[0].PersonIDs)
}

func TestMergePersonGroup_Rerunnable(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	ids := seedPersons(t, st, "Canonical Person", "Duplicate Person")

	require.NoError(t, eng.MergePersonGroup(ctx, ids[0], []int64{ids[1]}, []string{"Duplicate Person"}))
	// Duplicates already gone: a repeat run is a no-op, not an error.
	require.NoError(t, eng.MergePersonGroup(ctx, ids[0], []int64{ids[1]}, []string{"Duplicate Person"}))

	count, err := st.CountPersons(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	survivor, err := st.GetPerson(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"Duplicate Person"}, survivor.Aliases)
}

func TestMergePersonGroup_MissingCanonicalFails(t *testing.T) {
	eng, st := testEngine(t, "")
	ids := seedPersons(t, st, "Duplicate Person")

	err := eng.MergePersonGroup(context.Background(), 999, []int64{ids[0]}, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeletePersonsCascade_RemovesEverything(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()
	ids := seedPersons(t, st, "Doomed Person", "Doomed Too", "Survivor Person")
	linkDoc(t, st, ids[0], 10)
	connect(t, st, ids[0], ids[2])
	connect(t, st, ids[1], ids[2])
	ev := &models.TimelineEvent{Title: "party", PersonIDs: []int64{ids[0], ids[2]}}
	require.NoError(t, st.AddTimelineEvent(ctx, ev))

	deleted, err := eng.DeletePersonsCascade(ctx, []int64{ids[0], ids[1], 999})
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Persons)
	assert.EqualValues(t, 0, stats.DocumentLinks)
	assert.EqualValues(t, 0, stats.Connections)

	events, err := st.ListTimelineEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []int64{ids[2]}, events[0].PersonIDs)
}

func TestDeletePersonsCascade_Chunks(t *testing.T) {
	eng, st := testEngine(t, "")
	ctx := context.Background()

	var ids []int64
	for i := 0; i < deleteChunkSize+50; i++ {
		p := &models.Person{Name: fmt.Sprintf("Person Number%d", i)}
		require.NoError(t, st.CreatePerson(ctx, p))
		ids = append(ids, p.ID)
	}

	deleted, err := eng.DeletePersonsCascade(ctx, ids)
	require.NoError(t, err)
	assert.EqualValues(t, deleteChunkSize+50, deleted)

	count, err := st.CountPersons(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
