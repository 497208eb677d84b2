package plan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/personroster/internal/models"
)

func samplePlan() *models.DeduplicationPlan {
	return &models.DeduplicationPlan{
		ID:                "plan-1",
		CreatedAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		PersonCountBefore: 100,
		Actions: []models.DeduplicationAction{
			{
				ID: 1, Pass: 0, Type: models.ActionDelete, Status: models.ActionPending,
				Reason: "junk name (all-caps abbreviation)",
				TargetIDs: []int64{7}, TargetNames: []string{"FBI"},
			},
			{
				ID: 2, Pass: 1, Type: models.ActionMerge, Status: models.ActionRejected,
				Reason:      "exact normalized match",
				CanonicalID: 3, CanonicalName: "Sarah Kellen",
				DuplicateIDs: []int64{9}, MergedNames: []string{"Sarah Kellen", "sarah kellen"},
			},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")

	orig := samplePlan()
	require.NoError(t, Save(path, orig))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, orig, loaded)
}

func TestSave_OverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")

	require.NoError(t, Save(path, samplePlan()))
	updated := samplePlan()
	updated.Actions[0].Status = models.ActionExecuted
	require.NoError(t, Save(path, updated))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, models.ActionExecuted, loaded.Actions[0].Status)

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSave_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "plan.json")
	require.NoError(t, Save(path, samplePlan()))

	_, err := Load(path)
	assert.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	content := `{"id":"p","created_at":"2026-01-02T03:04:05Z","person_count_before":1,
		"summary":{"total_actions":1,"by_pass":{}},
		"actions":[{"id":1,"pass":0,"type":"delete","status":"maybe","target_ids":[1]}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestLoad_RejectsUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	content := `{"id":"p","created_at":"2026-01-02T03:04:05Z","person_count_before":1,
		"summary":{"total_actions":1,"by_pass":{}},
		"actions":[{"id":1,"pass":0,"type":"rename","status":"pending","target_ids":[1]}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestPending_SkipsResolvedActions(t *testing.T) {
	p := samplePlan()
	p.Actions[0].Status = models.ActionExecuted
	assert.Empty(t, p.Pending())

	p.Actions = append(p.Actions, models.DeduplicationAction{
		ID: 3, Pass: 3, Type: models.ActionDelete, Status: models.ActionPending, TargetIDs: []int64{4},
	})
	assert.Equal(t, []int{2}, p.Pending())
}
