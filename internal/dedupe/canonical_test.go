package dedupe

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/personroster/internal/models"
	"github.com/ajitpratap0/personroster/internal/rules"
	"github.com/ajitpratap0/personroster/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testEngine(t *testing.T, rulesYAML string) (*Engine, *store.MockStore) {
	t.Helper()
	if rulesYAML == "" {
		rulesYAML = "version: 1\n"
	}
	rs, err := rules.Parse([]byte(rulesYAML))
	require.NoError(t, err)
	st := store.NewMockStore()
	return New(st, rs, testLogger()), st
}

func TestSelectCanonical_PrefersNoComma(t *testing.T) {
	eng, _ := testEngine(t, "")
	group := []models.Person{
		{ID: 1, Name: "Maxwell, Ghislaine"},
		{ID: 2, Name: "Ghislaine Maxwell"},
	}
	assert.EqualValues(t, 2, eng.SelectCanonical(group).ID)
}

func TestSelectCanonical_PrefersMixedCase(t *testing.T) {
	eng, _ := testEngine(t, "")
	group := []models.Person{
		{ID: 1, Name: "GHISLAINE MAXWELL"},
		{ID: 2, Name: "Ghislaine Maxwell"},
	}
	assert.EqualValues(t, 2, eng.SelectCanonical(group).ID)
}

func TestSelectCanonical_PrefersMoreParts(t *testing.T) {
	eng, _ := testEngine(t, "")
	group := []models.Person{
		{ID: 1, Name: "Virginia Giuffre"},
		{ID: 2, Name: "Virginia Roberts Giuffre"},
	}
	assert.EqualValues(t, 2, eng.SelectCanonical(group).ID)
}

func TestSelectCanonical_PrefersLongerName(t *testing.T) {
	eng, _ := testEngine(t, "")
	group := []models.Person{
		{ID: 1, Name: "Jeff Epstein"},
		{ID: 2, Name: "Jeffrey Epstein"},
	}
	assert.EqualValues(t, 2, eng.SelectCanonical(group).ID)
}

func TestSelectCanonical_LowestIDBreaksTies(t *testing.T) {
	eng, _ := testEngine(t, "")
	group := []models.Person{
		{ID: 9, Name: "Sarah Kellen"},
		{ID: 3, Name: "Sarah Kellen"},
		{ID: 7, Name: "Sarah Kellen"},
	}
	assert.EqualValues(t, 3, eng.SelectCanonical(group).ID)
}

func TestSelectCanonical_ProtectedTrumpsEverything(t *testing.T) {
	eng, _ := testEngine(t, `
version: 1
protected_names:
  - Jeffrey Epstein
`)
	// The protected record wins despite the comma, caps, and shorter name.
	group := []models.Person{
		{ID: 1, Name: "Jeffrey Edward Epstein Senior"},
		{ID: 2, Name: "JEFFREY EPSTEIN"},
	}
	assert.EqualValues(t, 2, eng.SelectCanonical(group).ID)
}

func TestSelectCanonical_Deterministic(t *testing.T) {
	eng, _ := testEngine(t, "")
	group := []models.Person{
		{ID: 4, Name: "Alan Dershowitz"},
		{ID: 2, Name: "Alan M Dershowitz"},
		{ID: 8, Name: "DERSHOWITZ, ALAN"},
	}
	first := eng.SelectCanonical(group)
	// Same winner regardless of input order.
	reversed := []models.Person{group[2], group[1], group[0]}
	assert.Equal(t, first.ID, eng.SelectCanonical(reversed).ID)
	assert.EqualValues(t, 2, first.ID)
}
