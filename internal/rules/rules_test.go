package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	rs, err := Load("")
	require.NoError(t, err)

	assert.NotEmpty(t, rs.ProtectedNames)
	assert.NotEmpty(t, rs.KeyFigures)
	assert.NotEmpty(t, rs.Nicknames)
	assert.Greater(t, rs.Version, 0)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
version: 1
protected_names:
  - Alice Example
key_figures:
  - canonical: Alice Example
    variants:
      - Alyce Example
    junk:
      - Example Estate
nicknames: []
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rs, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Alice Example"}, rs.ProtectedNames)
	require.Len(t, rs.KeyFigures, 1)
	assert.Equal(t, "Alice Example", rs.KeyFigures[0].Canonical)
	assert.Empty(t, rs.Nicknames)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("protected_names: [unclosed"))
	assert.Error(t, err)
}

func TestParse_EmptyProtectedName(t *testing.T) {
	_, err := Parse([]byte("protected_names:\n  - '...'\n"))
	assert.Error(t, err)
}

func TestIsProtected_NormalizedComparison(t *testing.T) {
	rs, err := Load("")
	require.NoError(t, err)

	assert.True(t, rs.IsProtected("Jeffrey Epstein"))
	assert.True(t, rs.IsProtected("JEFFREY EPSTEIN"))

	// Comma form reorders words, so it is a different normalized name.
	assert.False(t, rs.IsProtected("Epstein, Jeffrey"))
	assert.False(t, rs.IsProtected("Maxwell"))
	assert.False(t, rs.IsProtected(""))
}
