// Package rules loads the curated deduplication rulesets: the protected
// roster of names that must never be deleted or absorbed, the key-figure
// variant table, and the OCR/nickname variant table. Rules ship as
// embedded YAML and can be replaced wholesale by a file on disk, so the
// ruleset evolves independently of the engine.
package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/personroster/pkg/namenorm"
)

//go:embed defaults.yaml
var defaultRules []byte

// KeyFigure describes a curated high-profile individual: the canonical
// name, known spelling variants to merge in, and known junk variants to
// delete.
type KeyFigure struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
	Junk      []string `yaml:"junk"`
}

// NicknameGroup maps OCR misreads and nicknames onto a canonical name.
type NicknameGroup struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
}

// Ruleset is the parsed rules document.
type Ruleset struct {
	Version        int             `yaml:"version"`
	ProtectedNames []string        `yaml:"protected_names"`
	KeyFigures     []KeyFigure     `yaml:"key_figures"`
	Nicknames      []NicknameGroup `yaml:"nicknames"`

	protected map[string]struct{}
}

// Load reads a ruleset from path, or the embedded defaults when path is
// empty.
func Load(path string) (*Ruleset, error) {
	data := defaultRules
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading rules file: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes a YAML rules document and indexes the protected roster.
func Parse(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	rs.protected = make(map[string]struct{}, len(rs.ProtectedNames))
	for _, name := range rs.ProtectedNames {
		key := namenorm.Normalize(name)
		if key == "" {
			return nil, fmt.Errorf("protected name %q normalizes to empty", name)
		}
		rs.protected[key] = struct{}{}
	}
	return &rs, nil
}

// IsProtected reports whether the name belongs to the protected roster.
// Comparison is by normalized form.
func (rs *Ruleset) IsProtected(name string) bool {
	_, ok := rs.protected[namenorm.Normalize(name)]
	return ok
}
