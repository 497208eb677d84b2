// Package plan persists deduplication plans as JSON files so a
// reviewed plan can be edited offline and executed later.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/personroster/internal/models"
)

// Save writes the plan to path atomically: the JSON is written to a
// temp file in the same directory and renamed into place, so a crash
// mid-write never leaves a truncated plan behind.
func Save(path string, p *models.DeduplicationPlan) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating plan directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".plan-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing plan file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing plan file: %w", err)
	}
	return nil
}

// Load reads a plan previously written by Save. Unknown action
// statuses are rejected so a hand-edited file cannot smuggle in
// states the executor does not understand.
func Load(path string) (*models.DeduplicationPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	var p models.DeduplicationPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan file %s: %w", path, err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("plan file %s has no id", path)
	}
	for i, a := range p.Actions {
		switch a.Status {
		case models.ActionPending, models.ActionRejected, models.ActionExecuted, models.ActionSkipped:
		default:
			return nil, fmt.Errorf("action %d has unknown status %q", i, a.Status)
		}
		switch a.Type {
		case models.ActionDelete, models.ActionMerge:
		default:
			return nil, fmt.Errorf("action %d has unknown type %q", i, a.Type)
		}
	}
	return &p, nil
}
