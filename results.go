package borealis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/renameio"
)

// Results is the serializable output of an entire experiment run (§3).
type Results struct {
	Experiment    Experiment    `json:"experiment"`
	Reports       []Report      `json:"reports"`
	TotalTime     time.Duration `json:"total_time"`
	ExperimentDir string        `json:"experiment_dir"`
}

// Save writes Results as pretty-printed JSON to path, atomically: a reader
// either sees the old file or the fully-written new one, never a partial
// write (§6 "Experiment output"). renameio.WriteFile handles the
// temp-file-plus-rename dance, matching the atomic-publish discipline the
// cache uses for its own directory layout (§4.2).
func (r *Results) Save(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	if err := renameio.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// CountByKind tallies reports by outcome kind. The text/HTML renderers do
// not use it; they bucket reports themselves.
func (r *Results) CountByKind() map[OutcomeKind]int {
	counts := make(map[OutcomeKind]int)
	for _, rep := range r.Reports {
		counts[rep.Outcome.Kind]++
	}
	return counts
}
