package borealis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestResultsSaveWritesPrettyJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.json")

	results := &Results{
		Experiment: Experiment{Package: "demo/hello"},
		Reports: []Report{
			{DisplayName: "demo/hello", Outcome: Completed(ExitStatus{Success: true}, 0, dir)},
		},
		ExperimentDir: dir,
	}
	if err := results.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var roundtripped Results
	if err := json.Unmarshal(b, &roundtripped); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(roundtripped.Reports) != 1 || roundtripped.Reports[0].DisplayName != "demo/hello" {
		t.Fatalf("roundtripped Reports = %#v", roundtripped.Reports)
	}
}

func TestResultsCountByKind(t *testing.T) {
	results := &Results{
		Reports: []Report{
			{Outcome: Completed(ExitStatus{Success: true}, 0, "")},
			{Outcome: Completed(ExitStatus{Success: false}, 0, "")},
			{Outcome: FetchFailed(nil)},
		},
	}
	counts := results.CountByKind()
	if counts[OutcomeCompleted] != 2 {
		t.Fatalf("OutcomeCompleted count = %d, want 2", counts[OutcomeCompleted])
	}
	if counts[OutcomeFetchFailed] != 1 {
		t.Fatalf("OutcomeFetchFailed count = %d, want 1", counts[OutcomeFetchFailed])
	}
}
