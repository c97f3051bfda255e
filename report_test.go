package borealis

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewSerializableErrorWalksCauses(t *testing.T) {
	root := errors.New("disk full")
	wrapped := fmt.Errorf("writing file: %w", root)
	outer := fmt.Errorf("publishing cache entry: %w", wrapped)

	se := NewSerializableError(outer)
	if se.Error != outer.Error() {
		t.Fatalf("Error = %q, want %q", se.Error, outer.Error())
	}
	want := []string{wrapped.Error(), root.Error()}
	if len(se.Causes) != len(want) {
		t.Fatalf("Causes = %v, want %v", se.Causes, want)
	}
	for i := range want {
		if se.Causes[i] != want[i] {
			t.Fatalf("Causes[%d] = %q, want %q", i, se.Causes[i], want[i])
		}
	}
}

func TestNewSerializableErrorNilError(t *testing.T) {
	se := NewSerializableError(nil)
	if se.Error != "" || len(se.Causes) != 0 {
		t.Fatalf("expected zero value for nil error, got %#v", se)
	}
}

func TestOutcomeBuilders(t *testing.T) {
	err := errors.New("boom")

	completed := Completed(ExitStatus{Success: true, Code: 0}, 0, "/tmp/base")
	if completed.Kind != OutcomeCompleted || completed.BaseDir != "/tmp/base" {
		t.Fatalf("Completed() = %#v", completed)
	}

	fetchFailed := FetchFailed(err)
	if fetchFailed.Kind != OutcomeFetchFailed || fetchFailed.BaseDir != "" {
		t.Fatalf("FetchFailed() = %#v", fetchFailed)
	}
	if fetchFailed.Error.Error != "boom" {
		t.Fatalf("FetchFailed().Error.Error = %q", fetchFailed.Error.Error)
	}

	setupFailed := SetupFailed("/tmp/base", err)
	if setupFailed.Kind != OutcomeSetupFailed || setupFailed.BaseDir != "/tmp/base" {
		t.Fatalf("SetupFailed() = %#v", setupFailed)
	}
}

func TestNewFetchFailedReport(t *testing.T) {
	tc := TestCase{Namespace: "demo", PackageName: "hello", PackageVersion: PackageVersion{Version: "1.0"}}
	report := NewFetchFailedReport(tc, errors.New("404"))
	if report.DisplayName != "demo/hello" {
		t.Fatalf("DisplayName = %q", report.DisplayName)
	}
	if report.Outcome.Kind != OutcomeFetchFailed {
		t.Fatalf("Outcome.Kind = %q", report.Outcome.Kind)
	}
}
