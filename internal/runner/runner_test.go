package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/wasmerio/borealis"
)

// withFakeWasmer installs a shell script named "wasmer" on PATH that exits
// with the given code, and restores PATH afterwards.
func withFakeWasmer(t *testing.T, exitCode int) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake wasmer script is POSIX shell only")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "wasmer")
	contents := "#!/bin/sh\nexit " + itoa(exitCode) + "\n"
	if err := os.WriteFile(script, []byte(contents), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

func fixtureAssets(t *testing.T) borealis.Assets {
	t.Helper()
	dir := t.TempDir()
	tarball := filepath.Join(dir, "hello.tar.gz")
	if err := os.WriteFile(tarball, []byte("fake-tarball"), 0o644); err != nil {
		t.Fatal(err)
	}
	return borealis.Assets{Tarball: tarball, TotalSize: 12}
}

func TestBeginTestCompletedSuccess(t *testing.T) {
	withFakeWasmer(t, 0)
	exp := borealis.Experiment{Package: "demo/hello", Wasmer: borealis.WasmerConfig{Version: borealis.Latest()}}
	r := New(t.TempDir(), exp, 0)

	tc := borealis.TestCase{Namespace: "demo", PackageName: "hello", PackageVersion: borealis.PackageVersion{Version: "1.0.0"}}
	report, err := r.BeginTest(context.Background(), tc, fixtureAssets(t))
	if err != nil {
		t.Fatalf("BeginTest: %v", err)
	}
	if report.Outcome.Kind != borealis.OutcomeCompleted {
		t.Fatalf("Outcome.Kind = %q, want completed: %#v", report.Outcome.Kind, report.Outcome)
	}
	if !report.Outcome.Exit.Success || report.Outcome.Exit.Code != 0 {
		t.Fatalf("Exit = %#v, want success", report.Outcome.Exit)
	}
	if _, err := os.Stat(filepath.Join(report.Outcome.BaseDir, "test_case.json")); err != nil {
		t.Fatalf("missing test_case.json: %v", err)
	}
	if _, err := os.Stat(filepath.Join(report.Outcome.BaseDir, "working", "package.tar.gz")); err != nil {
		t.Fatalf("missing working/package.tar.gz symlink: %v", err)
	}
}

func TestBeginTestCompletedNonZeroExit(t *testing.T) {
	withFakeWasmer(t, 7)
	exp := borealis.Experiment{Package: "demo/hello", Wasmer: borealis.WasmerConfig{Version: borealis.Latest()}}
	r := New(t.TempDir(), exp, 0)

	tc := borealis.TestCase{Namespace: "demo", PackageName: "hello", PackageVersion: borealis.PackageVersion{Version: "1.0.0"}}
	report, err := r.BeginTest(context.Background(), tc, fixtureAssets(t))
	if err != nil {
		t.Fatalf("BeginTest: %v", err)
	}
	if report.Outcome.Kind != borealis.OutcomeCompleted {
		t.Fatalf("Outcome.Kind = %q, want completed", report.Outcome.Kind)
	}
	if report.Outcome.Exit.Success || report.Outcome.Exit.Code != 7 {
		t.Fatalf("Exit = %#v, want {false 7}", report.Outcome.Exit)
	}
}

func TestBeginTestMissingWasmerIsSetupFailed(t *testing.T) {
	t.Setenv("PATH", t.TempDir()) // no wasmer binary anywhere on PATH
	exp := borealis.Experiment{Package: "demo/hello", Wasmer: borealis.WasmerConfig{Version: borealis.Latest()}}
	r := New(t.TempDir(), exp, 0)

	tc := borealis.TestCase{Namespace: "demo", PackageName: "hello", PackageVersion: borealis.PackageVersion{Version: "1.0.0"}}
	report, err := r.BeginTest(context.Background(), tc, fixtureAssets(t))
	if err != nil {
		t.Fatalf("BeginTest: %v", err)
	}
	if report.Outcome.Kind != borealis.OutcomeSetupFailed {
		t.Fatalf("Outcome.Kind = %q, want setup_failed", report.Outcome.Kind)
	}
}

// TestBeginTestIsolation exercises property P5: deleting case A's base_dir
// after it completes must not affect case B, run next on the same Runner.
func TestBeginTestIsolation(t *testing.T) {
	withFakeWasmer(t, 0)
	exp := borealis.Experiment{Package: "demo/hello", Wasmer: borealis.WasmerConfig{Version: borealis.Latest()}}
	experimentsDir := t.TempDir()
	r := New(experimentsDir, exp, 0)

	tcA := borealis.TestCase{Namespace: "demo", PackageName: "a", PackageVersion: borealis.PackageVersion{Version: "1.0.0"}}
	tcB := borealis.TestCase{Namespace: "demo", PackageName: "b", PackageVersion: borealis.PackageVersion{Version: "1.0.0"}}

	reportA, err := r.BeginTest(context.Background(), tcA, fixtureAssets(t))
	if err != nil {
		t.Fatalf("BeginTest A: %v", err)
	}
	if err := os.RemoveAll(reportA.Outcome.BaseDir); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}

	reportB, err := r.BeginTest(context.Background(), tcB, fixtureAssets(t))
	if err != nil {
		t.Fatalf("BeginTest B: %v", err)
	}
	if reportB.Outcome.Kind != borealis.OutcomeCompleted || !reportB.Outcome.Exit.Success {
		t.Fatalf("case B affected by case A's deletion: %#v", reportB.Outcome)
	}
}
