// Package runner implements Borealis's Runner component (§4.3): it prepares
// an isolated per-case working directory, spawns `wasmer`, captures its
// stdout/stderr/exit status, and classifies the result into a Report. The
// setup/spawn/classify shape mirrors the teacher's scheduler.build in
// internal/batch/batch.go, which also runs one exec.CommandContext per unit
// of work under a worker-count bound.
package runner

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/wasmerio/borealis"
	"golang.org/x/sync/semaphore"
	"golang.org/x/xerrors"
)

// minProcesses is the floor on process_limiter permits (§4.3).
const minProcesses = 4

// Runner executes test cases under ExperimentsDir, one isolated base_dir
// each, bounding concurrent `wasmer` child processes.
type Runner struct {
	ExperimentsDir string
	Experiment     borealis.Experiment

	limiter *semaphore.Weighted
}

// New constructs a Runner scoped to experimentsDir (the
// "{base_dir}/experiments" tree, §4.4 step 4). processes <= 0 selects
// runtime.NumCPU(), floored at minProcesses.
func New(experimentsDir string, exp borealis.Experiment, processes int) *Runner {
	if processes <= 0 {
		processes = runtime.NumCPU()
	}
	if processes < minProcesses {
		processes = minProcesses
	}
	return &Runner{
		ExperimentsDir: experimentsDir,
		Experiment:     exp,
		limiter:        semaphore.NewWeighted(int64(processes)),
	}
}

// baseDir returns the per-test-case scratch directory (§4.3).
func (r *Runner) baseDir(tc borealis.TestCase) string {
	return filepath.Join(r.ExperimentsDir, tc.Namespace, tc.PackageName, tc.Version())
}

// BeginTest prepares base_dir, spawns wasmer and classifies the result into
// a Report (§4.3). It acquires one process_limiter permit for the full
// duration of setup plus execution (§4.3 "Concurrency").
func (r *Runner) BeginTest(ctx context.Context, tc borealis.TestCase, assets borealis.Assets) (borealis.Report, error) {
	if err := r.limiter.Acquire(ctx, 1); err != nil {
		return borealis.Report{}, err
	}
	defer r.limiter.Release(1)

	baseDir := r.baseDir(tc)
	report := borealis.Report{DisplayName: tc.DisplayName(), PackageVersion: tc.PackageVersion}

	stdout, stderr, err := setup(baseDir, tc, assets)
	if err != nil {
		report.Outcome = borealis.SetupFailed(baseDir, err)
		return report, nil
	}
	defer stdout.Close()
	defer stderr.Close()

	start := time.Now()
	exit, err := r.spawn(ctx, baseDir, tc, assets, stdout, stderr)
	runTime := time.Since(start)
	if err != nil {
		// Spawn failures (binary not found, permission denied) are
		// classified as SetupFailed, matching the teacher source's
		// classification (§4.3: "the source uses SetupFailed for this
		// too; SpawnFailed is reserved... for future use", §9b).
		report.Outcome = borealis.SetupFailed(baseDir, err)
		return report, nil
	}
	report.Outcome = borealis.Completed(exit, runTime, baseDir)
	return report, nil
}

// setup performs the per-case setup steps (§4.3): recreate base_dir, write
// test_case.json, create working/ with symlinks to the cached assets, and
// open stdout.txt/stderr.txt for write. Any failure here is reported as
// SetupFailed by the caller; setup never leaves a partially-built base_dir
// reused by a later attempt (base_dir is removed and recreated up front).
func setup(baseDir string, tc borealis.TestCase, assets borealis.Assets) (stdout, stderr *os.File, err error) {
	if _, statErr := os.Stat(baseDir); statErr == nil {
		if err := os.RemoveAll(baseDir); err != nil {
			return nil, nil, xerrors.Errorf("removing stale base dir: %w", err)
		}
	} else if !os.IsNotExist(statErr) {
		return nil, nil, statErr
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, nil, xerrors.Errorf("creating base dir: %w", err)
	}

	tcJSON, err := json.MarshalIndent(tc, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(filepath.Join(baseDir, "test_case.json"), tcJSON, 0o644); err != nil {
		return nil, nil, xerrors.Errorf("writing test_case.json: %w", err)
	}

	workingDir := filepath.Join(baseDir, "working")
	if err := os.Mkdir(workingDir, 0o755); err != nil {
		return nil, nil, xerrors.Errorf("creating working dir: %w", err)
	}

	if err := os.Symlink(assets.Tarball, filepath.Join(workingDir, tarballFilename)); err != nil {
		return nil, nil, xerrors.Errorf("symlinking tarball: %w", err)
	}
	if assets.HasWebC() {
		if err := os.Symlink(assets.WebC, filepath.Join(workingDir, webcFilename)); err != nil {
			return nil, nil, xerrors.Errorf("symlinking webc: %w", err)
		}
	}

	stdout, err = os.Create(filepath.Join(baseDir, "stdout.txt"))
	if err != nil {
		return nil, nil, xerrors.Errorf("creating stdout.txt: %w", err)
	}
	stderr, err = os.Create(filepath.Join(baseDir, "stderr.txt"))
	if err != nil {
		stdout.Close()
		return nil, nil, xerrors.Errorf("creating stderr.txt: %w", err)
	}
	return stdout, stderr, nil
}

// spawn builds the command line and environment (§4.3 "Environment model",
// "Process invocation") and runs wasmer to completion.
func (r *Runner) spawn(ctx context.Context, baseDir string, tc borealis.TestCase, assets borealis.Assets, stdout, stderr *os.File) (borealis.ExitStatus, error) {
	scopes := newScopes(baseDir, tc, assets)

	program, err := resolveProgram(r.Experiment.Wasmer.Version)
	if err != nil {
		return borealis.ExitStatus{}, err
	}

	args := buildArgs(r.Experiment, scopes)

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = baseDir
	cmd.Stdin = nil // inherits /dev/null-equivalent: no input is ever wired up
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = buildEnv(r.Experiment.Wasmer.Env, scopes)

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			if code < 0 {
				code = 1 // killed by signal or otherwise unavailable (§4.3)
			}
			return borealis.ExitStatus{Success: false, Code: code}, nil
		}
		return borealis.ExitStatus{}, xerrors.Errorf("starting %s: %w", program, err)
	}
	return borealis.ExitStatus{Success: true, Code: 0}, nil
}

// resolveProgram selects the wasmer binary per WasmerVersion (§4.3 step 1).
// Version resolution beyond Local is out of scope: Latest and Release both
// resolve via PATH lookup.
func resolveProgram(v borealis.WasmerVersion) (string, error) {
	if v.Kind == borealis.WasmerLocal {
		return v.Path, nil
	}
	path, err := exec.LookPath("wasmer")
	if err != nil {
		return "", xerrors.Errorf("wasmer: %w", err)
	}
	return path, nil
}
