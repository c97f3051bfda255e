package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wasmerio/borealis"
	"github.com/wasmerio/borealis/internal/cache"
	"github.com/wasmerio/borealis/internal/discovery"
	"github.com/wasmerio/borealis/internal/orchestrator"
	"github.com/wasmerio/borealis/internal/progress"
	"github.com/wasmerio/borealis/internal/registry"
	"github.com/wasmerio/borealis/internal/render"
	"github.com/wasmerio/borealis/internal/runner"
)

const defaultRegistryEndpoint = "https://registry.wapm.io/graphql"

// cmdRun implements `run <file> [--registry host] [--output dir]
// [--token TOKEN]` (§6): it loads an experiment document, drives the
// pipeline end-to-end, and writes results.json plus report.html under
// --output.
func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	registryFlag := fs.String("registry", os.Getenv("WASMER_REGISTRY"), "registry GraphQL endpoint (env WASMER_REGISTRY)")
	outputDir := fs.String("output", "", "directory to write results.json and report.html to (default: alongside the experiment file)")
	token := fs.String("token", os.Getenv("WASMER_TOKEN"), "registry bearer token (env WASMER_TOKEN)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: borealis run <file> [--registry host] [--output dir] [--token TOKEN]")
	}
	expPath := rest[0]
	// Flags may also follow the experiment file.
	if err := fs.Parse(rest[1:]); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("usage: borealis run <file> [--registry host] [--output dir] [--token TOKEN]")
	}

	exp, err := borealis.LoadExperiment(expPath)
	if err != nil {
		return err
	}

	endpoint := *registryFlag
	if endpoint == "" {
		endpoint = defaultRegistryEndpoint
	}
	reg := borealis.Registry{Endpoint: endpoint, Token: *token}

	baseDir := *outputDir
	if baseDir == "" {
		baseDir = filepath.Dir(expPath)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %q: %w", baseDir, err)
	}

	client := registry.New(reg)

	events := make(chan progress.CacheStatusMessage, 64)
	sink := progress.NewTerminalSink(os.Stdout, os.Stdout.Fd(), true)
	monitor := progress.New(sink)
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		for msg := range events {
			monitor.Dispatch(msg)
		}
	}()

	cacheRoot := filepath.Join(baseDir, "cache")
	c := cache.New(cacheRoot, 0, events)
	d := discovery.New(client, nil)

	experimentsDir := filepath.Join(baseDir, "experiments")
	r := runner.New(experimentsDir, *exp, 0)

	borealis.RegisterAtExit(func() error {
		close(events)
		<-monitorDone
		return nil
	})

	orch := orchestrator.New(d, c, r, nil)
	results, err := orch.BeginExperiment(ctx, *exp, baseDir)
	if err != nil {
		return fmt.Errorf("running experiment: %w", err)
	}

	if err := results.Save(filepath.Join(baseDir, "results.json")); err != nil {
		return fmt.Errorf("saving results: %w", err)
	}
	if err := writeReport(results, filepath.Join(baseDir, "report.html")); err != nil {
		return err
	}
	return render.Text(os.Stdout, results)
}
