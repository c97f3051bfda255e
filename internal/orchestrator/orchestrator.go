// Package orchestrator implements Borealis's Orchestrator (§4.4): it drives
// discovery, cache and runner concurrently, interleaved, and collects the
// final Results. The fan-out/fan-in shape — one goroutine-per-item feeding
// a shared errgroup, reports funneled back over a channel — follows the
// teacher's scheduler.run in internal/batch/batch.go.
package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/wasmerio/borealis"
	"golang.org/x/sync/errgroup"
)

// Cache is the subset of cache.Cache the orchestrator depends on.
type Cache interface {
	FetchAssets(ctx context.Context, tc borealis.TestCase) (borealis.Assets, error)
}

// Runner is the subset of runner.Runner the orchestrator depends on.
type Runner interface {
	BeginTest(ctx context.Context, tc borealis.TestCase, assets borealis.Assets) (borealis.Report, error)
}

// Discovery is the subset of discovery.Wapm the orchestrator depends on.
type Discovery interface {
	FetchTestCases(ctx context.Context, filters borealis.Filters, out chan<- borealis.TestCase)
}

// Orchestrator wires Discovery, Cache and Runner into one pipeline.
type Orchestrator struct {
	Discovery Discovery
	Cache     Cache
	Runner    Runner
	Log       *log.Logger
}

// New constructs an Orchestrator. A nil logger defaults to log.Default().
func New(d Discovery, c Cache, r Runner, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{Discovery: d, Cache: c, Runner: r, Log: logger}
}

// discoveryChannelCap is the bounded channel capacity between Discovery and
// the Orchestrator (§4.1: "capacity 1 ... is sufficient because the
// Orchestrator multiplexes downstream").
const discoveryChannelCap = 1

// BeginExperiment drives exp end-to-end and returns the aggregated Results
// (§4.4). Discovery, cache fetches and test runs overlap: the orchestrator
// never waits for discovery to finish before dispatching cache/runner work,
// nor for all runs before reading more discoveries (§4.4 "Overlap
// requirement").
func (o *Orchestrator) BeginExperiment(ctx context.Context, exp borealis.Experiment, baseDir string) (*borealis.Results, error) {
	start := time.Now()
	o.Log.Printf("Experiment started: package=%s namespaces=%v users=%v every-version=%v",
		exp.Package, exp.Filters.Namespaces, exp.Filters.Users, exp.Filters.IncludeEveryVersion)

	discovered := make(chan borealis.TestCase, discoveryChannelCap)
	go o.Discovery.FetchTestCases(ctx, exp.Filters, discovered)

	reports := make(chan borealis.Report)
	eg, egCtx := errgroup.WithContext(ctx)
	done := make(chan error, 1)

	go func() {
		for tc := range discovered {
			tc := tc
			eg.Go(func() error {
				report := o.runOne(egCtx, tc)
				select {
				case reports <- report:
				case <-egCtx.Done():
				}
				return nil // per-case failures never abort the pipeline (§4.4)
			})
		}
		// Discovery has closed, so every task is registered with eg: Wait
		// returns only after all of them have delivered their report.
		done <- eg.Wait()
	}()

	var completed []borealis.Report

	collecting := true
	for collecting {
		select {
		case r := <-reports:
			completed = append(completed, r)
		case err := <-done:
			// Drain any reports that raced the done signal.
			for {
				select {
				case r := <-reports:
					completed = append(completed, r)
					continue
				default:
				}
				break
			}
			collecting = false
			if err != nil {
				return nil, err
			}
		}
	}

	results := &borealis.Results{
		Experiment:    exp,
		Reports:       completed,
		TotalTime:     time.Since(start),
		ExperimentDir: baseDir,
	}
	o.Log.Printf("Experiment finished: %d test cases in %v", len(completed), results.TotalTime)
	return results, nil
}

// runOne dispatches one test case to the cache then the runner, synthesizing
// a FetchFailed report on cache failure (§4.4 step 5).
func (o *Orchestrator) runOne(ctx context.Context, tc borealis.TestCase) borealis.Report {
	assets, err := o.Cache.FetchAssets(ctx, tc)
	if err != nil {
		return borealis.NewFetchFailedReport(tc, err)
	}
	report, err := o.Runner.BeginTest(ctx, tc, assets)
	if err != nil {
		// Scheduler-level failure acquiring a process slot (e.g. context
		// canceled); still produce exactly one Report for the case (I2).
		return borealis.NewFetchFailedReport(tc, err)
	}
	return report
}
