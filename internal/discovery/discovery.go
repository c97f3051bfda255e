// Package discovery implements Borealis's "Wapm" component (§4.1, §2): it
// translates Filters into a lazy, paginated stream of TestCase values. The
// producer/consumer shape and the "log and continue past a failed listing"
// policy mirror how internal/batch in the teacher repo runs many
// independent workers off one shared channel while isolating per-item
// failure.
package discovery

import (
	"context"
	"fmt"
	"log"

	"github.com/wasmerio/borealis"
)

// Lister is the registry capability Discovery consumes (§6): three
// paginated listing entry points. internal/registry.Client implements it.
type Lister interface {
	Host() string
	GetNamespace(ctx context.Context, namespace string, offset int) ([]borealis.Package, error)
	GetUser(ctx context.Context, username string, offset int) ([]borealis.Package, error)
	AllPackages(ctx context.Context, offset int) ([]borealis.Package, error)
}

// Wapm drives discovery against a single registry.
type Wapm struct {
	Lister Lister
	Log    *log.Logger
}

// New constructs a Wapm discovery component. If logger is nil, log.Default
// is used.
func New(lister Lister, logger *log.Logger) *Wapm {
	if logger == nil {
		logger = log.Default()
	}
	return &Wapm{Lister: lister, Log: logger}
}

// FetchTestCases streams TestCases matching filters into out until
// discovery is complete, then closes out. It never aborts the whole run on
// a single listing failure: that listing is logged and skipped (§4.1).
// Intended to be run in its own goroutine ("Wapm owns the producer task",
// §4.4 step 3); the bounded channel capacity is the caller's choice (the
// orchestrator uses capacity 1, §4.1).
func (w *Wapm) FetchTestCases(ctx context.Context, filters borealis.Filters, out chan<- borealis.TestCase) {
	defer close(out)

	type listing struct {
		label string
		fetch func(ctx context.Context, offset int) ([]borealis.Package, error)
	}

	var listings []listing
	if filters.EnumerateAll() {
		listings = append(listings, listing{
			label: "all packages",
			fetch: w.Lister.AllPackages,
		})
	} else {
		for _, ns := range filters.Namespaces {
			ns := ns
			listings = append(listings, listing{
				label: fmt.Sprintf("namespace %q", ns),
				fetch: func(ctx context.Context, offset int) ([]borealis.Package, error) {
					return w.Lister.GetNamespace(ctx, ns, offset)
				},
			})
		}
		for _, user := range filters.Users {
			user := user
			listings = append(listings, listing{
				label: fmt.Sprintf("user %q", user),
				fetch: func(ctx context.Context, offset int) ([]borealis.Package, error) {
					return w.Lister.GetUser(ctx, user, offset)
				},
			})
		}
	}

	host := w.Lister.Host()
	for _, l := range listings {
		if err := w.paginate(ctx, l.label, host, filters, l.fetch, out); err != nil {
			if ctx.Err() != nil {
				return // caller canceled; stop discovering entirely
			}
			w.Log.Printf("discovery: %s: %v", l.label, err)
			continue // partial failure: log and move to the next listing (§4.1)
		}
	}
}

func (w *Wapm) paginate(
	ctx context.Context,
	label, host string,
	filters borealis.Filters,
	fetch func(ctx context.Context, offset int) ([]borealis.Package, error),
	out chan<- borealis.TestCase,
) error {
	offset := 0
	for {
		page, err := fetch(ctx, offset)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, pkg := range page {
			if filters.Blacklisted(pkg.Namespace, pkg.PackageName) {
				continue // §4.1 step 3, property P7
			}
			for _, pv := range versionsFor(pkg, filters.IncludeEveryVersion) {
				tc := borealis.TestCase{
					Registry:       host,
					Namespace:      pkg.Namespace,
					PackageName:    pkg.PackageName,
					PackageVersion: pv,
				}
				select {
				case out <- tc:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		offset += len(page)
	}
}

// versionsFor selects which versions of pkg to emit (§4.1 step 3, property
// P8): every non-null version if includeEveryVersion, else just
// LastVersion, if present.
func versionsFor(pkg borealis.Package, includeEveryVersion bool) []borealis.PackageVersion {
	if includeEveryVersion {
		return pkg.Versions
	}
	if pkg.LastVersion == nil {
		return nil
	}
	return []borealis.PackageVersion{*pkg.LastVersion}
}
