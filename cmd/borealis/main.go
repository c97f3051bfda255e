// Command borealis runs batch WASM package compatibility experiments
// against a Wasmer package registry. It is the CLI collaborator around the
// borealis experiment pipeline: verb dispatch and flag parsing follow the
// teacher's cmd/distri/distri.go convention (a flat verb->func map plus an
// InterruptibleContext for clean shutdown on SIGINT/SIGTERM).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/wasmerio/borealis"
)

var debug = flag.Bool("debug", false, "format error messages with additional detail")

func funcmain() error {
	flag.Parse()
	configureLogging()

	type cmd struct {
		fn func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"new":    {cmdNew},
		"run":    {cmdRun},
		"report": {cmdReport},
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "borealis [-flags] <command> [-flags] <args>\n")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "\tnew     - generate a new experiment document\n")
		fmt.Fprintf(os.Stderr, "\trun     - run an experiment against a registry\n")
		fmt.Fprintf(os.Stderr, "\treport  - re-render a results.json document\n")
		os.Exit(2)
	}
	verb, args := args[0], args[1:]

	ctx, canc := borealis.InterruptibleContext()
	defer canc()

	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: borealis <command> [options]\n")
		os.Exit(2)
	}
	if err := v.fn(ctx, args); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}
	return borealis.RunAtExit()
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
