package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/wasmerio/borealis"
)

// schemaURL is round-tripped in generated documents as an informational
// $schema field; it is never dereferenced or validated against (§6,
// grounded on original_source's config.rs::schema_url).
const schemaURL = "https://github.com/wasmerio/borealis/tree/main/experiment.schema.json"

// envFlag accumulates repeated -e KEY=VALUE flags into an OrderedStringMap,
// preserving the order they were given on the command line, matching
// new.rs's Vec<EnvironmentVariable> handling.
type envFlag struct {
	env *borealis.OrderedStringMap
}

func (e envFlag) String() string { return "" }

func (e envFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("environment variables must be in the form KEY=VALUE, got %q", s)
	}
	return e.env.Set(name, borealis.TemplatedString(value))
}

// cmdNew implements `new <package> [-o path] [-e K=V]... [-- args...]`
// (§6): it emits a minimal experiment document, either to stdout or to the
// path given by -o.
func cmdNew(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	output := fs.String("o", "", "where to save the experiment document (default: stdout)")
	var env borealis.OrderedStringMap
	fs.Var(envFlag{&env}, "e", "extra environment variable for the spawned program, KEY=VALUE (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: borealis new <package> [-o path] [-e K=V]... [-- args...]")
	}
	pkg := rest[0]
	// Flags may also follow the package; a "--" ends flag parsing and is not
	// passed on as a guest argument.
	if err := fs.Parse(rest[1:]); err != nil {
		return err
	}

	var trailingArgs []borealis.TemplatedString
	for _, a := range fs.Args() {
		trailingArgs = append(trailingArgs, borealis.TemplatedString(a))
	}

	exp := borealis.Experiment{
		Schema:  schemaURL,
		Package: pkg,
		Args:    trailingArgs,
		Env:     env,
		Wasmer:  borealis.WasmerConfig{Version: borealis.Latest()},
	}

	b, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing experiment: %w", err)
	}

	if *output == "" {
		fmt.Println(string(b))
		return nil
	}
	if err := os.WriteFile(*output, b, 0o644); err != nil {
		return fmt.Errorf("unable to save to %q: %w", *output, err)
	}
	infof("wrote experiment document to %s", *output)
	return nil
}
