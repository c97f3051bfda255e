package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/google/renameio"
	"github.com/wasmerio/borealis"
	"github.com/wasmerio/borealis/internal/render"
)

// writeReport renders results to an HTML report at path, atomically (§6
// "Experiment output"), via the same renameio temp-file-plus-rename
// discipline Results.Save uses for results.json.
func writeReport(results *borealis.Results, path string) error {
	html, err := render.HTML(results)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	if err := renameio.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// cmdReport implements `report <results.json> [--html path] [--open]`
// (§6): it re-renders an existing Results document without re-running the
// experiment.
func cmdReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	htmlPath := fs.String("html", "", "where to write the rendered HTML report (default: report.html next to the results file)")
	open := fs.Bool("open", false, "open the rendered report in the default browser")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: borealis report <results.json> [--html path] [--open]")
	}
	resultsPath := rest[0]
	// Flags may also follow the results file.
	if err := fs.Parse(rest[1:]); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("usage: borealis report <results.json> [--html path] [--open]")
	}

	b, err := os.ReadFile(resultsPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", resultsPath, err)
	}
	var results borealis.Results
	if err := json.Unmarshal(b, &results); err != nil {
		return fmt.Errorf("parsing %s: %w", resultsPath, err)
	}

	dest := *htmlPath
	if dest == "" {
		dest = filepath.Join(filepath.Dir(resultsPath), "report.html")
	}
	if err := writeReport(&results, dest); err != nil {
		return err
	}
	infof("wrote report to %s", dest)

	if *open {
		return openInBrowser(dest)
	}
	return nil
}

func openInBrowser(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}
