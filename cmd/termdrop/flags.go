// ABOUTME: CLI flag parsing using stdlib flag package
// ABOUTME: Supports --viewport, --debounce, --match, --all, --dry-run, --config, --verbose, --version

package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/mauromedda/termdrop/internal/config"
)

type cliArgs struct {
	viewport   int
	debounce   time.Duration
	match      string
	all        bool
	dryRun     bool
	configPath string
	verbose    bool
	version    bool
	dir        string

	// set records which flags appeared on the command line.
	set map[string]bool
}

func parseFlags(argv []string, stderr io.Writer) (cliArgs, error) {
	var args cliArgs
	fs := flag.NewFlagSet("termdrop", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: termdrop [flags] [dir]\n\nPick one entry of dir and delete it.\n\n")
		fs.PrintDefaults()
	}

	fs.IntVar(&args.viewport, "viewport", config.DefaultViewport, "Number of options shown at once")
	fs.DurationVar(&args.debounce, "debounce", 300*time.Millisecond, "Ignore keys arriving this soon after the last handled one")
	fs.StringVar(&args.match, "match", "", "Only list entries fuzzy-matching this pattern")
	fs.BoolVar(&args.all, "all", false, "Include entries starting with a dot")
	fs.BoolVar(&args.dryRun, "dry-run", false, "Report the chosen entry without deleting it")
	fs.StringVar(&args.configPath, "config", "", "Read settings from this file instead of the default locations")
	fs.BoolVar(&args.verbose, "verbose", false, "Write debug traces to stderr")
	fs.BoolVar(&args.version, "version", false, "Show version and exit")

	if err := fs.Parse(argv); err != nil {
		return cliArgs{}, err
	}
	switch fs.NArg() {
	case 0:
		args.dir = "."
	case 1:
		args.dir = fs.Arg(0)
	default:
		return cliArgs{}, fmt.Errorf("expected at most one directory, got %d arguments", fs.NArg())
	}

	args.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { args.set[f.Name] = true })
	return args, nil
}

// applyTo overlays explicitly set flags onto file settings.
func (a cliArgs) applyTo(s *config.Settings) {
	if a.set["viewport"] {
		s.Viewport = a.viewport
	}
	if a.set["debounce"] {
		s.Debounce = a.debounce.String()
	}
	if a.set["match"] {
		s.Match = a.match
	}
	if a.all {
		s.ShowHidden = true
	}
	if a.dryRun {
		s.DryRun = true
	}
}
