// ABOUTME: CLI entry point for termdrop: pick one entry of a directory and delete it
// ABOUTME: Loads config, lists entries, runs a picker session on the terminal, reports the outcome

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mauromedda/termdrop/internal/config"
	tdlog "github.com/mauromedda/termdrop/internal/log"
	"github.com/mauromedda/termdrop/pkg/tui/picker"
	"github.com/mauromedda/termdrop/pkg/tui/terminal"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitFault = 2
)

// console is the terminal a session runs on, plus what main needs to know about it.
type console interface {
	picker.Driver
	IsTerminal() bool
	Size() (width, height int, err error)
}

func main() {
	os.Exit(run(os.Args[1:], terminal.NewProcessTerminal(), os.Stdout, os.Stderr))
}

// run performs the whole command and returns the process exit code.
func run(argv []string, con console, stdout, stderr io.Writer) int {
	args, err := parseFlags(argv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	if args.version {
		fmt.Fprintf(stdout, "termdrop %s (%s) built %s\n", version, commit, date)
		return exitOK
	}

	if err := execute(args, con, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if errors.Is(err, picker.ErrWorkerFault) {
			return exitFault
		}
		return exitError
	}
	return exitOK
}

func execute(args cliArgs, con console, stdout, stderr io.Writer) error {
	logger := tdlog.New(stderr)
	if args.verbose {
		logger.SetLevel(tdlog.LevelDebug)
	}

	settings, err := loadSettings(args)
	if err != nil {
		return err
	}
	debounce, err := settings.DebounceDuration()
	if err != nil {
		return err
	}

	entries, err := listEntries(args.dir, settings.ShowHidden)
	if err != nil {
		return err
	}
	entries = filterEntries(entries, settings.Match)
	logger.Debug("termdrop: %d entries in %s after filter %q", len(entries), args.dir, settings.Match)

	if !con.IsTerminal() {
		return errors.New("stdin and stdout must be a terminal")
	}

	opts := []picker.Option{
		picker.WithDriver(con),
		picker.WithDiagnostics(stderr),
		picker.WithLogLevel(logger.Level()),
		picker.WithDebounce(debounce),
		picker.WithLabelOrder(strings.Compare),
	}
	if cols, _, err := con.Size(); err == nil {
		opts = append(opts, picker.WithLineWidth(cols))
	}

	rm := newRemover(entries, settings.DryRun)
	sess, err := picker.Launch(rm.choices(), settings.Viewport, opts...)
	if err != nil {
		return fmt.Errorf("starting picker: %w", err)
	}
	res, err := sess.Wait()
	if err != nil {
		return err
	}

	path, removeErr := rm.outcome()
	report(stdout, res, path, removeErr, settings.DryRun)
	if removeErr != nil {
		return removeErr
	}
	if res.Outcome == picker.Aborted {
		return fmt.Errorf("picker aborted: %w", res.Err)
	}
	return nil
}

// loadSettings reads the config files, then overlays explicit flags.
func loadSettings(args cliArgs) (*config.Settings, error) {
	var (
		s   *config.Settings
		err error
	)
	if args.configPath != "" {
		s, err = config.LoadFile(args.configPath)
	} else {
		var cwd string
		cwd, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		s, err = config.Load(cwd)
	}
	if err != nil {
		return nil, err
	}

	args.applyTo(s)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
