// ABOUTME: Functional options for Launch: driver, diagnostics, debounce, clock, ordering, line width
// ABOUTME: Defaults target the process terminal with a 300ms debounce window

package picker

import (
	"io"
	"log/slog"
	"time"

	"github.com/mauromedda/termdrop/internal/log"
)

// DefaultDebounce is the suppression window following an acted-upon key.
const DefaultDebounce = 300 * time.Millisecond

// settings collects the effect of all options.
type settings struct {
	driver    Driver
	diag      io.Writer
	level     *slog.Level
	debounce  time.Duration
	now       func() time.Time
	order     func(a, b string) int
	lineWidth int
}

// Option configures a session.
type Option func(*settings)

// WithDriver replaces the process terminal, e.g. with a terminal.VirtualTerminal.
func WithDriver(d Driver) Option {
	return func(s *settings) { s.driver = d }
}

// WithDiagnostics sends error reports to w instead of stderr.
func WithDiagnostics(w io.Writer) Option {
	return func(s *settings) { s.diag = w }
}

// WithLogLevel sets the minimum level of diagnostic output. Errors are
// always reported; LevelDebug adds key and phase traces.
func WithLogLevel(l slog.Level) Option {
	return func(s *settings) { s.level = &l }
}

// WithDebounce overrides the 300ms suppression window. Zero disables it.
func WithDebounce(d time.Duration) Option {
	return func(s *settings) { s.debounce = d }
}

// WithClock replaces time.Now as the debounce clock.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithLabelOrder sorts the option snapshot by display label once, before
// the first frame. Without it the order is the map's iteration order.
func WithLabelOrder(cmp func(a, b string) int) Option {
	return func(s *settings) { s.order = cmp }
}

// WithLineWidth truncates labels so that each option line fits in cols
// terminal columns. Values below 3 disable truncation.
func WithLineWidth(cols int) Option {
	return func(s *settings) { s.lineWidth = cols }
}

func newSettings(opts []Option) *settings {
	s := &settings{
		debounce: DefaultDebounce,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// logger builds the diagnostic logger the worker reports through.
func (s *settings) logger() *log.Logger {
	if s.diag == nil && s.level == nil {
		return log.Default()
	}
	w := s.diag
	if w == nil {
		w = log.Default().Writer()
	}
	l := log.New(w)
	if s.level != nil {
		l.SetLevel(*s.level)
	} else {
		l.SetLevel(log.GetLevel())
	}
	return l
}
