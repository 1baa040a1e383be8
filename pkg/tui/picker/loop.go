// ABOUTME: Interaction loop run by the session worker: raw mode, debounced key dispatch, one-shot action
// ABOUTME: Raw mode is released on every exit path; the chosen action is removed from the table before it runs

package picker

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mauromedda/termdrop/internal/log"
	"github.com/mauromedda/termdrop/pkg/tui/key"
	"github.com/mauromedda/termdrop/pkg/tui/width"
)

// Messages printed on a fresh line when the loop ends.
const (
	confirmPrefix = "Confirm delete: "
	canceledLine  = "Delete canceled."
	emptyLine     = "No options available."
)

// Outcome is how an interaction loop ended.
type Outcome int

const (
	// Confirmed means the user pressed Enter and the selected entry was dispatched.
	Confirmed Outcome = iota + 1
	// Canceled means the user pressed Esc.
	Canceled
	// EmptyNoOp means the choice table was empty; raw mode was never touched.
	EmptyNoOp
	// Aborted means a terminal I/O error ended the session; no action ran.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case Canceled:
		return "canceled"
	case EmptyNoOp:
		return "empty"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result describes a finished session.
type Result[K comparable] struct {
	Outcome Outcome
	// Selected is the confirmed key. Zero unless Outcome is Confirmed.
	Selected K
	// Invoked reports whether an action was found for Selected and called.
	Invoked bool
	// Err is the error that aborted the session, already reported on the
	// diagnostic stream.
	Err error
}

// phase tracks where the loop is in its lifecycle; it is logged at debug level.
type phase int

const (
	phaseUninitialized phase = iota
	phaseRawAcquired
	phaseRunning
	phaseDispatching
	phaseTerminating
	phaseReleased
)

var phaseNames = [...]string{
	phaseUninitialized: "uninitialized",
	phaseRawAcquired:   "raw-acquired",
	phaseRunning:       "running",
	phaseDispatching:   "dispatching",
	phaseTerminating:   "terminating",
	phaseReleased:      "released",
}

func (p phase) String() string { return phaseNames[p] }

// table is the choice table shared between the session and its worker.
// The lock is held only to snapshot keys and to take the selected action.
type table[K comparable] struct {
	mu      sync.Mutex
	actions map[K]func(K)
}

func (t *table[K]) keys() []K {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]K, 0, len(t.actions))
	for k := range t.actions {
		keys = append(keys, k)
	}
	return keys
}

// take removes k's action and returns it. The action must be called
// after the lock is released.
func (t *table[K]) take(k K) (func(K), bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	action, ok := t.actions[k]
	if ok {
		delete(t.actions, k)
	}
	return action, ok
}

// loop is the state of one interaction loop. It is owned by the worker goroutine.
type loop[K comparable] struct {
	table    *table[K]
	driver   Driver
	log      *log.Logger
	debounce time.Duration
	now      func() time.Time
	order    func(a, b string) int
	viewport int
	maxLabel int

	phase     phase
	options   []K
	names     []string // sanitized display names, for messages
	labels    []string // names truncated to the line width, for frames
	cursor    int
	lastEvent time.Time
}

func newLoop[K comparable](t *table[K], viewport int, s *settings) *loop[K] {
	l := &loop[K]{
		table:    t,
		driver:   s.driver,
		log:      s.logger(),
		debounce: s.debounce,
		now:      s.now,
		order:    s.order,
		viewport: viewport,
	}
	if s.lineWidth >= 3 {
		l.maxLabel = s.lineWidth - 2 // "> " prefix
	}
	return l
}

func (l *loop[K]) setPhase(p phase) {
	l.log.Debug("picker: %s -> %s", l.phase, p)
	l.phase = p
}

// run drives the loop to one of its four outcomes.
func (l *loop[K]) run() Result[K] {
	l.snapshot()
	if len(l.options) == 0 {
		l.println(emptyLine)
		return Result[K]{Outcome: EmptyNoOp}
	}

	if err := l.driver.EnterRawMode(); err != nil {
		merr := &TerminalModeError{Op: "enable", Err: err}
		l.log.Error("%v", merr)
		return Result[K]{Outcome: Aborted, Err: merr}
	}
	l.setPhase(phaseRawAcquired)
	defer l.release()

	return l.interact()
}

// snapshot fixes the render order for the lifetime of the session.
func (l *loop[K]) snapshot() {
	keys := l.table.keys()
	type entry struct {
		key  K
		name string
	}
	entries := make([]entry, len(keys))
	for i, k := range keys {
		entries[i] = entry{key: k, name: width.Sanitize(fmt.Sprint(k))}
	}
	if l.order != nil {
		slices.SortStableFunc(entries, func(a, b entry) int { return l.order(a.name, b.name) })
	}

	l.options = make([]K, len(entries))
	l.names = make([]string, len(entries))
	l.labels = make([]string, len(entries))
	for i, e := range entries {
		l.options[i] = e.key
		l.names[i] = e.name
		l.labels[i] = width.Truncate(e.name, l.maxLabel)
	}
}

// release disables raw mode. A failure is reported but does not change the outcome.
func (l *loop[K]) release() {
	if err := l.driver.ExitRawMode(); err != nil {
		l.log.Error("%v", &TerminalModeError{Op: "disable", Err: err})
	}
	l.setPhase(phaseReleased)
}

func (l *loop[K]) interact() Result[K] {
	l.cursor = 0
	l.render()
	l.lastEvent = l.now()
	l.setPhase(phaseRunning)

	n := len(l.options)
	for {
		ev, err := l.driver.ReadEvent()
		if err != nil {
			rerr := &InputReadError{Err: err}
			l.log.Error("%v", rerr)
			l.setPhase(phaseTerminating)
			return Result[K]{Outcome: Aborted, Err: rerr}
		}
		if !ev.IsKey() {
			continue
		}

		now := l.now()
		if now.Sub(l.lastEvent) < l.debounce {
			l.log.Debug("picker: debounced %s", ev)
			continue
		}

		switch ev.Key.Type {
		case key.KeyUp:
			l.lastEvent = now
			l.cursor = (l.cursor - 1 + n) % n
			l.render()
		case key.KeyDown:
			l.lastEvent = now
			l.cursor = (l.cursor + 1) % n
			l.render()
		case key.KeyEnter:
			l.lastEvent = now
			return l.confirm()
		case key.KeyEscape:
			l.lastEvent = now
			l.println(canceledLine)
			l.setPhase(phaseTerminating)
			return Result[K]{Outcome: Canceled}
		default:
			l.log.Debug("picker: ignored %s", ev)
		}
	}
}

// confirm prints the selection, takes its action out of the table and runs it.
func (l *loop[K]) confirm() Result[K] {
	l.setPhase(phaseDispatching)
	selected := l.options[l.cursor]
	l.println(confirmPrefix + l.names[l.cursor])

	action, ok := l.table.take(selected)
	invoked := ok && action != nil
	if invoked {
		action(selected)
	}

	l.setPhase(phaseTerminating)
	return Result[K]{Outcome: Confirmed, Selected: selected, Invoked: invoked}
}

func (l *loop[K]) render() {
	if err := Render(l.driver, l.labels, l.cursor, l.viewport); err != nil {
		l.log.Error("%v", err)
	}
}

// println writes msg on a fresh line and leaves the cursor on the next one.
func (l *loop[K]) println(msg string) {
	if _, err := l.driver.Write([]byte(crlf + msg + crlf)); err != nil {
		l.log.Error("writing message: %v", err)
	}
	if err := l.driver.Flush(); err != nil {
		l.log.Error("%v", &OutputFlushError{Err: err})
	}
}
