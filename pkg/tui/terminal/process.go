// ABOUTME: ProcessTerminal implements Terminal using os.Stdin, os.Stdout, and golang.org/x/term.
// ABOUTME: Manages raw mode state, buffers output until Flush, and shares one stdin event reader.

package terminal

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/mauromedda/termdrop/pkg/tui/input"
	"github.com/mauromedda/termdrop/pkg/tui/key"
)

// stdinEvents is shared by every ProcessTerminal so that a read left pending
// by one session is collected by the next instead of being lost.
var stdinEvents = sync.OnceValue(func() *input.Reader {
	return input.NewReader(os.Stdin)
})

// ProcessTerminal is a real terminal backed by the process's stdio and x/term.
type ProcessTerminal struct {
	mu       sync.Mutex
	out      *bufio.Writer
	oldState *term.State
}

// NewProcessTerminal returns a ProcessTerminal ready for use.
func NewProcessTerminal() *ProcessTerminal {
	return &ProcessTerminal{out: bufio.NewWriter(os.Stdout)}
}

// IsTerminal reports whether both stdin and stdout are attached to a terminal.
func (t *ProcessTerminal) IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// EnterRawMode switches stdin to raw mode, saving the previous state.
func (t *ProcessTerminal) EnterRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.oldState != nil {
		return nil
	}
	state, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	t.oldState = state
	return nil
}

// ExitRawMode restores the terminal to its previous state.
func (t *ProcessTerminal) ExitRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.oldState == nil {
		return nil
	}
	if err := term.Restore(int(os.Stdin.Fd()), t.oldState); err != nil {
		return fmt.Errorf("exiting raw mode: %w", err)
	}
	t.oldState = nil
	return nil
}

// ReadEvent blocks until the next key or paste event arrives on stdin.
func (t *ProcessTerminal) ReadEvent() (key.Event, error) {
	ev, err := stdinEvents().ReadEvent()
	if err != nil {
		return key.Event{}, fmt.Errorf("reading stdin: %w", err)
	}
	return ev, nil
}

// Write buffers p for stdout; nothing reaches the terminal until Flush.
func (t *ProcessTerminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.out.Write(p)
	if err != nil {
		return n, fmt.Errorf("writing to stdout: %w", err)
	}
	return n, nil
}

// Flush writes buffered output to stdout.
func (t *ProcessTerminal) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.out.Flush(); err != nil {
		return fmt.Errorf("flushing stdout: %w", err)
	}
	return nil
}

// Size returns the current terminal dimensions.
func (t *ProcessTerminal) Size() (width, height int, err error) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0, fmt.Errorf("getting terminal size: %w", err)
	}
	return w, h, nil
}
