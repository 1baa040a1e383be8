// ABOUTME: VirtualTerminal implements Terminal for testing without a real TTY.
// ABOUTME: Captures output, tracks raw-mode transitions, decodes scripted input, and injects failures.

package terminal

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mauromedda/termdrop/pkg/tui/input"
	"github.com/mauromedda/termdrop/pkg/tui/key"
)

// VirtualTerminal is a fake Terminal for unit tests.
// It records written output and tracks raw-mode transitions.
type VirtualTerminal struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	width      int
	height     int
	rawMode    bool
	enterCount int
	exitCount  int
	flushCount int
	enterErr   error
	exitErr    error
	flushErr   error
	events     *input.Reader
}

// NewVirtualTerminal returns a VirtualTerminal with the given dimensions and no input.
func NewVirtualTerminal(width, height int) *VirtualTerminal {
	return &VirtualTerminal{
		width:  width,
		height: height,
	}
}

// EnterRawMode records a raw-mode entry, or fails if FailEnter was set.
func (v *VirtualTerminal) EnterRawMode() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.enterErr != nil {
		return fmt.Errorf("entering raw mode: %w", v.enterErr)
	}
	v.rawMode = true
	v.enterCount++
	return nil
}

// ExitRawMode records a raw-mode exit, or fails if FailExit was set.
// A failed exit still counts as an attempt.
func (v *VirtualTerminal) ExitRawMode() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.exitCount++
	if v.exitErr != nil {
		return fmt.Errorf("exiting raw mode: %w", v.exitErr)
	}
	v.rawMode = false
	return nil
}

// ReadEvent decodes the next event from the scripted input.
// Without input it reports io.EOF.
func (v *VirtualTerminal) ReadEvent() (key.Event, error) {
	v.mu.Lock()
	events := v.events
	v.mu.Unlock()

	if events == nil {
		return key.Event{}, io.EOF
	}
	return events.ReadEvent()
}

// Write appends data to the internal buffer.
func (v *VirtualTerminal) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	n, err := v.buf.Write(p)
	if err != nil {
		return n, fmt.Errorf("writing to virtual buffer: %w", err)
	}
	return n, nil
}

// Flush counts the call and returns the injected flush error, if any.
func (v *VirtualTerminal) Flush() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.flushCount++
	if v.flushErr != nil {
		return fmt.Errorf("flushing virtual buffer: %w", v.flushErr)
	}
	return nil
}

// Size returns the configured terminal dimensions.
func (v *VirtualTerminal) Size() (width, height int, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.width, v.height, nil
}

// --- Test helpers (not part of Terminal interface) ---

// SetInput makes r the source of ReadEvent, decoded through input.Reader.
func (v *VirtualTerminal) SetInput(r io.Reader) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.events != nil {
		_ = v.events.Close()
	}
	v.events = input.NewReader(r)
}

// Type scripts raw terminal bytes, e.g. "\x1b[B\r" for Down then Enter.
func (v *VirtualTerminal) Type(s string) {
	v.SetInput(strings.NewReader(s))
}

// FailEnter makes subsequent EnterRawMode calls fail with err.
func (v *VirtualTerminal) FailEnter(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enterErr = err
}

// FailExit makes subsequent ExitRawMode calls fail with err.
func (v *VirtualTerminal) FailExit(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.exitErr = err
}

// FailFlush makes subsequent Flush calls fail with err.
func (v *VirtualTerminal) FailFlush(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.flushErr = err
}

// Output returns everything written so far.
func (v *VirtualTerminal) Output() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.buf.String()
}

// Reset clears the output buffer.
func (v *VirtualTerminal) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.buf.Reset()
}

// IsRawMode reports whether raw mode is currently active.
func (v *VirtualTerminal) IsRawMode() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.rawMode
}

// EnterCount returns how many times EnterRawMode succeeded.
func (v *VirtualTerminal) EnterCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.enterCount
}

// ExitCount returns how many times ExitRawMode was called.
func (v *VirtualTerminal) ExitCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.exitCount
}

// FlushCount returns how many times Flush was called.
func (v *VirtualTerminal) FlushCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.flushCount
}
