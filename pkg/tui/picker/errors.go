// ABOUTME: Error taxonomy for picker sessions: terminal mode, input read, output flush, worker fault
// ABOUTME: Typed errors wrap their cause; sentinels cover launch preconditions and double joins

package picker

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidViewport is returned by Launch when the viewport is smaller than one line.
	ErrInvalidViewport = errors.New("picker: viewport must be at least 1")

	// ErrSessionActive is returned by Launch while another session owns the terminal.
	ErrSessionActive = errors.New("picker: another session is active")

	// ErrAlreadyJoined is returned by every Wait after the first.
	ErrAlreadyJoined = errors.New("picker: session already joined")

	// ErrWorkerFault marks a worker that terminated abnormally. Wait wraps it
	// together with the recovered *terminal.PanicError.
	ErrWorkerFault = errors.New("picker: worker fault")
)

// TerminalModeError reports a failure to enable or disable raw mode.
type TerminalModeError struct {
	Op  string // "enable" or "disable"
	Err error
}

func (e *TerminalModeError) Error() string {
	return fmt.Sprintf("failed to %s raw mode: %v", e.Op, e.Err)
}

func (e *TerminalModeError) Unwrap() error { return e.Err }

// InputReadError reports a failure while reading a terminal event.
type InputReadError struct {
	Err error
}

func (e *InputReadError) Error() string {
	return fmt.Sprintf("failed to read event: %v", e.Err)
}

func (e *InputReadError) Unwrap() error { return e.Err }

// OutputFlushError reports a failure to flush rendered output.
type OutputFlushError struct {
	Err error
}

func (e *OutputFlushError) Error() string {
	return fmt.Sprintf("failed to flush stdout: %v", e.Err)
}

func (e *OutputFlushError) Unwrap() error { return e.Err }
