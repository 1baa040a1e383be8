// ABOUTME: RecoverGoroutine turns a panic in a terminal-owning goroutine into a reported PanicError.
// ABOUTME: Writes the panic value and stack trace to a diagnostic writer without exiting the process.

package terminal

import (
	"fmt"
	"io"
	"runtime/debug"
)

// PanicError wraps a value recovered from a panicking goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("goroutine panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// RecoverGoroutine should be deferred at the top of background goroutines
// that drive the terminal. Raw mode must already be released by the
// goroutine's own deferred cleanup, which runs before this during a panic.
// On panic it prints the value and stack trace to diag and hands the
// PanicError to report; it does not call os.Exit.
func RecoverGoroutine(diag io.Writer, report func(*PanicError)) {
	r := recover()
	if r == nil {
		return
	}

	pe := &PanicError{Value: r, Stack: debug.Stack()}
	if diag != nil {
		fmt.Fprintf(diag, "\r\ngoroutine panic: %v\r\n\r\n%s\r\n", r, pe.Stack)
	}
	if report != nil {
		report(pe)
	}
}
