// ABOUTME: Picker session: Launch spawns the interaction loop on a worker goroutine, Wait joins it once
// ABOUTME: A process-wide semaphore keeps at most one session on the terminal at a time

package picker

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/mauromedda/termdrop/pkg/tui/key"
	"github.com/mauromedda/termdrop/pkg/tui/terminal"
)

// Driver is the terminal surface a session consumes. terminal.ProcessTerminal
// and terminal.VirtualTerminal both satisfy it.
type Driver interface {
	EnterRawMode() error
	ExitRawMode() error
	ReadEvent() (key.Event, error)
	Write(p []byte) (int, error)
	Flush() error
}

// terminalGuard is held by a session from Launch until its worker has
// released raw mode and returned.
var terminalGuard = semaphore.NewWeighted(1)

// Session is one running picker. It must be joined with Wait exactly once.
type Session[K comparable] struct {
	table  *table[K]
	done   chan struct{}
	joined atomic.Bool

	// Written by the worker before done is closed.
	result Result[K]
	fault  *terminal.PanicError
}

// Launch takes ownership of choices and starts the interaction loop on a
// background goroutine, returning immediately. No terminal I/O happens on
// the calling goroutine. The confirmed entry's action runs on the worker
// goroutine, with the terminal still in raw mode.
func Launch[K comparable](choices map[K]func(K), viewport int, opts ...Option) (*Session[K], error) {
	if viewport < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidViewport, viewport)
	}
	s := newSettings(opts)
	if s.driver == nil {
		s.driver = terminal.NewProcessTerminal()
	}
	if !terminalGuard.TryAcquire(1) {
		return nil, ErrSessionActive
	}

	if choices == nil {
		choices = map[K]func(K){}
	}
	sess := &Session[K]{
		table: &table[K]{actions: choices},
		done:  make(chan struct{}),
	}
	l := newLoop(sess.table, viewport, s)

	go func() {
		defer close(sess.done)
		defer terminalGuard.Release(1)
		defer terminal.RecoverGoroutine(l.log.Writer(), func(pe *terminal.PanicError) {
			sess.fault = pe
			sess.result = Result[K]{Outcome: Aborted, Err: pe}
		})
		sess.result = l.run()
	}()

	return sess, nil
}

// Done is closed once the worker has finished, for callers that select.
func (s *Session[K]) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the worker has released the terminal and returned,
// including any action it dispatched. Aborted sessions are not errors: their
// cause was already reported and is in Result.Err. A worker that panicked,
// for instance inside the action, yields an error wrapping ErrWorkerFault.
// Calls after the first return ErrAlreadyJoined.
func (s *Session[K]) Wait() (Result[K], error) {
	if !s.joined.CompareAndSwap(false, true) {
		return Result[K]{}, ErrAlreadyJoined
	}
	<-s.done
	if s.fault != nil {
		return s.result, fmt.Errorf("%w: %w", ErrWorkerFault, s.fault)
	}
	return s.result, nil
}
