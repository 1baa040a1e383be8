// ABOUTME: Defines the Terminal interface for raw mode, event input, buffered output, and size queries.
// ABOUTME: Abstracts terminal operations so implementations can target real or virtual terminals.

package terminal

import "github.com/mauromedda/termdrop/pkg/tui/key"

// Terminal abstracts low-level terminal operations: raw mode, blocking
// event reads, buffered output with an explicit flush, and size queries.
type Terminal interface {
	EnterRawMode() error
	ExitRawMode() error
	ReadEvent() (key.Event, error)
	Write(p []byte) (n int, err error)
	Flush() error
	Size() (width, height int, err error)
}
