// ABOUTME: Reader turns a raw byte stream into key events, one blocking ReadEvent at a time.
// ABOUTME: Handles escape sequence buffering, lone-ESC timeout (~50ms), and bracketed paste detection.

package input

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mauromedda/termdrop/pkg/tui/key"
)

const (
	readBufSize  = 256
	escTimeout   = 50 * time.Millisecond
	bracketStart = "\x1b[200~"
	bracketEnd   = "\x1b[201~"
)

// ErrClosed is returned by ReadEvent after Close.
var ErrClosed = errors.New("input reader closed")

// parseState is the outcome of trying to decode the front of the buffer.
type parseState int

const (
	parsed     parseState = iota // one event decoded
	needData                     // nothing decodable; block for more bytes
	needDataBy                   // a prefix is pending; wait at most escTimeout
)

// readResult holds the outcome of a single Read call.
type readResult struct {
	data []byte
	err  error
}

// Reader decodes key events from an io.Reader. Reads on the source are
// demand driven: a Read is only issued when the buffer holds no complete
// event, so a Reader left idle does not consume input meant for others.
// ReadEvent is not safe for concurrent use.
type Reader struct {
	src        io.Reader
	buf        []byte
	escTimeout time.Duration

	req     chan struct{}
	res     chan readResult
	done    chan struct{}
	once    sync.Once
	pending bool  // a Read has been requested and not yet collected
	err     error // sticky source error, returned once the buffer drains
	closed  bool
}

// NewReader starts a Reader over r.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{
		src:        r,
		buf:        make([]byte, 0, readBufSize),
		escTimeout: escTimeout,
		req:        make(chan struct{}),
		res:        make(chan readResult, 1),
		done:       make(chan struct{}),
	}
	go rd.readLoop()
	return rd
}

// readLoop performs one Read per request. res is buffered so the loop never
// blocks on delivery, even after Close.
func (r *Reader) readLoop() {
	tmp := make([]byte, readBufSize)
	for {
		select {
		case <-r.done:
			return
		case <-r.req:
		}
		n, err := r.src.Read(tmp)
		data := make([]byte, n)
		copy(data, tmp[:n])
		r.res <- readResult{data: data, err: err}
		if err != nil {
			return
		}
	}
}

// ReadEvent blocks until the next event is decoded or the source fails.
// Bytes already buffered are decoded before a source error is reported.
func (r *Reader) ReadEvent() (key.Event, error) {
	if r.closed {
		return key.Event{}, ErrClosed
	}
	for {
		ev, n, state := r.parse()
		if state == parsed {
			r.buf = r.buf[n:]
			return ev, nil
		}

		if r.err != nil {
			if len(r.buf) > 0 {
				ev, n := r.resolvePartial()
				r.buf = r.buf[n:]
				return ev, nil
			}
			return key.Event{}, r.err
		}

		if !r.fill(state == needDataBy) {
			// Timed out waiting for the rest of a sequence.
			ev, n := r.resolvePartial()
			r.buf = r.buf[n:]
			return ev, nil
		}
	}
}

// Close stops the background reader. A Read already in flight on the source
// cannot be interrupted; its result is dropped.
func (r *Reader) Close() error {
	r.once.Do(func() {
		r.closed = true
		close(r.done)
	})
	return nil
}

// fill collects one Read result into the buffer. With timed set it gives up
// after escTimeout and returns false; the Read stays pending for the next call.
func (r *Reader) fill(timed bool) bool {
	if !r.pending {
		r.req <- struct{}{}
		r.pending = true
	}

	var res readResult
	if timed {
		timer := time.NewTimer(r.escTimeout)
		defer timer.Stop()
		select {
		case res = <-r.res:
		case <-timer.C:
			return false
		}
	} else {
		res = <-r.res
	}

	r.pending = false
	r.buf = append(r.buf, res.data...)
	if res.err != nil {
		r.err = res.err
	}
	return true
}

// parse attempts to decode one event from the front of r.buf.
func (r *Reader) parse() (key.Event, int, parseState) {
	if len(r.buf) == 0 {
		return key.Event{}, 0, needData
	}

	if r.buf[0] == 0x1b {
		return r.parseEscape()
	}

	if !utf8.FullRune(r.buf) {
		if len(r.buf) < utf8.UTFMax {
			return key.Event{}, 0, needDataBy
		}
		return key.KeyEvent(key.Key{Type: key.KeyUnknown}), 1, parsed
	}

	rn, size := utf8.DecodeRune(r.buf)
	if rn == utf8.RuneError {
		return key.KeyEvent(key.Key{Type: key.KeyUnknown}), 1, parsed
	}
	return key.KeyEvent(key.ParseKey(string(r.buf[:size]))), size, parsed
}

// parseEscape decodes an ESC-prefixed event. Unknown CSI sequences are
// consumed whole so that their tail is not mistaken for typed characters.
func (r *Reader) parseEscape() (key.Event, int, parseState) {
	b := r.buf
	if len(b) == 1 {
		// Lone ESC or the start of a sequence.
		return key.Event{}, 0, needDataBy
	}

	if bytes.HasPrefix(b, []byte(bracketStart)) {
		if end := bytes.Index(b[len(bracketStart):], []byte(bracketEnd)); end >= 0 {
			return key.Event{Kind: key.EventPaste}, len(bracketStart) + end + len(bracketEnd), parsed
		}
		// Paste content can be arbitrarily long; wait without a deadline.
		return key.Event{}, 0, needData
	}

	switch b[1] {
	case '[':
		n, complete := csiLength(b)
		if !complete {
			return key.Event{}, 0, needDataBy
		}
		return key.KeyEvent(key.ParseKey(string(b[:n]))), n, parsed
	case 'O':
		if len(b) < 3 {
			return key.Event{}, 0, needDataBy
		}
		return key.KeyEvent(key.ParseKey(string(b[:3]))), 3, parsed
	case 0x1b:
		// ESC ESC: the first one stands alone.
		return key.KeyEvent(key.Key{Type: key.KeyEscape}), 1, parsed
	}

	if b[1] >= 0x20 && b[1] <= 0x7e {
		return key.KeyEvent(key.ParseKey(string(b[:2]))), 2, parsed
	}
	return key.KeyEvent(key.Key{Type: key.KeyEscape}), 1, parsed
}

// csiLength returns the length of the CSI sequence at the front of b
// (which starts with ESC '['), and whether its final byte has arrived.
// A malformed sequence is reported complete up to the offending byte.
func csiLength(b []byte) (int, bool) {
	for i := 2; i < len(b); i++ {
		c := b[i]
		switch {
		case c >= 0x40 && c <= 0x7e:
			return i + 1, true
		case c >= 0x20 && c <= 0x3f:
			continue
		default:
			return i, true
		}
	}
	return 0, false
}

// resolvePartial decodes whatever prefix is buffered when no more bytes are
// coming (timeout or source error). It always consumes at least one byte.
func (r *Reader) resolvePartial() (key.Event, int) {
	b := r.buf
	switch {
	case bytes.HasPrefix(b, []byte(bracketStart)):
		return key.Event{Kind: key.EventPaste}, len(b)
	case len(b) == 1 && b[0] == 0x1b:
		return key.KeyEvent(key.Key{Type: key.KeyEscape}), 1
	case len(b) == 2 && b[0] == 0x1b:
		return key.KeyEvent(key.ParseKey(string(b))), 2
	case b[0] == 0x1b:
		return key.KeyEvent(key.Key{Type: key.KeyUnknown}), len(b)
	}
	return key.KeyEvent(key.Key{Type: key.KeyUnknown}), 1
}
