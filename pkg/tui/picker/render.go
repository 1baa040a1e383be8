// ABOUTME: Renderer paints one picker frame: clear, prompt, status, visible window, footer
// ABOUTME: Window centers the cursor in a fixed-size viewport, clamped at both ends of the list

package picker

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ANSI control sequences written by the renderer.
const (
	clearScreen = "\x1b[2J"
	cursorHome  = "\x1b[1;1H"
	reverse     = "\x1b[7m"
	resetSGR    = "\x1b[0m"
	crlf        = "\r\n"
)

const (
	promptLine = "Please select. (ESC to cancel):"
	footerLine = "↑: Up | ↓: Down | Enter: Confirm | ESC: Cancel"
)

// FlushWriter is an output stream with an explicit flush.
type FlushWriter interface {
	io.Writer
	Flush() error
}

// Window returns the half-open index range [start, end) of the options
// visible when cursor is highlighted in a viewport of size lines.
// With total <= size every option is visible. Otherwise the cursor is
// centered where possible and the window is clamped to exactly size lines.
func Window(total, cursor, size int) (start, end int) {
	if total <= size {
		return 0, total
	}
	start = max(cursor-size/2, 0)
	start = min(start, total-size)
	return start, start + size
}

// Render paints one frame of labels with the option at cursor highlighted.
// Every line is written even if a flush fails; the returned error joins any
// *OutputFlushError and write errors, and is meant to be reported, not acted on.
func Render(out FlushWriter, labels []string, cursor, size int) error {
	var errs []error
	write := func(s string) {
		if _, err := io.WriteString(out, s); err != nil {
			errs = append(errs, err)
		}
	}
	flush := func() {
		if err := out.Flush(); err != nil {
			errs = append(errs, &OutputFlushError{Err: err})
		}
	}

	write(clearScreen + cursorHome)
	flush()

	if len(labels) == 0 {
		write("No options available." + crlf + "Press ESC to exit." + crlf)
		flush()
		return errors.Join(errs...)
	}

	start, end := Window(len(labels), cursor, size)

	var b strings.Builder
	b.WriteString(promptLine + crlf)
	fmt.Fprintf(&b, "Total: %d | Showing: %d - %d"+crlf, len(labels), start+1, end)
	b.WriteString(crlf)
	for i := start; i < end; i++ {
		if i == cursor {
			b.WriteString(reverse + "> " + labels[i] + resetSGR + crlf)
		} else {
			b.WriteString("  " + labels[i] + crlf)
		}
	}
	b.WriteString(crlf)
	b.WriteString(footerLine + crlf)

	write(b.String())
	flush()
	return errors.Join(errs...)
}
