// ABOUTME: One-line styled summary of a finished picker session
// ABOUTME: Styles come from a lipgloss renderer bound to the output, so pipes get plain text

package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/mauromedda/termdrop/pkg/tui/picker"
)

type reportStyles struct {
	ok    lipgloss.Style
	muted lipgloss.Style
	fail  lipgloss.Style
	path  lipgloss.Style
}

func newReportStyles(w io.Writer) reportStyles {
	r := lipgloss.NewRenderer(w)
	return reportStyles{
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		muted: r.NewStyle().Foreground(lipgloss.Color("8")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		path:  r.NewStyle().Underline(true),
	}
}

// report writes the summary line for res. path and removeErr come from the
// action, which only ran if res.Invoked.
func report(w io.Writer, res picker.Result[string], path string, removeErr error, dryRun bool) {
	st := newReportStyles(w)

	var line string
	switch {
	case res.Outcome == picker.Confirmed && removeErr != nil:
		line = st.fail.Render("failed") + " " + removeErr.Error()
	case res.Outcome == picker.Confirmed && dryRun:
		line = st.muted.Render("would remove") + " " + st.path.Render(path)
	case res.Outcome == picker.Confirmed:
		line = st.ok.Render("removed") + " " + st.path.Render(path)
	case res.Outcome == picker.Canceled:
		line = st.muted.Render("nothing removed")
	case res.Outcome == picker.EmptyNoOp:
		line = st.muted.Render("nothing to remove")
	default:
		line = st.fail.Render("aborted")
		if res.Err != nil {
			line += " " + res.Err.Error()
		}
	}
	fmt.Fprintln(w, line)
}
