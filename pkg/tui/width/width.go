// ABOUTME: Display width, sanitizing, and truncation of single-line labels
// ABOUTME: Grapheme-aware via uniseg and go-runewidth; fast path for pure ASCII

package width

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Ellipsis marks a truncated label.
const Ellipsis = "…"

// VisibleWidth returns the number of terminal cells s occupies. Grapheme
// clusters count once, East Asian wide characters and emoji count twice.
// s must not contain escape sequences; see Sanitize.
func VisibleWidth(s string) int {
	if isPlainASCII(s) {
		return len(s)
	}
	w := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		w += graphemeWidth(cluster)
	}
	return w
}

// isPlainASCII returns true if s contains only printable ASCII (0x20-0x7E).
func isPlainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// graphemeWidth returns the display width of a single grapheme cluster,
// taken from its first rune.
func graphemeWidth(cluster string) int {
	if cluster == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(cluster)
	return runewidth.RuneWidth(r)
}

// Sanitize makes s safe to print on one line of a frame: control characters
// (including ESC, CR and LF) become U+FFFD, tabs become a space.
func Sanitize(s string) string {
	if isPlainASCII(s) {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case unicode.IsControl(r):
			return utf8.RuneError
		}
		return r
	}, s)
}

// Truncate shortens s to at most maxWidth cells, replacing the tail with an
// ellipsis. A non-positive maxWidth disables truncation.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 || VisibleWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return Ellipsis
	}

	var b strings.Builder
	target := maxWidth - 1 // room for the ellipsis
	col := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		cw := graphemeWidth(cluster)
		if col+cw > target {
			break
		}
		b.WriteString(cluster)
		col += cw
	}
	b.WriteString(Ellipsis)
	return b.String()
}
