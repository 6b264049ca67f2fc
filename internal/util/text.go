// Package util holds text helpers for terminal listings.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "…"

// Truncate shortens s to at most width terminal columns, ending in an
// ellipsis when anything was cut. Escape sequences and wide runes are
// measured the way the terminal draws them.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	if width == 1 {
		return ellipsis
	}
	return ansi.Truncate(s, width, ellipsis)
}

// OneLine collapses every run of whitespace in s, line breaks included,
// into a single space.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Cell prepares free text such as a chat name or a message summary for a
// table cell of the given width.
func Cell(s string, width int) string {
	return Truncate(OneLine(s), width)
}
