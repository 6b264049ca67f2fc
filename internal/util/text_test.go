package util

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"short unchanged", "hello", 10, "hello"},
		{"exact width unchanged", "hello", 5, "hello"},
		{"cut with ellipsis", "hello world", 8, "hello w…"},
		{"width one", "hello", 1, "…"},
		{"zero width", "hello", 0, ""},
		{"negative width", "hello", -3, ""},
		{"empty", "", 4, ""},
		{"wide runes", "日本語テスト", 7, "日本語…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.width); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
			}
		})
	}
}

func TestTruncateKeepsStyling(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("alice@example.org")
	got := Truncate(styled, 8)
	if w := lipgloss.Width(got); w > 8 {
		t.Errorf("width = %d, want <= 8", w)
	}
	if !strings.HasSuffix(got, ellipsis) && !strings.Contains(got, ellipsis) {
		t.Errorf("Truncate(%q) = %q, want an ellipsis", styled, got)
	}
}

func TestOneLine(t *testing.T) {
	tests := map[string]string{
		"":                       "",
		"plain":                  "plain",
		"  padded  ":             "padded",
		"two\nlines":             "two lines",
		"tabs\t\tand\r\nbreaks ": "tabs and breaks",
	}
	for in, want := range tests {
		if got := OneLine(in); got != want {
			t.Errorf("OneLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCell(t *testing.T) {
	if got := Cell("Hello\nthere, how are you?", 12); got != "Hello there…" {
		t.Errorf("Cell = %q", got)
	}
}
