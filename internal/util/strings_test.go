package util

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"tiny maxLen is just ellipsis", "hello", 3, "..."},
		{"multibyte runes counted once", "héllo wörld", 8, "héllo..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q",
					tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	styled := lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Render("agent-12345678 busy")

	got := TruncateANSI(styled, 10)
	if w := lipgloss.Width(got); w > 10 {
		t.Errorf("width = %d, want <= 10", w)
	}
	if !strings.Contains(got, "...") {
		t.Errorf("truncated output missing ellipsis: %q", got)
	}

	// Strings that already fit pass through untouched.
	if got := TruncateANSI(styled, 100); got != styled {
		t.Errorf("TruncateANSI widened string changed: %q", got)
	}

	if got := TruncateANSI("anything", 2); got != "..." {
		t.Errorf("tiny maxWidth = %q, want ellipsis", got)
	}
}
