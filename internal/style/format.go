package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TruncateString truncates a string to fit within maxWidth, adding ellipsis if needed.
func TruncateString(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}

	result := ""
	for _, r := range s {
		test := result + string(r)
		if lipgloss.Width(test) > maxWidth-3 {
			break
		}
		result = test
	}
	return result + "..."
}

// Mark is a one-character state glyph.
type Mark int

const (
	MarkOK Mark = iota
	MarkPartial
	MarkMissing
	MarkAbsent
	MarkFailed
)

var markGlyphs = map[Mark]string{
	MarkOK:      "✓",
	MarkPartial: "◐",
	MarkMissing: "○",
	MarkAbsent:  "-",
	MarkFailed:  "✗",
}

// Mark renders a glyph in its state color.
func (s *Styles) Mark(m Mark) string {
	g := markGlyphs[m]
	switch m {
	case MarkOK:
		return s.Success.Render(g)
	case MarkPartial:
		return s.Warning.Render(g)
	case MarkFailed:
		return s.Error.Render(g)
	default:
		return s.Muted.Render(g)
	}
}

// KeyValue renders an aligned "label : value" row.
func (s *Styles) KeyValue(label string, width int, value string) string {
	pad := max(width-lipgloss.Width(label), 0)
	return "  " + s.Label.Render(label+strings.Repeat(" ", pad)) + " : " + value
}
