package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Border characters (rounded).
const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// RenderSection renders rows inside a rounded border with an inline title:
//
//	╭─ Title (hint) ──────╮
//	│row                  │
//	╰─────────────────────╯
//
// width is the outer width; it grows to fit the widest row.
func (s *Styles) RenderSection(rows []string, title, hint string, width int) string {
	for _, row := range rows {
		width = max(width, lipgloss.Width(row)+2)
	}
	borderStyle := s.r.NewStyle().Foreground(BorderDefaultColor)
	innerWidth := max(width-2, 1)

	var top string
	if title == "" {
		top = borderStyle.Render(borderTopLeft + strings.Repeat(borderHorizontal, innerWidth) + borderTopRight)
	} else {
		titleLen := lipgloss.Width(title)
		if hint != "" {
			titleLen = lipgloss.Width(title + " (" + hint + ")")
		}
		dashesAfter := max(innerWidth-titleLen-3, 0)

		top = borderStyle.Render(borderTopLeft+borderHorizontal+" ") + s.Title.Render(title)
		if hint != "" {
			top += " " + s.Muted.Render("("+hint+")")
		}
		top += borderStyle.Render(" " + strings.Repeat(borderHorizontal, dashesAfter) + borderTopRight)
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, top)
	for _, row := range rows {
		padding := strings.Repeat(" ", max(innerWidth-lipgloss.Width(row), 0))
		lines = append(lines, borderStyle.Render(borderVertical)+row+padding+borderStyle.Render(borderVertical))
	}
	lines = append(lines, borderStyle.Render(borderBottomLeft+strings.Repeat(borderHorizontal, innerWidth)+borderBottomRight))
	return strings.Join(lines, "\n")
}
