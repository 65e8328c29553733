// Package style contains Lip Gloss styles for pulse's command output.
package style

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#303030", Dark: "#CCCCCC"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#696969"}

	// Semantic color names - Border
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#BBBBBB", Dark: "#696969"}

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#D4A017", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	StatusInfoColor    = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}
)

// Styles is the set of styles bound to one output writer. Color is dropped
// automatically when the writer is not a terminal.
type Styles struct {
	r *lipgloss.Renderer

	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	DiffAdded   lipgloss.Style
	DiffRemoved lipgloss.Style
	DiffEqual   lipgloss.Style
	DiffHeader  lipgloss.Style
}

// New builds styles for output written to w.
func New(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	return &Styles{
		r:       r,
		Title:   r.NewStyle().Bold(true).Foreground(TextPrimaryColor),
		Label:   r.NewStyle().Foreground(TextSecondaryColor),
		Value:   r.NewStyle().Foreground(TextPrimaryColor),
		Muted:   r.NewStyle().Foreground(TextMutedColor),
		Success: r.NewStyle().Foreground(StatusSuccessColor),
		Warning: r.NewStyle().Foreground(StatusWarningColor),
		Error:   r.NewStyle().Foreground(StatusErrorColor).Bold(true),
		Info:    r.NewStyle().Foreground(StatusInfoColor),

		DiffAdded:   r.NewStyle().Foreground(StatusSuccessColor),
		DiffRemoved: r.NewStyle().Foreground(StatusErrorColor),
		DiffEqual:   r.NewStyle().Foreground(TextMutedColor),
		DiffHeader:  r.NewStyle().Bold(true).Foreground(StatusInfoColor),
	}
}

// Renderer exposes the underlying renderer for ad hoc styles.
func (s *Styles) Renderer() *lipgloss.Renderer { return s.r }
