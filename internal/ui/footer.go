package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// footerHint defines a key hint for the footer bar.
// These are intentionally shorter than the KeyMap help text.
type footerHint struct {
	key  string
	desc string
}

var globalFooterHints = []footerHint{
	{"⏎", "Detail"},
	{"⇥", "Focus"},
	{"y", "Copy"},
	{"q", "Quit"},
}

var treeFooterHints = []footerHint{
	{"↑↓", "Navigate"},
	{"←→", "Expand"},
	{"e/c", "All"},
	{"r", "Refresh"},
}

var detailsFooterHints = []footerHint{
	{"↑↓", "Scroll"},
}

// renderFooter renders the footer bar with pill-style key hints.
func (m *App) renderFooter() string {
	var hints []footerHint
	switch m.focus {
	case FocusTree:
		hints = append(hints, treeFooterHints...)
	case FocusDetails:
		hints = append(hints, detailsFooterHints...)
	}
	hints = append(hints, globalFooterHints...)

	right := styleFooterMuted.Render(m.intervalLabel())
	rightWidth := lipgloss.Width(right)
	hints = trimHintsToFit(hints, m.width-rightWidth-4)

	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, keyPill(h.key, h.desc))
	}
	left := strings.Join(parts, "  ")

	spacing := max(m.width-lipgloss.Width(left)-rightWidth, 2)
	return left + strings.Repeat(" ", spacing) + right
}

func (m *App) intervalLabel() string {
	return "Refresh every " + m.interval.String()
}

// trimHintsToFit drops hints from the end until the rendered pills fit.
func trimHintsToFit(hints []footerHint, width int) []footerHint {
	for len(hints) > 0 {
		total := 0
		for i, h := range hints {
			if i > 0 {
				total += 2
			}
			total += lipgloss.Width(keyPill(h.key, h.desc))
		}
		if total <= width {
			return hints
		}
		hints = hints[:len(hints)-1]
	}
	return hints
}

// keyPill renders a single key hint as a pill with description.
func keyPill(key, desc string) string {
	return styleKeyPill.Render(" "+key+" ") + " " + styleKeyDesc.Render(desc)
}
