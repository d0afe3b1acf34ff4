package ui

import (
	"strings"

	"ipmitree/internal/domain"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var (
	cPurple     = lipgloss.Color("99")
	cGold       = lipgloss.Color("220")
	cOrange     = lipgloss.Color("208")
	cRed        = lipgloss.Color("203")
	cNeonGreen  = lipgloss.Color("118")
	cGray       = lipgloss.Color("240")
	cBrightGray = lipgloss.Color("246")
	cLightGray  = lipgloss.Color("250")
	cWhite      = lipgloss.Color("255")
	cHighlight  = lipgloss.Color("57")

	styleNormalText   = lipgloss.NewStyle().Foreground(cWhite)
	styleWarningText  = lipgloss.NewStyle().Foreground(cGold)
	styleSevereText   = lipgloss.NewStyle().Foreground(cOrange).Bold(true)
	styleCriticalText = lipgloss.NewStyle().Foreground(cRed).Bold(true)
	styleInactiveText = lipgloss.NewStyle().Foreground(cGray).Faint(true)
	styleValue        = lipgloss.NewStyle().Foreground(cNeonGreen)
	styleStatsDim     = lipgloss.NewStyle().Foreground(cBrightGray)

	styleSelected = lipgloss.NewStyle().
			Background(cHighlight).
			Foreground(cWhite).
			Bold(true)

	styleAppHeader = lipgloss.NewStyle().
			Foreground(cWhite).
			Background(cPurple).
			Bold(true).
			Padding(0, 1)

	styleShutdownBanner = lipgloss.NewStyle().
				Foreground(cWhite).
				Background(cRed).
				Bold(true).
				Padding(0, 1)

	stylePane = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(cGray)

	stylePaneFocused = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(cPurple)

	styleErrorIndicator = lipgloss.NewStyle().
				Foreground(cRed).
				Bold(true)

	styleSuccessToast = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(cNeonGreen).
				Foreground(cWhite).
				Padding(0, 1)

	styleKeyPill = lipgloss.NewStyle().
			Foreground(cWhite).
			Background(cGray).
			Bold(true)

	styleKeyDesc = lipgloss.NewStyle().Foreground(cLightGray)

	styleFooterMuted = lipgloss.NewStyle().Foreground(cBrightGray)
)

// colorStyle picks the row style for a derived node color.
func colorStyle(c domain.Color) lipgloss.Style {
	switch c {
	case domain.ColorWarning:
		return styleWarningText
	case domain.ColorSevere:
		return styleSevereText
	case domain.ColorCritical:
		return styleCriticalText
	case domain.ColorInactive:
		return styleInactiveText
	}
	return styleNormalText
}

// colorIcon is the status glyph shown before a node name.
func colorIcon(c domain.Color) string {
	switch c {
	case domain.ColorWarning:
		return "▲"
	case domain.ColorSevere:
		return "◆"
	case domain.ColorCritical:
		return "✖"
	case domain.ColorInactive:
		return "◌"
	}
	return "●"
}

func buildMarkdownRenderer(format string, width int) func(string) string {
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style := strings.ToLower(strings.TrimSpace(format))
	if style == "" || style == "rich" || style == "dark" {
		style = "dark"
	}
	if style == "plain" {
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}
