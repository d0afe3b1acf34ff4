package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ipmitree/internal/shutdown"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("99")
	dimColor     = lipgloss.Color("246")
	okColor      = lipgloss.Color("#50FA7B")
	warnColor    = lipgloss.Color("208")
)

// printShutdownSummary reports how the close barrier finished. It is
// printed after the TUI leaves the alt screen, or when a headless run ends.
func printShutdownSummary(w io.Writer, res shutdown.Result) {
	appStyle := lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	dimStyle := lipgloss.NewStyle().Foreground(dimColor)
	okStyle := lipgloss.NewStyle().Foreground(okColor)
	warnStyle := lipgloss.NewStyle().Foreground(warnColor)

	header := appStyle.Render("ipmitree") + dimStyle.Render(fmt.Sprintf(" • shutdown in %s", formatDuration(res.Elapsed)))
	fmt.Fprintln(w, header)

	closed := "none"
	if len(res.Closed) > 0 {
		closed = strings.Join(res.Closed, ", ")
	}
	fmt.Fprintf(w, "  %s %s\n", okStyle.Render("closed:"), closed)
	if res.TimedOut {
		fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("timed out waiting for:"), strings.Join(res.Stragglers, ", "))
	}
}

// formatDuration renders a short human duration.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
