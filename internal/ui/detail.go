package ui

import (
	"fmt"
	"strings"

	"ipmitree/internal/domain"
	"ipmitree/internal/engine"
	"ipmitree/internal/tree"
)

func (m *App) updateViewportContent() {
	if !m.ShowDetails {
		return
	}
	row, ok := m.current()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	if m.detailID != row.ID {
		m.viewport.GotoTop()
		m.detailID = row.ID
	}
	render := m.markdown
	if render == nil {
		render = buildMarkdownRenderer("plain", max(m.viewport.Width, minViewportWidth))
	}
	view, _ := m.engine.Store().Get(row.ID)
	m.viewport.SetContent(render(detailMarkdown(row, view, nodePath(m.engine.Store(), row.ID))))
}

// detailMarkdown describes a node for the detail pane.
func detailMarkdown(row engine.Row, view tree.NodeView, path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", row.Name)
	fmt.Fprintf(&b, "`%s`\n\n", path)

	b.WriteString("| Field | Value |\n| --- | --- |\n")
	fmt.Fprintf(&b, "| ID | %s |\n", row.ID)
	fmt.Fprintf(&b, "| Kind | %s |\n", kindLabel(row.Kind))
	fmt.Fprintf(&b, "| State | %s |\n", row.Color)
	fmt.Fprintf(&b, "| Active | %t |\n", row.Active)
	if row.Value != "" {
		fmt.Fprintf(&b, "| Value | %s |\n", row.Value)
	}
	if row.HasChildren {
		fmt.Fprintf(&b, "| Children | %d |\n", view.ChildCount)
	}

	b.WriteString("\n## Conditions\n\n")
	if row.Counts.IsZero() {
		b.WriteString("No outstanding conditions.\n")
		return b.String()
	}
	b.WriteString("| Level | Here | Including children |\n| --- | --- | --- |\n")
	for _, level := range []domain.Level{domain.LevelCritical, domain.LevelSevere, domain.LevelWarning} {
		if row.Counts.Get(level) == 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %d |\n", level, view.Own.Get(level), row.Counts.Get(level))
	}
	return b.String()
}

func kindLabel(k domain.Kind) string {
	if k == domain.KindUnknown {
		return "unknown"
	}
	return string(k)
}
