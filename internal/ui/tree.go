package ui

import (
	"fmt"
	"strings"

	"ipmitree/internal/domain"
	"ipmitree/internal/engine"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/padding"
	"github.com/muesli/reflow/truncate"
)

func (m *App) listHeight() int {
	return clampDimension(m.height-4, minListHeight, m.height-2)
}

func (m *App) treeWidth() int {
	width := m.width - 2
	if m.ShowDetails {
		width = m.width - m.viewport.Width - 4
	}
	return clampDimension(width, minTreeWidth, m.width-2)
}

func (m *App) renderTreeView() string {
	if len(m.rows) == 0 {
		return ""
	}
	listHeight := m.listHeight()
	start, end := 0, len(m.rows)
	if end > listHeight {
		if m.cursor > listHeight/2 {
			start = m.cursor - listHeight/2
		}
		if start+listHeight < end {
			end = start + listHeight
		} else {
			start = max(end-listHeight, 0)
		}
	}

	treeWidth := m.treeWidth()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(m.rows[i], i == m.cursor, treeWidth))
	}
	return strings.Join(lines, "\n")
}

func (m *App) renderRow(row engine.Row, selected bool, width int) string {
	indent := strings.Repeat("  ", row.Depth)
	marker := " •"
	if row.HasChildren {
		if row.Expanded {
			marker = " ▼"
		} else {
			marker = " ▶"
		}
	}

	style := colorStyle(row.Color)
	name := m.fitName(row.Name)

	var b strings.Builder
	if selected {
		b.WriteString(styleSelected.Render(" " + indent + marker))
	} else {
		b.WriteString(" " + indent + style.Render(marker))
	}
	b.WriteString(" " + style.Render(colorIcon(row.Color)) + " " + style.Render(name))
	if row.Value != "" {
		b.WriteString(" " + styleValue.Render(row.Value))
	}
	if badge := countsBadge(row.Counts); badge != "" {
		b.WriteString(" " + styleStatsDim.Render(badge))
	}
	return ansi.Truncate(b.String(), width, "…")
}

// fitName truncates and pads a name to the configured column width. A
// zero width leaves names as they are.
func (m *App) fitName(name string) string {
	if m.nameWidth <= 0 {
		return name
	}
	w := uint(m.nameWidth)
	return padding.String(truncate.StringWithTail(name, w, "…"), w)
}

// countsBadge summarises the outstanding conditions beneath a node.
func countsBadge(c domain.Counts) string {
	if c.IsZero() {
		return ""
	}
	var parts []string
	if c.Critical > 0 {
		parts = append(parts, fmt.Sprintf("%d crit", c.Critical))
	}
	if c.Severe > 0 {
		parts = append(parts, fmt.Sprintf("%d sev", c.Severe))
	}
	if c.Warning > 0 {
		parts = append(parts, fmt.Sprintf("%d warn", c.Warning))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
