package ui

import (
	"strings"
	"time"

	"ipmitree/internal/domain"
	"ipmitree/internal/tree"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

func (m *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Quit):
		return m, m.beginShutdown()
	case key.Matches(msg, m.keys.Enter):
		m.ShowDetails = !m.ShowDetails
		if !m.ShowDetails {
			m.focus = FocusTree
		}
		m.updateViewportContent()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		if m.ShowDetails && m.focus == FocusTree {
			m.focus = FocusDetails
		} else {
			m.focus = FocusTree
		}
		return m, nil
	}

	if m.focus == FocusDetails {
		return m.handleDetailKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Home):
		m.moveCursor(-len(m.rows))
	case key.Matches(msg, m.keys.End):
		m.moveCursor(len(m.rows))
	case key.Matches(msg, m.keys.Left):
		m.collapseOrAscend()
	case key.Matches(msg, m.keys.Right):
		if row, ok := m.current(); ok && row.HasChildren && !row.Expanded {
			m.setExpanded(row.ID, true)
		}
	case key.Matches(msg, m.keys.Space):
		if row, ok := m.current(); ok && row.HasChildren {
			m.setExpanded(row.ID, !row.Expanded)
		}
	case key.Matches(msg, m.keys.ExpandAll):
		m.engine.Store().ExpandAll()
		m.recalcVisibleRows()
	case key.Matches(msg, m.keys.CollapseAll):
		m.engine.Store().CollapseAll()
		m.recalcVisibleRows()
	case key.Matches(msg, m.keys.Refresh):
		m.runStep()
	case key.Matches(msg, m.keys.Copy):
		return m.handleCopyKey()
	}
	return m, nil
}

func (m *App) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *App) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = clampIndex(m.cursor+delta, len(m.rows))
	m.selected = m.rows[m.cursor].ID
	m.updateViewportContent()
}

// collapseOrAscend collapses the current node, or moves to its parent row
// when it is already collapsed or a leaf.
func (m *App) collapseOrAscend() {
	row, ok := m.current()
	if !ok {
		return
	}
	if row.HasChildren && row.Expanded && row.ID != tree.RootID {
		m.setExpanded(row.ID, false)
		return
	}
	for i := m.cursor - 1; i >= 0; i-- {
		if m.rows[i].Depth < row.Depth {
			m.cursor = i
			m.selected = m.rows[i].ID
			m.updateViewportContent()
			return
		}
	}
}

func (m *App) setExpanded(id tree.ID, expanded bool) {
	if err := m.engine.Store().SetExpanded(id, expanded); err != nil {
		m.lastError = err.Error()
		return
	}
	if expanded {
		if v, ok := m.engine.Store().Get(id); ok {
			if exp, ok := v.Payload.(domain.Expander); ok {
				exp.OnExpand(string(id))
			}
		}
	}
	m.recalcVisibleRows()
}

// handleCopyKey copies the selected node's path to the clipboard.
func (m *App) handleCopyKey() (tea.Model, tea.Cmd) {
	row, ok := m.current()
	if !ok {
		return m, nil
	}
	path := nodePath(m.engine.Store(), row.ID)
	if err := writeClipboard(path); err != nil {
		m.lastError = "copy failed: " + err.Error()
		return m, nil
	}
	m.copiedPath = path
	m.showCopyToast = true
	m.copyToastStart = time.Now()
	return m, scheduleCopyToastTick()
}

// nodePath renders the display names from the root to id.
func nodePath(store *tree.Store, id tree.ID) string {
	ids := store.Path(id)
	names := make([]string, 0, len(ids))
	for _, pid := range ids {
		if v, ok := store.Get(pid); ok {
			names = append(names, v.Name)
		}
	}
	return strings.Join(names, " / ")
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
