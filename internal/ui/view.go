package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m *App) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	treeViewStr := m.renderTreeView()

	var mainBody string
	listHeight := m.listHeight()
	if m.ShowDetails {
		leftStyle := stylePane
		rightStyle := stylePane
		if m.focus == FocusTree {
			leftStyle = stylePaneFocused
		} else {
			rightStyle = stylePaneFocused
		}

		leftWidth := max(m.width-m.viewport.Width-4, 1)
		rightWidth := max(m.viewport.Width, 1)

		left := leftStyle.Width(leftWidth).Height(listHeight).Render(treeViewStr)
		right := rightStyle.Width(rightWidth).Height(listHeight).Render(m.viewport.View())
		mainBody = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	} else {
		singleWidth := max(m.width-2, 1)
		mainBody = stylePane.Width(singleWidth).Height(listHeight).Render(treeViewStr)
	}

	bottomBar := m.renderFooter()
	if toast := m.renderCopyToast(); toast != "" {
		bottomBar = toast
	}
	return fmt.Sprintf("%s\n%s\n%s", header, mainBody, bottomBar)
}

func (m *App) renderHeader() string {
	title := "IPMITREE"
	if m.version != "" {
		title = fmt.Sprintf("IPMITREE v%s", m.version)
	}

	root := m.engine.Store().Root()
	status := fmt.Sprintf("Nodes: %d", m.engine.Store().Len())
	if badge := countsBadge(root.Counts); badge != "" {
		status += " • " + colorStyle(root.Color).Render(badge)
	}
	if m.steps > 0 {
		status += " " + styleStatsDim.Render(fmt.Sprintf("Δ %d refreshed, %d examined", m.lastStep.Performed, m.lastStep.Examined))
	}

	leftContent := styleAppHeader.Render(title) + " " + status
	if m.shuttingDown {
		leftContent += " " + styleShutdownBanner.Render("Closing domains...")
	}
	if m.lastError == "" {
		return leftContent
	}
	rightContent := styleErrorIndicator.Render("⚠ " + m.lastError)
	availableWidth := m.width - lipgloss.Width(leftContent) - lipgloss.Width(rightContent) - 2
	if availableWidth > 0 {
		return leftContent + strings.Repeat(" ", availableWidth) + rightContent
	}
	return leftContent + " " + rightContent
}

func (m *App) renderCopyToast() string {
	if !m.showCopyToast || m.copiedPath == "" {
		return ""
	}
	return styleSuccessToast.Render(fmt.Sprintf("Copied '%s' to clipboard.", m.copiedPath))
}
