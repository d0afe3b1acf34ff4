package ui

import (
	"strings"
	"testing"

	"ipmitree/internal/bridge"
	"ipmitree/internal/config"
	"ipmitree/internal/domain"
	"ipmitree/internal/engine"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

func TestViewBeforeSize(t *testing.T) {
	m := newTestApp(t, config.Defaults())
	if got := m.View(); got != "Initializing..." {
		t.Fatalf("expected placeholder before the first resize, got %q", got)
	}
}

func TestViewShowsTreeAndHeader(t *testing.T) {
	m := newTestApp(t, config.Defaults())
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	m.Update(eventMsg{event: bridge.ConditionEntered{ID: "temp", Level: domain.LevelCritical}})

	view := ansi.Strip(m.View())
	for _, want := range []string{"IPMITREE v1.2.3", "Nodes: 13", "Domains", "site-a", "site-b", "[1 crit]", "Refresh every 10s"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestDetailPaneDescribesSelection(t *testing.T) {
	m := newTestApp(t, config.Defaults())
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m.Update(eventMsg{event: bridge.ConditionEntered{ID: "temp", Level: domain.LevelSevere}})
	press(t, m, runes("e"))
	m.cursor = m.indexOf("ent")
	m.selected = "ent"

	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.ShowDetails {
		t.Fatalf("expected enter to open the detail pane")
	}
	content := ansi.Strip(m.viewport.View())
	for _, want := range []string{"Chassis", "entity", "severe"} {
		if !strings.Contains(content, want) {
			t.Errorf("expected detail to contain %q, got:\n%s", want, content)
		}
	}

	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != FocusDetails {
		t.Fatalf("expected tab to focus the detail pane")
	}
	press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != "ent" {
		t.Fatalf("keys in the detail pane must not move the tree cursor")
	}

	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.ShowDetails || m.focus != FocusTree {
		t.Fatalf("expected enter to close the pane and return focus")
	}
}

func TestDetailMarkdown(t *testing.T) {
	e := engine.New(config.Defaults())
	if err := e.ApplyAll(siteEvents(nil)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := e.Apply(bridge.ConditionEntered{ID: "ent", Level: domain.LevelWarning}); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := e.Apply(bridge.ConditionEntered{ID: "temp", Level: domain.LevelWarning}); err != nil {
		t.Fatalf("enter: %v", err)
	}
	view, _ := e.Store().Get("ent")
	row := engine.Row{ID: "ent", Name: "Chassis", Kind: domain.KindEntity, Color: domain.ColorWarning, Counts: view.Counts, Active: true, HasChildren: true}

	md := detailMarkdown(row, view, "Domains / site-a")
	for _, want := range []string{"# Chassis", "`Domains / site-a`", "| Kind | entity |", "| Children | 2 |", "| warning | 1 | 2 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q, got:\n%s", want, md)
		}
	}
	if strings.Contains(md, "| critical |") {
		t.Errorf("levels without conditions must be omitted")
	}
}

func TestRenderRowTruncatesNameColumn(t *testing.T) {
	m := &App{nameWidth: 6}
	row := engine.Row{Name: "Processor Temperature", Value: "41 C", Color: domain.ColorNormal, Depth: 1}

	line := ansi.Strip(m.renderRow(row, false, 80))
	if !strings.Contains(line, "Proce…") || strings.Contains(line, "Processor") {
		t.Fatalf("expected name truncated to the column, got %q", line)
	}
	if !strings.Contains(line, "41 C") {
		t.Fatalf("expected value column, got %q", line)
	}

	clipped := m.renderRow(row, true, 10)
	if w := ansi.StringWidth(clipped); w > 10 {
		t.Fatalf("expected line clipped to 10 cells, got %d", w)
	}
}

func TestRenderRowMarkers(t *testing.T) {
	m := &App{}
	cases := []struct {
		row  engine.Row
		want string
	}{
		{engine.Row{Name: "leaf"}, "•"},
		{engine.Row{Name: "open", HasChildren: true, Expanded: true}, "▼"},
		{engine.Row{Name: "closed", HasChildren: true}, "▶"},
		{engine.Row{Name: "gone", Color: domain.ColorInactive}, "◌"},
		{engine.Row{Name: "hot", Color: domain.ColorCritical}, "✖"},
	}
	for _, tc := range cases {
		if line := ansi.Strip(m.renderRow(tc.row, false, 80)); !strings.Contains(line, tc.want) {
			t.Errorf("%s: expected %q in %q", tc.row.Name, tc.want, line)
		}
	}
}

func TestCountsBadge(t *testing.T) {
	if got := countsBadge(domain.Counts{}); got != "" {
		t.Fatalf("expected empty badge, got %q", got)
	}
	got := countsBadge(domain.Counts{Warning: 2, Critical: 1})
	if got != "[1 crit 2 warn]" {
		t.Fatalf("unexpected badge %q", got)
	}
}

func TestRenderFooterFitsWidth(t *testing.T) {
	m := &App{width: 200, focus: FocusTree, interval: config.DefaultRefreshInterval}
	footer := ansi.Strip(m.renderFooter())
	for _, want := range []string{"Navigate", "Expand", "Quit"} {
		if !strings.Contains(footer, want) {
			t.Errorf("expected footer to contain %q", want)
		}
	}

	narrow := &App{width: 40, focus: FocusDetails, interval: config.DefaultRefreshInterval}
	if strings.Contains(ansi.Strip(narrow.renderFooter()), "Quit") {
		t.Errorf("expected trailing hints dropped on a narrow terminal")
	}
}

func TestClampDimension(t *testing.T) {
	cases := []struct{ value, lo, hi, want int }{
		{5, 1, 10, 5},
		{0, 1, 10, 1},
		{20, 1, 10, 10},
		{5, 8, 3, 3},
		{5, 0, 0, 1},
	}
	for _, tc := range cases {
		if got := clampDimension(tc.value, tc.lo, tc.hi); got != tc.want {
			t.Errorf("clampDimension(%d, %d, %d) = %d, want %d", tc.value, tc.lo, tc.hi, got, tc.want)
		}
	}
}
