package ui

import (
	"time"

	"ipmitree/internal/bridge"
	"ipmitree/internal/debug"
	"ipmitree/internal/engine"
	appErrors "ipmitree/internal/errors"
	"ipmitree/internal/refresh"
	"ipmitree/internal/shutdown"
	"ipmitree/internal/tree"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	minViewportWidth  = 20
	minViewportHeight = 5
	minTreeWidth      = 18
	minListHeight     = 5
	copyToastDuration = 2 * time.Second
)

// FocusArea is the pane receiving navigation keys.
type FocusArea int

const (
	FocusTree FocusArea = iota
	FocusDetails
)

// Config configures the UI application.
type Config struct {
	Engine *engine.Engine
	// Events is the collaborator's event stream. It may be nil.
	Events       <-chan bridge.Event
	OutputFormat string
	Version      string
}

// App implements the Bubble Tea model for the dashboard. Its Update method
// is the engine's owning goroutine: every tree mutation happens there.
type App struct {
	engine *engine.Engine
	events <-chan bridge.Event
	keys   KeyMap

	rows     []engine.Row
	cursor   int
	selected tree.ID
	dirty    bool
	cancel   func()

	viewport    viewport.Model
	ShowDetails bool
	focus       FocusArea
	ready       bool
	detailID    tree.ID
	markdown    func(string) string

	width        int
	height       int
	interval     time.Duration
	nameWidth    int
	outputFormat string
	version      string

	lastStep  refresh.StepResult
	steps     int
	lastError string

	copiedPath     string
	showCopyToast  bool
	copyToastStart time.Time

	shuttingDown bool
	result       *shutdown.Result
}

// NewApp creates a dashboard over cfg.Engine.
func NewApp(cfg Config) (*App, error) {
	if cfg.Engine == nil {
		return nil, appErrors.New(appErrors.CodeInvalidArgument, "ui requires an engine", nil)
	}
	settings := cfg.Engine.Settings()
	m := &App{
		engine:       cfg.Engine,
		events:       cfg.Events,
		keys:         DefaultKeyMap(),
		focus:        FocusTree,
		interval:     settings.Refresh.Interval,
		nameWidth:    settings.UI.TreeNameWidth,
		outputFormat: cfg.OutputFormat,
		version:      cfg.Version,
		dirty:        true,
	}
	m.cancel = cfg.Engine.Subscribe(func(tree.Change) {
		m.dirty = true
	})
	m.recalcVisibleRows()
	return m, nil
}

func (m *App) Init() tea.Cmd {
	return tea.Batch(scheduleTick(m.interval), waitForEvent(m.events))
}

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tickMsg:
		if m.result != nil {
			return m, nil
		}
		m.runStep()
		return m, scheduleTick(m.interval)

	case eventMsg:
		if err := m.engine.Apply(msg.event); err != nil {
			debug.Logf("ui: apply: %v", err)
			m.lastError = err.Error()
		}
		m.recalcVisibleRows()
		if m.result != nil {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		m.events = nil
		return m, nil

	case shutdownExpiredMsg:
		m.engine.ExpireShutdown()
		if m.result != nil {
			return m, tea.Quit
		}
		return m, nil

	case copyToastTickMsg:
		if time.Since(m.copyToastStart) >= copyToastDuration {
			m.showCopyToast = false
			return m, nil
		}
		return m, scheduleCopyToastTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// Result returns the shutdown outcome once the close barrier completed.
func (m *App) Result() (shutdown.Result, bool) {
	if m.result == nil {
		return shutdown.Result{}, false
	}
	return *m.result, true
}

// Close detaches the app from the engine's change feed.
func (m *App) Close() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *App) runStep() {
	m.lastStep = m.engine.RunSchedulerTick()
	m.steps++
	m.recalcVisibleRows()
}

// beginShutdown closes every domain; the program quits once each has
// reported closed or the configured timeout fires.
func (m *App) beginShutdown() tea.Cmd {
	if m.shuttingDown {
		return nil
	}
	err := m.engine.BeginShutdown(m.engine.ShutdownTargets(), func(res shutdown.Result) {
		m.result = &res
	})
	if err != nil {
		m.lastError = err.Error()
		return nil
	}
	m.shuttingDown = true
	if m.result != nil {
		return tea.Quit
	}
	return waitForDeadline(m.engine.ShutdownDeadline())
}

func (m *App) layout() {
	rawViewportWidth := int(float64(m.width)*0.45) - 2
	maxViewportWidth := m.width - minTreeWidth - 4
	m.viewport.Width = clampDimension(rawViewportWidth, minViewportWidth, maxViewportWidth)

	rawViewportHeight := m.height - 5
	maxViewportHeight := m.height - 2
	m.viewport.Height = clampDimension(rawViewportHeight, minViewportHeight, maxViewportHeight)

	m.markdown = buildMarkdownRenderer(m.outputFormat, m.viewport.Width)
	m.updateViewportContent()
}

// recalcVisibleRows re-reads the snapshot when the tree changed and keeps
// the cursor on the same node where it is still visible.
func (m *App) recalcVisibleRows() {
	if !m.dirty {
		return
	}
	m.dirty = false
	m.rows = m.engine.Snapshot()
	if idx := m.indexOf(m.selected); idx >= 0 {
		m.cursor = idx
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if len(m.rows) > 0 {
		m.selected = m.rows[m.cursor].ID
	}
	m.updateViewportContent()
}

func (m *App) indexOf(id tree.ID) int {
	if id == "" {
		return -1
	}
	for i, r := range m.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (m *App) current() (engine.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return engine.Row{}, false
	}
	return m.rows[m.cursor], true
}

func clampDimension(value, minValue, maxValue int) int {
	if maxValue < 1 {
		maxValue = 1
	}
	if minValue < 1 {
		minValue = 1
	}
	if minValue > maxValue {
		minValue = maxValue
	}
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}
	return value
}
