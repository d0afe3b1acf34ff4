package ui

import (
	"time"

	"ipmitree/internal/bridge"
	"ipmitree/internal/config"

	tea "github.com/charmbracelet/bubbletea"
)

type tickMsg struct{}

// eventMsg carries one collaborator event into Update.
type eventMsg struct {
	event bridge.Event
}

type eventsClosedMsg struct{}

type shutdownExpiredMsg struct{}

type copyToastTickMsg struct{}

func scheduleTick(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = config.DefaultRefreshInterval
	}
	return tea.Tick(interval, func(time.Time) tea.Msg { return tickMsg{} })
}

// waitForEvent blocks on the next collaborator event. Update re-issues it
// after every delivery so exactly one reader is outstanding.
func waitForEvent(events <-chan bridge.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

// waitForDeadline delivers once the shutdown timeout fires.
func waitForDeadline(deadline <-chan time.Time) tea.Cmd {
	if deadline == nil {
		return nil
	}
	return func() tea.Msg {
		<-deadline
		return shutdownExpiredMsg{}
	}
}

func scheduleCopyToastTick() tea.Cmd {
	return tea.Tick(copyToastDuration, func(time.Time) tea.Msg {
		return copyToastTickMsg{}
	})
}
