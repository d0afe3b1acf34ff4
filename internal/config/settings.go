package config

import (
	"fmt"
	"strings"
	"time"

	appErrors "ipmitree/internal/errors"

	"github.com/spf13/viper"
)

// Settings is the resolved configuration. It is a plain value: constructors
// receive a copy and nothing mutates it after Load returns.
type Settings struct {
	Refresh   RefreshSettings
	Shutdown  ShutdownSettings
	Log       LogSettings
	UI        UISettings
	Inventory string
	Scenario  string
	Metrics   string
}

// RefreshSettings bounds the periodic refresh scheduler.
type RefreshSettings struct {
	Interval     time.Duration
	MaxPerformed int
	MaxExamined  int
	VisibleOnly  bool
}

// ShutdownSettings configures the shutdown barrier. A zero Timeout waits
// for every resource indefinitely.
type ShutdownSettings struct {
	Timeout time.Duration
}

// LogSettings controls event logging.
type LogSettings struct {
	Events     bool
	FullEvents bool
}

// UISettings configures the terminal dashboard.
type UISettings struct {
	TreeNameWidth int
}

// Defaults returns the settings used when no config source sets a key.
func Defaults() Settings {
	return Settings{
		Refresh: RefreshSettings{
			Interval:     DefaultRefreshInterval,
			MaxPerformed: DefaultMaxPerformed,
			MaxExamined:  DefaultMaxExamined,
			VisibleOnly:  true,
		},
		UI: UISettings{TreeNameWidth: DefaultTreeNameWidth},
	}
}

func fromViper(v *viper.Viper) Settings {
	return Settings{
		Refresh: RefreshSettings{
			Interval:     v.GetDuration(KeyRefreshInterval),
			MaxPerformed: v.GetInt(KeyRefreshMaxPerformed),
			MaxExamined:  v.GetInt(KeyRefreshMaxExamined),
			VisibleOnly:  v.GetBool(KeyRefreshVisibleOnly),
		},
		Shutdown: ShutdownSettings{
			Timeout: v.GetDuration(KeyShutdownTimeout),
		},
		Log: LogSettings{
			Events:     v.GetBool(KeyLogEvents),
			FullEvents: v.GetBool(KeyLogFullEvents),
		},
		UI: UISettings{
			TreeNameWidth: v.GetInt(KeyTreeNameWidth),
		},
		Inventory: strings.TrimSpace(v.GetString(KeyInventoryPath)),
		Scenario:  strings.TrimSpace(v.GetString(KeyScenarioPath)),
		Metrics:   strings.TrimSpace(v.GetString(KeyMetricsAddr)),
	}
}

// Validate rejects settings the scheduler or barrier cannot run with.
func (s Settings) Validate() error {
	switch {
	case s.Refresh.Interval <= 0:
		return configError(KeyRefreshInterval, fmt.Sprintf("must be positive, got %s", s.Refresh.Interval))
	case s.Refresh.MaxPerformed <= 0:
		return configError(KeyRefreshMaxPerformed, fmt.Sprintf("must be positive, got %d", s.Refresh.MaxPerformed))
	case s.Refresh.MaxExamined <= 0:
		return configError(KeyRefreshMaxExamined, fmt.Sprintf("must be positive, got %d", s.Refresh.MaxExamined))
	case s.Shutdown.Timeout < 0:
		return configError(KeyShutdownTimeout, fmt.Sprintf("must not be negative, got %s", s.Shutdown.Timeout))
	case s.UI.TreeNameWidth < 0:
		return configError(KeyTreeNameWidth, fmt.Sprintf("must not be negative, got %d", s.UI.TreeNameWidth))
	}
	return nil
}

func configError(key, reason string) error {
	return appErrors.New(appErrors.CodeConfigurationError, fmt.Sprintf("config %s %s", key, reason), nil)
}
