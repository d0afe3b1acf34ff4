package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyRefreshInterval     = "refresh.interval"
	KeyRefreshMaxPerformed = "refresh.max-performed"
	KeyRefreshMaxExamined  = "refresh.max-examined"
	KeyRefreshVisibleOnly  = "refresh.visible-only"

	KeyShutdownTimeout = "shutdown.timeout"

	KeyLogEvents     = "log.events"
	KeyLogFullEvents = "log.full-events"

	KeyTreeNameWidth = "ui.tree-name-width"

	KeyInventoryPath = "inventory.path"
	KeyScenarioPath  = "scenario.path"
	KeyMetricsAddr   = "metrics.addr"
)

const (
	// DefaultRefreshInterval matches the dashboard's historical ten second timer.
	DefaultRefreshInterval = 10 * time.Second
	// DefaultMaxPerformed caps refresh invocations per scheduler step.
	DefaultMaxPerformed = 100
	// DefaultMaxExamined caps nodes examined per scheduler step.
	DefaultMaxExamined = 1000
	// DefaultTreeNameWidth is the width of the name column in cells.
	DefaultTreeNameWidth = 30

	envPrefix = "IPMITREE"
	dirName   = ".ipmitree"
	fileName  = "config.yaml"
)

type initSettings struct {
	workingDir        string
	projectConfigPath string
	userConfigPath    string
	overrides         map[string]any
}

// Option configures Load behaviour. Useful for tests to override paths.
type Option func(*initSettings)

// WithWorkingDir overrides the directory used for project config discovery.
func WithWorkingDir(dir string) Option {
	return func(cfg *initSettings) {
		cfg.workingDir = dir
	}
}

// WithProjectConfig explicitly sets the project config path instead of discovery.
func WithProjectConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.projectConfigPath = path
	}
}

// WithUserConfig overrides the default user config path.
func WithUserConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.userConfigPath = path
	}
}

// WithOverrides injects values typically coming from CLI flags. They take
// precedence over every other source.
func WithOverrides(overrides map[string]any) Option {
	return func(cfg *initSettings) {
		if cfg.overrides == nil {
			cfg.overrides = make(map[string]any, len(overrides))
		}
		for k, v := range overrides {
			cfg.overrides[k] = v
		}
	}
}

// Load resolves configuration using the precedence:
// defaults < user config < project config < environment variables < overrides
// and returns it as an immutable Settings value.
func Load(opts ...Option) (Settings, error) {
	settings := initSettings{}
	for _, opt := range opts {
		opt(&settings)
	}
	v, err := configure(&settings)
	if err != nil {
		return Settings{}, err
	}
	s := fromViper(v)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func configure(settings *initSettings) (*viper.Viper, error) {
	workingDir := strings.TrimSpace(settings.workingDir)
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		workingDir = wd
	}

	userConfigPath := strings.TrimSpace(settings.userConfigPath)
	if userConfigPath == "" {
		path, err := defaultUserConfigPath()
		if err != nil {
			return nil, err
		}
		userConfigPath = path
	}

	projectConfigPath := strings.TrimSpace(settings.projectConfigPath)
	if projectConfigPath == "" {
		path, err := findProjectConfig(workingDir)
		if err != nil {
			return nil, err
		}
		projectConfigPath = path
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := mergeConfigFile(v, userConfigPath); err != nil {
		return nil, fmt.Errorf("load user config: %w", err)
	}
	if err := mergeConfigFile(v, projectConfigPath); err != nil {
		return nil, fmt.Errorf("load project config: %w", err)
	}
	for k, val := range settings.overrides {
		v.Set(k, val)
	}
	return v, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	//nolint:gosec // G304: Config loader intentionally reads user and project config files
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// findProjectConfig walks upward from startDir looking for .ipmitree/config.yaml.
func findProjectConfig(startDir string) (string, error) {
	if strings.TrimSpace(startDir) == "" {
		return "", nil
	}
	dir := startDir
	for {
		candidate := filepath.Join(dir, dirName, fileName)
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyRefreshInterval, DefaultRefreshInterval)
	v.SetDefault(KeyRefreshMaxPerformed, DefaultMaxPerformed)
	v.SetDefault(KeyRefreshMaxExamined, DefaultMaxExamined)
	v.SetDefault(KeyRefreshVisibleOnly, true)
	v.SetDefault(KeyShutdownTimeout, time.Duration(0))
	v.SetDefault(KeyLogEvents, false)
	v.SetDefault(KeyLogFullEvents, false)
	v.SetDefault(KeyTreeNameWidth, DefaultTreeNameWidth)
	v.SetDefault(KeyInventoryPath, "")
	v.SetDefault(KeyScenarioPath, "")
	v.SetDefault(KeyMetricsAddr, "")
}
