package domain

import "strings"

// Level is a severity level a resource condition can be in.
type Level string

const (
	LevelUnknown  Level = ""
	LevelWarning  Level = "warning"
	LevelSevere   Level = "severe"
	LevelCritical Level = "critical"
)

// Levels lists the severity levels in ascending precedence.
var Levels = []Level{LevelWarning, LevelSevere, LevelCritical}

var levelAliases = map[string]Level{
	"warning":  LevelWarning,
	"warn":     LevelWarning,
	"severe":   LevelSevere,
	"critical": LevelCritical,
	"crit":     LevelCritical,
}

// ParseLevel normalises and validates an incoming level string.
func ParseLevel(raw string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return LevelUnknown, invalidLevelError("blank")
	}
	level, ok := levelAliases[key]
	if !ok {
		return LevelUnknown, invalidLevelError(raw)
	}
	return level, nil
}

// Validate ensures the level is one of the three severity levels.
func (l Level) Validate() error {
	switch l {
	case LevelWarning, LevelSevere, LevelCritical:
		return nil
	}
	return invalidLevelError(string(l))
}

// Rank orders levels by display precedence; higher ranks win.
func (l Level) Rank() int {
	switch l {
	case LevelWarning:
		return 1
	case LevelSevere:
		return 2
	case LevelCritical:
		return 3
	}
	return 0
}
