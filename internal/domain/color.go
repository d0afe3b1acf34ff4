package domain

// Color is the derived display state of a node.
type Color string

const (
	ColorNormal   Color = "normal"
	ColorWarning  Color = "warning"
	ColorSevere   Color = "severe"
	ColorCritical Color = "critical"
	ColorInactive Color = "inactive"
)

// ColorFor derives a node's color from its counts. Precedence is
// critical > severe > warning > normal; inactive nodes always show the
// neutral inactive marker regardless of counts.
func ColorFor(c Counts, active bool) Color {
	if !active {
		return ColorInactive
	}
	switch {
	case c.Critical > 0:
		return ColorCritical
	case c.Severe > 0:
		return ColorSevere
	case c.Warning > 0:
		return ColorWarning
	}
	return ColorNormal
}

// Level returns the severity level the color represents, if any.
func (c Color) Level() Level {
	switch c {
	case ColorWarning:
		return LevelWarning
	case ColorSevere:
		return LevelSevere
	case ColorCritical:
		return LevelCritical
	}
	return LevelUnknown
}
