package domain

import "fmt"

// Counts holds the number of outstanding condition instances per level.
type Counts struct {
	Warning  int
	Severe   int
	Critical int
}

// Get returns the counter for level.
func (c Counts) Get(level Level) int {
	switch level {
	case LevelWarning:
		return c.Warning
	case LevelSevere:
		return c.Severe
	case LevelCritical:
		return c.Critical
	}
	return 0
}

// With returns a copy of c with the counter for level set to n.
func (c Counts) With(level Level, n int) Counts {
	switch level {
	case LevelWarning:
		c.Warning = n
	case LevelSevere:
		c.Severe = n
	case LevelCritical:
		c.Critical = n
	}
	return c
}

// Add returns the element-wise sum.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Warning:  c.Warning + o.Warning,
		Severe:   c.Severe + o.Severe,
		Critical: c.Critical + o.Critical,
	}
}

// Sub returns the element-wise difference. The result may be negative.
func (c Counts) Sub(o Counts) Counts {
	return Counts{
		Warning:  c.Warning - o.Warning,
		Severe:   c.Severe - o.Severe,
		Critical: c.Critical - o.Critical,
	}
}

// Neg returns the element-wise negation.
func (c Counts) Neg() Counts {
	return Counts{Warning: -c.Warning, Severe: -c.Severe, Critical: -c.Critical}
}

// IsZero reports whether every counter is zero.
func (c Counts) IsZero() bool {
	return c == Counts{}
}

// NonNegative reports whether no counter is below zero.
func (c Counts) NonNegative() bool {
	return c.Warning >= 0 && c.Severe >= 0 && c.Critical >= 0
}

// Unit returns a Counts with a single 1 at level.
func Unit(level Level) Counts {
	return Counts{}.With(level, 1)
}

func (c Counts) String() string {
	return fmt.Sprintf("w=%d s=%d c=%d", c.Warning, c.Severe, c.Critical)
}
