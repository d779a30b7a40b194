package risk

// Level is the discrete ordinal summarizing crisis likelihood for a user.
type Level string

const (
	LevelNone   Level = "none"
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ParseLevel maps a stored string onto a known level.
func ParseLevel(raw string) (Level, bool) {
	switch Level(raw) {
	case LevelNone, LevelLow, LevelMedium, LevelHigh:
		return Level(raw), true
	}
	return "", false
}

func (l Level) rank() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether l is at or above other on the none < low < medium < high scale.
func (l Level) AtLeast(other Level) bool {
	return l.rank() >= other.rank()
}

func maxLevel(a, b Level) Level {
	if a.rank() >= b.rank() {
		return a
	}
	return b
}

func stepUp(l Level) Level {
	switch l {
	case LevelNone:
		return LevelLow
	case LevelLow:
		return LevelMedium
	default:
		return LevelHigh
	}
}

func stepDown(l Level) Level {
	switch l {
	case LevelHigh:
		return LevelMedium
	case LevelMedium:
		return LevelLow
	default:
		return LevelNone
	}
}
