package render

import (
	"fmt"
	"strings"
)

// ViewMode selects which projection a frame draws.
type ViewMode int

const (
	Frequency ViewMode = iota
	Time
)

var viewModeNames = []string{"frequency", "time"}

// ViewModeNames returns the accepted view identifiers.
func ViewModeNames() []string {
	out := make([]string, len(viewModeNames))
	copy(out, viewModeNames)
	return out
}

// ParseViewMode accepts "frequency"/"freq" and "time", case-insensitively.
func ParseViewMode(name string) (ViewMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "frequency", "freq":
		return Frequency, nil
	case "time":
		return Time, nil
	default:
		return Frequency, fmt.Errorf("unknown view %q", name)
	}
}

func (m ViewMode) String() string {
	if m == Time {
		return "time"
	}
	return "frequency"
}

// Label is the human title of the view.
func (m ViewMode) Label() string {
	if m == Time {
		return "Time Domain Oscilloscope"
	}
	return "Frequency Spectrum"
}

// Next cycles to the other view.
func (m ViewMode) Next() ViewMode {
	if m == Time {
		return Frequency
	}
	return Time
}

func (m ViewMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ViewMode) UnmarshalText(text []byte) error {
	mode, err := ParseViewMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
