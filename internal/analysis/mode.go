package analysis

import (
	"fmt"
	"strings"
)

// Mode selects how raw per-point observables reduce to the scalar content of
// a diamond map.
type Mode int

const (
	modeInvalid Mode = iota
	Current
	Difcon
	Voltage
	Francis
	Sourcis
)

var modeNames = map[Mode]string{
	Current: "current",
	Difcon:  "difcon",
	Voltage: "voltage",
	Francis: "francis",
	Sourcis: "sourcis",
}

// Modes lists every mode in table order.
func Modes() []Mode {
	return []Mode{Current, Difcon, Voltage, Francis, Sourcis}
}

// ParseMode maps a tag such as "difcon" to its Mode.
func ParseMode(tag string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(tag))
	for m, name := range modeNames {
		if name == key {
			return m, nil
		}
	}
	return modeInvalid, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownMode, tag, strings.Join(ModeNames(), ", "))
}

func ModeNames() []string {
	names := make([]string, 0, len(modeNames))
	for _, m := range Modes() {
		names = append(names, modeNames[m])
	}
	return names
}

func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Derived reports whether the mode differentiates along the drain axis and so
// shortens it by one point.
func (m Mode) Derived() bool {
	switch m {
	case Difcon, Francis, Sourcis:
		return true
	}
	return false
}

// Scale is the factor applied to the reduced series.
func (m Mode) Scale() float64 {
	if m.Derived() {
		return 1e3
	}
	return 1
}

// Set and Type make Mode usable as a command line flag.
func (m *Mode) Set(s string) error {
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m *Mode) Type() string { return "mode" }

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	return m.Set(string(text))
}
