// Package finalcheck reports units that received markers but were never
// closed by a plugin entry.
package finalcheck

import (
	"fmt"
	"strings"

	"autoplugin/internal/diag"
	"autoplugin/internal/state"
)

// Mode selects how a missing plugin entry is reported.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeInfo
	ModeWarning
	// ModeError fails the pass.
	ModeError
)

// DefaultMode is used when neither config nor flags choose one.
const DefaultMode = ModeWarning

var modeNames = [...]string{
	ModeOff:     "off",
	ModeInfo:    "info",
	ModeWarning: "warning",
	ModeError:   "error",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode accepts off, info, warning (or warn) and error, case
// insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return ModeOff, nil
	case "info":
		return ModeInfo, nil
	case "warning", "warn":
		return ModeWarning, nil
	case "error":
		return ModeError, nil
	}
	return ModeOff, fmt.Errorf("unknown missing plugin mode %q (want off, info, warning or error)", s)
}

// Severity maps the mode onto a diagnostic severity. ModeOff has none.
func (m Mode) Severity() (diag.Severity, bool) {
	switch m {
	case ModeInfo:
		return diag.SevInfo, true
	case ModeWarning:
		return diag.SevWarning, true
	case ModeError:
		return diag.SevError, true
	}
	return 0, false
}

// Message is the text reported for an unfinalized unit.
func Message(unit state.Unit) string {
	return "missing #[auto_plugin(...)] attribute in file: " + string(unit)
}

// Source is the part of the store the check reads.
type Source interface {
	Unfinalized() []state.Unit
}

// Report emits one diagnostic per unfinalized unit in unit order and
// returns how many it emitted. It never changes the store.
func Report(store Source, mode Mode, reporter diag.Reporter) int {
	sev, ok := mode.Severity()
	if !ok {
		return 0
	}
	units := store.Unfinalized()
	for _, u := range units {
		reporter.Report(diag.NewUnit(sev, diag.UnitMissingFinalize, string(u), Message(u)))
	}
	return len(units)
}
