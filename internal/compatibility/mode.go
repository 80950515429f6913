// Package compatibility decides whether a candidate schema may replace a
// subject's prior schemas under a named policy.
package compatibility

// Mode names a compatibility policy. Unlike Confluent-style registries,
// there are no transitive variants here: every check is against the
// latest existing version only (spec §4.2, §9).
type Mode string

const (
	// ModeNone always reports compatible.
	ModeNone Mode = "NONE"

	// ModeBackward requires the candidate (as reader) to be able to read
	// data written with the latest existing schema (as writer).
	ModeBackward Mode = "BACKWARD"

	// ModeForward requires the latest existing schema (as reader) to be
	// able to read data written with the candidate (as writer).
	ModeForward Mode = "FORWARD"

	// ModeFull requires both ModeBackward and ModeForward against the
	// latest existing schema.
	ModeFull Mode = "FULL"
)

// IsValid reports whether m is one of the four recognized modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeNone, ModeBackward, ModeForward, ModeFull:
		return true
	default:
		return false
	}
}

// ParseMode parses s into a Mode, reporting whether it is valid.
func ParseMode(s string) (Mode, bool) {
	m := Mode(s)
	return m, m.IsValid()
}
