package intent

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// #region empty
// IsEmpty reports whether the intent carries no usable stem selection.
func (m MusicalIntent) IsEmpty() bool {
	return len(m.ActiveStems) == 0
}

// #endregion empty

// #region check
// Check verifies the key-set invariant and the gain range.
func (m MusicalIntent) Check() error {
	if len(m.TargetGains) != len(m.ActiveStems) || len(m.FadeDurations) != len(m.ActiveStems) {
		return fmt.Errorf("key sets differ: %d stems, %d gains, %d fades",
			len(m.ActiveStems), len(m.TargetGains), len(m.FadeDurations))
	}
	seen := make(map[string]bool, len(m.ActiveStems))
	for _, s := range m.ActiveStems {
		if seen[s] {
			return fmt.Errorf("duplicate stem %q", s)
		}
		seen[s] = true
		g, ok := m.TargetGains[s]
		if !ok {
			return fmt.Errorf("stem %q has no gain", s)
		}
		if g < 0 || g > 1 {
			return fmt.Errorf("stem %q gain %.4f outside [0, 1]", s, g)
		}
		if _, ok := m.FadeDurations[s]; !ok {
			return fmt.Errorf("stem %q has no fade", s)
		}
	}
	return nil
}

// #endregion check

// #region equal
// Equal compares two intents field by field. Timestamps compare as instants.
func (m MusicalIntent) Equal(o MusicalIntent) bool {
	return m.Theme == o.Theme &&
		slices.Equal(m.ActiveStems, o.ActiveStems) &&
		maps.Equal(m.TargetGains, o.TargetGains) &&
		maps.Equal(m.FadeDurations, o.FadeDurations) &&
		m.Timestamp.Equal(o.Timestamp)
}

// Clone returns a deep copy.
func (m MusicalIntent) Clone() MusicalIntent {
	return MusicalIntent{
		Theme:         m.Theme,
		ActiveStems:   slices.Clone(m.ActiveStems),
		TargetGains:   maps.Clone(m.TargetGains),
		FadeDurations: maps.Clone(m.FadeDurations),
		Timestamp:     m.Timestamp,
	}
}

// #endregion equal

// #region clock
// ReferenceClock returns a clock that reports time in loc, so every intent in a
// log shares one zone. A nil loc means UTC.
func ReferenceClock(loc *time.Location) func() time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

// #endregion clock
