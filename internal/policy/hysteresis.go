package policy

import "time"

// #region hysteresis
// hysteresis records, per selection key, when that key last produced a new
// selection. It grows with the number of distinct state/flag combinations.
type hysteresis struct {
	lastSwitch map[string]time.Time
}

func newHysteresis() *hysteresis {
	return &hysteresis{lastSwitch: make(map[string]time.Time)}
}

// observe advances the switch time for key when it has never been seen or the
// dwell window has elapsed. It returns whether the switch advanced and the
// elapsed time since the previous switch.
func (h *hysteresis) observe(key string, now time.Time, dwell time.Duration) (bool, time.Duration) {
	last, seen := h.lastSwitch[key]
	if !seen {
		h.lastSwitch[key] = now
		return true, 0
	}
	elapsed := now.Sub(last)
	if elapsed >= dwell {
		h.lastSwitch[key] = now
		return true, elapsed
	}
	return false, elapsed
}

func (h *hysteresis) last(key string) (time.Time, bool) {
	t, ok := h.lastSwitch[key]
	return t, ok
}

func (h *hysteresis) size() int {
	return len(h.lastSwitch)
}

// #endregion hysteresis
