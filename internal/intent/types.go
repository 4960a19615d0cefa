package intent

import "time"

// #region state
// State is the canonical game state (theme) carried by an Event.
type State string

const (
	StateExplore    State = "explore"
	StateStealth    State = "stealth"
	StateCombat     State = "combat"
	StateBossCombat State = "bosscombat"
)

// States lists the closed set of accepted states in declaration order.
func States() []State {
	return []State{StateExplore, StateStealth, StateCombat, StateBossCombat}
}

// Valid reports whether s is one of the canonical states.
func (s State) Valid() bool {
	switch s {
	case StateExplore, StateStealth, StateCombat, StateBossCombat:
		return true
	}
	return false
}

// #endregion state

// #region stems
// Stem identifiers used by the default policy table.
const (
	StemPad   = "pad"
	StemBass  = "bass"
	StemDrums = "drums"
	StemFX    = "fx"
)

// FlagBoss marks a boss encounter.
const FlagBoss = "boss"

// #endregion stems

// #region event
// Event is a snapshot of game state. Construct with NewEvent; treat as immutable.
type Event struct {
	State     State `json:"state"`
	Intensity int   `json:"intensity"`
	Flags     Flags `json:"flags"`
}

// #endregion event

// #region musical-intent
// MusicalIntent is the mixing decision for one Event.
// ActiveStems, TargetGains keys and FadeDurations keys are always the same set.
type MusicalIntent struct {
	Theme         State              `json:"theme"`
	ActiveStems   []string           `json:"active_stems"`
	TargetGains   map[string]float64 `json:"target_gains"`
	FadeDurations map[string]float64 `json:"fade_durations"`
	Timestamp     time.Time          `json:"timestamp"`
}

// #endregion musical-intent
