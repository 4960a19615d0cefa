package replay

import (
	"slices"
	"time"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
)

// #region types
// Actions a replayed decision can take.
const (
	ActionNew  = "new_selection"
	ActionHeld = "held"
)

// TimedEvent is one recorded event and when it arrived.
type TimedEvent struct {
	TurnID string
	At     time.Time
	Event  intent.Event
}

// Result captures the outcome of replaying one event through a fresh policy.
type Result struct {
	TurnID      string
	Action      string // ActionNew | ActionHeld
	Reason      string
	Key         string
	SinceSwitch time.Duration
	Intent      intent.MusicalIntent
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTurns    int
	NewSelections int
	Held          int
	Transitions   int
	DistinctKeys  int
	FinalTheme    intent.State
}

// #endregion types

// #region replay
// Replay runs events through a fresh policy built from cfg, in order, using
// each event's recorded arrival time. It operates entirely in memory.
func Replay(events []TimedEvent, cfg policy.Config) []Result {
	p := policy.New(cfg)
	results := make([]Result, 0, len(events))
	for _, te := range events {
		d := p.Decide(te.Event, te.At)
		action := ActionHeld
		if d.NewSelection {
			action = ActionNew
		}
		results = append(results, Result{
			TurnID:      te.TurnID,
			Action:      action,
			Reason:      d.Reason,
			Key:         d.Key,
			SinceSwitch: d.SinceSwitch,
			Intent:      d.Intent,
		})
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{TotalTurns: len(results)}
	var keys []string
	for i, r := range results {
		switch r.Action {
		case ActionNew:
			s.NewSelections++
		case ActionHeld:
			s.Held++
		}
		if i > 0 && r.Intent.Theme != results[i-1].Intent.Theme {
			s.Transitions++
		}
		if !slices.Contains(keys, r.Key) {
			keys = append(keys, r.Key)
		}
		s.FinalTheme = r.Intent.Theme
	}
	s.DistinctKeys = len(keys)
	return s
}

// #endregion replay
