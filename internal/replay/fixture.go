package replay

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/google/renameio/v2"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Start           time.Time               `json:"start"`
	Config          FixtureConfig           `json:"config"`
	Events          []FixtureEvent          `json:"events"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureEvent is an event with its arrival offset from Start.
type FixtureEvent struct {
	TurnID    string       `json:"turn_id"`
	OffsetMS  int64        `json:"offset_ms"`
	State     intent.State `json:"state"`
	Intensity int          `json:"intensity"`
	Flags     intent.Flags `json:"flags"`
}

// FixtureExpectedResult captures the expected action per turn. Stems and
// Fade are checked only when present.
type FixtureExpectedResult struct {
	TurnID string   `json:"turn_id"`
	Action string   `json:"action"`
	Stems  []string `json:"stems,omitempty"`
	Fade   *float64 `json:"fade,omitempty"`
}

// FixtureConfig overrides the stock policy table. Zero fields keep defaults.
type FixtureConfig struct {
	MinDwellMS int64                     `json:"min_dwell_ms,omitempty"`
	MinFade    float64                   `json:"min_fade,omitempty"`
	MaxFade    float64                   `json:"max_fade,omitempty"`
	Stems      map[intent.State][]string `json:"stems,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f to path atomically.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToPolicyConfig overlays the fixture overrides on the stock table.
func (fc FixtureConfig) ToPolicyConfig() policy.Config {
	cfg := policy.DefaultConfig()
	if fc.MinDwellMS > 0 {
		cfg.MinDwell = time.Duration(fc.MinDwellMS) * time.Millisecond
	}
	if fc.MinFade > 0 {
		cfg.MinFade = fc.MinFade
	}
	if fc.MaxFade > 0 {
		cfg.MaxFade = fc.MaxFade
	}
	for state, stems := range fc.Stems {
		cfg.Stems[state] = stems
	}
	return cfg
}

// TimedEvents validates the fixture events and places them on the timeline.
func (f *Fixture) TimedEvents() ([]TimedEvent, error) {
	out := make([]TimedEvent, 0, len(f.Events))
	for i, fe := range f.Events {
		ev, err := intent.NewEvent(fe.State, fe.Intensity, fe.Flags...)
		if err != nil {
			return nil, fmt.Errorf("fixture event %d (%s): %w", i, fe.TurnID, err)
		}
		out = append(out, TimedEvent{
			TurnID: fe.TurnID,
			At:     f.Start.Add(time.Duration(fe.OffsetMS) * time.Millisecond),
			Event:  ev,
		})
	}
	return out, nil
}

// #endregion fixture-loader

// #region fixture-export

// FromEntries turns a recorded session log into a timeline. Arrival times
// come from the recorded intent timestamps.
func FromEntries(entries []session.Entry) []TimedEvent {
	out := make([]TimedEvent, len(entries))
	for i, e := range entries {
		out[i] = TimedEvent{
			TurnID: fmt.Sprintf("turn-%03d", e.Seq),
			At:     e.Intent.Timestamp,
			Event:  e.Event,
		}
	}
	return out
}

// FixtureFromEntries builds a regression fixture from a recorded log, taking
// the recorded decisions as the expected results.
func FixtureFromEntries(description string, entries []session.Entry) *Fixture {
	f := &Fixture{Description: description}
	if len(entries) > 0 {
		f.Start = entries[0].Intent.Timestamp
	}
	for _, te := range FromEntries(entries) {
		f.Events = append(f.Events, FixtureEvent{
			TurnID:    te.TurnID,
			OffsetMS:  te.At.Sub(f.Start).Milliseconds(),
			State:     te.Event.State,
			Intensity: te.Event.Intensity,
			Flags:     te.Event.Flags,
		})
	}
	for i, e := range entries {
		action := ActionHeld
		if e.NewSelection {
			action = ActionNew
		}
		exp := FixtureExpectedResult{
			TurnID: f.Events[i].TurnID,
			Action: action,
			Stems:  e.Intent.ActiveStems,
		}
		if len(e.Intent.ActiveStems) > 0 {
			fade := e.Intent.FadeDurations[e.Intent.ActiveStems[0]]
			exp.Fade = &fade
		}
		f.ExpectedResults = append(f.ExpectedResults, exp)
	}
	return f
}

// #endregion fixture-export

// #region fixture-check

// Mismatch describes one turn whose replay differs from the fixture.
type Mismatch struct {
	Index  int
	TurnID string
	Field  string
	Want   string
	Got    string
}

// Check compares replay results with the fixture's expectations.
func (f *Fixture) Check(results []Result) []Mismatch {
	var out []Mismatch
	if len(results) != len(f.ExpectedResults) {
		out = append(out, Mismatch{
			Index: -1, Field: "count",
			Want: fmt.Sprint(len(f.ExpectedResults)), Got: fmt.Sprint(len(results)),
		})
		return out
	}
	for i, exp := range f.ExpectedResults {
		got := results[i]
		add := func(field string, want, have any) {
			out = append(out, Mismatch{Index: i, TurnID: exp.TurnID, Field: field, Want: fmt.Sprint(want), Got: fmt.Sprint(have)})
		}
		if got.TurnID != exp.TurnID {
			add("turn_id", exp.TurnID, got.TurnID)
		}
		if got.Action != exp.Action {
			add("action", exp.Action, got.Action)
		}
		if exp.Stems != nil && !slices.Equal(exp.Stems, got.Intent.ActiveStems) {
			add("stems", exp.Stems, got.Intent.ActiveStems)
		}
		if exp.Fade != nil && len(got.Intent.ActiveStems) > 0 {
			fade := got.Intent.FadeDurations[got.Intent.ActiveStems[0]]
			if math.Abs(fade-*exp.Fade) > 1e-9 {
				add("fade", *exp.Fade, fade)
			}
		}
	}
	return out
}

// #endregion fixture-check
