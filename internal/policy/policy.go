package policy

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
	"github.com/mohitagr18/game-sound-generator/internal/metrics"
)

// #region policy
// Policy maps events to musical intents and owns one session's hysteresis
// state. It is not safe for concurrent use; session.Session serializes calls.
type Policy struct {
	config Config
	state  *hysteresis
	logger zerolog.Logger
}

// New creates a policy with empty hysteresis state.
func New(config Config) *Policy {
	return &Policy{
		config: config,
		state:  newHysteresis(),
		logger: mixlog.WithComponent("policy"),
	}
}

// Config returns the active configuration.
func (p *Policy) Config() Config {
	return p.config
}

// SetConfig swaps the tuning table. Hysteresis state is kept.
func (p *Policy) SetConfig(config Config) {
	p.config = config
}

// LastSwitch reports when key last produced a new selection.
func (p *Policy) LastSwitch(key string) (time.Time, bool) {
	return p.state.last(key)
}

// TrackedKeys returns how many selection keys have been seen.
func (p *Policy) TrackedKeys() int {
	return p.state.size()
}

// #endregion policy

// #region decide
// Decide computes the intent for ev at now. It is total over valid events:
// every call returns a fresh intent, and the dwell window only controls
// whether the key's switch time advances.
func (p *Policy) Decide(ev intent.Event, now time.Time) Decision {
	cfg := p.config
	stems := p.selectStems(ev)

	key := ev.SelectionKey()
	isNew, since := p.state.observe(key, now, cfg.MinDwell)

	fade := p.fadeFor(ev)
	gains := make(map[string]float64, len(stems))
	fades := make(map[string]float64, len(stems))
	for _, s := range stems {
		gains[s] = p.gainFor(ev, s)
		fades[s] = fade
	}

	reason := "dwell: selection held"
	if isNew {
		reason = "new selection"
	}
	if isNew && since > 0 {
		reason = fmt.Sprintf("new selection after %s", since)
	}

	metrics.RecordDecision(string(ev.State), isNew)
	p.logger.Debug().
		Str("event", "policy.decide").
		Str("key", key).
		Strs("stems", stems).
		Float64("fade", fade).
		Bool("new_selection", isNew).
		Msg(reason)

	return Decision{
		Intent: intent.MusicalIntent{
			Theme:         ev.State,
			ActiveStems:   stems,
			TargetGains:   gains,
			FadeDurations: fades,
			Timestamp:     now,
		},
		Key:          key,
		NewSelection: isNew,
		SinceSwitch:  since,
		Reason:       reason,
	}
}

// #endregion decide

// #region helpers
func (p *Policy) selectStems(ev intent.Event) []string {
	base, ok := p.config.Stems[ev.State]
	if !ok {
		base = p.config.DefaultStems
	}
	stems := slices.Clone(base)
	if ev.State == intent.StateCombat && ev.Flags.Has(intent.FlagBoss) && !slices.Contains(stems, intent.StemFX) {
		stems = append(stems, intent.StemFX)
	}
	return stems
}

// gainFor scales with intensity; a boss fx stem saturates earlier.
func (p *Policy) gainFor(ev intent.Event, stem string) float64 {
	if stem == intent.StemFX && ev.Flags.Has(intent.FlagBoss) {
		return math.Min(float64(ev.Intensity)/p.config.BossFXDivisor, 1.0)
	}
	return float64(ev.Intensity) / 100
}

func (p *Policy) fadeFor(ev intent.Event) float64 {
	var base float64
	switch {
	case ev.Flags.Has(intent.FlagBoss):
		base = p.config.BossFade
	case ev.Intensity < p.config.CalmBelow:
		base = p.config.CalmFade
	default:
		base = p.config.ActiveFade
	}
	return clamp(base, p.config.MinFade, p.config.MaxFade)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// #endregion helpers
