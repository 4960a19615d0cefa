package policy

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
)

// #region policy-config
// Config holds the stem table and the gain/fade/dwell tuning of the policy.
type Config struct {
	Stems         map[intent.State][]string `yaml:"stems" json:"stems"`
	DefaultStems  []string                  `yaml:"default_stems" json:"default_stems"` // states missing from Stems
	MinDwell      time.Duration             `yaml:"min_dwell" json:"min_dwell"`
	MinFade       float64                   `yaml:"min_fade" json:"min_fade"` // seconds
	MaxFade       float64                   `yaml:"max_fade" json:"max_fade"`
	BossFade      float64                   `yaml:"boss_fade" json:"boss_fade"`
	CalmFade      float64                   `yaml:"calm_fade" json:"calm_fade"`
	ActiveFade    float64                   `yaml:"active_fade" json:"active_fade"`
	CalmBelow     int                       `yaml:"calm_below" json:"calm_below"` // intensity under which CalmFade applies
	BossFXDivisor float64                   `yaml:"boss_fx_divisor" json:"boss_fx_divisor"`
}

// DefaultConfig returns the stock table: explore→pad,bass; stealth→pad,fx;
// combat→pad,bass,drums; anything else→pad.
func DefaultConfig() Config {
	return Config{
		Stems: map[intent.State][]string{
			intent.StateExplore: {intent.StemPad, intent.StemBass},
			intent.StateStealth: {intent.StemPad, intent.StemFX},
			intent.StateCombat:  {intent.StemPad, intent.StemBass, intent.StemDrums},
		},
		DefaultStems:  []string{intent.StemPad},
		MinDwell:      2 * time.Second,
		MinFade:       0.7,
		MaxFade:       4.0,
		BossFade:      2.5,
		CalmFade:      1.0,
		ActiveFade:    1.5,
		CalmBelow:     40,
		BossFXDivisor: 90,
	}
}

// Validate rejects tables the policy cannot be total over.
func (c Config) Validate() error {
	var errs []error
	if c.MinFade <= 0 {
		errs = append(errs, fmt.Errorf("min_fade %.3f must be positive", c.MinFade))
	}
	if c.MaxFade < c.MinFade {
		errs = append(errs, fmt.Errorf("max_fade %.3f below min_fade %.3f", c.MaxFade, c.MinFade))
	}
	if c.MinDwell < 0 {
		errs = append(errs, fmt.Errorf("min_dwell %s is negative", c.MinDwell))
	}
	if c.BossFXDivisor <= 0 {
		errs = append(errs, fmt.Errorf("boss_fx_divisor %.3f must be positive", c.BossFXDivisor))
	}
	if len(c.DefaultStems) == 0 {
		errs = append(errs, errors.New("default_stems is empty"))
	}
	for state, stems := range c.Stems {
		if !state.Valid() {
			errs = append(errs, fmt.Errorf("stems: unknown state %q", state))
		}
		if len(stems) == 0 {
			errs = append(errs, fmt.Errorf("stems: %s has no stems", state))
		}
		sorted := slices.Clone(stems)
		slices.Sort(sorted)
		if len(slices.Compact(sorted)) != len(stems) {
			errs = append(errs, fmt.Errorf("stems: %s lists a stem twice", state))
		}
	}
	return errors.Join(errs...)
}

// #endregion policy-config

// #region decision
// Decision is the output of Decide. Intent is always populated; NewSelection
// reports whether the selection key advanced its switch time on this call.
type Decision struct {
	Intent       intent.MusicalIntent
	Key          string
	NewSelection bool
	SinceSwitch  time.Duration // time since the key's previous switch; 0 on first sight
	Reason       string
}

// #endregion decision
