package extract

import "github.com/mohitagr18/game-sound-generator/internal/intent"

// #region status
// Status classifies an extraction.
type Status string

const (
	// StatusOK means a complete intent was extracted.
	StatusOK Status = "ok"
	// StatusIncomplete means a JSON object parsed but failed the completeness
	// check. It is treated as empty for retry purposes.
	StatusIncomplete Status = "incomplete"
	// StatusNoJSON means no candidate span parsed as JSON.
	StatusNoJSON Status = "no_json"
)

// #endregion status

// #region result
// Result is the outcome of Extract. Intent is the zero value unless Status
// is StatusOK. Reasoning is always displayable.
type Result struct {
	Intent    intent.MusicalIntent
	Reasoning string
	Status    Status
	Partial   map[string]any // the parsed object, kept for display when incomplete
	Problems  []string       // why an object was judged incomplete
}

// Empty reports whether the result carries no usable intent.
func (r Result) Empty() bool {
	return r.Status != StatusOK
}

// #endregion result

// #region config
// Config bounds the fade values accepted from a model.
type Config struct {
	MinFade float64
	MaxFade float64
}

// DefaultConfig matches the policy's default fade band.
func DefaultConfig() Config {
	return Config{MinFade: 0.7, MaxFade: 4.0}
}

// FadeBand returns a config clamping fades to [lo, hi].
func FadeBand(lo, hi float64) Config {
	return Config{MinFade: lo, MaxFade: hi}
}

// #endregion config
