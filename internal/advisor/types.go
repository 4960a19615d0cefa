package advisor

import (
	"context"
	"time"

	"github.com/mohitagr18/game-sound-generator/internal/extract"
	"github.com/mohitagr18/game-sound-generator/internal/intent"
)

// #region model
// ModelFunc is one opaque text-in/text-out model call. The prompt, if any, is
// already bound into the closure.
type ModelFunc func(ctx context.Context) (string, error)

// Model is a backend that answers a prompt with free-form text.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// #endregion model

// #region status
// StatusTransportError marks an attempt whose model call returned an error.
// It is treated like an empty response.
const StatusTransportError extract.Status = "transport_error"

// Outcome summarizes how a recommendation was reached.
type Outcome string

const (
	OutcomeFirst     Outcome = "first"     // first call produced a usable intent
	OutcomeRetried   Outcome = "retried"   // the retry produced a usable intent
	OutcomeExhausted Outcome = "exhausted" // both calls were empty
)

// #endregion status

// #region attempt
// Attempt records one model call and its extraction.
type Attempt struct {
	Number   int            `json:"number"`
	Status   extract.Status `json:"status"`
	Raw      string         `json:"raw"`
	Error    string         `json:"error,omitempty"`
	Problems []string       `json:"problems,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// #endregion attempt

// #region recommendation
// Recommendation is the final result of Recommend. Intent is empty when
// Outcome is OutcomeExhausted; Reasoning is always set from the last attempt.
type Recommendation struct {
	Intent    intent.MusicalIntent `json:"intent"`
	Reasoning string               `json:"reasoning"`
	Attempts  []Attempt            `json:"attempts"`
	Outcome   Outcome              `json:"outcome"`
}

// Empty reports whether no usable intent was produced.
func (r Recommendation) Empty() bool {
	return r.Outcome == OutcomeExhausted
}

// #endregion recommendation
