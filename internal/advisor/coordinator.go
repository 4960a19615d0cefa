package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohitagr18/game-sound-generator/internal/extract"
	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
	"github.com/mohitagr18/game-sound-generator/internal/metrics"
)

// #region constants
const maxAttempts = 2 // one call plus exactly one retry

const tracerName = "github.com/mohitagr18/game-sound-generator/internal/advisor"

// #endregion constants

// #region coordinator
// Coordinator calls a model, extracts an intent and retries once on empty.
// Calls are strictly sequential.
type Coordinator struct {
	extractor *extract.Extractor
	tracer    trace.Tracer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCoordinator returns a coordinator using ex for extraction.
func NewCoordinator(ex *extract.Extractor) *Coordinator {
	return &Coordinator{
		extractor: ex,
		tracer:    otel.Tracer(tracerName),
		logger:    mixlog.WithComponent("advisor"),
		now:       time.Now,
	}
}

// WithFadeBand returns a copy of c whose extractor clamps fades to
// [lo, hi], normally the active policy's band.
func (c *Coordinator) WithFadeBand(lo, hi float64) *Coordinator {
	cp := *c
	cp.extractor = c.extractor.WithConfig(extract.FadeBand(lo, hi))
	return &cp
}

// #endregion coordinator

// #region recommend
// Recommend invokes call, and if the extracted intent is empty invokes it one
// more time, replacing intent and reasoning with the second result even when
// that is empty too. It never fails; a transport error counts as an empty
// response.
func (c *Coordinator) Recommend(ctx context.Context, call ModelFunc) Recommendation {
	ctx, span := c.tracer.Start(ctx, "advisor.Recommend")
	defer span.End()

	var rec Recommendation
	for n := 1; n <= maxAttempts; n++ {
		res, att := c.attempt(ctx, n, call)
		rec.Attempts = append(rec.Attempts, att)
		rec.Intent = res.Intent
		rec.Reasoning = res.Reasoning

		if !res.Empty() {
			rec.Outcome = OutcomeFirst
			if n > 1 {
				rec.Outcome = OutcomeRetried
			}
			break
		}
		if n < maxAttempts {
			c.logger.Info().
				Str("event", "advisor.retry").
				Str("status", string(att.Status)).
				Int("attempt", n).
				Msg("empty model response, retrying once")
		}
	}
	if rec.Outcome == "" {
		rec.Outcome = OutcomeExhausted
		span.SetStatus(codes.Error, "no usable intent after retry")
	}

	span.SetAttributes(
		attribute.Int("advisor.attempts", len(rec.Attempts)),
		attribute.String("advisor.outcome", string(rec.Outcome)),
	)
	metrics.RecordAdvisorOutcome(string(rec.Outcome))
	c.logger.Info().
		Str("event", "advisor.recommend").
		Str("outcome", string(rec.Outcome)).
		Int("attempts", len(rec.Attempts)).
		Msg("recommendation finished")
	return rec
}

func (c *Coordinator) attempt(ctx context.Context, n int, call ModelFunc) (extract.Result, Attempt) {
	ctx, span := c.tracer.Start(ctx, "advisor.attempt", trace.WithAttributes(attribute.Int("advisor.attempt", n)))
	defer span.End()

	start := c.now()
	raw, err := call(ctx)
	att := Attempt{Number: n, Raw: raw, Duration: c.now().Sub(start)}

	var res extract.Result
	if err != nil {
		span.RecordError(err)
		res = extract.Result{Status: extract.StatusNoJSON, Reasoning: fmt.Sprintf("model call failed: %v", err)}
		att.Status = StatusTransportError
		att.Error = err.Error()
		c.logger.Warn().Err(err).Str("event", "advisor.transport").Int("attempt", n).Msg("model call failed")
	} else {
		res = c.extractor.Extract(raw)
		att.Status = res.Status
		att.Problems = res.Problems
	}

	span.SetAttributes(attribute.String("advisor.status", string(att.Status)))
	metrics.RecordAdvisorAttempt(string(att.Status))
	return res, att
}

// #endregion recommend

// #region advise
// Advise builds the prompt for req and runs Recommend against m.
func (c *Coordinator) Advise(ctx context.Context, m Model, req Request) Recommendation {
	prompt := BuildPrompt(req)
	return c.Recommend(ctx, func(ctx context.Context) (string, error) {
		return m.Generate(ctx, prompt)
	})
}

// #endregion advise
