// Package session owns one mixing session: its policy, its append-only log
// and its advisor history, all behind a single mutex.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mohitagr18/game-sound-generator/internal/advisor"
	"github.com/mohitagr18/game-sound-generator/internal/intent"
	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
	"github.com/mohitagr18/game-sound-generator/internal/metrics"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
)

// #region recorder
// Recorder persists session activity. Failures are logged, never surfaced to
// the caller: the in-memory log is authoritative.
type Recorder interface {
	RecordEntry(ctx context.Context, sessionID string, e Entry) error
	RecordAdvice(ctx context.Context, sessionID string, a Advice) error
}

// Advice is one advisor recommendation kept in session history.
type Advice struct {
	Seq            int                    `json:"seq"`
	NextTheme      intent.State           `json:"next_theme"`
	Question       string                 `json:"question,omitempty"`
	Recommendation advisor.Recommendation `json:"recommendation"`
	At             time.Time              `json:"at"`
}

// #endregion recorder

// #region session
// Session serializes every operation on its policy and log.
type Session struct {
	id       string
	mu       sync.Mutex
	policy   *policy.Policy
	log      *Log
	advice   []Advice
	clock    func() time.Time
	recorder Recorder
	logger   zerolog.Logger
	created  time.Time
	loc      *time.Location // reference zone, taken from the clock
}

// Option configures a Session.
type Option func(*Session)

// WithID fixes the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithClock sets the clock used for intent timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

// WithRecorder attaches a persistence sink.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// New creates a session with a fresh policy built from cfg.
func New(cfg policy.Config, opts ...Option) *Session {
	s := &Session{
		policy: policy.New(cfg),
		log:    NewLog(),
		clock:  intent.ReferenceClock(time.UTC),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.created = s.clock()
	s.loc = s.created.Location()
	s.logger = mixlog.WithComponent("session").With().Str("session_id", s.id).Logger()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Created returns the session creation time.
func (s *Session) Created() time.Time { return s.created }

// #endregion session

// #region post
// Post validates ev, runs it through the policy and appends the result.
func (s *Session) Post(ctx context.Context, ev intent.Event) (Entry, error) {
	if err := ev.Validate(); err != nil {
		return Entry{}, err
	}
	s.mu.Lock()
	d := s.policy.Decide(ev, s.clock())
	e := s.log.Append(Entry{
		Event:        ev,
		Intent:       d.Intent,
		Source:       SourcePolicy,
		NewSelection: d.NewSelection,
		Reasoning:    d.Reason,
	})
	s.mu.Unlock()

	s.record(ctx, e)
	return e, nil
}

// Append logs an intent produced elsewhere, typically by the advisor. A zero
// timestamp is replaced with the session clock; any other is moved into the
// reference zone.
func (s *Session) Append(ctx context.Context, ev intent.Event, mi intent.MusicalIntent, reasoning string) (Entry, error) {
	if err := ev.Validate(); err != nil {
		return Entry{}, err
	}
	if err := mi.Check(); err != nil {
		return Entry{}, fmt.Errorf("append intent: %w", err)
	}
	s.mu.Lock()
	if mi.Timestamp.IsZero() {
		mi.Timestamp = s.clock()
	} else {
		mi.Timestamp = mi.Timestamp.In(s.loc)
	}
	e := s.log.Append(Entry{
		Event:     ev,
		Intent:    mi,
		Source:    SourceAdvisor,
		Reasoning: reasoning,
	})
	s.mu.Unlock()

	s.record(ctx, e)
	return e, nil
}

func (s *Session) record(ctx context.Context, e Entry) {
	metrics.RecordEntry()
	s.logger.Debug().
		Str("event", "session.append").
		Int("seq", e.Seq).
		Str("state", string(e.Event.State)).
		Str("source", string(e.Source)).
		Msg("entry appended")
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordEntry(ctx, s.id, e); err != nil {
		s.logger.Warn().Err(err).Str("event", "session.record").Int("seq", e.Seq).Msg("failed to record entry")
	}
}

// #endregion post

// #region replay
// Replay runs events, in order, through a policy built from the current
// table with empty dwell state and returns the fresh intents. Neither the log
// nor the live dwell state is touched.
func (s *Session) Replay(events []intent.Event) ([]intent.MusicalIntent, error) {
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("replay event %d: %w", i, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := policy.New(s.policy.Config())
	out := make([]intent.MusicalIntent, len(events))
	for i, ev := range events {
		out[i] = p.Decide(ev, s.clock()).Intent
	}
	return out, nil
}

// #endregion replay

// #region read
// Entries returns a copy of the log.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Entries()
}

// KPIReport aggregates the log.
func (s *Session) KPIReport() KPI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.KPIReport()
}

// Turns returns the log as advisor context.
func (s *Session) Turns() []advisor.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]advisor.Turn, 0, s.log.Len())
	for _, e := range s.log.entries {
		turns = append(turns, advisor.Turn{Event: e.Event, Intent: e.Intent.Clone()})
	}
	return turns
}

// PolicyConfig returns the active policy table.
func (s *Session) PolicyConfig() policy.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Config()
}

// SetPolicyConfig swaps the policy table, keeping dwell state.
func (s *Session) SetPolicyConfig(cfg policy.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy.SetConfig(cfg)
}

// #endregion read

// #region advice
// AddAdvice stores a recommendation in the session history. A usable intent
// without a timestamp is stamped with the advice time; timestamps are kept in
// the reference zone.
func (s *Session) AddAdvice(ctx context.Context, next intent.State, question string, rec advisor.Recommendation) Advice {
	s.mu.Lock()
	at := s.clock()
	if !rec.Empty() {
		if rec.Intent.Timestamp.IsZero() {
			rec.Intent.Timestamp = at
		} else {
			rec.Intent.Timestamp = rec.Intent.Timestamp.In(s.loc)
		}
	}
	a := Advice{
		Seq:            len(s.advice) + 1,
		NextTheme:      next,
		Question:       question,
		Recommendation: rec,
		At:             at,
	}
	s.advice = append(s.advice, a)
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.RecordAdvice(ctx, s.id, a); err != nil {
			s.logger.Warn().Err(err).Str("event", "session.record").Int("advice", a.Seq).Msg("failed to record advice")
		}
	}
	return a
}

// Advice returns the advisor history in order.
func (s *Session) Advice() []Advice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.advice)
}

// #endregion advice
