package replay

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
)

func timeline(start time.Time, step time.Duration, events ...intent.Event) []TimedEvent {
	out := make([]TimedEvent, len(events))
	for i, ev := range events {
		out[i] = TimedEvent{TurnID: string(rune('a' + i)), At: start.Add(time.Duration(i) * step), Event: ev}
	}
	return out
}

func TestReplay_FreshPolicyEachRun(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	events := timeline(start, 100*time.Millisecond,
		intent.MustEvent(intent.StateCombat, 60),
		intent.MustEvent(intent.StateCombat, 61),
	)

	first := Replay(events, policy.DefaultConfig())
	second := Replay(events, policy.DefaultConfig())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("replays differ (-first +second):\n%s", diff)
	}
	if first[0].Action != ActionNew || first[1].Action != ActionHeld {
		t.Fatalf("unexpected actions %s, %s", first[0].Action, first[1].Action)
	}
	if !first[1].Intent.Timestamp.Equal(start.Add(100 * time.Millisecond)) {
		t.Fatalf("intent timestamp should be the arrival time, got %s", first[1].Intent.Timestamp)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}
