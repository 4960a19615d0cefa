package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohitagr18/game-sound-generator/internal/advisor"
	"github.com/mohitagr18/game-sound-generator/internal/extract"
	"github.com/mohitagr18/game-sound-generator/internal/intent"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// #region entry-tests
func TestRecordEntryViaSession(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	sess := session.New(policy.DefaultConfig(), session.WithRecorder(st), session.WithID("sess-a"))

	_, err := sess.Post(ctx, intent.MustEvent(intent.StateExplore, 50))
	require.NoError(t, err)
	_, err = sess.Post(ctx, intent.MustEvent(intent.StateCombat, 85, "boss"))
	require.NoError(t, err)

	got, err := st.Entries(ctx, "sess-a")
	require.NoError(t, err)
	want := sess.Entries()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Seq, got[i].Seq)
		assert.Equal(t, want[i].Event, got[i].Event)
		assert.True(t, want[i].Intent.Equal(got[i].Intent), "entry %d intent", i+1)
		assert.Equal(t, want[i].NewSelection, got[i].NewSelection)
		assert.Equal(t, want[i].Source, got[i].Source)
	}
}

func TestDuplicateSeqRejected(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	e := session.Entry{Seq: 1, Event: intent.MustEvent(intent.StateExplore, 10), Source: session.SourcePolicy}

	require.NoError(t, st.RecordEntry(ctx, "s", e))
	assert.Error(t, st.RecordEntry(ctx, "s", e))
}

func TestMemoryDSNSharesOneDatabase(t *testing.T) {
	st, err := Open("")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	e := session.Entry{Seq: 1, Event: intent.MustEvent(intent.StateStealth, 10), Source: session.SourcePolicy}
	require.NoError(t, st.RecordEntry(ctx, "mem", e))

	got, err := st.Entries(ctx, "mem")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// #endregion entry-tests

// #region advice-tests
func TestRecordAdviceAndStats(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()

	retried := advisor.Recommendation{
		Outcome: advisor.OutcomeRetried,
		Attempts: []advisor.Attempt{
			{Number: 1, Status: advisor.StatusTransportError, Error: "reset", Duration: 20 * time.Millisecond},
			{Number: 2, Status: extract.StatusOK, Raw: "{...}"},
		},
	}
	exhausted := advisor.Recommendation{
		Outcome: advisor.OutcomeExhausted,
		Attempts: []advisor.Attempt{
			{Number: 1, Status: extract.StatusNoJSON, Raw: "hmm"},
			{Number: 2, Status: extract.StatusIncomplete, Raw: "{}"},
		},
	}
	require.NoError(t, st.RecordAdvice(ctx, "s1", session.Advice{Seq: 1, NextTheme: intent.StateCombat, Recommendation: retried}))
	require.NoError(t, st.RecordAdvice(ctx, "s1", session.Advice{Seq: 2, NextTheme: intent.StateStealth, Recommendation: exhausted}))

	atts, err := st.Attempts(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, atts, 4)
	assert.False(t, atts[0].Accepted)
	assert.True(t, atts[1].Accepted)
	assert.False(t, atts[3].Accepted)
	assert.Equal(t, "reset", atts[0].Error)
	assert.Equal(t, int64(20), atts[0].DurationMS)
	assert.Equal(t, atts[0].AdviceID, atts[1].AdviceID)
	assert.NotEqual(t, atts[1].AdviceID, atts[2].AdviceID)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Recommendations)
	assert.Equal(t, 1, stats.Retried)
	assert.Equal(t, 1, stats.Exhausted)
	assert.Equal(t, 1, stats.AttemptsByStatus["transport_error"])
	assert.Equal(t, 1, stats.AttemptsByStatus["ok"])

	sessions, err := st.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, 4, sessions[0].Attempts)
	assert.Equal(t, 0, sessions[0].Entries)
}

func TestCanceledContext(t *testing.T) {
	st := tempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.RecordEntry(ctx, "s", session.Entry{Seq: 1, Event: intent.MustEvent(intent.StateExplore, 1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

// #endregion advice-tests
