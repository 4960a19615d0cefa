package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
	"github.com/mohitagr18/game-sound-generator/internal/journal"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
	"github.com/mohitagr18/game-sound-generator/internal/replay"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

func TestParseEventLine(t *testing.T) {
	ev, err := parseEventLine([]string{"Battle", "80", "boss"})
	require.NoError(t, err)
	assert.Equal(t, intent.StateCombat, ev.State)
	assert.Equal(t, 80, ev.Intensity)
	assert.True(t, ev.Flags.Has("boss"))

	_, err = parseEventLine([]string{"combat"})
	assert.Error(t, err)
	_, err = parseEventLine([]string{"combat", "loud"})
	assert.Error(t, err)
	_, err = parseEventLine([]string{"disco", "10"})
	assert.Error(t, err)
	_, err = parseEventLine([]string{"combat", "140"})
	assert.Error(t, err)
}

func TestFixtureMode(t *testing.T) {
	var out bytes.Buffer
	code, err := runFixtureMode(&out, filepath.Join("..", "..", "internal", "replay", "testdata", "combat_session.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "8 total, 8 match, 0 diverge")
}

func TestPrintComparison_Diverge(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []replay.TimedEvent{
		{TurnID: "t1", At: base, Event: intent.MustEvent(intent.StateExplore, 30)},
		{TurnID: "t2", At: base.Add(time.Second), Event: intent.MustEvent(intent.StateExplore, 30)},
	}
	results := replay.Replay(events, policy.DefaultConfig())

	var out bytes.Buffer
	code := printComparison(&out, results, []string{replay.ActionNew, replay.ActionNew})
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "DIFF")
	assert.Contains(t, out.String(), "2 total, 1 match, 1 diverge")
}

func TestLogMode(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sess := session.New(policy.DefaultConfig(), session.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	for _, ev := range []intent.Event{
		intent.MustEvent(intent.StateExplore, 20),
		intent.MustEvent(intent.StateExplore, 25),
		intent.MustEvent(intent.StateExplore, 25),
		intent.MustEvent(intent.StateCombat, 90, "boss"),
	} {
		_, err := sess.Post(context.Background(), ev)
		require.NoError(t, err)
	}
	path := filepath.Join(dir, "log.json")
	require.NoError(t, sess.Export(path))

	var out bytes.Buffer
	code, err := runLogMode(&out, path, "")
	require.NoError(t, err)
	assert.Equal(t, 0, code, out.String())

	policyPath := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte("min_dwell: 0s\n"), 0o600))
	out.Reset()
	code, err = runLogMode(&out, path, policyPath)
	require.NoError(t, err)
	assert.Equal(t, 1, code, "a zero dwell should turn held turns into new selections")
}

func TestExportSession(t *testing.T) {
	ctx := context.Background()
	store, err := journal.Open(journal.MemoryDSN)
	require.NoError(t, err)
	defer store.Close()

	sess := session.New(policy.DefaultConfig(), session.WithID("s-1"), session.WithRecorder(store))
	_, err = sess.Post(ctx, intent.MustEvent(intent.StateStealth, 10))
	require.NoError(t, err)
	_, err = sess.Post(ctx, intent.MustEvent(intent.StateCombat, 70))
	require.NoError(t, err)

	dir := t.TempDir()
	var out bytes.Buffer
	docPath := filepath.Join(dir, "doc.json")
	require.NoError(t, exportSession(ctx, &out, store, "s-1", docPath, "", false))
	doc, err := session.ReadDocument(docPath)
	require.NoError(t, err)
	assert.Len(t, doc.Entries, 2)
	assert.Equal(t, 1, doc.KPI.TotalTransitions)

	fixturePath := filepath.Join(dir, "fixture.json")
	require.NoError(t, exportSession(ctx, &out, store, "s-1", fixturePath, "", true))
	f, err := replay.LoadFixture(fixturePath)
	require.NoError(t, err)
	assert.Equal(t, "exported from session s-1", f.Description)
	assert.Len(t, f.Events, 2)

	assert.Error(t, exportSession(ctx, &out, store, "missing", docPath, "", false))
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- first answer\n- |\n  {\"theme\": \"combat\"}\n"), 0o600))
	responses, err := loadScript(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first answer", "{\"theme\": \"combat\"}\n"}, responses)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]\n"), 0o600))
	_, err = loadScript(empty)
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	store, err := journal.Open(journal.MemoryDSN)
	require.NoError(t, err)
	defer store.Close()

	sess := session.New(policy.DefaultConfig(), session.WithID("s-2"), session.WithRecorder(store))
	_, err = sess.Post(ctx, intent.MustEvent(intent.StateExplore, 30))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, inspectOverview(ctx, &out, store))
	assert.Contains(t, out.String(), "=== Sessions (1) ===")
	assert.Contains(t, out.String(), "s-2")

	out.Reset()
	require.NoError(t, inspectSession(ctx, &out, store, "s-2"))
	assert.Contains(t, out.String(), "1 entries")
	assert.Contains(t, out.String(), "pad,bass")

	assert.Error(t, inspectSession(ctx, &out, store, "nope"))
}
