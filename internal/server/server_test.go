package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mohitagr18/game-sound-generator/internal/advisor"
	"github.com/mohitagr18/game-sound-generator/internal/codec"
	"github.com/mohitagr18/game-sound-generator/internal/extract"
	"github.com/mohitagr18/game-sound-generator/internal/intent"
	"github.com/mohitagr18/game-sound-generator/internal/journal"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const combatAnswer = `{"theme":"combat","active_stems":["pad","drums"],` +
	`"target_gains":{"pad":0.6,"drums":0.9},"fade_durations":{"pad":1.2,"drums":1.2}}
Drums carry the fight.`

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	srv := New(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createSession(t *testing.T, base string) string {
	t.Helper()
	resp := do(t, http.MethodPost, base+"/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[sessionInfo](t, resp).SessionID
}

// #region session-tests
func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := createSession(t, ts.URL)
	base := ts.URL + "/sessions/" + id

	for _, ev := range []map[string]any{
		{"state": "explore", "intensity": 50, "flags": []string{}},
		{"state": "explore", "intensity": 55},
		{"state": "combat", "intensity": 85, "flags": []string{"boss"}},
	} {
		resp := do(t, http.MethodPost, base+"/events", ev)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	log := decode[[]session.Entry](t, do(t, http.MethodGet, base+"/log", nil))
	require.Len(t, log, 3)
	assert.Equal(t, []string{"pad", "bass", "drums", "fx"}, log[2].Intent.ActiveStems)
	assert.InDelta(t, 85.0/90.0, log[2].Intent.TargetGains["fx"], 1e-9)

	kpi := decode[session.KPI](t, do(t, http.MethodGet, base+"/kpi", nil))
	assert.Equal(t, 3, kpi.TotalEvents)
	assert.Equal(t, 1, kpi.TotalTransitions)
	assert.Equal(t, "pad", kpi.StemUsage[0].Stem)

	replayed := decode[replayResponse](t, do(t, http.MethodPost, base+"/replay", nil))
	require.Len(t, replayed.Intents, 3)
	assert.Equal(t, intent.StateCombat, replayed.Intents[2].Theme)

	resp := do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, base+"/log", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionsAreIndependent(t *testing.T) {
	ts := newTestServer(t, Options{})
	a := createSession(t, ts.URL)
	b := createSession(t, ts.URL)
	require.NotEqual(t, a, b)

	do(t, http.MethodPost, ts.URL+"/sessions/"+a+"/events", map[string]any{"state": "combat", "intensity": 70})
	entry := decode[session.Entry](t, do(t, http.MethodPost, ts.URL+"/sessions/"+b+"/events",
		map[string]any{"state": "combat", "intensity": 70}))
	assert.True(t, entry.NewSelection, "dwell state leaked across sessions")

	list := decode[[]sessionInfo](t, do(t, http.MethodGet, ts.URL+"/sessions", nil))
	assert.Len(t, list, 2)
}

func TestPostEvent_Validation(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := createSession(t, ts.URL)
	url := ts.URL + "/sessions/" + id + "/events"

	resp := do(t, http.MethodPost, url, map[string]any{"state": "combat", "intensity": 101})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "intensity", decode[errorBody](t, resp).Field)

	resp = do(t, http.MethodPost, url, map[string]any{"state": "disco", "intensity": 10})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "state", decode[errorBody](t, resp).Field)

	resp = do(t, http.MethodPost, url, `{"state":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, url, map[string]any{"state": "combat", "intensity": 10, "mood": "dark"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionLimit(t *testing.T) {
	ts := newTestServer(t, Options{MaxSessions: 1})
	createSession(t, ts.URL)
	resp := do(t, http.MethodPost, ts.URL+"/sessions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDefaultSessionRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})

	empty := decode[[]session.Entry](t, do(t, http.MethodGet, ts.URL+"/log", nil))
	assert.Empty(t, empty)

	resp := do(t, http.MethodPost, ts.URL+"/events", map[string]any{"state": "stealth", "intensity": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	log := decode[[]session.Entry](t, do(t, http.MethodGet, ts.URL+"/log", nil))
	require.Len(t, log, 1)
	assert.Equal(t, []string{"pad", "fx"}, log[0].Intent.ActiveStems)
}

func TestApplyPolicy(t *testing.T) {
	srv := New(Options{})
	ts := httptest.NewServer(srv.Handler())
	defer srv.Close()
	defer ts.Close()
	id := createSession(t, ts.URL)

	cfg := policy.DefaultConfig()
	cfg.Stems[intent.StateExplore] = []string{"pad", "strings"}
	srv.ApplyPolicy(cfg)

	entry := decode[session.Entry](t, do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/events",
		map[string]any{"state": "explore", "intensity": 40}))
	assert.Equal(t, []string{"pad", "strings"}, entry.Intent.ActiveStems)
}

// #endregion session-tests

// #region advisor-tests
func newCoordinator(t *testing.T) *advisor.Coordinator {
	t.Helper()
	ex, err := extract.New(extract.DefaultConfig())
	require.NoError(t, err)
	return advisor.NewCoordinator(ex)
}

func TestAdvise_ApplyAppendsEntry(t *testing.T) {
	st, err := journal.Open(journal.MemoryDSN)
	require.NoError(t, err)
	defer st.Close()

	model := codec.NewScripted("nothing yet", combatAnswer)
	ts := newTestServer(t, Options{Coordinator: newCoordinator(t), Model: model, Recorder: st})
	id := createSession(t, ts.URL)
	base := ts.URL + "/sessions/" + id

	do(t, http.MethodPost, base+"/events", map[string]any{"state": "explore", "intensity": 40})
	resp := do(t, http.MethodPost, base+"/advisor", map[string]any{"next_theme": "Battle", "apply": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[adviseResponse](t, resp)
	rec := out.Advice.Recommendation
	assert.Equal(t, advisor.OutcomeRetried, rec.Outcome)
	assert.Len(t, rec.Attempts, 2)
	assert.Equal(t, "Drums carry the fight.", rec.Reasoning)
	require.NotNil(t, out.Entry)
	assert.Equal(t, session.SourceAdvisor, out.Entry.Source)
	assert.Equal(t, 40, out.Entry.Event.Intensity)
	assert.False(t, out.Entry.Intent.Timestamp.IsZero())

	history := decode[[]session.Advice](t, do(t, http.MethodGet, base+"/advisor", nil))
	assert.Len(t, history, 1)

	prompts := model.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "Next theme: combat")
	assert.Contains(t, prompts[0], "Current theme: explore")

	atts, err := st.Attempts(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, atts, 2)
	entries, err := st.Entries(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAdvise_ClampsToSessionFadeBand(t *testing.T) {
	table := policy.DefaultConfig()
	table.MinFade, table.MaxFade = 1.5, 3.0
	ts := newTestServer(t, Options{
		Coordinator: newCoordinator(t),
		Model:       codec.NewScripted(combatAnswer),
		Policy:      func() policy.Config { return table },
	})
	id := createSession(t, ts.URL)

	out := decode[adviseResponse](t, do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/advisor",
		map[string]any{"next_theme": "combat", "intensity": 70, "apply": true}))
	require.NotNil(t, out.Entry)
	assert.Equal(t, map[string]float64{"pad": 1.5, "drums": 1.5}, out.Entry.Intent.FadeDurations)
	assert.Equal(t, out.Entry.Intent.FadeDurations, out.Advice.Recommendation.Intent.FadeDurations)
}

func TestAdvise_ExhaustedDoesNotAppend(t *testing.T) {
	ts := newTestServer(t, Options{Coordinator: newCoordinator(t), Model: codec.NewScripted("no json here at all")})
	id := createSession(t, ts.URL)

	out := decode[adviseResponse](t, do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/advisor",
		map[string]any{"next_theme": "stealth", "apply": true}))
	assert.Equal(t, advisor.OutcomeExhausted, out.Advice.Recommendation.Outcome)
	assert.Equal(t, "no json here at all", out.Advice.Recommendation.Reasoning)
	assert.Nil(t, out.Entry)
}

func TestAdvise_Errors(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := createSession(t, ts.URL)
	resp := do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/advisor", map[string]any{"next_theme": "combat"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ts = newTestServer(t, Options{Coordinator: newCoordinator(t), Model: codec.NewScripted(combatAnswer)})
	id = createSession(t, ts.URL)
	resp = do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/advisor", map[string]any{"next_theme": "jazz"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// #endregion advisor-tests

// #region misc-tests
func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, Options{})
	health := decode[map[string]any](t, do(t, http.MethodGet, ts.URL+"/healthz", nil))
	assert.Equal(t, "ok", health["status"])

	id := createSession(t, ts.URL)
	do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/events", map[string]any{"state": "combat", "intensity": 60})

	resp := do(t, http.MethodGet, ts.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "mixer_policy_decisions_total")
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{RateLimit: 2})
	for i := 0; i < 2; i++ {
		resp := do(t, http.MethodGet, ts.URL+"/sessions", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := do(t, http.MethodGet, ts.URL+"/sessions", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	health := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := createSession(t, ts.URL)
	do(t, http.MethodPost, ts.URL+"/sessions/"+id+"/events", map[string]any{"state": "explore", "intensity": 10})

	resp := do(t, http.MethodGet, ts.URL+"/sessions/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), id)
	doc := decode[session.Document](t, resp)
	assert.Equal(t, id, doc.SessionID)
	assert.Len(t, doc.Entries, 1)
}

// #endregion misc-tests
