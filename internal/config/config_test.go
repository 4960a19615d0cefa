package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region env-tests
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ":memory:", cfg.DB)
	assert.Equal(t, BackendNone, cfg.Model)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MIXER_LISTEN", ":9999")
	t.Setenv("MIXER_REFERENCE_TZ", "America/Los_Angeles")
	t.Setenv("MIXER_MODEL", "grpc")
	t.Setenv("MIXER_RATE_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.RateLimit)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Los_Angeles", loc.String())
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"bad tz":         func(c *Config) { c.ReferenceTZ = "Mars/Olympus" },
		"bad model":      func(c *Config) { c.Model = "oracle" },
		"gemini no key":  func(c *Config) { c.Model = BackendGemini },
		"scripted no fn": func(c *Config) { c.Model = BackendScripted },
		"no sessions":    func(c *Config) { c.MaxSessions = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Config{ReferenceTZ: "UTC", Model: BackendNone, MaxSessions: 1}
			require.NoError(t, cfg.Validate())
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// #endregion env-tests

// #region policy-file-tests
func TestParsePolicy_Overlay(t *testing.T) {
	cfg, err := ParsePolicy([]byte(`
min_dwell: 750ms
max_fade: 3.0
stems:
  explore: [pad, strings]
`))
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.MinDwell)
	assert.InDelta(t, 3.0, cfg.MaxFade, 1e-9)
	assert.Equal(t, []string{"pad", "strings"}, cfg.Stems[intent.StateExplore])
	assert.Equal(t, []string{"pad", "bass", "drums"}, cfg.Stems[intent.StateCombat])
	assert.InDelta(t, 0.7, cfg.MinFade, 1e-9)
}

func TestParsePolicy_Empty(t *testing.T) {
	cfg, err := ParsePolicy(nil)
	require.NoError(t, err)
	assert.Equal(t, policy.DefaultConfig(), cfg)
}

func TestParsePolicy_Rejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":   "min_dwel: 1s",
		"unknown state": "stems:\n  disco: [pad]",
		"inverted band": "min_fade: 3\nmax_fade: 1",
		"duplicate":     "stems:\n  combat: [pad, pad]",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicy_EmptyPath(t *testing.T) {
	cfg, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.MinDwell)
}

// #endregion policy-file-tests

// #region holder-tests
func writePolicy(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestPolicyHolder_ReloadKeepsOldOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicy(t, path, "min_dwell: 1s\n")

	h := NewPolicyHolder(policy.DefaultConfig(), path)
	var calls atomic.Int32
	h.OnReload(func(policy.Config) { calls.Add(1) })

	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, time.Second, h.Get().MinDwell)

	writePolicy(t, path, "min_fade: -1\n")
	assert.Error(t, h.Reload(context.Background()))
	assert.Equal(t, time.Second, h.Get().MinDwell)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPolicyHolder_WatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicy(t, path, "min_dwell: 1s\n")

	h := NewPolicyHolder(policy.DefaultConfig(), path)
	h.debounce = 10 * time.Millisecond
	got := make(chan policy.Config, 4)
	h.OnReload(func(c policy.Config) {
		select {
		case got <- c:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))

	writePolicy(t, path, "min_dwell: 3s\n")
	select {
	case c := <-got:
		assert.Equal(t, 3*time.Second, c.MinDwell)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload the policy table")
	}
	assert.Eventually(t, func() bool { return h.Get().MinDwell == 3*time.Second }, time.Second, 10*time.Millisecond)

	cancel()
	// give the loop a moment to close the watcher before goleak checks
	time.Sleep(50 * time.Millisecond)
}

func TestPolicyHolder_NoPath(t *testing.T) {
	h := NewPolicyHolder(policy.DefaultConfig(), "")
	require.NoError(t, h.StartWatcher(context.Background()))
	require.NoError(t, h.Reload(context.Background()))
}

// #endregion holder-tests
