package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "mixer-test"})

	l := WithComponent("policy")
	l.Info().Str("event", "policy.decide").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "policy", entry["component"])
	assert.Equal(t, "mixer-test", entry["service"])
	assert.Equal(t, "policy.decide", entry["event"])

	// later calls do not reconfigure
	Configure(Config{Service: "other"})
	assert.Equal(t, "mixer-test", func() string {
		buf.Reset()
		l := Base()
		l.Info().Msg("x")
		var e map[string]any
		_ = json.Unmarshal(buf.Bytes(), &e)
		s, _ := e["service"].(string)
		return s
	}())
}
