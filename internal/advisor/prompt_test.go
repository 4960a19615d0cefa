package advisor

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
)

func turn(state intent.State, stems ...string) Turn {
	gains := map[string]float64{}
	fades := map[string]float64{}
	for _, s := range stems {
		gains[s] = 0.5
		fades[s] = 1.5
	}
	return Turn{
		Event: intent.MustEvent(state, 50),
		Intent: intent.MusicalIntent{
			Theme: state, ActiveStems: stems, TargetGains: gains, FadeDurations: fades,
			Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestBuildPrompt_Context(t *testing.T) {
	p := BuildPrompt(Request{
		Turns:     []Turn{turn(intent.StateExplore, "pad", "bass")},
		NextTheme: intent.StateCombat,
		Question:  "  why drums?  ",
	})

	assert.Contains(t, p, "Current theme: explore")
	assert.Contains(t, p, "Current stems: pad, bass")
	assert.Contains(t, p, "Next theme: combat")
	assert.Contains(t, p, `"active_stems"`)
	assert.Contains(t, p, "Always put the JSON object first, then the explanation.")
	assert.True(t, strings.HasSuffix(p, "User question: why drums?"))
}

func TestBuildPrompt_EmptyLog(t *testing.T) {
	p := BuildPrompt(Request{NextTheme: intent.StateStealth})
	assert.Contains(t, p, "(empty)")
	assert.Contains(t, p, "Current theme: [unknown]")
	assert.NotContains(t, p, "User question")
}

func TestBuildPrompt_HistoryLimit(t *testing.T) {
	var turns []Turn
	for i := 0; i < 5; i++ {
		turns = append(turns, turn(intent.StateExplore, fmt.Sprintf("s%d", i)))
	}
	p := BuildPrompt(Request{Turns: turns, NextTheme: intent.StateCombat, History: 2})

	assert.NotContains(t, p, `"s2"`)
	assert.Contains(t, p, `"s3"`)
	assert.Contains(t, p, `"s4"`)
}
