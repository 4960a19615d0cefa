package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
)

// DefaultHistory is how many recent turns BuildPrompt includes when
// Request.History is zero.
const DefaultHistory = 8

// #region request
// Turn is one logged event and the intent it produced.
type Turn struct {
	Event  intent.Event         `json:"event"`
	Intent intent.MusicalIntent `json:"intent"`
}

// Request carries the context for one advisor prompt.
type Request struct {
	Turns     []Turn       // session log, oldest first
	NextTheme intent.State // the theme to transition into
	Question  string       // optional user question
	History   int          // max turns to include; 0 means DefaultHistory
}

// #endregion request

// #region prompt
const responseFormat = `Respond in two parts:
1. A valid JSON object describing the next musical intent for this session, using this schema:
    "theme": string, one of explore, stealth, combat, bosscombat
    "active_stems": [string]
    "target_gains": {stem: number between 0 and 1}
    "fade_durations": {stem: seconds, greater than 0}
    "timestamp": string (RFC 3339)
2. A detailed explanation of your reasoning for the choice, in plain text (not markdown).
Always put the JSON object first, then the explanation.`

// BuildPrompt renders the session context and the two-part answer format.
func BuildPrompt(req Request) string {
	limit := req.History
	if limit <= 0 {
		limit = DefaultHistory
	}
	turns := req.Turns
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	var b strings.Builder
	b.WriteString("Session log (oldest first):\n")
	if len(turns) == 0 {
		b.WriteString("  (empty)\n")
	}
	for _, t := range turns {
		line, err := json.Marshal(t)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "  %s\n", line)
	}

	current := "[unknown]"
	var stems []string
	if len(turns) > 0 {
		last := turns[len(turns)-1]
		current = string(last.Event.State)
		stems = last.Intent.ActiveStems
	}
	fmt.Fprintf(&b, "Current theme: %s\n", current)
	if len(stems) > 0 {
		fmt.Fprintf(&b, "Current stems: %s\n", strings.Join(stems, ", "))
	}
	fmt.Fprintf(&b, "Next theme: %s\n\n", req.NextTheme)
	b.WriteString(responseFormat)
	fmt.Fprintf(&b, "\n\nTransition the mix from the current theme to the next theme (%q). ", req.NextTheme)
	b.WriteString("Generate stem settings for the next theme only.\nWhat is the next musical intent?")
	if q := strings.TrimSpace(req.Question); q != "" {
		fmt.Fprintf(&b, "\nUser question: %s", q)
	}
	return b.String()
}

// #endregion prompt
