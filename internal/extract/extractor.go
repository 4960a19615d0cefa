package extract

import (
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
	"github.com/mohitagr18/game-sound-generator/internal/metrics"
)

// #region extractor
// Extractor turns free-form model output into a validated MusicalIntent.
// It is safe for concurrent use.
type Extractor struct {
	config Config
	schema *jsonschema.Schema
	logger zerolog.Logger
}

// New compiles the intent schema and returns an extractor.
func New(config Config) (*Extractor, error) {
	sch, err := compileSchema()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		config: config,
		schema: sch,
		logger: mixlog.WithComponent("extract"),
	}, nil
}

// WithConfig returns a copy of e using config. The compiled schema is shared.
func (e *Extractor) WithConfig(config Config) *Extractor {
	cp := *e
	cp.config = config
	return &cp
}

// Config returns the fade band in use.
func (e *Extractor) Config() Config { return e.config }

var defaultExtractor = sync.OnceValue(func() *Extractor {
	e, err := New(DefaultConfig())
	if err != nil {
		panic(err) // the schema is a constant
	}
	return e
})

// Extract runs the default extractor over raw.
func Extract(raw string) Result {
	return defaultExtractor().Extract(raw)
}

// #endregion extractor

// #region extract
// Extract scans raw for the first balanced {...} span that parses as JSON,
// checks it for completeness and separates the trailing text as reasoning.
// It never fails: without a parseable object the result is empty and the
// reasoning is raw, unchanged.
func (e *Extractor) Extract(raw string) Result {
	for from := 0; ; {
		sp, ok := nextCandidate(raw, from)
		if !ok {
			break
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw[sp.start:sp.end]), &obj); err != nil {
			from = sp.start + 1
			continue
		}

		res, explanation := e.interpret(obj)
		res.Reasoning = pickReasoning(raw, sp, explanation)
		e.record(res)
		return res
	}

	res := Result{Status: StatusNoJSON, Reasoning: raw}
	e.record(res)
	return res
}

func (e *Extractor) record(res Result) {
	metrics.RecordExtraction(string(res.Status))
	e.logger.Debug().
		Str("event", "extract.result").
		Str("status", string(res.Status)).
		Strs("problems", res.Problems).
		Int("reasoning_len", len(res.Reasoning)).
		Msg("extraction finished")
}

// #endregion extract

// #region interpret
// interpret normalizes the parsed object and applies the completeness rules.
func (e *Extractor) interpret(obj map[string]any) (Result, string) {
	doc, explanation := normalize(obj)
	res := Result{Partial: obj}

	if t, ok := doc["theme"].(string); ok {
		if st, ok := intent.ResolveTheme(t); ok {
			doc["theme"] = string(st)
		}
	}

	stems, stemsOK := stringList(doc["active_stems"])
	if stemsOK {
		for _, k := range []string{"target_gains", "fade_durations"} {
			if m, ok := doc[k].(map[string]any); ok {
				doc[k] = onlyKeys(m, stems)
			}
		}
	}

	if err := e.schema.Validate(doc); err != nil {
		res.Problems = append(res.Problems, strings.TrimSpace(err.Error()))
	}
	gains, _ := doc["target_gains"].(map[string]any)
	fades, _ := doc["fade_durations"].(map[string]any)
	if stemsOK {
		for _, s := range stems {
			if _, ok := gains[s]; !ok {
				res.Problems = append(res.Problems, "stem "+s+" has no gain")
			}
			if _, ok := fades[s]; !ok {
				res.Problems = append(res.Problems, "stem "+s+" has no fade")
			}
		}
	}

	if len(res.Problems) > 0 {
		res.Status = StatusIncomplete
		return res, explanation
	}

	mi := intent.MusicalIntent{
		Theme:         intent.State(doc["theme"].(string)),
		ActiveStems:   stems,
		TargetGains:   make(map[string]float64, len(stems)),
		FadeDurations: make(map[string]float64, len(stems)),
	}
	for _, s := range stems {
		mi.TargetGains[s] = gains[s].(float64)
		mi.FadeDurations[s] = e.clampFade(fades[s].(float64))
	}
	if ts, ok := doc["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			mi.Timestamp = parsed
		}
	}

	res.Intent = mi
	res.Status = StatusOK
	return res, explanation
}

func (e *Extractor) clampFade(v float64) float64 {
	if e.config.MaxFade <= 0 {
		return v
	}
	return math.Max(e.config.MinFade, math.Min(v, e.config.MaxFade))
}

// #endregion interpret

// #region normalize
// normalize maps key spellings onto canonical names and unwraps an object
// nested under next_intent. The returned explanation is any top-level
// explanation string the model put inside the JSON.
func normalize(obj map[string]any) (map[string]any, string) {
	top := canonicalKeys(obj)
	var explanation string
	if s, ok := top["explanation"].(string); ok {
		explanation = s
	}
	if inner, ok := top["next_intent"].(map[string]any); ok {
		return canonicalKeys(inner), explanation
	}
	return top, explanation
}

func canonicalKeys(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[canonicalKey(k)] = v
	}
	return out
}

var keySquash = strings.NewReplacer("_", "", "-", "", " ", "")

func canonicalKey(k string) string {
	switch keySquash.Replace(strings.ToLower(k)) {
	case "theme":
		return "theme"
	case "activestems", "stems":
		return "active_stems"
	case "targetgains", "gains":
		return "target_gains"
	case "fadedurations", "fades":
		return "fade_durations"
	case "timestamp":
		return "timestamp"
	case "nextintent", "intent", "musicalintent":
		return "next_intent"
	case "explanation", "reasoning":
		return "explanation"
	}
	return k
}

func stringList(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func onlyKeys(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

// #endregion normalize

// #region reasoning
// pickReasoning prefers the cleaned text after the object, then an
// explanation embedded in the JSON, then the cleaned text before it.
func pickReasoning(raw string, sp span, explanation string) string {
	if r := CleanReasoning(raw[sp.end:]); r != "" {
		return r
	}
	if r := strings.TrimSpace(explanation); r != "" {
		return r
	}
	return CleanReasoning(raw[:sp.start])
}

// #endregion reasoning
