package session

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
)

// #region entry
// Source says which path produced an entry's intent.
type Source string

const (
	SourcePolicy  Source = "policy"
	SourceAdvisor Source = "advisor"
)

// Entry pairs one event with the intent it produced.
type Entry struct {
	Seq          int                  `json:"seq"`
	Event        intent.Event         `json:"event"`
	Intent       intent.MusicalIntent `json:"intent"`
	Source       Source               `json:"source"`
	NewSelection bool                 `json:"new_selection"`
	Reasoning    string               `json:"reasoning,omitempty"`
}

// #endregion entry

// #region log
// Log is an append-only ordered record of entries. It is not safe for
// concurrent use on its own; Session guards it.
type Log struct {
	entries []Entry
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an entry at the end and assigns its sequence number.
func (l *Log) Append(e Entry) Entry {
	e.Seq = len(l.entries) + 1
	e.Intent = e.Intent.Clone()
	l.entries = append(l.entries, e)
	return e
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the log in order.
func (l *Log) Entries() []Entry {
	out := slices.Clone(l.entries)
	for i := range out {
		out[i].Intent = out[i].Intent.Clone()
	}
	return out
}

// Events returns the logged events in order.
func (l *Log) Events() []intent.Event {
	out := make([]intent.Event, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Event
	}
	return out
}

// #endregion log

// #region kpi
// StemCount is one row of the stem usage table. On the wire it is the pair
// [stem, count].
type StemCount struct {
	Stem  string
	Count int
}

// MarshalJSON renders the row as [stem, count].
func (c StemCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Stem, c.Count})
}

// UnmarshalJSON reads a [stem, count] pair.
func (c *StemCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode stem count: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode stem count: want [stem, count], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.Stem); err != nil {
		return fmt.Errorf("decode stem name: %w", err)
	}
	if err := json.Unmarshal(pair[1], &c.Count); err != nil {
		return fmt.Errorf("decode stem count: %w", err)
	}
	return nil
}

// KPI aggregates a log.
type KPI struct {
	TotalEvents      int         `json:"total_events"`
	TotalTransitions int         `json:"total_transitions"`
	NewSelections    int         `json:"new_selections"`
	StemUsage        []StemCount `json:"most_active_stems"`
}

// KPIReport counts events, state transitions between adjacent entries and
// stem usage. Stems are ordered by count descending, ties by first appearance.
func (l *Log) KPIReport() KPI {
	kpi := KPI{TotalEvents: len(l.entries), StemUsage: []StemCount{}}
	index := map[string]int{}
	for i, e := range l.entries {
		if i > 0 && e.Event.State != l.entries[i-1].Event.State {
			kpi.TotalTransitions++
		}
		if e.NewSelection {
			kpi.NewSelections++
		}
		for _, s := range e.Intent.ActiveStems {
			at, ok := index[s]
			if !ok {
				at = len(kpi.StemUsage)
				index[s] = at
				kpi.StemUsage = append(kpi.StemUsage, StemCount{Stem: s})
			}
			kpi.StemUsage[at].Count++
		}
	}
	slices.SortStableFunc(kpi.StemUsage, func(a, b StemCount) int {
		return b.Count - a.Count
	})
	return kpi
}

// #endregion kpi
