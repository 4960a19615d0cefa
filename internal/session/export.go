package session

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio/v2"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
)

// #region document
// Document is the on-disk form of a session log. Flags serialize as lists.
type Document struct {
	SessionID  string    `json:"session_id"`
	ExportedAt time.Time `json:"exported_at"`
	Entries    []Entry   `json:"entries"`
	KPI        KPI       `json:"kpi"`
	Advice     []Advice  `json:"advice,omitempty"`
}

// Events returns the document's events in log order.
func (d Document) Events() []intent.Event {
	out := make([]intent.Event, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Event
	}
	return out
}

// Snapshot captures the session as a Document.
func (s *Session) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Document{
		SessionID:  s.id,
		ExportedAt: s.clock(),
		Entries:    s.log.Entries(),
		KPI:        s.log.KPIReport(),
		Advice:     append([]Advice(nil), s.advice...),
	}
}

// #endregion document

// #region write
// WriteDocument writes doc to path atomically.
func WriteDocument(path string, doc Document) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending export: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace export: %w", err)
	}
	return nil
}

// Export writes the session log to path atomically.
func (s *Session) Export(path string) error {
	return WriteDocument(path, s.Snapshot())
}

// #endregion write

// #region read
// ReadDocument loads an exported session. Events are re-validated.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read export: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse export: %w", err)
	}
	for i, e := range doc.Entries {
		if err := e.Event.Validate(); err != nil {
			return Document{}, fmt.Errorf("export entry %d: %w", i+1, err)
		}
	}
	return doc, nil
}

// #endregion read
