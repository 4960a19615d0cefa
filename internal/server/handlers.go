package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohitagr18/game-sound-generator/internal/advisor"
	"github.com/mohitagr18/game-sound-generator/internal/intent"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

// #region health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.SessionIDs()),
		"advisor":  s.opts.Model != nil && s.opts.Coordinator != nil,
	})
}

// #endregion health

// #region sessions
type sessionInfo struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.newSession("")
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionInfo{SessionID: sess.ID(), CreatedAt: sess.Created()})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	out := []sessionInfo{}
	for _, id := range s.SessionIDs() {
		if sess, ok := s.lookup(id); ok {
			out = append(out, sessionInfo{SessionID: id, CreatedAt: sess.Created()})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.remove(chi.URLParam(r, "id")) {
		writeNotFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// withSession resolves {id} or answers 404.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w)
	}
	return sess, ok
}

// #endregion sessions

// #region events
func (s *Server) postEvent(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var ev intent.Event
	if err := decodeJSON(w, r, &ev, false); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := sess.Post(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.withSession(w, r); ok {
		s.postEvent(w, r, sess)
	}
}

func (s *Server) handlePostDefaultEvent(w http.ResponseWriter, r *http.Request) {
	sess, err := s.newSession(DefaultSessionID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.postEvent(w, r, sess)
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.withSession(w, r); ok {
		writeJSON(w, http.StatusOK, sess.Entries())
	}
}

func (s *Server) handleGetDefaultLog(w http.ResponseWriter, _ *http.Request) {
	entries := []session.Entry{}
	if sess, ok := s.lookup(DefaultSessionID); ok {
		entries = sess.Entries()
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleKPI(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.withSession(w, r); ok {
		writeJSON(w, http.StatusOK, sess.KPIReport())
	}
}

// #endregion events

// #region replay
type replayRequest struct {
	Events []intent.Event `json:"events"`
}

type replayResponse struct {
	Intents []intent.MusicalIntent `json:"intents"`
}

// handleReplay re-runs the posted events, or the session's own logged
// events when none are posted, through the session's current policy.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.withSession(w, r)
	if !ok {
		return
	}
	var req replayRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	events := req.Events
	if len(events) == 0 {
		for _, e := range sess.Entries() {
			events = append(events, e.Event)
		}
	}
	intents, err := sess.Replay(events)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, replayResponse{Intents: intents})
}

// #endregion replay

// #region advisor
type adviseRequest struct {
	NextTheme string `json:"next_theme"`
	Question  string `json:"question,omitempty"`
	Apply     bool   `json:"apply,omitempty"`
	Intensity *int   `json:"intensity,omitempty"`
}

type adviseResponse struct {
	Advice session.Advice `json:"advice"`
	Entry  *session.Entry `json:"entry,omitempty"`
}

// handleAdvise asks the model for the next intent. With apply set, a usable
// recommendation is appended to the session log.
func (s *Server) handleAdvise(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.withSession(w, r)
	if !ok {
		return
	}
	if s.opts.Model == nil || s.opts.Coordinator == nil {
		writeError(w, http.StatusServiceUnavailable, errNoModel)
		return
	}
	var req adviseRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	next, ok := intent.ResolveTheme(req.NextTheme)
	if !ok {
		writeError(w, http.StatusBadRequest, &intent.ValidationError{Field: "next_theme", Reason: fmt.Sprintf("unknown theme %q", req.NextTheme)})
		return
	}

	turns := sess.Turns()
	pc := sess.PolicyConfig()
	rec := s.opts.Coordinator.WithFadeBand(pc.MinFade, pc.MaxFade).Advise(r.Context(), s.opts.Model, advisor.Request{
		Turns:     turns,
		NextTheme: next,
		Question:  req.Question,
	})
	resp := adviseResponse{Advice: sess.AddAdvice(r.Context(), next, req.Question, rec)}

	if req.Apply && !rec.Empty() {
		intensity := 50
		if len(turns) > 0 {
			intensity = turns[len(turns)-1].Event.Intensity
		}
		if req.Intensity != nil {
			intensity = *req.Intensity
		}
		ev, err := intent.NewEvent(next, intensity)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, err := sess.Append(r.Context(), ev, rec.Intent, rec.Reasoning)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		resp.Entry = &entry
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdviceHistory(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.withSession(w, r); ok {
		out := sess.Advice()
		if out == nil {
			out = []session.Advice{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// #endregion advisor

// #region export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.withSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "session-"+sess.ID()+".json"))
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// #endregion export
