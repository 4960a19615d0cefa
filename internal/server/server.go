// Package server exposes sessions over HTTP: one policy and one log per
// session, plus the advisor, metrics and health endpoints.
package server

import (
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mohitagr18/game-sound-generator/internal/advisor"
	"github.com/mohitagr18/game-sound-generator/internal/intent"
	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
	"github.com/mohitagr18/game-sound-generator/internal/metrics"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

// DefaultSessionID backs the single-session /events and /log routes.
const DefaultSessionID = "default"

var (
	errSessionLimit = errors.New("session limit reached")
	errNoModel      = errors.New("no model backend configured")
)

// #region options
// Options wires the server's collaborators. Zero values are usable: the
// stock policy, no persistence, no model.
type Options struct {
	Policy      func() policy.Config // current table for new sessions
	Recorder    session.Recorder
	Coordinator *advisor.Coordinator
	Model       advisor.Model
	Location    *time.Location
	RateLimit   int // requests per minute per client IP; 0 disables
	MaxSessions int
}

// #endregion options

// #region server
// Server holds the session registry and the HTTP router.
type Server struct {
	opts   Options
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*session.Session
	order    []string

	router chi.Router
}

// New builds a server and its routes.
func New(opts Options) *Server {
	if opts.Policy == nil {
		opts.Policy = policy.DefaultConfig
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 256
	}
	s := &Server{
		opts:     opts,
		logger:   mixlog.WithComponent("server"),
		sessions: make(map[string]*session.Session),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(rateLimit(s.opts.RateLimit, time.Minute))
		}
		r.Post("/events", s.handlePostDefaultEvent)
		r.Get("/log", s.handleGetDefaultLog)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteSession)
				r.Post("/events", s.handlePostEvent)
				r.Get("/log", s.handleGetLog)
				r.Get("/kpi", s.handleKPI)
				r.Post("/replay", s.handleReplay)
				r.Post("/advisor", s.handleAdvise)
				r.Get("/advisor", s.handleAdviceHistory)
				r.Get("/export", s.handleExport)
			})
		})
	})
	return r
}

// #endregion server

// #region registry
func (s *Server) newSession(id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if existing, ok := s.sessions[id]; ok {
			return existing, nil
		}
	}
	if len(s.sessions) >= s.opts.MaxSessions {
		return nil, errSessionLimit
	}
	opts := []session.Option{session.WithClock(intent.ReferenceClock(s.opts.Location))}
	if id != "" {
		opts = append(opts, session.WithID(id))
	}
	if s.opts.Recorder != nil {
		opts = append(opts, session.WithRecorder(s.opts.Recorder))
	}
	sess := session.New(s.opts.Policy(), opts...)
	s.sessions[sess.ID()] = sess
	s.order = append(s.order, sess.ID())
	metrics.SessionOpened()
	s.logger.Info().Str("event", "session.open").Str("session_id", sess.ID()).Msg("session created")
	return sess, nil
}

func (s *Server) lookup(id string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	metrics.SessionClosed()
	return true
}

// SessionIDs returns live session ids in creation order.
func (s *Server) SessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// ApplyPolicy pushes a new table into every live session. Dwell state is kept.
func (s *Server) ApplyPolicy(cfg policy.Config) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		sess.SetPolicyConfig(cfg)
	}
	s.logger.Info().Str("event", "policy.apply").Int("sessions", len(s.sessions)).Msg("policy table applied")
}

// Close releases every session.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for range s.sessions {
		metrics.SessionClosed()
	}
	s.sessions = make(map[string]*session.Session)
	s.order = nil
}

// #endregion registry
