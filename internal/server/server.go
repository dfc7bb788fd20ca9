// Package server exposes running sessions over HTTP: status, round
// history, scene websockets and metrics.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zoobzio/aviator"
	"github.com/zoobzio/aviator/internal/logging"
	"github.com/zoobzio/aviator/pkg/websocket"
)

// History reads a session's round journal.
type History interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]aviator.Commit, error)
	Flags(ctx context.Context, sessionID string, limit int) ([]aviator.FlagChange, error)
}

type entry struct {
	session *aviator.Session
	hub     *websocket.Hub
}

// Server handles HTTP requests.
type Server struct {
	logger    *slog.Logger
	history   History
	metrics   http.Handler
	startTime time.Time

	mu       sync.RWMutex
	sessions map[string]entry
	order    []string
}

// New creates a server with no sessions.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		logger:    logger,
		startTime: time.Now(),
		sessions:  make(map[string]entry),
	}
}

// WithHistory enables the history endpoint.
func (s *Server) WithHistory(h History) *Server {
	s.history = h
	return s
}

// WithMetrics mounts h on /metrics.
func (s *Server) WithMetrics(h http.Handler) *Server {
	s.metrics = h
	return s
}

// Add registers a session and the hub its scene clients connect to. The
// first session added also serves the bare /ws route. hub may be nil.
func (s *Server) Add(session *aviator.Session, hub *websocket.Hub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := session.SessionID()
	if _, ok := s.sessions[id]; !ok {
		s.order = append(s.order, id)
	}
	s.sessions[id] = entry{session: session, hub: hub}
}

func (s *Server) lookup(id string) (entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

func (s *Server) all() []entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id])
	}
	return out
}

// Routes sets up the HTTP routes with middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Get("/{id}", s.handleGetSession)
		r.Get("/{id}/history", s.handleHistory)
	})

	r.Get("/ws", s.handleDefaultScene)
	r.Get("/ws/{id}", s.handleScene)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// SessionView is the JSON form of a session's display surface.
type SessionView struct {
	aviator.Snapshot
	Display      string `json:"display"`
	ValueText    string `json:"value_text"`
	LastError    string `json:"last_error,omitempty"`
	Clients      int    `json:"clients"`
	ReadyClients int    `json:"ready_clients"`

	RecentFailures []aviator.PollFailure `json:"recent_failures,omitempty"`
}

func view(e entry) SessionView {
	snap := e.session.Snapshot()
	v := SessionView{
		Snapshot:       snap,
		Display:        snap.Display(),
		ValueText:      aviator.FormatValue(snap.Value),
		RecentFailures: e.session.ErrorHistory(),
	}
	if err := e.session.LastError(); err != nil {
		v.LastError = err.Error()
	}
	if e.hub != nil {
		v.Clients, v.ReadyClients = e.hub.Clients()
	}
	return v
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status   string            `json:"status"`
	Uptime   string            `json:"uptime"`
	Sessions map[string]string `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		Sessions: make(map[string]string),
	}
	for _, e := range s.all() {
		h := e.session.Health()
		resp.Sessions[e.session.SessionID()] = h.String()
		if h == aviator.HealthDegraded || h == aviator.HealthEmpty {
			resp.Status = "degraded"
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	entries := s.all()
	views := make([]SessionView, 0, len(entries))
	for _, e := range entries {
		views = append(views, view(e))
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].SessionID < views[j].SessionID })
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, view(e))
}

// HistoryResponse is returned by /api/sessions/{id}/history.
type HistoryResponse struct {
	Commits []aviator.Commit     `json:"commits"`
	Flags   []aviator.FlagChange `json:"flags"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.lookup(id); !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "history is not enabled")
		return
	}

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	commits, err := s.history.Recent(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("history query failed", "session", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	flags, err := s.history.Flags(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("history query failed", "session", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if commits == nil {
		commits = []aviator.Commit{}
	}
	if flags == nil {
		flags = []aviator.FlagChange{}
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Commits: commits, Flags: flags})
}

func (s *Server) handleDefaultScene(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	var id string
	if len(s.order) > 0 {
		id = s.order[0]
	}
	s.mu.RUnlock()
	s.serveScene(w, r, id)
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	s.serveScene(w, r, chi.URLParam(r, "id"))
}

func (s *Server) serveScene(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := s.lookup(id)
	if !ok || e.hub == nil {
		s.writeError(w, http.StatusNotFound, "no scene endpoint for session")
		return
	}
	e.hub.ServeHTTP(w, r)
}

// writeJSON writes a JSON response with proper headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
