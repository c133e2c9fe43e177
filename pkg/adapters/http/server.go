// Package http exposes the engine over a REST control plane, a WebSocket
// report feed and a Prometheus endpoint.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/codec"
	"github.com/aretw0/tessera/pkg/dispatch"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/observability"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/scope"
)

// maxBody bounds script and event documents.
const maxBody = 1 << 20

// Engine defines the engine surface the server drives.
type Engine interface {
	Register(ctx context.Context, s *domain.Script) error
	Unregister(ctx context.Context, id string) error
	Script(id string) (*domain.Script, bool)
	Scripts() []*domain.Script
	Dispatch(ctx context.Context, ev domain.Event) *domain.Report
	Registry() *registry.Registry
	Env() *scope.Env
	Stats() dispatch.Stats
}

// Server serves the control plane.
type Server struct {
	Engine   Engine
	Feed     *observability.Feed
	Gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithFeed enables GET /reports and GET /ws.
func WithFeed(feed *observability.Feed) Option {
	return func(s *Server) { s.Feed = feed }
}

// WithGatherer enables GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.Gatherer = g }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/kinds", s.GetKinds)
	r.Route("/scripts", func(r chi.Router) {
		r.Get("/", s.ListScripts)
		r.Get("/{id}", s.GetScript)
		r.Put("/{id}", s.PutScript)
		r.Delete("/{id}", s.DeleteScript)
	})
	r.Post("/events", s.PostEvent)
	r.Get("/variables", s.GetVariables)
	if s.Feed != nil {
		r.Get("/reports", s.GetReports)
		r.Get("/ws", s.ServeWS)
	}
	if s.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error    string    `json:"error"`
	Problems []problem `json:"problems,omitempty"`
}

type problem struct {
	Path  string `json:"path"`
	Type  string `json:"type,omitempty"`
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Error: err.Error()}
	for _, p := range registry.Problems(err) {
		body.Problems = append(body.Problems, problem{Path: p.Path, Type: p.Type, Error: p.Err.Error()})
	}
	s.writeJSON(w, status, body)
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "tessera-http",
		"version": tessera.Version,
		"stats":   s.Engine.Stats(),
	})
}

// GetKinds handles the GET /kinds request: every registered block type.
func (s *Server) GetKinds(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Registry().Handlers())
}

// ListScripts handles the GET /scripts request.
func (s *Server) ListScripts(w http.ResponseWriter, r *http.Request) {
	scripts := s.Engine.Scripts()
	if scripts == nil {
		scripts = []*domain.Script{}
	}
	s.writeJSON(w, http.StatusOK, scripts)
}

// GetScript handles the GET /scripts/{id} request.
func (s *Server) GetScript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	script, ok := s.Engine.Script(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, id))
		return
	}
	s.writeJSON(w, http.StatusOK, script)
}

// PutScript handles the PUT /scripts/{id} request. The body is JSON, or
// YAML when the content type says so.
func (s *Server) PutScript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	format := codec.JSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = codec.YAML
	}
	script, err := codec.DecodeScript(data, format)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if script.ID == "" {
		script.ID = id
	}
	if script.ID != id {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("script id %q does not match path %q", script.ID, id))
		return
	}

	if err := s.Engine.Register(r.Context(), script); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidScript) {
			status = http.StatusUnprocessableEntity
		}
		s.writeError(w, status, err)
		return
	}
	s.logger.Info("script registered", "script", id)
	registered, _ := s.Engine.Script(id)
	s.writeJSON(w, http.StatusOK, registered)
}

// DeleteScript handles the DELETE /scripts/{id} request.
func (s *Server) DeleteScript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Engine.Unregister(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrScriptNotFound) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostEvent handles the POST /events request. Script failures are part of
// the report, so the response is 200 whenever the event itself decoded.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := codec.DecodeEvent(data, codec.JSON)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if ev.Category == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("event category is required"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.Engine.Dispatch(r.Context(), ev))
}

// GetVariables handles the GET /variables request.
func (s *Server) GetVariables(w http.ResponseWriter, r *http.Request) {
	env := s.Engine.Env()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"global": scope.Snapshot(env.Global),
		"system": env.System.Values(),
	})
}

// GetReports handles the GET /reports?n= request.
func (s *Server) GetReports(w http.ResponseWriter, r *http.Request) {
	n := 0
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("n: %w", err))
			return
		}
		n = v
	}
	reports := s.Feed.Recent(n)
	if reports == nil {
		reports = []*domain.Report{}
	}
	s.writeJSON(w, http.StatusOK, reports)
}
