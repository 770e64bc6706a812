package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/storewatch/internal/domain"
	apimw "github.com/hamed0406/storewatch/internal/httpapi/middleware"
	"github.com/hamed0406/storewatch/internal/metrics"
)

// Monitor is the part of monitor.Monitor the HTTP surface needs.
type Monitor interface {
	Status(ctx context.Context) (domain.AppStatus, error)
	RunCheckCycle(ctx context.Context) (domain.AppStatus, error)
}

type Options struct {
	AdminKeys  []string
	CheckRPM   int
	CheckBurst int
}

type Server struct {
	Logger  *zap.Logger
	Monitor Monitor
	opts    Options
}

func NewServer(l *zap.Logger, m Monitor, opts Options) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Monitor: m, opts: opts}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/", s.handleIndex)
	r.Get("/status", s.handleStatus)
	r.With(
		apimw.RequireAdmin(s.opts.AdminKeys),
		apimw.RateLimit(s.opts.CheckRPM, s.opts.CheckBurst),
	).Get("/check", s.handleCheck)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

var endpoints = []string{"GET /status", "GET /check", "GET /healthz", "GET /metrics"}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"message":   "storewatch is monitoring Google Play and App Store listings",
		"endpoints": endpoints,
	})
}

// handleStatus returns the last persisted status without probing.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Monitor.Status(r.Context())
	if err != nil {
		s.Logger.Error("status_read_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read status"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCheck runs a full cycle before responding.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	s.Logger.Info("manual_check_requested", zap.String("remote", r.RemoteAddr))

	st, err := s.Monitor.RunCheckCycle(r.Context())
	if err != nil {
		s.Logger.Error("manual_check_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "check failed"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
