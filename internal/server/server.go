package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ogulcanaydogan/usagebot/pkg/scheduler"
)

// ScheduleSource reports the state of the running schedules.
type ScheduleSource interface {
	Entries() []scheduler.Entry
}

// Server provides health check, metrics and schedule status endpoints.
type Server struct {
	schedules ScheduleSource
	gatherer  prometheus.Gatherer
	router    *mux.Router
	logger    *slog.Logger
}

// NewServer creates a status server. A nil gatherer disables /metrics.
func NewServer(schedules ScheduleSource, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{
		schedules: schedules,
		gatherer:  gatherer,
		router:    mux.NewRouter(),
		logger:    logger.With("component", "server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/schedules", s.handleSchedules).Methods(http.MethodGet)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

// Handler returns the HTTP handler for this server, with panic recovery.
func (s *Server) Handler() http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)),
	)(s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSchedules(w http.ResponseWriter, _ *http.Request) {
	entries := s.schedules.Entries()
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
