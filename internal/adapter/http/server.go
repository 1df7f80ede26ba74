package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/eews-analyzer/internal/domain"
	"github.com/couchcryptid/eews-analyzer/internal/pipeline"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// RunReporter exposes the outcome of the most recent pipeline run.
type RunReporter interface {
	LastRun() (pipeline.RunInfo, bool)
}

// RunArchive lists stored runs.
type RunArchive interface {
	ListRuns(ctx context.Context, limit int) ([]domain.ArchivedRun, error)
}

// RunStatus configures the run status endpoints. A nil Runs disables
// /api/v1/runs/latest; a nil Archive disables /api/v1/runs.
type RunStatus struct {
	Runs    RunReporter
	Archive RunArchive
}

// Server exposes health, readiness, metrics, and run status HTTP endpoints.
type Server struct {
	httpServer *http.Server
	status     RunStatus
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// run status routes enabled by status.
func NewServer(addr string, ready sharedobs.ReadinessChecker, status RunStatus, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		status: status,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	if status.Runs != nil {
		mux.HandleFunc("GET /api/v1/runs/latest", s.handleLatestRun)
	}
	if status.Archive != nil {
		mux.HandleFunc("GET /api/v1/runs", s.handleListRuns)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleLatestRun(w http.ResponseWriter, _ *http.Request) {
	info, ok := s.status.Runs.LastRun()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no completed run"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, info)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.status.Archive.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("archive unavailable"))
		return
	}
	if runs == nil {
		runs = []domain.ArchivedRun{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
