// Package server is the HTTP layer over analysis runs: status reads, ordered
// event polling, an SSE stream and XLSX export. It does no authentication.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/async"
	"github.com/joseph-ayodele/contract-analyzer/internal/common"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/events"
	"github.com/joseph-ayodele/contract-analyzer/internal/metrics"
	"github.com/joseph-ayodele/contract-analyzer/internal/storage"
)

type RunStore interface {
	Create(ctx context.Context, run *entity.AnalysisRun) error
	Get(ctx context.Context, id uuid.UUID) (*entity.AnalysisRun, error)
	RunStatus(ctx context.Context, id uuid.UUID) (constants.RunStatus, error)
	MarkFailed(ctx context.Context, id uuid.UUID, f entity.Failure) error
}

type DocumentStore interface {
	Create(ctx context.Context, doc *entity.Document) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
}

type DeadlineLister interface {
	ListUpcoming(ctx context.Context, from, to time.Time, limit int) ([]entity.Deadline, error)
}

type Exporter interface {
	ExportRunXLSX(ctx context.Context, runID uuid.UUID) ([]byte, error)
}

// Deps are the collaborators behind the routes. Export, Deadlines and Storage
// may be nil; their routes then answer 503 and document locations are not checked.
type Deps struct {
	Runs      RunStore
	Documents DocumentStore
	Events    events.Reader
	Queue     async.Queue
	Storage   storage.Resolver
	Export    Exporter
	Deadlines DeadlineLister

	PollInterval      time.Duration
	MaxStreamDuration time.Duration
}

type Server struct {
	Logger *slog.Logger
	Deps

	metrics  *metrics.Middleware
	registry *prometheus.Registry
}

func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mw := metrics.NewMiddleware()
	reg := prometheus.NewRegistry()
	reg.MustRegister(mw.Collectors()...)
	return &Server{Logger: logger, Deps: deps, metrics: mw, registry: reg}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.metrics.Handler)

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, s.registry}
	r.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", s.handleCreateDocument)
		r.Post("/analyses", s.handleCreateAnalysis)
		r.Get("/analyses/{id}", s.handleGetAnalysis)
		r.Get("/analyses/{id}/events", s.handleEvents)
		r.Get("/analyses/{id}/stream", s.handleStream)
		r.Get("/analyses/{id}/export.xlsx", s.handleExport)
		r.Get("/deadlines/upcoming", s.handleUpcomingDeadlines)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := common.WithRequestID(r.Context(), reqID)
		ctx = common.WithLogger(ctx, s.Logger.With("request_id", reqID))

		next.ServeHTTP(ww, r.WithContext(ctx))

		s.Logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", reqID,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

type errorReply struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status common.HTTPStatus picks for err. Internal
// errors are logged and hidden from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		common.LoggerFromContext(r.Context(), s.Logger).Error("http.request.failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorReply{Error: msg})
}

func runIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, common.InvalidArgumentError("analysis id must be a UUID")
	}
	return id, nil
}
