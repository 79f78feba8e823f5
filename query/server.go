// Package query implements the HTTP read surface: metrics, entities,
// facts, cross-year comparisons, evidence retrieval and the dashboard.
//
// The service is a strict reader. It never mutates canonical data and
// returns nothing that could vary per caller; all endpoints are public.
package query

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/IANewCool/estado-transparente-portal/blob"
	"github.com/IANewCool/estado-transparente-portal/log"
	"github.com/IANewCool/estado-transparente-portal/types"
)

// RequestTimeout is the default per-request deadline. Client disconnects
// cancel the request context, aborting in-flight database queries.
const RequestTimeout = 30 * time.Second

// DefaultLimit and MaxLimit bound list endpoints.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Store is the canonical-store capability the query service consumes.
type Store interface {
	ListMetrics(ctx context.Context) ([]types.Metric, error)
	MetricByID(ctx context.Context, id string) (*types.Metric, error)
	MetricByKey(ctx context.Context, naturalKey string) (*types.Metric, error)
	SearchEntities(ctx context.Context, query string, limit int) ([]types.Entity, error)
	QueryFacts(ctx context.Context, f types.FactFilter) ([]types.FactView, error)
	GetEvidence(ctx context.Context, factID string) (*types.Evidence, error)
	ArtifactByID(ctx context.Context, id string) (*types.Artifact, error)
	ListSnapshots(ctx context.Context, limit int) ([]types.SnapshotInfo, error)
	ListJobRuns(ctx context.Context, component string, limit int) ([]types.JobRun, error)
}

// Server serves the query API.
type Server struct {
	store          Store
	blobs          blob.Store
	logger         *log.Logger
	headlineMetric string
}

// NewServer creates a query server. headlineMetric names the metric the
// dashboard totals.
func NewServer(store Store, blobs blob.Store, logger *log.Logger, headlineMetric string) *Server {
	return &Server{
		store:          store,
		blobs:          blobs,
		logger:         logger,
		headlineMetric: headlineMetric,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/entities", s.handleEntities)
	r.Get("/facts", s.handleFacts)
	r.Get("/compare", s.handleCompare)
	r.Get("/evidence", s.handleEvidence)
	r.Get("/evidence/download", s.handleEvidenceDownload)
	r.Get("/dashboard", s.handleDashboard)
	r.Get("/snapshots", s.handleSnapshots)
	r.Get("/jobs", s.handleJobs)

	return r
}

// ListenAndServe runs the server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("query service listening", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
