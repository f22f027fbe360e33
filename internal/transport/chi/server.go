// Package chi exposes the matching service over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/domain"
	batchuc "github.com/kailas-cloud/boqmatch/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/boqmatch/internal/usecase/health"
	hybriduc "github.com/kailas-cloud/boqmatch/internal/usecase/hybrid"
	jobuc "github.com/kailas-cloud/boqmatch/internal/usecase/job"
)

// Error codes returned in JSON error responses.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeJobNotFound      = "job_not_found"
	codeBatchNotFound    = "batch_not_found"
	codeQueueFull        = "queue_full"
	codeProviderError    = "embedding_provider_error"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// CatalogSource supplies the catalog for the synchronous compare endpoint.
type CatalogSource interface {
	Load(ctx context.Context) (domain.Catalog, error)
}

// Server holds the use case services behind the HTTP API.
type Server struct {
	jobs          *jobuc.Service
	batches       *batchuc.Service
	hybrid        *hybriduc.Service
	catalog       CatalogSource
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	jobs *jobuc.Service,
	batches *batchuc.Service,
	hybrid *hybriduc.Service,
	catalog CatalogSource,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		jobs:    jobs,
		batches: batches,
		hybrid:  hybrid,
		catalog: catalog,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, codeJobNotFound),
		sentinelHandler(domain.ErrBatchNotFound, http.StatusNotFound, codeBatchNotFound),
		sentinelHandler(domain.ErrQueueFull, http.StatusTooManyRequests, codeQueueFull),
		sentinelHandler(domain.ErrMissingCredentials, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmptyCatalog, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", s.SubmitJob)
		r.Get("/jobs/{jobID}", s.GetJob)

		r.Post("/compare", s.CompareModels)

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", s.StartBatch)
			r.Get("/{batchID}", s.GetBatch)
			r.Get("/{batchID}/export", s.ExportBatch)
			r.Get("/{batchID}/progress", s.BatchProgress)
			r.Post("/{batchID}/pause", s.PauseBatch)
			r.Post("/{batchID}/resume", s.ResumeBatch)
		})
	})
}

type submitJobRequest struct {
	FileName string   `json:"file_name"`
	Items    []string `json:"items"`
	Model    string   `json:"model"`
}

// SubmitJob handles POST /api/v1/jobs.
func (s *Server) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "model is required")
		return
	}

	id, err := s.jobs.Submit(r.Context(), domain.FileInput{Name: req.FileName, Items: req.Items}, req.Model)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

// GetJob handles GET /api/v1/jobs/{jobID}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

type compareRequest struct {
	Items []string `json:"items"`
}

type compareResponse struct {
	ResultsA  []domain.MatchResult `json:"results_a"`
	ResultsB  []domain.MatchResult `json:"results_b"`
	Agreement float64              `json:"agreement"`
}

// CompareModels handles POST /api/v1/compare: both providers ranked
// side by side with the agreement percentage.
func (s *Server) CompareModels(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	cat, err := s.catalog.Load(r.Context())
	if err != nil {
		s.logger.Error("load catalog", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}

	cmp, err := s.hybrid.Compare(r.Context(), req.Items, cat)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, compareResponse{
		ResultsA:  cmp.ResultsA,
		ResultsB:  cmp.ResultsB,
		Agreement: cmp.Agreement,
	})
}

type startBatchRequest struct {
	Files       []domain.FileInput `json:"files"`
	Model       string             `json:"model"`
	ClientName  string             `json:"client_name"`
	ProjectName string             `json:"project_name"`
}

// StartBatch handles POST /api/v1/batches.
func (s *Server) StartBatch(w http.ResponseWriter, r *http.Request) {
	var req startBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "model is required")
		return
	}

	id, err := s.batches.StartBatch(r.Context(), batchuc.Request{
		Files:       req.Files,
		Model:       req.Model,
		ClientName:  req.ClientName,
		ProjectName: req.ProjectName,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"batch_id": id})
}

// GetBatch handles GET /api/v1/batches/{batchID}.
func (s *Server) GetBatch(w http.ResponseWriter, r *http.Request) {
	b, err := s.batches.GetBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ExportBatch handles GET /api/v1/batches/{batchID}/export?format=csv|parquet.
func (s *Server) ExportBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batchID")
	b, err := s.batches.GetBatch(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	rows := batchuc.SummaryRows(b)
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".csv"))
		if err := batchuc.WriteCSV(w, rows); err != nil {
			s.logger.Error("export csv", zap.String("batch_id", id), zap.Error(err))
		}
	case "parquet":
		w.Header().Set("Content-Type", "application/vnd.apache.parquet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".parquet"))
		if err := batchuc.WriteParquet(w, rows); err != nil {
			s.logger.Error("export parquet", zap.String("batch_id", id), zap.Error(err))
		}
	default:
		writeError(w, http.StatusBadRequest, codeValidationFailed, "format must be csv or parquet")
	}
}

// BatchProgress handles GET /api/v1/batches/{batchID}/progress as an SSE
// stream. The stream ends when the client disconnects or the batch
// reaches a terminal progress of 100.
func (s *Server) BatchProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batchID")
	if _, err := s.batches.GetBatch(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternalError, "streaming unsupported")
		return
	}

	updates, unsubscribe := s.batches.SubscribeToProgress(id)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case update := <-updates:
			data, err := json.Marshal(update)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			if update.Percent >= 100 {
				return
			}
		}
	}
}

// PauseBatch handles POST /api/v1/batches/{batchID}/pause.
func (s *Server) PauseBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.batches.Pause(r.Context(), chi.URLParam(r, "batchID")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResumeBatch handles POST /api/v1/batches/{batchID}/resume.
func (s *Server) ResumeBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.batches.Resume(r.Context(), chi.URLParam(r, "batchID")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		return provErr.Error()
	}

	sentinels := []error{
		domain.ErrJobNotFound,
		domain.ErrBatchNotFound,
		domain.ErrQueueFull,
		domain.ErrMissingCredentials,
		domain.ErrEmptyCatalog,
		domain.ErrEmptyQuerySet,
		domain.ErrValidation,
		domain.ErrEmbeddingProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
