package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/metrics"
	healthuc "github.com/kailas-cloud/scout/internal/usecase/health"
	pipelineuc "github.com/kailas-cloud/scout/internal/usecase/pipeline"
)

// Server exposes the search pipeline over HTTP.
type Server struct {
	pipeline          *pipelineuc.Service
	health            *healthuc.Service
	logger            *zap.Logger
	defaultMaxResults int
}

// NewServer creates the HTTP API server.
func NewServer(pipeline *pipelineuc.Service, health *healthuc.Service, logger *zap.Logger, defaultMaxResults int) *Server {
	if defaultMaxResults < 1 {
		defaultMaxResults = 10
	}
	return &Server{pipeline: pipeline, health: health, logger: logger, defaultMaxResults: defaultMaxResults}
}

// Routes mounts the API onto a chi router.
func (s *Server) Routes(r chi.Router, apiKeys []string) {
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Post("/v1/search", s.handleSearch)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// searchRequest is the request body for /v1/search. The three call shapes
// (text-only, tag-only, hybrid) are just different populations of the same
// body; they all funnel into the same orchestrator.
type searchRequest struct {
	Text          string   `json:"text,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	MatchAllTags  bool     `json:"match_all_tags,omitempty"`
	MaxResults    int      `json:"max_results,omitempty"`
	MinSimilarity float64  `json:"minimum_similarity,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if req.MaxResults == 0 {
		req.MaxResults = s.defaultMaxResults
	}

	query := domain.Query{
		Text:          req.Text,
		Tags:          req.Tags,
		MatchAllTags:  req.MatchAllTags,
		MaxResults:    req.MaxResults,
		MinSimilarity: req.MinSimilarity,
		SessionID:     req.SessionID,
	}

	// The workflow lives exactly as long as the caller's connection.
	ctx := r.Context()
	events, err := s.pipeline.Search(ctx, query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", err.Error())
		return
	}

	for ev := range events {
		if writeErr := sse.WriteEvent(ev); writeErr != nil {
			// Client went away; ctx cancellation stops the workflow.
			s.logger.Debug("event stream write failed", zap.Error(writeErr))
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":       report.Status,
		"checks":       report.Checks,
		"record_count": report.RecordCount,
	})
}

// handleDomainError maps sentinel errors of immediate rejections onto HTTP
// status codes. Pipeline-internal failures never reach here: they surface as
// the terminal event of the stream.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		s.logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
