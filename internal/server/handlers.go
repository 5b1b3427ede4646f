package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/recommender"
)

// Recommender is the service surface the HTTP handlers need.
type Recommender interface {
	Recommend(ctx context.Context, query string, topK int, opts recommender.Options) ([]catalog.Candidate, error)
	Ready() error
}

type apiHandler struct {
	recommender    Recommender
	logger         *slog.Logger
	maxQueryLength int
	defaultTopK    int
}

func (h *apiHandler) routes(r chi.Router) {
	r.Get("/", h.handleInfo)
	r.Get("/health", h.handleHealth)
	r.Post("/recommend", h.handleRecommend)
}

// recommendRequest is the caller-facing request body. The optional flags
// default to true; set them to false explicitly to skip a stage.
type recommendRequest struct {
	Query        string `json:"query"`
	TopK         *int   `json:"top_k"`
	UseReranking *bool  `json:"use_reranking"`
	BalanceTypes *bool  `json:"balance_types"`
}

type recommendResponse struct {
	Query           string               `json:"query"`
	Recommendations []recommendationItem `json:"recommendations"`
}

// recommendationItem preserves the pipeline's output order; callers must
// not re-sort.
type recommendationItem struct {
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	Type          string  `json:"type"`
	Similarity    float32 `json:"similarity"`
	Description   string  `json:"description,omitempty"`
	Duration      string  `json:"duration,omitempty"`
	Difficulty    string  `json:"difficulty,omitempty"`
	Skills        string  `json:"skills,omitempty"`
	Prerequisites string  `json:"prerequisites,omitempty"`
	UseCases      string  `json:"use_cases,omitempty"`
	Industry      string  `json:"industry,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *apiHandler) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "assessment-recommendation",
		"status":  "running",
	})
}

// handleHealth reports readiness. The first call triggers the lazy index
// load, so a broken data directory shows up here rather than on the
// first recommendation.
func (h *apiHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.recommender.Ready(); err != nil {
		h.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"detail": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *apiHandler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	// Cap the body before decoding so oversized payloads fail cheaply,
	// with headroom for JSON framing and escaped characters.
	if h.maxQueryLength > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxQueryLength)*2+4096)
	}

	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query must not be empty"})
		return
	}
	if h.maxQueryLength > 0 && len(query) > h.maxQueryLength {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query too long"})
		return
	}

	topK := h.defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < recommender.MinTopK {
		topK = recommender.MinTopK
	}
	if topK > recommender.MaxTopK {
		topK = recommender.MaxTopK
	}

	opts := recommender.Options{UseReranking: true, BalanceTypes: true}
	if req.UseReranking != nil {
		opts.UseReranking = *req.UseReranking
	}
	if req.BalanceTypes != nil {
		opts.BalanceTypes = *req.BalanceTypes
	}

	results, err := h.recommender.Recommend(r.Context(), query, topK, opts)
	if err != nil {
		h.logger.Error("recommendation failed",
			"error", err,
			"request_id", requestID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "recommendation failed"})
		return
	}

	items := make([]recommendationItem, 0, len(results))
	for _, c := range results {
		items = append(items, recommendationItem{
			Name:          c.Name,
			URL:           c.URL,
			Type:          c.TestType,
			Similarity:    c.Similarity,
			Description:   c.Description,
			Duration:      c.Duration,
			Difficulty:    c.Difficulty,
			Skills:        c.Skills,
			Prerequisites: c.Prerequisites,
			UseCases:      c.UseCases,
			Industry:      c.Industry,
		})
	}

	writeJSON(w, http.StatusOK, recommendResponse{
		Query:           query,
		Recommendations: items,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
