package recommender

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talentlens/recommend/internal/cache"
	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/embedder"
	"github.com/talentlens/recommend/internal/reranker"
	"github.com/talentlens/recommend/internal/vectorindex"
)

// TopK bounds for a single recommendation request.
const (
	MinTopK = 1
	MaxTopK = 20
)

// Options control the optional pipeline stages for one request.
type Options struct {
	// UseReranking sends the candidate set through the LLM reranker.
	UseReranking bool

	// BalanceTypes applies test-type balancing to the final list.
	BalanceTypes bool
}

// Service runs the recommendation pipeline. The index is loaded lazily
// on first use; after that all shared state is read-only and the service
// is safe for concurrent requests.
type Service struct {
	store    *vectorindex.LazyStore
	embedder embedder.Embedder
	reranker reranker.Reranker
	balancer *Balancer
	cache    *cache.Store
	logger   *slog.Logger
}

// ServiceOption is a functional option for configuring Service.
type ServiceOption func(*Service)

// WithReranker sets the reranker used when requests ask for reranking.
func WithReranker(r reranker.Reranker) ServiceOption {
	return func(s *Service) {
		s.reranker = r
	}
}

// WithBalancer overrides the default type balancer.
func WithBalancer(b *Balancer) ServiceOption {
	return func(s *Service) {
		s.balancer = b
	}
}

// WithCache enables result caching for repeated identical requests.
func WithCache(c *cache.Store) ServiceOption {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a recommendation service.
func NewService(store *vectorindex.LazyStore, emb embedder.Embedder, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		embedder: emb,
		balancer: NewBalancer(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ready reports whether the index can be loaded. Used by health checks.
func (s *Service) Ready() error {
	_, err := s.store.Get()
	return err
}

// Recommend returns up to topK assessments for the query, ordered by
// relevance. The caller is expected to clamp topK to [MinTopK, MaxTopK];
// the pipeline trusts its input. Only a missing index is fatal: embedding
// and LLM failures degrade to weaker orderings inside the pipeline.
func (s *Service) Recommend(ctx context.Context, query string, topK int, opts Options) ([]catalog.Candidate, error) {
	start := time.Now()

	var cacheKey string
	if s.cache != nil {
		cacheKey = cache.Key(query, topK, opts.UseReranking, opts.BalanceTypes)
		if results, ok := s.cache.Get(cacheKey); ok {
			s.logger.Debug("serving cached recommendation", "top_k", topK)
			return results, nil
		}
	}

	store, err := s.store.Get()
	if err != nil {
		return nil, fmt.Errorf("index not loaded: %w", err)
	}

	queryVector, err := s.embedder.Embed(ctx, query, embedder.TaskQuery)
	if err != nil {
		s.logger.Warn("embedding failed, using zero vector", "error", err)
		queryVector = make([]float32, store.Dimension)
	}
	vectorindex.Normalize(queryVector)

	overfetch := OverfetchPlain
	switch {
	case opts.UseReranking && s.reranker != nil:
		overfetch = OverfetchRerank
	case opts.BalanceTypes:
		overfetch = OverfetchBalance
	}

	collector := NewCollector(store)
	pool, err := collector.Collect(ctx, queryVector, topK, overfetch)
	if err != nil {
		return nil, err
	}

	var results []catalog.Candidate
	if opts.UseReranking && s.reranker != nil {
		results = s.reranker.Rerank(ctx, query, pool, topK)
	} else {
		results = reranker.BySimilarity(pool, topK)
	}

	if opts.BalanceTypes {
		results = s.balancer.Balance(results, pool, query, topK)
	}

	if len(results) > topK {
		results = results[:topK]
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, results)
	}

	s.logger.Info("recommendation complete",
		"query_length", len(query),
		"top_k", topK,
		"candidates", len(pool),
		"results", len(results),
		"reranking", opts.UseReranking,
		"balancing", opts.BalanceTypes,
		"duration_ms", time.Since(start).Milliseconds())

	return results, nil
}
