// Package reranker re-orders retrieval candidates with an LLM relevance pass.
//
// The reranker sees the query and candidates together, which catches
// mismatches that embedding similarity misses (a "software engineer" query
// retrieving sales assessments with high cosine scores, for instance).
//
// # Trade-offs
//
//   - Latency: adds one LLM call per query, bounded by a configurable timeout
//   - Quality: markedly better ordering when the top vector scores are close
//   - Cost: one extra model invocation per query
//
// Reranking is never fatal: every failure mode (timeout, provider error,
// unparsable output) degrades to similarity-descending order.
package reranker

import (
	"context"

	"github.com/talentlens/recommend/internal/catalog"
)

// Reranker re-orders candidates by relevance to the query, returning at
// most topK of them. Implementations absorb their own failures and fall
// back to similarity order, so there is no error to return.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []catalog.Candidate, topK int) []catalog.Candidate
}

// BySimilarity returns a copy of candidates sorted by similarity descending
// and truncated to topK. It is the universal fallback ordering.
func BySimilarity(candidates []catalog.Candidate, topK int) []catalog.Candidate {
	return similaritySorted(candidates, topK)
}
