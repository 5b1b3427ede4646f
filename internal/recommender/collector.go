// Package recommender orchestrates the recommendation pipeline: embed the
// query, collect candidates from the vector index, optionally rerank with
// an LLM, optionally balance test types, and truncate to the requested
// size. Every provider failure inside the pipeline degrades to a weaker
// ordering rather than failing the request.
package recommender

import (
	"context"
	"fmt"

	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/vectorindex"
)

// Over-fetch factors: the collector pulls more hits than requested so that
// deduplication and downstream filtering still leave topK results.
const (
	OverfetchRerank  = 5
	OverfetchBalance = 3
	OverfetchPlain   = 1
)

// Collector turns a query vector into a deduplicated, similarity-ordered
// candidate list backed by the loaded catalog.
type Collector struct {
	store *vectorindex.Store
}

// NewCollector creates a collector over a loaded store.
func NewCollector(store *vectorindex.Store) *Collector {
	return &Collector{store: store}
}

// Collect searches the index for topK*overfetchFactor hits and maps them
// to catalog candidates. Hits whose offset falls outside the metadata
// list are skipped. Duplicate URLs keep the first (highest-similarity)
// occurrence; candidates without a URL are never treated as duplicates
// of each other.
func (c *Collector) Collect(ctx context.Context, queryVector []float32, topK, overfetchFactor int) ([]catalog.Candidate, error) {
	if overfetchFactor < 1 {
		overfetchFactor = 1
	}

	hits, err := c.store.Index.Search(ctx, queryVector, topK*overfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	candidates := make([]catalog.Candidate, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))

	for _, hit := range hits {
		if hit.Offset < 0 || hit.Offset >= len(c.store.Records) {
			continue
		}
		record := c.store.Records[hit.Offset]

		if record.URL != "" {
			if _, dup := seen[record.URL]; dup {
				continue
			}
			seen[record.URL] = struct{}{}
		}

		candidates = append(candidates, catalog.Candidate{
			Record:     record,
			Similarity: hit.Score,
		})
	}

	return candidates, nil
}
