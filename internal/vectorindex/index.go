// Package vectorindex provides nearest-neighbor search over the catalog's
// embedding vectors, with a local flat index as the default backend and
// Qdrant as an optional remote one.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Hit is a single search result: the offset of a vector in insertion order
// and its cosine similarity to the query. Offsets address the parallel
// metadata store; an offset may be out of range there if the two files
// diverged, and callers must skip such hits rather than fail.
type Hit struct {
	Offset int
	Score  float32
}

// Searcher finds the k nearest stored vectors to a query vector,
// highest similarity first.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
}

// FlatIndex is an exact inner-product index over L2-normalized vectors.
// With normalized vectors inner product equals cosine similarity.
// It is immutable after loading and safe for concurrent searches.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Dimension returns the vector dimension of the index.
func (ix *FlatIndex) Dimension() int { return ix.dim }

// Len returns the number of stored vectors.
func (ix *FlatIndex) Len() int { return len(ix.vectors) }

// Add appends vectors to the index. Vectors are normalized in place so
// that search scores are cosine similarities.
func (ix *FlatIndex) Add(vectors ...[]float32) error {
	for _, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v), ix.dim)
		}
		Normalize(v)
		ix.vectors = append(ix.vectors, v)
	}
	return nil
}

// Search returns up to k hits ordered by similarity descending. Ties break
// by offset ascending so results are deterministic.
func (ix *FlatIndex) Search(_ context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != ix.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), ix.dim)
	}
	if k <= 0 || len(ix.vectors) == 0 {
		return nil, nil
	}

	hits := make([]Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = Hit{Offset: i, Score: dot(vector, v)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Offset < hits[j].Offset
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Normalize scales v to unit L2 norm in place. The zero vector is left
// unchanged, so a degraded (all-zero) embedding scores 0 against everything.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Ensure FlatIndex implements Searcher.
var _ Searcher = (*FlatIndex)(nil)
