package embedder

import (
	"context"
	"log/slog"
)

// ZeroFallback wraps an Embedder so that provider failures degrade to an
// all-zero vector instead of an error. A zero vector is maximally
// dissimilar after normalization (it stays zero and scores 0 everywhere),
// so one failed embedding demotes its text rather than aborting the
// request.
type ZeroFallback struct {
	inner  Embedder
	logger *slog.Logger
}

// WithZeroFallback wraps e in the degrade-not-crash policy.
func WithZeroFallback(e Embedder) *ZeroFallback {
	return &ZeroFallback{inner: e, logger: slog.Default()}
}

// Embed returns the inner embedding, or a zero vector if the provider fails.
func (z *ZeroFallback) Embed(ctx context.Context, text string, task Task) ([]float32, error) {
	embedding, err := z.inner.Embed(ctx, text, task)
	if err != nil {
		z.logger.Warn("embedding failed, using zero vector", "error", err)
		return make([]float32, z.inner.Dimension()), nil
	}
	return embedding, nil
}

// EmbedBatch embeds each text independently so a single failure degrades
// only that entry.
func (z *ZeroFallback) EmbedBatch(ctx context.Context, texts []string, task Task) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := z.Embed(ctx, text, task)
		if err != nil {
			return nil, err
		}
		results[i] = embedding
	}
	return results, nil
}

// Dimension returns the dimensionality of the embedding vectors.
func (z *ZeroFallback) Dimension() int { return z.inner.Dimension() }

// ModelName returns the name of the embedding model being used.
func (z *ZeroFallback) ModelName() string { return z.inner.ModelName() }

// Ensure ZeroFallback implements Embedder interface.
var _ Embedder = (*ZeroFallback)(nil)
