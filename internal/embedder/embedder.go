// Package embedder provides interfaces and implementations for text embedding.
package embedder

import "context"

// Task tells the provider which side of retrieval the text belongs to.
// Query and document embeddings are optimized differently by the model.
type Task string

const (
	// TaskQuery marks text that will be searched with.
	TaskQuery Task = "RETRIEVAL_QUERY"

	// TaskDocument marks text that will be stored and searched against.
	TaskDocument Task = "RETRIEVAL_DOCUMENT"
)

// PlaceholderText replaces empty input before embedding. Providers reject
// empty content, and a stable placeholder keeps blank queries deterministic.
const PlaceholderText = "assessment"

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	Embed(ctx context.Context, text string, task Task) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple text inputs.
	// Returns a slice of embeddings in the same order as the input texts.
	EmbedBatch(ctx context.Context, texts []string, task Task) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
