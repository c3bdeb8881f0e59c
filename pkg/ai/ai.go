// Package ai defines the embedding collaborator consumed by the storage
// layer. Implementations live in subpackages; the pipeline only sees this
// interface.
package ai

import "context"

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	// GenerateEmbedding creates a vector embedding for a single input.
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)

	// GenerateEmbeddings creates embeddings for multiple inputs in a single
	// request, preserving input order. Blank inputs yield zero vectors.
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)
}

// ModelMetrics accumulates token usage and wall time across requests.
type ModelMetrics struct {
	InputTokens int
	TotalTokens int
	DurationMs  int64
	Requests    int
}
