package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Each Embed call sends exactly one upstream request. Implementations do not
// batch, retry or persist; every failure is returned as *domain.ServiceError.
//
// Implementations include:
//   - OpenAI (text-embedding-ada-002, text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given non-empty text.
	// On success the vector length equals Dimensions().
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
