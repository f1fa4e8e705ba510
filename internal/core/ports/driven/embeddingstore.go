package driven

import (
	"context"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
)

// EmbeddingStore persists (chunk index, vector) records.
// A store value is one open connection, owned by a single run.
type EmbeddingStore interface {
	// Store inserts the record for index, ignoring the write if the index
	// already exists. A duplicate is reported as domain.OutcomeAlreadyPresent,
	// never as an error. Failures are *domain.StorageError.
	Store(ctx context.Context, index int, vector []float32) (domain.StoreOutcome, error)

	// Get returns the stored record for index, or domain.ErrNotFound.
	Get(ctx context.Context, index int) (*domain.EmbeddingRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// List returns every stored record in ascending index order.
	List(ctx context.Context) ([]domain.EmbeddingRecord, error)

	// Close releases the connection. Calling Close more than once is an error-free no-op.
	Close() error
}

// EmbeddingStoreFactory opens store connections.
// The orchestrator opens exactly one connection per run.
type EmbeddingStoreFactory interface {
	// Open acquires a connection and ensures the schema exists.
	Open(ctx context.Context) (EmbeddingStore, error)

	// Backend returns the backend name for logging.
	Backend() string
}
