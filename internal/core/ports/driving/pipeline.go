package driving

import (
	"context"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
)

// IndexPipeline runs the chunk-embed-store pipeline over one document.
type IndexPipeline interface {
	// Run processes the document described by req.
	// The returned report is non-nil whenever processing started, including
	// when the run aborted; err carries the first fatal error.
	Run(ctx context.Context, req RunRequest) (*domain.PipelineReport, error)
}

// ProgressFunc is called after each segment reaches a terminal state.
type ProgressFunc func(processed, total int)

// RunRequest describes one pipeline run.
type RunRequest struct {
	// Source is the document path or URL.
	Source string

	// Settings controls chunk size, failure policy and scheduling.
	Settings domain.PipelineSettings

	// Progress is optional.
	Progress ProgressFunc
}

// StoreInspector reads back what a store holds.
type StoreInspector interface {
	// Status returns the number of stored records and their dimensionality.
	Status(ctx context.Context) (*StoreStatus, error)

	// Export returns every stored record in index order.
	Export(ctx context.Context) ([]domain.EmbeddingRecord, error)
}

// StoreStatus summarises the contents of a store.
type StoreStatus struct {
	Backend    string `json:"backend"`
	Records    int    `json:"records"`
	Dimensions int    `json:"dimensions"`
}
