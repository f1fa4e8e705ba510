package driven

import "github.com/custodia-labs/chunkvec/internal/core/domain"

// Segmenter partitions document text into ordered, fixed-size segments.
// Implementations must be pure and deterministic.
type Segmenter interface {
	// Name returns the segmenter name for logging.
	Name() string

	// Segment splits text into segments of at most chunkSize characters.
	// Empty text yields an empty sequence.
	Segment(text string, chunkSize int) []domain.Segment
}
