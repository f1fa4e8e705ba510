// Package domain defines the core business entities for chunkvec.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: The source text read at pipeline start
//   - Segment: A fixed-size slice of a Document, the unit of embedding
//   - EmbeddingRecord: A persisted (chunk index, vector) pair
//   - PipelineReport: The aggregated outcome of one run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
