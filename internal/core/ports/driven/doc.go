// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentSource: Reads the source document (file path or URL)
//   - Segmenter: Splits document text into fixed-size segments
//   - EmbeddingService: Turns one segment into a vector
//   - EmbeddingStoreFactory: Opens one store connection per run
//   - EmbeddingStore: Idempotent (chunk index, vector) persistence
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
