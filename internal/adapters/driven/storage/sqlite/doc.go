// Package sqlite provides a local SQLite implementation of the embedding store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Vectors are stored as little-endian
// IEEE 754 float32 BLOBs, one row per chunk index.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.chunkvec/data/embeddings.db
//
// # Idempotency
//
// Inserts use ON CONFLICT(chunk_index) DO NOTHING. A write for an index that
// already exists leaves the original row untouched and reports
// domain.OutcomeAlreadyPresent.
package sqlite
