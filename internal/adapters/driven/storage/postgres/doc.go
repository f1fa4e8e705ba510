// Package postgres provides a PostgreSQL embedding store backed by the
// pgvector extension.
//
// Vectors are bound as pgvector values, never spliced into SQL text.
// Inserts use ON CONFLICT (chunk_index) DO NOTHING so a rerun over the
// same document leaves existing rows untouched.
package postgres
