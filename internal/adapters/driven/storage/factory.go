// Package storage provides the factory selecting an embedding store backend.
package storage

import (
	"github.com/custodia-labs/chunkvec/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chunkvec/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/chunkvec/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
)

// NewFactory returns the store factory for the configured backend.
// dimensions is the embedding size of the active model; zero disables
// the length check. Nothing is opened until the factory's Open is called.
func NewFactory(settings domain.StorageSettings, dimensions int) (driven.EmbeddingStoreFactory, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	switch settings.Backend {
	case domain.StoragePostgres:
		table := settings.Table
		if table == "" {
			table = postgres.DefaultTable
		}
		if err := postgres.ValidateTableName(table); err != nil {
			return nil, err
		}
		return &postgres.Factory{Config: postgres.Config{
			DatabaseURL: settings.DatabaseURL,
			Table:       table,
			Dimensions:  dimensions,
		}}, nil

	case domain.StorageSQLite:
		return &sqlite.Factory{DataDir: settings.DataDir, Dimensions: dimensions}, nil

	case domain.StorageMemory:
		return memory.NewEmbeddingStoreFactory(dimensions), nil

	default:
		return nil, domain.ConfigError("%w: storage backend %q", domain.ErrUnsupportedType, settings.Backend)
	}
}
