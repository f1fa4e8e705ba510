package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driving"
)

// Ensure InspectorService implements the interface.
var _ driving.StoreInspector = (*InspectorService)(nil)

// InspectorService reads back the contents of an embedding store.
// Each call opens and closes its own connection.
type InspectorService struct {
	stores driven.EmbeddingStoreFactory
}

// NewInspectorService creates a new inspector service.
func NewInspectorService(stores driven.EmbeddingStoreFactory) *InspectorService {
	return &InspectorService{stores: stores}
}

// Status returns the record count and vector dimensionality.
// Dimensions is zero for an empty store.
func (s *InspectorService) Status(ctx context.Context) (*driving.StoreStatus, error) {
	if s.stores == nil {
		return nil, domain.ConfigError("embedding store not configured")
	}

	store, err := s.stores.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}

	status := &driving.StoreStatus{
		Backend: s.stores.Backend(),
		Records: count,
	}
	if count == 0 {
		return status, nil
	}

	// Index 0 is present after any successful first segment.
	record, err := store.Get(ctx, 0)
	switch {
	case err == nil:
		status.Dimensions = record.Dimensions()
	case errors.Is(err, domain.ErrNotFound):
		records, err := store.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			status.Dimensions = records[0].Dimensions()
		}
	default:
		return nil, err
	}

	return status, nil
}

// Export returns every stored record in index order.
func (s *InspectorService) Export(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	if s.stores == nil {
		return nil, domain.ConfigError("embedding store not configured")
	}

	store, err := s.stores.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	records, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.EmbeddingRecord{}
	}
	return records, nil
}
