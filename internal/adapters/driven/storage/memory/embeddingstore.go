package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
)

const backendName = "memory"

// Ensure EmbeddingStore and EmbeddingStoreFactory implement the interfaces.
var (
	_ driven.EmbeddingStore        = (*EmbeddingStore)(nil)
	_ driven.EmbeddingStoreFactory = (*EmbeddingStoreFactory)(nil)
)

// recordSet holds vectors keyed by chunk index. It outlives the stores
// opened against it so repeated runs observe earlier inserts.
type recordSet struct {
	mu      sync.RWMutex
	vectors map[int][]float32
}

func newRecordSet() *recordSet {
	return &recordSet{vectors: make(map[int][]float32)}
}

// EmbeddingStore is an in-memory implementation of driven.EmbeddingStore.
type EmbeddingStore struct {
	records    *recordSet
	dimensions int

	mu     sync.Mutex
	closed bool
}

// NewEmbeddingStore creates an empty in-memory embedding store.
// When dimensions is positive, vectors of any other length are rejected.
func NewEmbeddingStore(dimensions int) *EmbeddingStore {
	return &EmbeddingStore{
		records:    newRecordSet(),
		dimensions: dimensions,
	}
}

// Store inserts the vector for index unless one is already present.
func (s *EmbeddingStore) Store(_ context.Context, index int, vector []float32) (domain.StoreOutcome, error) {
	if err := s.checkOpen("insert"); err != nil {
		return 0, err
	}

	record := domain.EmbeddingRecord{ChunkIndex: index, Vector: vector}
	if err := record.Validate(); err != nil {
		return 0, fail("insert", err)
	}
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return 0, fail("insert", fmt.Errorf("%w: expected %d, got %d",
			domain.ErrDimensionMismatch, s.dimensions, len(vector)))
	}

	s.records.mu.Lock()
	defer s.records.mu.Unlock()
	if _, exists := s.records.vectors[index]; exists {
		return domain.OutcomeAlreadyPresent, nil
	}
	s.records.vectors[index] = append([]float32(nil), vector...)
	return domain.OutcomeStored, nil
}

// Get retrieves the record stored for index.
func (s *EmbeddingStore) Get(_ context.Context, index int) (*domain.EmbeddingRecord, error) {
	if err := s.checkOpen("get"); err != nil {
		return nil, err
	}

	s.records.mu.RLock()
	defer s.records.mu.RUnlock()
	vector, ok := s.records.vectors[index]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.EmbeddingRecord{
		ChunkIndex: index,
		Vector:     append([]float32(nil), vector...),
	}, nil
}

// Count returns the number of stored records.
func (s *EmbeddingStore) Count(_ context.Context) (int, error) {
	if err := s.checkOpen("count"); err != nil {
		return 0, err
	}

	s.records.mu.RLock()
	defer s.records.mu.RUnlock()
	return len(s.records.vectors), nil
}

// List returns every record in ascending index order.
func (s *EmbeddingStore) List(_ context.Context) ([]domain.EmbeddingRecord, error) {
	if err := s.checkOpen("list"); err != nil {
		return nil, err
	}

	s.records.mu.RLock()
	defer s.records.mu.RUnlock()
	records := make([]domain.EmbeddingRecord, 0, len(s.records.vectors))
	for idx, vector := range s.records.vectors {
		records = append(records, domain.EmbeddingRecord{
			ChunkIndex: idx,
			Vector:     append([]float32(nil), vector...),
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ChunkIndex < records[j].ChunkIndex
	})
	return records, nil
}

// Close marks the store closed. Stored records remain visible to other
// stores opened from the same factory.
func (s *EmbeddingStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *EmbeddingStore) checkOpen(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fail(op, domain.ErrStoreClosed)
	}
	return nil
}

func fail(op string, err error) error {
	return &domain.StorageError{Backend: backendName, Op: op, Err: err}
}

// EmbeddingStoreFactory opens stores that share one process-local record set.
type EmbeddingStoreFactory struct {
	records    *recordSet
	dimensions int

	mu     sync.Mutex
	opened int
}

// NewEmbeddingStoreFactory creates a factory over an empty record set.
func NewEmbeddingStoreFactory(dimensions int) *EmbeddingStoreFactory {
	return &EmbeddingStoreFactory{
		records:    newRecordSet(),
		dimensions: dimensions,
	}
}

// Open returns a new store handle over the shared records.
func (f *EmbeddingStoreFactory) Open(_ context.Context) (driven.EmbeddingStore, error) {
	f.mu.Lock()
	f.opened++
	f.mu.Unlock()

	return &EmbeddingStore{
		records:    f.records,
		dimensions: f.dimensions,
	}, nil
}

// Opened returns how many stores have been opened.
func (f *EmbeddingStoreFactory) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

// Backend returns the backend name.
func (f *EmbeddingStoreFactory) Backend() string {
	return backendName
}
