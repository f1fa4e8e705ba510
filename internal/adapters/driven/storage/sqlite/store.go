package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/chunkvec/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
)

const (
	backendName = "sqlite"
	dbFileName  = "embeddings.db"
)

// Ensure Store and Factory implement the interfaces.
var (
	_ driven.EmbeddingStore        = (*Store)(nil)
	_ driven.EmbeddingStoreFactory = (*Factory)(nil)
)

// Store is a SQLite-backed embedding store holding one database connection.
type Store struct {
	db         *sql.DB
	path       string
	dimensions int

	closeOnce sync.Once
	closeErr  error
}

// NewStore opens (creating if needed) the embeddings database in dataDir.
// If dataDir is empty, defaults to ~/.chunkvec/data. When dimensions is
// positive, vectors of any other length are rejected.
func NewStore(dataDir string, dimensions int) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".chunkvec", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:         db,
		path:       dbPath,
		dimensions: dimensions,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection. Subsequent calls return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Store inserts the vector for index unless a row already exists.
func (s *Store) Store(ctx context.Context, index int, vector []float32) (domain.StoreOutcome, error) {
	record := domain.EmbeddingRecord{ChunkIndex: index, Vector: vector}
	if err := record.Validate(); err != nil {
		return 0, s.fail("insert", err)
	}
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return 0, s.fail("insert", fmt.Errorf("%w: expected %d, got %d",
			domain.ErrDimensionMismatch, s.dimensions, len(vector)))
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_index, embedding, dimensions)
		VALUES (?, ?, ?)
		ON CONFLICT(chunk_index) DO NOTHING
	`, index, encodeVector(vector), len(vector))
	if err != nil {
		return 0, s.fail("insert", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail("insert", err)
	}
	if affected == 0 {
		return domain.OutcomeAlreadyPresent, nil
	}
	return domain.OutcomeStored, nil
}

// Get retrieves the record stored for index.
func (s *Store) Get(ctx context.Context, index int) (*domain.EmbeddingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT chunk_index, embedding FROM embeddings WHERE chunk_index = ?", index)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, s.fail("get", err)
	}
	return record, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, s.fail("count", err)
	}
	return n, nil
}

// List returns every record in ascending index order.
func (s *Store) List(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT chunk_index, embedding FROM embeddings ORDER BY chunk_index")
	if err != nil {
		return nil, s.fail("list", err)
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, s.fail("list", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list", err)
	}
	return records, nil
}

func (s *Store) fail(op string, err error) error {
	return &domain.StorageError{Backend: backendName, Op: op, Err: err}
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.EmbeddingRecord, error) {
	var record domain.EmbeddingRecord
	var blob []byte
	if err := row.Scan(&record.ChunkIndex, &blob); err != nil {
		return nil, err
	}
	vector, err := decodeVector(blob)
	if err != nil {
		return nil, err
	}
	record.Vector = vector
	return &record, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_embeddings.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// applyMigration executes one migration and records its version atomically.
func (s *Store) applyMigration(version int, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(content); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Factory opens SQLite stores for pipeline runs.
type Factory struct {
	// DataDir is the directory holding the database file.
	DataDir string

	// Dimensions rejects vectors of any other length when positive.
	Dimensions int
}

// Open opens the store.
func (f *Factory) Open(_ context.Context) (driven.EmbeddingStore, error) {
	store, err := NewStore(f.DataDir, f.Dimensions)
	if err != nil {
		return nil, &domain.StorageError{Backend: backendName, Op: "connect", Err: err}
	}
	return store, nil
}

// Backend returns the backend name.
func (f *Factory) Backend() string {
	return backendName
}
