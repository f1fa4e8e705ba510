package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/template"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/chunkvec/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
)

const (
	backendName = "postgres"

	// DefaultTable is the table embeddings are written to.
	DefaultTable = "markdown_embeddings"

	migrationsTable = "chunkvec_schema_migrations"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Ensure Store and Factory implement the interfaces.
var (
	_ driven.EmbeddingStore        = (*Store)(nil)
	_ driven.EmbeddingStoreFactory = (*Factory)(nil)
)

// ValidateTableName reports whether name is a plain SQL identifier that
// can be interpolated into statements without quoting.
func ValidateTableName(name string) error {
	if !identifierPattern.MatchString(name) {
		return domain.ConfigError("invalid table name %q: must match %s", name, identifierPattern)
	}
	return nil
}

// Config holds the connection settings for a Postgres store.
type Config struct {
	// DatabaseURL is a libpq-style connection string or postgres:// URL.
	DatabaseURL string

	// Table is the embeddings table (default: markdown_embeddings).
	Table string

	// Dimensions sizes the vector column. Zero leaves it unconstrained.
	Dimensions int
}

// Store is a Postgres-backed embedding store holding one connection pool.
type Store struct {
	db         *sql.DB
	table      string
	dimensions int

	closeOnce sync.Once
	closeErr  error
}

// NewStore connects to Postgres, applies pending migrations and returns
// a ready store.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, domain.ConfigError("postgres store requires a database URL")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if err := ValidateTableName(cfg.Table); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, &domain.StorageError{Backend: backendName, Op: "connect", Err: err}
	}
	// The pipeline writes from a single goroutine.
	db.SetMaxOpenConns(2)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &domain.StorageError{Backend: backendName, Op: "connect", Err: err}
	}

	s := &Store{
		db:         db,
		table:      cfg.Table,
		dimensions: cfg.Dimensions,
	}

	if err := s.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, &domain.StorageError{Backend: backendName, Op: "migrate", Err: err}
	}

	return s, nil
}

// Table returns the embeddings table name.
func (s *Store) Table() string {
	return s.table
}

// Close closes the connection pool. Subsequent calls return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
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

	query := fmt.Sprintf(
		"INSERT INTO %s (chunk_index, embedding) VALUES ($1, $2) ON CONFLICT (chunk_index) DO NOTHING",
		s.table)
	res, err := s.db.ExecContext(ctx, query, index, pgvector.NewVector(vector))
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
	query := fmt.Sprintf("SELECT chunk_index, embedding FROM %s WHERE chunk_index = $1", s.table)

	var record domain.EmbeddingRecord
	var vec pgvector.Vector
	err := s.db.QueryRowContext(ctx, query, index).Scan(&record.ChunkIndex, &vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, s.fail("get", err)
	}
	record.Vector = vec.Slice()
	return &record, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, s.fail("count", err)
	}
	return n, nil
}

// List returns every record in ascending index order.
func (s *Store) List(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	query := fmt.Sprintf("SELECT chunk_index, embedding FROM %s ORDER BY chunk_index", s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, s.fail("list", err)
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord
	for rows.Next() {
		var record domain.EmbeddingRecord
		var vec pgvector.Vector
		if err := rows.Scan(&record.ChunkIndex, &vec); err != nil {
			return nil, s.fail("list", err)
		}
		record.Vector = vec.Slice()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list", err)
	}
	return records, nil
}

func (s *Store) fail(op string, err error) error {
	return &domain.StorageError{Backend: backendName, Op: op, Err: err}
}

// migrationData parameterises the migration templates.
type migrationData struct {
	Table      string
	Dimensions int
}

// migration is one rendered up migration.
type migration struct {
	version int
	name    string
	sql     string
}

// renderMigrations renders every up migration in fsys for the given table,
// ordered by version.
func renderMigrations(fsys fs.FS, data migrationData) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var result []migration
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql.tmpl") {
			continue
		}

		// Extract version number (e.g., "001_embeddings.up.sql.tmpl" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", name, err)
		}

		tmpl, err := template.New(name).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parsing migration %s: %w", name, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("rendering migration %s: %w", name, err)
		}

		result = append(result, migration{version: version, name: name, sql: buf.String()})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].version < result[j].version })
	return result, nil
}

// migrate applies pending migrations for this store's table. Versions are
// tracked per table so several tables can share one database.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
			table_name TEXT NOT NULL,
			version INTEGER NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (table_name, version)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating %s table: %w", migrationsTable, err)
	}

	var currentVersion int
	row := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM "+migrationsTable+" WHERE table_name = $1", s.table)
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	pending, err := renderMigrations(fsys, migrationData{Table: s.table, Dimensions: s.dimensions})
	if err != nil {
		return err
	}

	for _, m := range pending {
		if m.version <= currentVersion {
			continue // Already applied
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("executing migration %s: %w", m.name, err)
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+migrationsTable+" (table_name, version) VALUES ($1, $2)", s.table, m.version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Factory opens Postgres stores for pipeline runs.
type Factory struct {
	Config Config
}

// Open connects and migrates.
func (f *Factory) Open(ctx context.Context) (driven.EmbeddingStore, error) {
	return NewStore(ctx, f.Config)
}

// Backend returns the backend name.
func (f *Factory) Backend() string {
	return backendName
}
