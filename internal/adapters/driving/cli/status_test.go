package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driving"
)

func TestStatusCmd(t *testing.T) {
	f := setupCLI(t)
	f.inspector.status = &driving.StoreStatus{Backend: "sqlite", Records: 3, Dimensions: 1536}

	out, err := executeCommand(t, "status", "--store", "sqlite")

	require.NoError(t, err)
	assert.Contains(t, out, "Backend:    sqlite")
	assert.Contains(t, out, "Records:    3")
	assert.Contains(t, out, "Dimensions: 1536")
	assert.Equal(t, domain.StorageSQLite, f.built.Storage.Backend)
}

func TestStatusCmd_Empty(t *testing.T) {
	f := setupCLI(t)
	f.inspector.status = &driving.StoreStatus{Backend: "memory"}

	out, err := executeCommand(t, "status", "--store", "memory")

	require.NoError(t, err)
	assert.Contains(t, out, "Records:    0")
	assert.NotContains(t, out, "Dimensions")
}

func TestStatusCmd_JSON(t *testing.T) {
	f := setupCLI(t)
	f.inspector.status = &driving.StoreStatus{Backend: "postgres", Records: 2, Dimensions: 3}
	require.NoError(t, f.config.Set("storage.database_url", "postgres://localhost/test"))

	out, err := executeCommand(t, "status", "--json", "--table", "docs_embeddings")
	require.NoError(t, err)

	var status driving.StoreStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 2, status.Records)
	assert.Equal(t, "docs_embeddings", f.built.Storage.Table)
}

func TestStatusCmd_StorageError(t *testing.T) {
	f := setupCLI(t)
	f.inspector.err = &domain.StorageError{Backend: "postgres", Op: "connect", Err: errors.New("refused")}
	require.NoError(t, f.config.Set("storage.database_url", "postgres://localhost/test"))

	_, err := executeCommand(t, "status")

	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, 1, ExitCode(err))
}

func TestStatusCmd_PostgresWithoutURL(t *testing.T) {
	f := setupCLI(t)

	_, err := executeCommand(t, "status")

	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Zero(t, f.builds)
}

func TestExportCmd_File(t *testing.T) {
	f := setupCLI(t)
	f.inspector.records = []domain.EmbeddingRecord{
		{ChunkIndex: 0, Vector: []float32{0.5, 1}},
		{ChunkIndex: 1, Vector: []float32{-1, 0.25}},
	}
	path := filepath.Join(t.TempDir(), "out.json")

	out, err := executeCommand(t, "export", "--store", "memory", "--output", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 embeddings to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, float64(1), decoded[1]["chunk_index"])
	assert.Equal(t, []any{-1.0, 0.25}, decoded[1]["embedding"])
}

func TestExportCmd_Stdout(t *testing.T) {
	f := setupCLI(t)
	f.inspector.records = []domain.EmbeddingRecord{}

	out, err := executeCommand(t, "export", "--store", "memory", "-o", "-")

	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestExportCmd_BadPath(t *testing.T) {
	setupCLI(t)

	_, err := executeCommand(t, "export", "--store", "memory", "--output", filepath.Join(t.TempDir(), "missing", "out.json"))

	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
}
