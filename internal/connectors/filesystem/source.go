// Package filesystem reads source documents from the local filesystem.
package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// DefaultMaxSize caps how much of a file is read into memory.
const DefaultMaxSize int64 = 64 << 20

// Source reads whole files into memory.
type Source struct {
	maxSize int64
}

// New creates a filesystem source. A non-positive maxSize uses DefaultMaxSize.
func New(maxSize int64) *Source {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Source{maxSize: maxSize}
}

// Read loads the document at uri, a bare path or file:// URI.
// Every failure is a configuration error: the run cannot start without it.
func (s *Source) Read(ctx context.Context, uri string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := ResolvePath(uri)
	if path == "" {
		return nil, domain.ConfigError("source path is empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ConfigError("source document %s does not exist", path)
		}
		return nil, domain.ConfigError("reading source document: %w", err)
	}
	if info.IsDir() {
		return nil, domain.ConfigError("source %s is a directory", path)
	}
	if info.Size() > s.maxSize {
		return nil, domain.ConfigError("source document %s is %d bytes, limit is %d", path, info.Size(), s.maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ConfigError("reading source document: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, domain.ConfigError("source document %s is not valid UTF-8 text", path)
	}

	return &domain.Document{URI: uri, Content: string(data)}, nil
}
