// Package web reads source documents over HTTP(S).
package web

import (
	"context"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxSize caps how much of a response body is read into memory.
	DefaultMaxSize int64 = 64 << 20
)

// Config holds configuration for the web source.
type Config struct {
	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// MaxSize is the largest accepted body in bytes (default: 64 MiB).
	MaxSize int64

	// HTTPClient overrides the client. Optional.
	HTTPClient *http.Client
}

// Source fetches documents with a single GET request.
type Source struct {
	client  *http.Client
	maxSize int64
}

// New creates a web source.
func New(cfg Config) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Source{client: client, maxSize: cfg.MaxSize}
}

// Read fetches the document at uri. Failures are configuration errors.
func (s *Source) Read(ctx context.Context, uri string) (*domain.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, domain.ConfigError("invalid source URL %q: %w", uri, err)
	}
	req.Header.Set("Accept", "text/markdown, text/plain;q=0.9, */*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.ConfigError("fetching source document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ConfigError("fetching source document: %s returned %s", uri, resp.Status)
	}

	// Read one byte past the limit to detect oversize bodies.
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return nil, domain.ConfigError("reading source document: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, domain.ConfigError("source document %s exceeds %d bytes", uri, s.maxSize)
	}
	if !utf8.Valid(data) {
		return nil, domain.ConfigError("source document %s is not valid UTF-8 text", uri)
	}

	return &domain.Document{URI: uri, Content: string(data)}, nil
}

