// Package ollama provides an embedding service adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/chunkvec/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768 // nomic-embed-text default
)

const providerName = "ollama"

// Config holds configuration for the Ollama embedding service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int

	// Limiter throttles requests. Optional.
	Limiter *ratelimit.Limiter
}

// EmbeddingService generates embeddings using Ollama.
type EmbeddingService struct {
	client     *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
	model      string
	dimensions int
}

// embedRequest is the Ollama API request format.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the Ollama API response format.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:    cfg.Limiter,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, s.fail(domain.ServiceErrorResponse, 0, fmt.Errorf("%w: empty input text", domain.ErrInvalidInput))
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, s.fail(domain.ServiceErrorNetwork, 0, fmt.Errorf("rate limiter: %w", err))
	}

	jsonBody, err := json.Marshal(embedRequest{Model: s.model, Prompt: text})
	if err != nil {
		return nil, s.fail(domain.ServiceErrorResponse, 0, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, s.fail(domain.ServiceErrorNetwork, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.fail(domain.ServiceErrorNetwork, 0, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		kind := domain.ServiceErrorUpstream
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = domain.ServiceErrorRateLimit
			s.limiter.Backoff(ratelimit.ParseRetryAfter(resp.Header, time.Now()))
		}
		return nil, s.fail(kind, resp.StatusCode, errors.New(strings.TrimSpace(string(body))))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, s.fail(domain.ServiceErrorResponse, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if embedResp.Error != "" {
		return nil, s.fail(domain.ServiceErrorUpstream, resp.StatusCode, errors.New(embedResp.Error))
	}
	if len(embedResp.Embedding) == 0 {
		return nil, s.fail(domain.ServiceErrorResponse, resp.StatusCode, fmt.Errorf("%w in response", domain.ErrEmptyVector))
	}
	if len(embedResp.Embedding) != s.dimensions {
		return nil, s.fail(domain.ServiceErrorDimension, resp.StatusCode,
			fmt.Errorf("expected %d values, got %d", s.dimensions, len(embedResp.Embedding)))
	}

	// Convert float64 to float32
	embedding := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		embedding[i] = float32(v)
	}

	return embedding, nil
}

func (s *EmbeddingService) fail(kind domain.ServiceErrorKind, status int, err error) error {
	return &domain.ServiceError{Provider: providerName, Kind: kind, StatusCode: status, Err: err}
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
