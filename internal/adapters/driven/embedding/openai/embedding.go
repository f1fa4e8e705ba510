// Package openai provides an embedding service adapter using OpenAI API.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-ada-002"
	DefaultTimeout = 60 * time.Second
)

const providerName = "openai"

// maxErrorBody caps how much of an error response is echoed back.
const maxErrorBody = 512

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-ada-002).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only sent upstream for text-embedding-3-* models.
	Dimensions int

	// Limiter throttles requests. Optional.
	Limiter *ratelimit.Limiter

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client
}

// EmbeddingService generates embeddings using OpenAI API.
type EmbeddingService struct {
	client     *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// errorResponse is the OpenAI API error envelope.
type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
// A missing API key is a configuration error.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError("%w: openai API key is required", domain.ErrMissingCredential)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	// Determine dimensions
	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1536 // Default fallback
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &EmbeddingService{
		client:     client,
		limiter:    cfg.Limiter,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: dimensions,
	}, nil
}

// Embed generates a vector embedding for the given text with a single request.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, s.fail(domain.ServiceErrorResponse, 0, fmt.Errorf("%w: empty input text", domain.ErrInvalidInput))
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, s.fail(domain.ServiceErrorNetwork, 0, fmt.Errorf("rate limiter: %w", err))
	}

	reqBody := embeddingRequest{
		Model: s.model,
		Input: text,
	}

	// Only include dimensions for text-embedding-3-* models
	if strings.HasPrefix(s.model, "text-embedding-3-") && s.dimensions > 0 {
		reqBody.Dimensions = s.dimensions
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, s.fail(domain.ServiceErrorResponse, 0, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, s.fail(domain.ServiceErrorNetwork, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.fail(domain.ServiceErrorNetwork, 0, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.fail(domain.ServiceErrorNetwork, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, s.statusError(resp, body)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, s.fail(domain.ServiceErrorResponse, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	return s.toVector(&embedResp)
}

// toVector validates the response payload and converts it to float32.
func (s *EmbeddingService) toVector(resp *embeddingResponse) ([]float32, error) {
	if len(resp.Data) == 0 {
		return nil, s.fail(domain.ServiceErrorResponse, http.StatusOK, errors.New("response has no data"))
	}
	values := resp.Data[0].Embedding
	if len(values) == 0 {
		return nil, s.fail(domain.ServiceErrorResponse, http.StatusOK, fmt.Errorf("%w in response", domain.ErrEmptyVector))
	}
	if len(values) != s.dimensions {
		return nil, s.fail(domain.ServiceErrorDimension, http.StatusOK,
			fmt.Errorf("expected %d values, got %d", s.dimensions, len(values)))
	}

	vector := make([]float32, len(values))
	for i, v := range values {
		vector[i] = float32(v)
	}
	return vector, nil
}

// statusError classifies a non-200 response.
func (s *EmbeddingService) statusError(resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	cause := errors.New(msg)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return s.fail(domain.ServiceErrorAuth, resp.StatusCode, cause)
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := ratelimit.ParseRetryAfter(resp.Header, time.Now())
		s.limiter.Backoff(retryAfter)
		return &domain.ServiceError{
			Provider:   providerName,
			Kind:       domain.ServiceErrorRateLimit,
			StatusCode: resp.StatusCode,
			RetryAfter: retryAfter,
			Err:        cause,
		}
	default:
		return s.fail(domain.ServiceErrorUpstream, resp.StatusCode, cause)
	}
}

func (s *EmbeddingService) fail(kind domain.ServiceErrorKind, status int, err error) error {
	return &domain.ServiceError{
		Provider:   providerName,
		Kind:       kind,
		StatusCode: status,
		Err:        err,
	}
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
