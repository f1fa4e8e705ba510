// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	ollamaembed "github.com/custodia-labs/chunkvec/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/chunkvec/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/chunkvec/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
)

// CreateEmbeddingService creates the embedding service selected by settings.
// Unlike optional services, the pipeline cannot run without one: an unknown
// provider or a missing credential is returned as a configuration error
// before any segment is processed.
func CreateEmbeddingService(
	settings *domain.EmbeddingSettings,
	limits domain.RateLimitSettings,
) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, domain.ConfigError("%w: embedding settings missing", domain.ErrInvalidInput)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	limiter := NewLimiter(limits)

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings, limiter), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings, limiter)

	default:
		return nil, domain.ConfigError("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// NewLimiter builds the client-side limiter shared by one embedding service.
func NewLimiter(limits domain.RateLimitSettings) *ratelimit.Limiter {
	if limits.RequestsPerSecond <= 0 {
		return nil
	}
	return ratelimit.New(ratelimit.Config{
		RequestsPerSecond: limits.RequestsPerSecond,
		BurstSize:         limits.Burst,
	})
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings, limiter *ratelimit.Limiter) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: settings.Dimensions,
		Limiter:    limiter,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings, limiter *ratelimit.Limiter) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: settings.Dimensions,
		Limiter:    limiter,
	})
}
