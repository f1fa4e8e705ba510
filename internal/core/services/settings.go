package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize      = "pipeline.chunk_size"
	keyPolicy         = "pipeline.policy"
	keyConcurrency    = "pipeline.concurrency"
	keyRetries        = "pipeline.retries"
	keyRetryBackoff   = "pipeline.retry_backoff"
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedTimeout   = "embedding.timeout"
	keyStorageBackend = "storage.backend"
	keyDatabaseURL    = "storage.database_url"
	keyStorageTable   = "storage.table"
	keyDataDir        = "storage.data_dir"
	keyRateRPS        = "ratelimit.requests_per_second"
	keyRateBurst      = "ratelimit.burst"
)

// Environment variables that override stored configuration.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvDatabaseURL  = "CHUNKVEC_DATABASE_URL"
)

// envOverrides maps config keys to the environment variables that override them.
var envOverrides = map[string]string{
	keyEmbedAPIKey: EnvOpenAIAPIKey,
	keyDatabaseURL: EnvDatabaseURL,
}

// valueKind describes how a config value is parsed from the command line.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindDuration
)

// knownKeys lists every recognised config key and its value kind.
var knownKeys = map[string]valueKind{
	keyChunkSize:      kindInt,
	keyPolicy:         kindString,
	keyConcurrency:    kindInt,
	keyRetries:        kindInt,
	keyRetryBackoff:   kindDuration,
	keyEmbedProvider:  kindString,
	keyEmbedModel:     kindString,
	keyEmbedBaseURL:   kindString,
	keyEmbedAPIKey:    kindString,
	keyEmbedDims:      kindInt,
	keyEmbedTimeout:   kindDuration,
	keyStorageBackend: kindString,
	keyDatabaseURL:    kindString,
	keyStorageTable:   kindString,
	keyDataDir:        kindString,
	keyRateRPS:        kindFloat,
	keyRateBurst:      kindInt,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service reading overrides
// from the process environment.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnvLookup replaces the environment lookup, mainly for tests.
func (s *SettingsService) WithEnvLookup(lookup func(string) (string, bool)) *SettingsService {
	s.lookupEnv = lookup
	return s
}

// Get retrieves current application settings. Values resolve as
// environment, then config file, then defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(defaults.Embedding.Provider)

	settings := &domain.AppSettings{
		Pipeline: domain.PipelineSettings{
			ChunkSize:    s.getInt(keyChunkSize, defaults.Pipeline.ChunkSize),
			Policy:       s.getPolicy(defaults.Pipeline.Policy),
			Concurrency:  s.getInt(keyConcurrency, defaults.Pipeline.Concurrency),
			Retries:      s.getInt(keyRetries, defaults.Pipeline.Retries),
			RetryBackoff: s.getDuration(keyRetryBackoff, defaults.Pipeline.RetryBackoff),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   provider,
			Model:      s.getString(keyEmbedModel, provider.DefaultModel()),
			BaseURL:    s.getString(keyEmbedBaseURL, ""), // No default - empty uses the provider endpoint
			APIKey:     s.getString(keyEmbedAPIKey, ""),
			Dimensions: s.getInt(keyEmbedDims, defaults.Embedding.Dimensions),
			Timeout:    s.getDuration(keyEmbedTimeout, defaults.Embedding.Timeout),
		},
		Storage: domain.StorageSettings{
			Backend:     s.getBackend(defaults.Storage.Backend),
			DatabaseURL: s.getString(keyDatabaseURL, ""),
			Table:       s.getString(keyStorageTable, defaults.Storage.Table),
			DataDir:     s.getString(keyDataDir, defaults.Storage.DataDir),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.getFloat(keyRateRPS, defaults.RateLimit.RequestsPerSecond),
			Burst:             s.getInt(keyRateBurst, defaults.RateLimit.Burst),
		},
	}

	return settings, nil
}

// Save persists application settings. Empty secrets are not written.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyChunkSize, settings.Pipeline.ChunkSize},
		{keyPolicy, settings.Pipeline.Policy.String()},
		{keyConcurrency, settings.Pipeline.Concurrency},
		{keyRetries, settings.Pipeline.Retries},
		{keyRetryBackoff, settings.Pipeline.RetryBackoff.String()},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedTimeout, settings.Embedding.Timeout.String()},
		{keyStorageBackend, settings.Storage.Backend.String()},
		{keyStorageTable, settings.Storage.Table},
		{keyDataDir, settings.Storage.DataDir},
		{keyRateRPS, settings.RateLimit.RequestsPerSecond},
		{keyRateBurst, settings.RateLimit.Burst},
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}
	if settings.Storage.DatabaseURL != "" {
		if err := s.configStore.Set(keyDatabaseURL, settings.Storage.DatabaseURL); err != nil {
			return fmt.Errorf("save %s: %w", keyDatabaseURL, err)
		}
	}

	return nil
}

// Set parses value according to key and stores it. Unknown keys and
// invalid values are configuration errors.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := knownKeys[key]
	if !ok {
		return domain.ConfigError("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseValue(kind, value)
	if err != nil {
		return domain.ConfigError("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	if err := validateValue(key, parsed); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider. An empty model
// selects the provider default.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return domain.ConfigError("%w: embedding provider %q", domain.ErrUnsupportedType, provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" && s.getString(keyEmbedAPIKey, "") == "" {
		return domain.ConfigError("%w: %s requires an API key", domain.ErrMissingCredential, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = provider.DefaultModel()
	}

	// The dimension override belongs to the previous model.
	settings.Embedding.Dimensions = 0

	// Cloud providers don't need a custom base URL
	if provider.RequiresAPIKey() {
		settings.Embedding.BaseURL = ""
	}

	if apiKey != "" {
		settings.Embedding.APIKey = apiKey
	}

	return s.Save(settings)
}

// Keys returns the recognised config keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecret reports whether the value at key should be masked when displayed.
func IsSecret(key string) bool {
	return key == keyEmbedAPIKey || key == keyDatabaseURL
}

// EnvOverride returns the environment variable overriding key, if any.
func EnvOverride(key string) string {
	return envOverrides[key]
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Path returns the backing config file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func parseValue(kind valueKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	default:
		return value, nil
	}
}

func validateValue(key string, value any) error {
	switch key {
	case keyChunkSize:
		if n, _ := value.(int); n <= 0 {
			return domain.ConfigError("%w: got %d", domain.ErrInvalidChunkSize, n)
		}
	case keyConcurrency, keyRateBurst:
		if n, _ := value.(int); n < 1 {
			return domain.ConfigError("%w: %s must be at least 1", domain.ErrInvalidInput, key)
		}
	case keyRetries, keyEmbedDims:
		if n, _ := value.(int); n < 0 {
			return domain.ConfigError("%w: %s must not be negative", domain.ErrInvalidInput, key)
		}
	case keyRateRPS:
		if f, _ := value.(float64); f < 0 {
			return domain.ConfigError("%w: %s must not be negative", domain.ErrInvalidInput, key)
		}
	case keyPolicy:
		if p := domain.FailurePolicy(value.(string)); !p.IsValid() {
			return domain.ConfigError("%w: failure policy %q", domain.ErrUnsupportedType, p)
		}
	case keyEmbedProvider:
		if p := domain.AIProvider(value.(string)); !p.IsValid() {
			return domain.ConfigError("%w: embedding provider %q", domain.ErrUnsupportedType, p)
		}
	case keyStorageBackend:
		if b := domain.StorageBackend(value.(string)); !b.IsValid() {
			return domain.ConfigError("%w: storage backend %q", domain.ErrUnsupportedType, b)
		}
	}
	return nil
}

// Helper methods for reading config with environment overrides and defaults.

func (s *SettingsService) env(key string) (string, bool) {
	name, ok := envOverrides[key]
	if !ok || s.lookupEnv == nil {
		return "", false
	}
	val, ok := s.lookupEnv(name)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val, ok := s.env(key); ok {
		return val
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getPolicy(defaultVal domain.FailurePolicy) domain.FailurePolicy {
	policy := domain.FailurePolicy(s.configStore.GetString(keyPolicy))
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(keyEmbedProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(keyStorageBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
