package domain

import "time"

const unknownDescription = "Unknown"

// DefaultChunkSize is the default number of characters per segment.
const DefaultChunkSize = 2000

// FailurePolicy decides what happens after a segment fails.
type FailurePolicy string

// Available failure policies.
const (
	// PolicyFailFast aborts the run at the first failed segment.
	PolicyFailFast FailurePolicy = "fail_fast"

	// PolicyContinueOnError records failures and keeps processing later segments.
	PolicyContinueOnError FailurePolicy = "continue_on_error"
)

// IsValid returns true if the policy is recognised.
func (p FailurePolicy) IsValid() bool {
	switch p {
	case PolicyFailFast, PolicyContinueOnError:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p FailurePolicy) String() string {
	return string(p)
}

// Description returns a human-readable description of the policy.
func (p FailurePolicy) Description() string {
	switch p {
	case PolicyFailFast:
		return "Fail fast (abort on first error)"
	case PolicyContinueOnError:
		return "Continue on error (report all failures)"
	default:
		return unknownDescription
	}
}

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// DefaultModel returns the default embedding model for the provider.
func (p AIProvider) DefaultModel() string {
	switch p {
	case AIProviderOpenAI:
		return "text-embedding-ada-002"
	case AIProviderOllama:
		return "nomic-embed-text"
	default:
		return ""
	}
}

// StorageBackend identifies an embedding store implementation.
type StorageBackend string

// Available storage backends.
const (
	// StoragePostgres stores vectors in PostgreSQL with pgvector.
	StoragePostgres StorageBackend = "postgres"

	// StorageSQLite stores vectors as BLOBs in a local SQLite file.
	StorageSQLite StorageBackend = "sqlite"

	// StorageMemory keeps vectors in process memory (dry runs and tests).
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StoragePostgres, StorageSQLite, StorageMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// PipelineSettings controls segmentation and scheduling.
type PipelineSettings struct {
	// ChunkSize is the segment size in characters.
	ChunkSize int

	// Policy decides whether the first failure aborts the run.
	Policy FailurePolicy

	// Concurrency is the number of embedding workers. 1 means strictly sequential.
	Concurrency int

	// Retries is how many extra attempts a retryable embedding failure gets.
	Retries int

	// RetryBackoff is the initial wait between attempts; it doubles on each retry.
	RetryBackoff time.Duration
}

// Validate checks pipeline settings, returning a configuration error.
func (p PipelineSettings) Validate() error {
	if p.ChunkSize <= 0 {
		return ConfigError("%w: got %d", ErrInvalidChunkSize, p.ChunkSize)
	}
	if !p.Policy.IsValid() {
		return ConfigError("%w: failure policy %q", ErrUnsupportedType, p.Policy)
	}
	if p.Concurrency < 1 {
		return ConfigError("%w: concurrency must be at least 1, got %d", ErrInvalidInput, p.Concurrency)
	}
	if p.Retries < 0 {
		return ConfigError("%w: retries must not be negative, got %d", ErrInvalidInput, p.Retries)
	}
	return nil
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's default dimensionality. Zero keeps the default.
	Dimensions int

	// Timeout bounds a single embedding request.
	Timeout time.Duration
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// Validate checks embedding settings, returning a configuration error.
func (e EmbeddingSettings) Validate() error {
	if !e.Provider.IsValid() {
		return ConfigError("%w: embedding provider %q", ErrUnsupportedType, e.Provider)
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return ConfigError("%w: %s requires an API key", ErrMissingCredential, e.Provider)
	}
	if e.Dimensions < 0 {
		return ConfigError("%w: dimensions must not be negative", ErrInvalidInput)
	}
	return nil
}

// StorageSettings selects and configures the embedding store.
type StorageSettings struct {
	// Backend selects the store implementation.
	Backend StorageBackend

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string

	// Table is the embeddings table name.
	Table string

	// DataDir is the directory holding the SQLite database file.
	DataDir string
}

// Validate checks storage settings, returning a configuration error.
func (s StorageSettings) Validate() error {
	if !s.Backend.IsValid() {
		return ConfigError("%w: storage backend %q", ErrUnsupportedType, s.Backend)
	}
	if s.Backend == StoragePostgres && s.DatabaseURL == "" {
		return ConfigError("%w: postgres backend requires a database URL", ErrMissingCredential)
	}
	return nil
}

// RateLimitSettings throttles calls to the embedding service.
type RateLimitSettings struct {
	// RequestsPerSecond is the sustained rate. Zero disables client-side limiting.
	RequestsPerSecond float64

	// Burst is the maximum burst size.
	Burst int
}

// AppSettings aggregates all application settings.
type AppSettings struct {
	Pipeline  PipelineSettings
	Embedding EmbeddingSettings
	Storage   StorageSettings
	RateLimit RateLimitSettings
}

// Validate checks every section and returns the first configuration error.
func (a *AppSettings) Validate() error {
	if err := a.Pipeline.Validate(); err != nil {
		return err
	}
	if err := a.Embedding.Validate(); err != nil {
		return err
	}
	return a.Storage.Validate()
}

// DefaultAppSettings returns sensible defaults for all settings.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Pipeline: PipelineSettings{
			ChunkSize:    DefaultChunkSize,
			Policy:       PolicyFailFast,
			Concurrency:  1,
			Retries:      0,
			RetryBackoff: time.Second,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    AIProviderOpenAI.DefaultModel(),
			Timeout:  60 * time.Second,
		},
		Storage: StorageSettings{
			Backend: StoragePostgres,
			Table:   "markdown_embeddings",
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 5,
			Burst:             1,
		},
	}
}
