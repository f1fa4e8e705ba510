package driving

import "github.com/custodia-labs/chunkvec/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting by its config key.
	Set(key, value string) error

	// SetEmbeddingProvider switches provider and model in one step.
	// An empty model selects the provider default.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// Keys returns the recognised config keys.
	Keys() []string

	// Path returns the backing config file path.
	Path() string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
