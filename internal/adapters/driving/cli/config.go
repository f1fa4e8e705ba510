package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change chunkvec settings.

Settings are read from the config file, then overridden by environment
variables (OPENAI_API_KEY, CHUNKVEC_DATABASE_URL) and finally by command
flags.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Long: `Set a single config value. Run 'chunkvec config keys' for the list of keys.

Examples:
  chunkvec config set pipeline.chunk_size 1500
  chunkvec config set storage.backend sqlite
  chunkvec config set embedding.timeout 30s`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List recognised config keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configProviderCmd = &cobra.Command{
	Use:   "provider <openai|ollama>",
	Short: "Select the embedding provider",
	Long: `Select the embedding provider and model. OpenAI needs an API key, either
from OPENAI_API_KEY or entered with --api-key-stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigProvider,
}

var (
	providerModel       string
	providerAPIKeyStdin bool
)

func init() {
	configProviderCmd.Flags().StringVar(&providerModel, "model", "", "embedding model (default: provider default)")
	configProviderCmd.Flags().BoolVar(&providerAPIKeyStdin, "api-key-stdin", false, "read the API key from stdin")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configProviderCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Pipeline]")
	cmd.Printf("  Chunk size: %d\n", settings.Pipeline.ChunkSize)
	cmd.Printf("  Policy: %s\n", settings.Pipeline.Policy.Description())
	cmd.Printf("  Concurrency: %d\n", settings.Pipeline.Concurrency)
	cmd.Printf("  Retries: %d (backoff %s)\n", settings.Pipeline.Retries, settings.Pipeline.RetryBackoff)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskSecret(settings.Embedding.APIKey))
	}
	cmd.Printf("  Timeout: %s\n", settings.Embedding.Timeout)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	switch settings.Storage.Backend {
	case domain.StoragePostgres:
		cmd.Printf("  Database URL: %s\n", maskSecret(settings.Storage.DatabaseURL))
		cmd.Printf("  Table: %s\n", settings.Storage.Table)
	case domain.StorageSQLite:
		dir := settings.Storage.DataDir
		if dir == "" {
			dir = "~/.chunkvec/data"
		}
		cmd.Printf("  Data dir: %s\n", dir)
	}
	cmd.Println()

	cmd.Println("[Rate limit]")
	if settings.RateLimit.RequestsPerSecond > 0 {
		cmd.Printf("  Requests/second: %g (burst %d)\n", settings.RateLimit.RequestsPerSecond, settings.RateLimit.Burst)
	} else {
		cmd.Println("  Disabled")
	}
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := svc.Set(key, value); err != nil {
		return err
	}

	shown := value
	if services.IsSecret(key) {
		shown = maskSecret(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	if env := services.EnvOverride(key); env != "" {
		if _, ok := os.LookupEnv(env); ok {
			cmd.Printf("Note: %s is set and takes precedence.\n", env)
		}
	}
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}

	for _, key := range svc.Keys() {
		if env := services.EnvOverride(key); env != "" {
			cmd.Printf("%s (env %s)\n", key, env)
			continue
		}
		cmd.Println(key)
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}
	cmd.Println(svc.Path())
	return nil
}

func runConfigProvider(cmd *cobra.Command, args []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}

	provider := domain.AIProvider(args[0])
	if !provider.IsValid() {
		return domain.ConfigError("%w: embedding provider %q", domain.ErrUnsupportedType, args[0])
	}

	var apiKey string
	if providerAPIKeyStdin {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(cmd.InOrStdin())
		cmd.Println()
		if apiKey == "" {
			return domain.ConfigError("%w: empty API key", domain.ErrMissingCredential)
		}
	}

	if err := svc.SetEmbeddingProvider(provider, providerModel, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	model := providerModel
	if model == "" {
		model = provider.DefaultModel()
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

// readSecret reads one line from in without echo when in is a terminal.
func readSecret(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return strings.TrimSpace(line)
}

func maskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
