// Package cli provides the chunkvec command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driving"
	"github.com/custodia-labs/chunkvec/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

var (
	verbose    bool
	configPath string
)

// Config wires the CLI to the core services. Builders receive the fully
// resolved settings (flags applied) so that adapters are created per run.
type Config struct {
	// OpenSettings returns the settings service for the given config file.
	// An empty path selects the default location.
	OpenSettings func(path string) (driving.SettingsService, error)

	// NewPipeline builds an index pipeline. The returned cleanup releases
	// the embedding client and is never nil on success.
	NewPipeline func(settings *domain.AppSettings) (driving.IndexPipeline, func(), error)

	// NewInspector builds a store inspector for the configured backend.
	NewInspector func(settings *domain.AppSettings) (driving.StoreInspector, error)
}

// runtimeConfig holds the current wiring.
var runtimeConfig *Config

// settingsService is opened lazily from runtimeConfig. Tests assign it directly.
var settingsService driving.SettingsService

var rootCmd = &cobra.Command{
	Use:   "chunkvec",
	Short: "Split a document into chunks, embed them and store the vectors",
	Long: `chunkvec reads one document, splits it into fixed-size segments,
requests an embedding for every segment and stores each vector keyed by
its segment index.

Runs are idempotent: re-running over the same document leaves existing
rows untouched and only fills in missing segments.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.chunkvec/config.toml)")

	// Bad flags are a configuration problem, like any other pre-flight error.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return domain.ConfigError("%w", err)
	})
}

// SetConfig sets the wiring used by commands.
func SetConfig(cfg *Config) {
	runtimeConfig = cfg
}

// Execute runs the root command. Command output goes to stdout; logs,
// progress and errors go to stderr.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// ExitCode maps a command error to the process exit status:
// 0 on success, 2 for configuration errors, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrConfiguration):
		return 2
	default:
		return 1
	}
}

// settings returns the settings service, opening it on first use.
func settings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	if runtimeConfig == nil || runtimeConfig.OpenSettings == nil {
		return nil, errors.New("settings service not configured")
	}

	svc, err := runtimeConfig.OpenSettings(configPath)
	if err != nil {
		return nil, domain.ConfigError("loading config: %w", err)
	}
	settingsService = svc
	return svc, nil
}

// loadSettings resolves the current settings from environment, file and defaults.
func loadSettings() (*domain.AppSettings, error) {
	svc, err := settings()
	if err != nil {
		return nil, err
	}
	resolved, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return resolved, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
