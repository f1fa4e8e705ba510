// Command chunkvec splits a document into fixed-size segments, embeds each
// segment and stores the vectors keyed by segment index.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/chunkvec/internal/adapters/driven/ai"
	"github.com/custodia-labs/chunkvec/internal/adapters/driven/config/file"
	"github.com/custodia-labs/chunkvec/internal/adapters/driven/storage"
	"github.com/custodia-labs/chunkvec/internal/adapters/driving/cli"
	"github.com/custodia-labs/chunkvec/internal/connectors"
	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driving"
	"github.com/custodia-labs/chunkvec/internal/core/services"
	"github.com/custodia-labs/chunkvec/internal/logger"
	"github.com/custodia-labs/chunkvec/internal/postprocessors/chunker"
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	if err := loadDotEnv(".env"); err != nil {
		logger.Error("loading .env: %v", err)
		return cli.ExitCode(domain.ConfigError("loading .env: %w", err))
	}

	cli.SetConfig(&cli.Config{
		OpenSettings: openSettings,
		NewPipeline:  newPipeline,
		NewInspector: newInspector,
	})

	err := cli.Execute(ctx)
	if err != nil {
		logger.Error("%v", err)
	}
	return cli.ExitCode(err)
}

// loadDotEnv loads environment variables from path if it exists.
// Variables already set in the environment win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func openSettings(path string) (driving.SettingsService, error) {
	var (
		store *file.ConfigStore
		err   error
	)
	if path == "" {
		store, err = file.NewConfigStore("")
	} else {
		store, err = file.NewConfigStoreAt(path)
	}
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store), nil
}

// newPipeline builds the pipeline for one index run. The embedding service
// fixes the vector size the store is checked against.
func newPipeline(settings *domain.AppSettings) (driving.IndexPipeline, func(), error) {
	embedder, err := ai.CreateEmbeddingService(&settings.Embedding, settings.RateLimit)
	if err != nil {
		return nil, nil, err
	}

	stores, err := storage.NewFactory(settings.Storage, embedder.Dimensions())
	if err != nil {
		_ = embedder.Close()
		return nil, nil, err
	}

	pipeline := services.NewPipeline(connectors.NewDefaultRouter(), chunker.New(), embedder, stores)
	cleanup := func() {
		if err := embedder.Close(); err != nil {
			logger.Warn("Closing embedding service: %v", err)
		}
	}
	return pipeline, cleanup, nil
}

func newInspector(settings *domain.AppSettings) (driving.StoreInspector, error) {
	stores, err := storage.NewFactory(settings.Storage, settings.Embedding.Dimensions)
	if err != nil {
		return nil, err
	}
	return services.NewInspectorService(stores), nil
}
