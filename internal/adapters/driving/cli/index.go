package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driving"
)

var indexCmd = &cobra.Command{
	Use:   "index <source>",
	Short: "Chunk, embed and store a document",
	Long: `Reads the document at <source> (a file path, file:// or http(s):// URL),
splits it into segments of --chunk-size characters, embeds every segment and
stores each vector under its segment index.

By default the first failed segment aborts the run. With --continue-on-error
every segment is attempted and all failures are listed in the report; the
command still exits non-zero if any segment failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

var (
	indexChunkSize       int
	indexContinueOnError bool
	indexConcurrency     int
	indexRetries         int
	indexStore           string
	indexTable           string
	indexModel           string
	indexOutput          string
	indexQuiet           bool
)

func init() {
	flags := indexCmd.Flags()
	flags.IntVar(&indexChunkSize, "chunk-size", domain.DefaultChunkSize, "segment size in characters")
	flags.BoolVar(&indexContinueOnError, "continue-on-error", false, "record failed segments and keep going")
	flags.IntVar(&indexConcurrency, "concurrency", 1, "number of concurrent embedding requests")
	flags.IntVar(&indexRetries, "retries", 0, "extra attempts for rate-limited or transient failures")
	flags.StringVar(&indexStore, "store", "", "storage backend: postgres, sqlite or memory")
	flags.StringVar(&indexTable, "table", "", "postgres table name")
	flags.StringVar(&indexModel, "model", "", "embedding model")
	flags.StringVarP(&indexOutput, "output", "o", outputText, "report format: text, json or yaml")
	flags.BoolVarP(&indexQuiet, "quiet", "q", false, "do not print progress")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if runtimeConfig == nil || runtimeConfig.NewPipeline == nil {
		return errors.New("index pipeline not configured")
	}
	if err := validateOutput(indexOutput); err != nil {
		return err
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	applyIndexFlags(cmd, settings)
	if err := settings.Validate(); err != nil {
		return err
	}

	pipeline, cleanup, err := runtimeConfig.NewPipeline(settings)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := driving.RunRequest{
		Source:   args[0],
		Settings: settings.Pipeline,
	}
	if !indexQuiet {
		req.Progress = progressPrinter(cmd)
	}

	report, runErr := pipeline.Run(ctx, req)
	if report == nil {
		return runErr
	}
	if !indexQuiet && report.Processed() > 0 {
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	if err := writeReport(cmd.OutOrStdout(), report, indexOutput); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("index failed: %w", runErr)
	}
	if !report.Succeeded() {
		return fmt.Errorf("index failed: %d of %d segments failed", report.Failed, report.Total)
	}
	return nil
}

// applyIndexFlags overrides resolved settings with explicitly set flags.
func applyIndexFlags(cmd *cobra.Command, settings *domain.AppSettings) {
	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		settings.Pipeline.ChunkSize = indexChunkSize
	}
	if flags.Changed("continue-on-error") {
		settings.Pipeline.Policy = domain.PolicyFailFast
		if indexContinueOnError {
			settings.Pipeline.Policy = domain.PolicyContinueOnError
		}
	}
	if flags.Changed("concurrency") {
		settings.Pipeline.Concurrency = indexConcurrency
	}
	if flags.Changed("retries") {
		settings.Pipeline.Retries = indexRetries
	}
	if flags.Changed("store") {
		settings.Storage.Backend = domain.StorageBackend(indexStore)
	}
	if flags.Changed("table") {
		settings.Storage.Table = indexTable
	}
	if flags.Changed("model") {
		settings.Embedding.Model = indexModel
	}
}

// progressPrinter rewrites a single status line on stderr.
func progressPrinter(cmd *cobra.Command) driving.ProgressFunc {
	w := cmd.ErrOrStderr()
	return func(processed, total int) {
		fmt.Fprintf(w, "\rProcessed %d/%d segments", processed, total)
	}
}
