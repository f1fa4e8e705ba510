package cli

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/chunkvec/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driving"
	"github.com/custodia-labs/chunkvec/internal/core/services"
)

const testAPIKey = "sk-test-0123456789"

// mockPipeline implements driving.IndexPipeline for testing.
type mockPipeline struct {
	requests []driving.RunRequest
	report   *domain.PipelineReport
	err      error
}

func (m *mockPipeline) Run(_ context.Context, req driving.RunRequest) (*domain.PipelineReport, error) {
	m.requests = append(m.requests, req)
	if m.report == nil && m.err != nil {
		return nil, m.err
	}

	report := m.report
	if report == nil {
		report = &domain.PipelineReport{
			RunID:     "run-1",
			Source:    req.Source,
			ChunkSize: req.Settings.ChunkSize,
			Policy:    req.Settings.Policy,
			Total:     3,
			Stored:    3,
		}
	}
	report.StartedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report.FinishedAt = report.StartedAt.Add(1500 * time.Millisecond)

	if req.Progress != nil {
		for i := 1; i <= report.Processed(); i++ {
			req.Progress(i, report.Total)
		}
	}
	return report, m.err
}

// mockInspector implements driving.StoreInspector for testing.
type mockInspector struct {
	status  *driving.StoreStatus
	records []domain.EmbeddingRecord
	err     error
}

func (m *mockInspector) Status(_ context.Context) (*driving.StoreStatus, error) {
	return m.status, m.err
}

func (m *mockInspector) Export(_ context.Context) ([]domain.EmbeddingRecord, error) {
	return m.records, m.err
}

type cliFixture struct {
	config    *memory.ConfigStore
	pipeline  *mockPipeline
	inspector *mockInspector
	built     *domain.AppSettings
	builds    int
	cleanups  int
}

// setupCLI wires the commands to mocks and an in-memory config store with
// an OpenAI key in the environment.
func setupCLI(t *testing.T) *cliFixture {
	t.Helper()

	oldConfig, oldSettings := runtimeConfig, settingsService
	t.Cleanup(func() {
		runtimeConfig, settingsService = oldConfig, oldSettings
	})

	f := &cliFixture{
		config:    memory.NewConfigStore(),
		pipeline:  &mockPipeline{},
		inspector: &mockInspector{},
	}
	settingsService = services.NewSettingsService(f.config).WithEnvLookup(func(name string) (string, bool) {
		if name == services.EnvOpenAIAPIKey {
			return testAPIKey, true
		}
		return "", false
	})
	runtimeConfig = &Config{
		NewPipeline: func(s *domain.AppSettings) (driving.IndexPipeline, func(), error) {
			f.built = s
			f.builds++
			return f.pipeline, func() { f.cleanups++ }, nil
		},
		NewInspector: func(s *domain.AppSettings) (driving.StoreInspector, error) {
			f.built = s
			f.builds++
			return f.inspector, nil
		},
	}
	return f
}

// executeCommand runs rootCmd with args and returns what it wrote to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default. Cobra keeps parsed values
// between Execute calls on the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
