package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driving"
)

var (
	statusStore string
	statusTable string
	statusJSON  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many embeddings are stored",
	Long:  `Connects to the configured store and prints the record count and vector dimensionality.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	addStoreFlags(statusCmd, &statusStore, &statusTable)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

// addStoreFlags registers the flags selecting which store to read.
func addStoreFlags(cmd *cobra.Command, store, table *string) {
	cmd.Flags().StringVar(store, "store", "", "storage backend: postgres, sqlite or memory")
	cmd.Flags().StringVar(table, "table", "", "postgres table name")
}

// openInspector resolves settings, applies the store flags and builds an inspector.
func openInspector(cmd *cobra.Command, store, table string) (driving.StoreInspector, error) {
	if runtimeConfig == nil || runtimeConfig.NewInspector == nil {
		return nil, errors.New("store inspector not configured")
	}

	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("store") {
		settings.Storage.Backend = domain.StorageBackend(store)
	}
	if cmd.Flags().Changed("table") {
		settings.Storage.Table = table
	}
	if err := settings.Storage.Validate(); err != nil {
		return nil, err
	}

	return runtimeConfig.NewInspector(settings)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	inspector, err := openInspector(cmd, statusStore, statusTable)
	if err != nil {
		return err
	}

	status, err := inspector.Status(commandContext(cmd))
	if err != nil {
		return err
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Backend:    %s\n", status.Backend)
	cmd.Printf("Records:    %d\n", status.Records)
	if status.Records > 0 {
		cmd.Printf("Dimensions: %d\n", status.Dimensions)
	}
	return nil
}
