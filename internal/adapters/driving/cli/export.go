package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportStore  string
	exportTable  string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored embeddings as JSON",
	Long: `Writes every stored record as a JSON array of
{"chunk_index": n, "embedding": [...]} objects in index order.

Use --output - to write to stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	addStoreFlags(exportCmd, &exportStore, &exportTable)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "embeddings.json", "output file, or - for stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	inspector, err := openInspector(cmd, exportStore, exportTable)
	if err != nil {
		return err
	}

	records, err := inspector.Export(commandContext(cmd))
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "-" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("writing embeddings: %w", err)
	}

	if exportOutput != "-" {
		cmd.Printf("Exported %d embeddings to %s\n", len(records), exportOutput)
	}
	return nil
}
