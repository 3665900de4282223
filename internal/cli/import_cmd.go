package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thermoflow/thermoflow/internal/dataset"
	"github.com/thermoflow/thermoflow/internal/store"
)

// NewImportCommand creates the import command: dataset files into the
// record store.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "import <dataset.cue>...",
		Short:         "Validate dataset files and load their records into the database",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runImport(cmd *cobra.Command, opts *RootOptions, paths []string) error {
	out := cmd.OutOrStdout()
	db, err := store.Open(opts.Database)
	if err != nil {
		return emitError(out, opts.Format, err)
	}
	defer db.Close()

	total := 0
	imported := make([]map[string]any, 0, len(paths))
	for _, path := range paths {
		ds, err := dataset.Load(path)
		if err != nil {
			return emitError(out, opts.Format, fmt.Errorf("%s: %w", path, err))
		}
		if err := db.InsertBatch(cmd.Context(), ds.Records); err != nil {
			return emitError(out, opts.Format, fmt.Errorf("%s: %w", path, err))
		}
		total += len(ds.Records)
		imported = append(imported, map[string]any{
			"path":    path,
			"dataset": ds.Name,
			"records": len(ds.Records),
		})
	}

	if opts.Format == "json" {
		return emitJSON(out, map[string]any{"imported": imported, "total": total})
	}
	for _, e := range imported {
		fmt.Fprintf(out, "%s: %d record(s) from dataset %q\n", e["path"], e["records"], e["dataset"])
	}
	fmt.Fprintf(out, "imported %d record(s)\n", total)
	return nil
}
