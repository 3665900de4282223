package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thermoflow/thermoflow/internal/chem"
	"github.com/thermoflow/thermoflow/internal/record"
	"github.com/thermoflow/thermoflow/internal/store"
)

// RecordsOptions holds flags for the records command.
type RecordsOptions struct {
	*RootOptions
	Phase string
	Tmin  float64
	Tmax  float64
}

// NewRecordsCommand creates the records command: raw record inspection.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "records [formula]",
		Short: "List stored records, optionally narrowed to one formula",
		Long: `List records in the database. With no argument the known formulas
are listed; with a formula argument the matching records are shown
in the same deterministic order the resolver sees them.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Phase, "phase", "", "restrict to one phase (solid, liquid, gas, aqueous, other)")
	cmd.Flags().Float64Var(&opts.Tmin, "tmin", 0, "restrict to records overlapping [tmin, tmax]")
	cmd.Flags().Float64Var(&opts.Tmax, "tmax", 0, "restrict to records overlapping [tmin, tmax]")

	return cmd
}

func runRecords(cmd *cobra.Command, opts *RecordsOptions, args []string) error {
	out := cmd.OutOrStdout()
	db, err := store.Open(opts.Database)
	if err != nil {
		return emitError(out, opts.Format, err)
	}
	defer db.Close()

	if len(args) == 0 {
		formulas, err := db.Formulas(cmd.Context())
		if err != nil {
			return emitError(out, opts.Format, err)
		}
		n, err := db.Count(cmd.Context())
		if err != nil {
			return emitError(out, opts.Format, err)
		}
		if opts.Format == "json" {
			return emitJSON(out, map[string]any{"formulas": formulas, "records": n})
		}
		fmt.Fprintf(out, "%d record(s), %d formula(s)\n", n, len(formulas))
		for _, f := range formulas {
			fmt.Fprintf(out, "  %s\n", f)
		}
		return nil
	}

	q := store.Query{Formula: chem.Normalize(args[0])}
	if opts.Phase != "" {
		p := record.ParsePhase(opts.Phase)
		q.Phase = &p
	}
	if opts.Tmax > opts.Tmin && opts.Tmax > 0 {
		q.Overlaps = &record.TRange{Min: opts.Tmin, Max: opts.Tmax}
	}

	recs, err := db.Select(cmd.Context(), q)
	if err != nil {
		return emitError(out, opts.Format, err)
	}

	if opts.Format == "json" {
		return emitJSON(out, map[string]any{"formula": q.Formula, "records": recs})
	}
	fmt.Fprintf(out, "%d record(s) for %s\n", len(recs), q.Formula)
	for _, r := range recs {
		fmt.Fprintf(out, "  %-8s %9.2f-%9.2f K  class %d  H298=%.3f S298=%.3f\n",
			r.Phase, r.Tmin, r.Tmax, r.ReliabilityClass, r.H298, r.S298)
	}
	return nil
}
