package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thermoflow/thermoflow/internal/record"
	"github.com/thermoflow/thermoflow/internal/resolve"
	"github.com/thermoflow/thermoflow/internal/store"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Tmin float64
	Tmax float64
	Step float64
}

// NewResolveCommand creates the resolve command: compound-data queries.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <formula>",
		Short: "Resolve a compound's property curve over a temperature range",
		Long: `Resolve a compound's thermodynamic properties over a temperature range.

Example:
  thermoflow resolve FeO --tmin 773 --tmax 973 --step 50`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts, args[0])
		},
	}

	cmd.Flags().Float64Var(&opts.Tmin, "tmin", 298.15, "range start (K)")
	cmd.Flags().Float64Var(&opts.Tmax, "tmax", 1000, "range end (K)")
	cmd.Flags().Float64Var(&opts.Step, "step", 0, "sampling step (K); 0 picks a 10-point grid")

	return cmd
}

func runResolve(cmd *cobra.Command, opts *ResolveOptions, formula string) error {
	out := cmd.OutOrStdout()
	rng := record.TRange{Min: opts.Tmin, Max: opts.Tmax}
	if !rng.Valid() {
		return emitError(out, opts.Format, fmt.Errorf("invalid range %s", rng))
	}

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return emitError(out, opts.Format, err)
	}
	db, err := store.Open(opts.Database)
	if err != nil {
		return emitError(out, opts.Format, err)
	}
	defer db.Close()

	series, err := resolve.New(db, cfg).Sample(cmd.Context(), formula, rng, opts.Step)
	if err != nil {
		return emitError(out, opts.Format, err)
	}

	if opts.Format == "json" {
		return emitJSON(out, map[string]any{
			"formula":     series.Compound.Formula,
			"status":      series.Compound.Data.Status,
			"segments":    len(series.Compound.Data.Segments),
			"points":      series.Points,
			"diagnostics": series.Diagnostics,
		})
	}

	fmt.Fprintf(out, "%s over %s (%s coverage, %d segment(s))\n\n",
		series.Compound.Formula, series.Compound.Data.Range, series.Compound.Data.Status, len(series.Compound.Data.Segments))
	fmt.Fprintf(out, "%10s %12s %14s %12s %14s\n", "T/K", "Cp", "H/(J/mol)", "S", "G/(J/mol)")
	for _, p := range series.Points {
		mark := ""
		if !p.InRange {
			mark = " *"
		}
		fmt.Fprintf(out, "%10.2f %12.3f %14.1f %12.3f %14.1f%s\n", p.T, p.Cp, p.H, p.S, p.G, mark)
	}
	printDiagnostics(out, series.Diagnostics)
	return nil
}

func printDiagnostics(out io.Writer, diags []record.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintln(out, "\ndiagnostics:")
	for _, d := range diags {
		fmt.Fprintf(out, "  - %s\n", d)
	}
}
