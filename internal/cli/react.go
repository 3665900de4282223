package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thermoflow/thermoflow/internal/record"
	"github.com/thermoflow/thermoflow/internal/resolve"
	"github.com/thermoflow/thermoflow/internal/store"
)

// ReactOptions holds flags for the react command.
type ReactOptions struct {
	*RootOptions
	Reactants []string
	Products  []string
	Tmin      float64
	Tmax      float64
	Step      float64
}

// NewReactCommand creates the react command: reaction thermodynamics.
func NewReactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "react",
		Short: "Balance a reaction and evaluate its thermodynamics",
		Long: `Balance a reaction from its participant formulas, resolve every
participant, and report enthalpy, entropy, free energy and the
equilibrium temperature over a temperature range.

Example:
  thermoflow react -r H2S -r O2 -p SO2 -p H2O --tmin 298.15 --tmax 1500`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReact(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Reactants, "reactant", "r", nil, "reactant formula (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Products, "product", "p", nil, "product formula (repeatable)")
	cmd.Flags().Float64Var(&opts.Tmin, "tmin", 298.15, "range start (K)")
	cmd.Flags().Float64Var(&opts.Tmax, "tmax", 1500, "range end (K)")
	cmd.Flags().Float64Var(&opts.Step, "step", 0, "sampling step (K); 0 picks a 10-point grid")
	cmd.MarkFlagRequired("reactant")
	cmd.MarkFlagRequired("product")

	return cmd
}

func runReact(cmd *cobra.Command, opts *ReactOptions) error {
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

	res, err := resolve.New(db, cfg).React(cmd.Context(), opts.Reactants, opts.Products, rng, opts.Step)
	if err != nil {
		return emitError(out, opts.Format, err)
	}

	if opts.Format == "json" {
		return emitJSON(out, res)
	}

	fmt.Fprintf(out, "%s\n", res.BalancedEquation)
	fmt.Fprintf(out, "confidence: %.2f\n", res.Confidence)
	if res.EquilibriumTemperature != nil {
		fmt.Fprintf(out, "equilibrium: %.2f K\n", *res.EquilibriumTemperature)
	} else {
		fmt.Fprintln(out, "equilibrium: none in range")
	}
	if len(res.Series) > 0 {
		fmt.Fprintf(out, "\n%10s %14s %12s %14s %10s\n", "T/K", "dH/(J/mol)", "dS", "dG/(J/mol)", "ln K")
		for _, pt := range res.Series {
			spont := ""
			if pt.DeltaG < 0 {
				spont = "  spontaneous"
			}
			fmt.Fprintf(out, "%10.2f %14.1f %12.3f %14.1f %10.3f%s\n",
				pt.T, pt.DeltaH, pt.DeltaS, pt.DeltaG, pt.LnK, spont)
		}
	}
	printDiagnostics(out, res.Diagnostics)
	return nil
}
