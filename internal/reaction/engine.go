// Package reaction composes per-compound property curves into reaction
// thermodynamics: ΔH(T), ΔS(T), ΔG(T), the equilibrium constant, and
// the equilibrium temperature.
package reaction

import (
	"log/slog"
	"math"

	"github.com/thermoflow/thermoflow/internal/record"
	"github.com/thermoflow/thermoflow/internal/selector"
	"github.com/thermoflow/thermoflow/internal/thermo"
)

// R is the molar gas constant in J/(mol*K).
const R = 8.314462618

// Participant is one species of a reaction with its resolved data and
// signed stoichiometric coefficient: positive for products, negative
// for reactants.
type Participant struct {
	Formula     string
	Coefficient float64
	Data        *selector.ResolvedData
}

// Thermo holds the reaction properties at one temperature. Energies
// are J/mol (of reaction as written); entropy is J/(mol*K).
type Thermo struct {
	T      float64 `json:"t"`
	DeltaH float64 `json:"delta_h"`
	DeltaS float64 `json:"delta_s"`
	DeltaG float64 `json:"delta_g"`
	LnK    float64 `json:"ln_k"`
}

// Result is the full outcome of a reaction query.
type Result struct {
	BalancedEquation       string              `json:"balanced_equation"`
	Series                 []Thermo            `json:"series"`
	EquilibriumTemperature *float64            `json:"equilibrium_temperature,omitempty"`
	Confidence             float64             `json:"confidence"`
	Diagnostics            []record.Diagnostic `json:"diagnostics,omitempty"`
}

// Config holds the equilibrium-search tunables.
type Config struct {
	// TLow and THigh bracket the equilibrium bisection.
	TLow  float64
	THigh float64

	// ToleranceJ is the |ΔG| convergence target in J/mol.
	ToleranceJ float64

	// BracketMinK stops the bisection once the bracket is thinner.
	BracketMinK float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		TLow:        298.15,
		THigh:       2273.15,
		ToleranceJ:  100,
		BracketMinK: 1.0,
	}
}

// Engine evaluates reaction thermodynamics over participants whose
// per-compound data has already been resolved.
type Engine struct {
	cfg    Config
	thermo *thermo.Engine
}

// NewEngine creates an Engine, filling zero tunables from defaults.
func NewEngine(te *thermo.Engine, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.TLow <= 0 {
		cfg.TLow = def.TLow
	}
	if cfg.THigh <= 0 {
		cfg.THigh = def.THigh
	}
	if cfg.ToleranceJ <= 0 {
		cfg.ToleranceJ = def.ToleranceJ
	}
	if cfg.BracketMinK <= 0 {
		cfg.BracketMinK = def.BracketMinK
	}
	return &Engine{cfg: cfg, thermo: te}
}

// Evaluate computes ΔH, ΔS, ΔG, and ln K at one temperature by summing
// each participant's properties weighted by its signed coefficient.
func (e *Engine) Evaluate(parts []Participant, t float64) (Thermo, []record.Diagnostic) {
	var (
		th    = Thermo{T: t}
		diags []record.Diagnostic
	)
	for _, p := range parts {
		props, d := e.thermo.Evaluate(p.Data, t)
		diags = append(diags, d...)
		th.DeltaH += p.Coefficient * props.H
		th.DeltaS += p.Coefficient * props.S
	}
	th.DeltaG = th.DeltaH - t*th.DeltaS
	th.LnK = -th.DeltaG / (R * t)
	return th, diags
}

// Series evaluates the reaction at each temperature, deduplicating
// repeated warning codes across the series.
func (e *Engine) Series(parts []Participant, temps []float64) ([]Thermo, []record.Diagnostic) {
	out := make([]Thermo, 0, len(temps))
	var diags []record.Diagnostic
	seen := map[record.DiagnosticCode]bool{}
	for _, t := range temps {
		th, d := e.Evaluate(parts, t)
		out = append(out, th)
		for _, di := range d {
			if !seen[di.Code] {
				seen[di.Code] = true
				diags = append(diags, di)
			}
		}
	}
	return out, diags
}

// FindEquilibrium locates the temperature where ΔG crosses zero by
// bisection over [TLow, THigh]. Returns nil when ΔG holds one sign
// across the bracket - no crossing in range is an answer, not an error.
//
// Converges when |ΔG(mid)| drops below the tolerance or the bracket
// narrows below BracketMinK, whichever happens first; the result is the
// midpoint of the final bracket.
func (e *Engine) FindEquilibrium(parts []Participant) *float64 {
	lo, hi := e.cfg.TLow, e.cfg.THigh
	glo, _ := e.Evaluate(parts, lo)
	ghi, _ := e.Evaluate(parts, hi)
	if sameSign(glo.DeltaG, ghi.DeltaG) {
		slog.Debug("no equilibrium in range",
			"t_low", lo,
			"t_high", hi,
			"dg_low", glo.DeltaG,
			"dg_high", ghi.DeltaG,
		)
		return nil
	}

	for hi-lo >= e.cfg.BracketMinK {
		mid := (lo + hi) / 2
		gm, _ := e.Evaluate(parts, mid)
		if math.Abs(gm.DeltaG) < e.cfg.ToleranceJ {
			return &mid
		}
		if sameSign(glo.DeltaG, gm.DeltaG) {
			lo, glo = mid, gm
		} else {
			hi = mid
		}
	}
	teq := (lo + hi) / 2
	return &teq
}

func sameSign(a, b float64) bool {
	return (a >= 0) == (b >= 0)
}
