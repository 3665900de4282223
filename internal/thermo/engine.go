// Package thermo evaluates temperature-dependent thermodynamic
// properties over a compound's resolved phase segments.
//
// Heat capacity comes straight from the Shomate polynomial; enthalpy
// and entropy integrate it numerically from the 298.15 K reference:
//
//	H(T) = H_ref + ∫[T_ref→T] Cp(T') dT'
//	S(T) = S_ref + ∫[T_ref→T] Cp(T')/T' dT'
//	G(T) = H(T) - T*S(T)
//
// REFERENCE-RECORD SELECTION:
// H_ref/S_ref are not always the active segment's own values. Source
// databases ship placeholder zeros for h298/s298 on many non-initial
// phase records; seeding the integral with those would inject a jump at
// every phase boundary. The rules in referenceRecord pick a record that
// keeps H and S numerically continuous instead.
package thermo

import (
	"log/slog"
	"math"

	"github.com/thermoflow/thermoflow/internal/chem"
	"github.com/thermoflow/thermoflow/internal/record"
	"github.com/thermoflow/thermoflow/internal/selector"
)

// TRef is the reference temperature in kelvin.
const TRef = 298.15

// Properties are the evaluated values at one temperature. H and G are
// J/mol; Cp and S are J/(mol*K). InRange reports whether T fell inside
// the backing record's declared [tmin, tmax].
type Properties struct {
	T       float64 `json:"t"`
	Cp      float64 `json:"cp"`
	H       float64 `json:"h"`
	S       float64 `json:"s"`
	G       float64 `json:"g"`
	InRange bool    `json:"in_range"`
}

// Config holds the engine tunables.
type Config struct {
	// RelTolerance is the integrator's relative error target.
	RelTolerance float64

	// MaxDepth bounds the adaptive integrator's recursion.
	MaxDepth int

	// ExtrapolationWarnK is how far outside a record's range a
	// temperature may lie before an extrapolation warning is raised.
	ExtrapolationWarnK float64

	// PlaceholderEps decides when stored h298/s298 count as trivial
	// placeholder zeros for the reference rules.
	PlaceholderEps float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		RelTolerance:       0.01,
		MaxDepth:           24,
		ExtrapolationWarnK: 50,
		PlaceholderEps:     1e-6,
	}
}

// Engine evaluates properties over resolved segments. Stateless; safe
// for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine, filling zero tunables from defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.RelTolerance <= 0 {
		cfg.RelTolerance = def.RelTolerance
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.ExtrapolationWarnK <= 0 {
		cfg.ExtrapolationWarnK = def.ExtrapolationWarnK
	}
	if cfg.PlaceholderEps <= 0 {
		cfg.PlaceholderEps = def.PlaceholderEps
	}
	return &Engine{cfg: cfg}
}

// Evaluate computes properties at one temperature from the compound's
// resolved data. Temperatures outside every segment are permitted:
// evaluation extrapolates from the nearest segment, flags InRange
// false, and warns past the extrapolation threshold.
func (e *Engine) Evaluate(data *selector.ResolvedData, t float64) (Properties, []record.Diagnostic) {
	idx := segmentIndex(data.Segments, t)
	return e.evaluateSegment(data, idx, t)
}

// EvaluateSeries computes properties at each temperature in temps,
// accumulating diagnostics across the whole series.
func (e *Engine) EvaluateSeries(data *selector.ResolvedData, temps []float64) ([]Properties, []record.Diagnostic) {
	out := make([]Properties, 0, len(temps))
	var diags []record.Diagnostic
	seen := map[record.DiagnosticCode]bool{}
	for _, t := range temps {
		p, d := e.Evaluate(data, t)
		out = append(out, p)
		// A long series repeats the same warnings; keep one per code.
		for _, di := range d {
			if !seen[di.Code] {
				seen[di.Code] = true
				diags = append(diags, di)
			}
		}
	}
	return out, diags
}

func (e *Engine) evaluateSegment(data *selector.ResolvedData, idx int, t float64) (Properties, []record.Diagnostic) {
	seg := data.Segments[idx]
	rec := seg.Record

	ref := e.referenceRecord(data.Segments, idx)
	hRef := ref.H298 * 1000 // kJ/mol -> J/mol
	sRef := ref.S298
	if chem.IsElemental(data.Formula) {
		// An element in its standard state has zero formation
		// enthalpy by definition. Entropy is NOT zeroed.
		hRef = 0
	}

	in := &integrator{relTol: e.cfg.RelTolerance, maxDepth: e.cfg.MaxDepth}
	cp := func(x float64) float64 { return Cp(rec.Coeffs, x) }
	h := hRef + in.integrate(cp, TRef, t)
	s := sRef + in.integrate(func(x float64) float64 { return Cp(rec.Coeffs, x) / x }, TRef, t)

	var diags []record.Diagnostic
	if in.degraded {
		diags = append(diags, record.Warningf(record.DiagIntegrationPrecision,
			"integration for %s at %.2fK did not meet the %.0f%% relative target; best estimate returned",
			data.Formula, t, e.cfg.RelTolerance*100))
	}

	inRange := rec.Range().Contains(t)
	if !inRange {
		excess := math.Max(rec.Tmin-t, t-rec.Tmax)
		if excess > e.cfg.ExtrapolationWarnK {
			diags = append(diags, record.Warningf(record.DiagExtrapolation,
				"T=%.2fK lies %.1fK outside %s", t, excess, rec.Key()))
			slog.Warn("far extrapolation",
				"formula", data.Formula,
				"t", t,
				"record", rec.Key(),
				"excess_k", excess,
			)
		}
	}

	return Properties{
		T:       t,
		Cp:      Cp(rec.Coeffs, t),
		H:       h,
		S:       s,
		G:       h - t*s,
		InRange: inRange,
	}, diags
}

// referenceRecord applies the continuity-preserving selection rules for
// the segment at index idx:
//
//	rule 1: the first segment is its own reference
//	rule 2: at a phase change, a record with non-trivial h298/s298 is
//	        its own reference
//	rule 3: at a phase change with placeholder zeros, walk back to the
//	        first segment of the previous phase run
//	rule 4: with no phase change, the head of the current contiguous
//	        phase run is the reference, so all same-phase segments
//	        share one H_ref/S_ref pair
func (e *Engine) referenceRecord(segs []record.Segment, idx int) *record.Record {
	if idx == 0 {
		return segs[0].Record
	}
	cur := segs[idx]
	if segs[idx-1].Phase != cur.Phase {
		if e.nonTrivialRef(cur.Record) {
			return cur.Record
		}
		// Placeholder zeros: anchor on the previous phase run's head.
		prev := idx - 1
		for prev > 0 && segs[prev-1].Phase == segs[prev].Phase {
			prev--
		}
		return e.referenceRecord(segs, prev)
	}
	// Same phase as the previous segment: share the run head's
	// reference.
	head := idx
	for head > 0 && segs[head-1].Phase == cur.Phase {
		head--
	}
	return e.referenceRecord(segs, head)
}

// nonTrivialRef reports whether the record's stored reference values
// are real data rather than placeholder zeros.
func (e *Engine) nonTrivialRef(r *record.Record) bool {
	return math.Abs(r.H298) > e.cfg.PlaceholderEps || math.Abs(r.S298) > e.cfg.PlaceholderEps
}

// segmentIndex locates the segment containing t; temperatures outside
// every segment clamp to the nearest one.
func segmentIndex(segs []record.Segment, t float64) int {
	for i, s := range segs {
		if t >= s.TStart && t < s.TEnd {
			return i
		}
	}
	if t < segs[0].TStart {
		return 0
	}
	return len(segs) - 1
}
