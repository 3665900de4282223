package record

import (
	"fmt"
	"strings"
)

// Phase identifies the physical phase a record describes.
type Phase string

const (
	PhaseSolid   Phase = "solid"
	PhaseLiquid  Phase = "liquid"
	PhaseGas     Phase = "gas"
	PhaseAqueous Phase = "aqueous"
	PhaseOther   Phase = "other"
)

// ParsePhase maps common phase labels (including single-letter database
// tags) onto a Phase. Unknown labels map to PhaseOther rather than
// failing: a record with an odd phase tag is still usable data.
func ParsePhase(s string) Phase {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "sol", "solid", "cr", "crystal":
		return PhaseSolid
	case "l", "liq", "liquid":
		return PhaseLiquid
	case "g", "gas", "vapor", "vapour":
		return PhaseGas
	case "aq", "aqueous", "ao", "ai":
		return PhaseAqueous
	default:
		return PhaseOther
	}
}

// TRange is a closed temperature interval [Min, Max] in kelvin.
type TRange struct {
	Min float64
	Max float64
}

// Valid reports whether the interval is non-empty.
func (r TRange) Valid() bool { return r.Min < r.Max }

// Width returns Max - Min.
func (r TRange) Width() float64 { return r.Max - r.Min }

// Contains reports whether t lies inside the interval (inclusive).
func (r TRange) Contains(t float64) bool { return t >= r.Min && t <= r.Max }

// Overlaps reports whether the two intervals intersect.
func (r TRange) Overlaps(o TRange) bool { return r.Min <= o.Max && o.Min <= r.Max }

// Intersect returns the intersection of two ranges. The result is only
// meaningful when Overlaps(o) is true.
func (r TRange) Intersect(o TRange) TRange {
	out := r
	if o.Min > out.Min {
		out.Min = o.Min
	}
	if o.Max < out.Max {
		out.Max = o.Max
	}
	return out
}

// Union returns the smallest range covering both intervals.
func (r TRange) Union(o TRange) TRange {
	out := r
	if o.Min < out.Min {
		out.Min = o.Min
	}
	if o.Max > out.Max {
		out.Max = o.Max
	}
	return out
}

func (r TRange) String() string {
	return fmt.Sprintf("[%.2f, %.2f]K", r.Min, r.Max)
}

// Record is one thermodynamic data row: a Shomate coefficient set valid
// over [Tmin, Tmax] for one compound in one phase, plus the reference
// values H298 / S298 at 298.15 K.
//
// A Record with IsVirtual set is the result of merging two or more
// coefficient-equivalent, temperature-adjacent source records. Virtual
// records exist only inside a single request's computation and are never
// written back to a store.
type Record struct {
	Formula string
	Phase   Phase

	// Tmin and Tmax bound the fitted validity range in kelvin.
	Tmin float64
	Tmax float64

	// H298 is the enthalpy of formation at 298.15 K in kJ/mol.
	// S298 is the standard entropy at 298.15 K in J/(mol*K).
	// Either may be a zero-valued placeholder in source databases;
	// the reference-record rules in the thermo package compensate.
	H298 float64
	S298 float64

	// Coeffs holds the six Shomate coefficients f1..f6.
	Coeffs [6]float64

	// ReliabilityClass rates data quality: 1..9 ascending-is-worse,
	// 0 means unranked (sorts after 9). See ReliabilityRank.
	ReliabilityClass int

	// MeltingPoint and BoilingPoint are optional transition
	// temperatures in kelvin; nil when the source gives none.
	MeltingPoint *float64
	BoilingPoint *float64

	// Virtual-record fields. SourceRecords is ordered by Tmin and has
	// at least two entries when IsVirtual is set.
	IsVirtual     bool
	SourceRecords []*Record
}

// Validate checks structural invariants that every record must satisfy
// before it enters the pipeline.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Formula) == "" {
		return fmt.Errorf("record has empty formula")
	}
	if !(r.Tmin < r.Tmax) {
		return fmt.Errorf("record %s: invalid range tmin=%.2f tmax=%.2f", r.Formula, r.Tmin, r.Tmax)
	}
	if r.ReliabilityClass < 0 || r.ReliabilityClass > 9 {
		return fmt.Errorf("record %s: reliability class %d out of [0,9]", r.Formula, r.ReliabilityClass)
	}
	if r.IsVirtual && len(r.SourceRecords) < 2 {
		return fmt.Errorf("record %s: virtual record needs at least 2 sources, got %d", r.Formula, len(r.SourceRecords))
	}
	return nil
}

// Range returns the record's validity range as a TRange.
func (r *Record) Range() TRange { return TRange{Min: r.Tmin, Max: r.Tmax} }

// Key renders a short human-readable identity used in removal reasons
// and log lines.
func (r *Record) Key() string {
	tag := ""
	if r.IsVirtual {
		tag = " virtual"
	}
	return fmt.Sprintf("%s/%s %s%s", r.Formula, r.Phase, r.Range(), tag)
}

// CoeffsEqual reports whether all six Shomate coefficients of a and b
// agree within tol.
func CoeffsEqual(a, b *Record, tol float64) bool {
	for i := range a.Coeffs {
		d := a.Coeffs[i] - b.Coeffs[i]
		if d < -tol || d > tol {
			return false
		}
	}
	return true
}

// Segment is one phase segment of a resolved compound: a half-open
// temperature interval [TStart, TEnd) over which a single phase and a
// single backing record apply. A compound's resolved data is an ordered,
// non-overlapping, contiguous sequence of segments.
type Segment struct {
	Phase  Phase
	TStart float64
	TEnd   float64
	Record *Record
}

func (s Segment) String() string {
	return fmt.Sprintf("%s [%.2f, %.2f)K -> %s", s.Phase, s.TStart, s.TEnd, s.Record.Key())
}

// CoverageStatus describes how completely a resolved compound covers the
// requested temperature range.
type CoverageStatus string

const (
	// CoverageExact: the exact tier matched with no gaps.
	CoverageExact CoverageStatus = "exact"
	// CoverageWidened: minor gaps were bridged or phase constraints
	// relaxed at boundaries.
	CoverageWidened CoverageStatus = "widened"
	// CoverageRelaxed: best-effort selection; coverage may be partial
	// and downstream consumers should surface a caveat.
	CoverageRelaxed CoverageStatus = "relaxed"
)
