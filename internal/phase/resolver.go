// Package phase decides which physical phase is active at a temperature
// and detects phase transitions across a compound's record set.
package phase

import (
	"log/slog"
	"math"
	"sort"

	"github.com/thermoflow/thermoflow/internal/record"
)

// TransitionType classifies a detected phase boundary.
type TransitionType string

const (
	TransitionMelting     TransitionType = "melting"
	TransitionBoiling     TransitionType = "boiling"
	TransitionSublimation TransitionType = "sublimation"
	// TransitionUnknown marks a phase change between adjacent records
	// that no melting/boiling datum explains. Reported with a warning
	// rather than failing the resolution.
	TransitionUnknown TransitionType = "unknown"
)

// Transition is a detected phase boundary at a specific temperature.
type Transition struct {
	Type        TransitionType
	Temperature float64
	From        record.Phase
	To          record.Phase
}

// Config holds the resolver tunables.
type Config struct {
	// BoundaryToleranceK is the max distance between a record boundary
	// and a known melting/boiling point for the boundary to be
	// attributed to that transition.
	BoundaryToleranceK float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{BoundaryToleranceK: 1.0}
}

// Resolver decides active phases from record phase tags and known
// transition temperatures. Resolver is stateless and safe for
// concurrent use.
type Resolver struct {
	cfg Config
}

// New creates a Resolver. A zero tolerance falls back to the default.
func New(cfg Config) *Resolver {
	if cfg.BoundaryToleranceK <= 0 {
		cfg.BoundaryToleranceK = DefaultConfig().BoundaryToleranceK
	}
	return &Resolver{cfg: cfg}
}

// Resolve returns the physically active phase for rec at temperature t.
//
// When the record carries melting/boiling points, they take precedence
// over the declared tag: below melting is solid, between melting and
// boiling is liquid, above boiling is gas. At an exact transition
// temperature the lower-temperature phase wins by convention. Aqueous
// and other-tagged records keep their tag - transition logic only
// orders the three thermal phases.
func (r *Resolver) Resolve(rec *record.Record, t float64) record.Phase {
	if rec.Phase == record.PhaseAqueous || rec.Phase == record.PhaseOther {
		return rec.Phase
	}
	melt, boil := rec.MeltingPoint, rec.BoilingPoint

	if melt != nil && t <= *melt {
		return record.PhaseSolid
	}
	if boil != nil {
		if t > *boil {
			return record.PhaseGas
		}
		// Below boiling. Without a melting point a solid-tagged record
		// stays solid - we cannot place the solid/liquid boundary.
		if melt == nil && rec.Phase == record.PhaseSolid {
			return record.PhaseSolid
		}
		return record.PhaseLiquid
	}
	if melt != nil {
		// Above melting with no boiling datum: liquid unless the
		// record itself claims gas.
		if rec.Phase == record.PhaseGas {
			return record.PhaseGas
		}
		return record.PhaseLiquid
	}
	// No transition data at all: the declared tag is all we have.
	return rec.Phase
}

// DetectTransitions scans a compound's records, sorted by Tmin, and
// emits a Transition wherever adjacent records differ in phase. The
// boundary temperature is attributed to a known melting/boiling point
// when one lies within the configured tolerance; otherwise the
// transition is typed unknown and a warning diagnostic is attached.
func (r *Resolver) DetectTransitions(records []*record.Record) ([]Transition, []record.Diagnostic) {
	if len(records) < 2 {
		return nil, nil
	}
	sorted := make([]*record.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Tmin < sorted[j].Tmin })

	var (
		transitions []Transition
		diags       []record.Diagnostic
	)
	for i := 0; i < len(sorted)-1; i++ {
		prev, next := sorted[i], sorted[i+1]
		if prev.Phase == next.Phase {
			continue
		}
		boundary := boundaryTemperature(prev, next)
		tr := Transition{
			Type:        r.classify(prev, next, boundary),
			Temperature: boundary,
			From:        prev.Phase,
			To:          next.Phase,
		}
		if tr.Type == TransitionUnknown {
			diags = append(diags, record.Warningf(record.DiagUnknownTransition,
				"phase change %s -> %s near %.2fK has no matching melting/boiling point", prev.Phase, next.Phase, boundary))
			slog.Warn("unclassified phase transition",
				"formula", prev.Formula,
				"from", prev.Phase,
				"to", next.Phase,
				"temperature", boundary,
			)
		}
		transitions = append(transitions, tr)
	}
	return transitions, diags
}

// classify attributes a boundary to melting, boiling, or sublimation
// when a known transition point sits within tolerance of it.
func (r *Resolver) classify(prev, next *record.Record, boundary float64) TransitionType {
	near := func(p *float64) bool {
		return p != nil && math.Abs(*p-boundary) <= r.cfg.BoundaryToleranceK
	}
	mp := firstKnown(prev.MeltingPoint, next.MeltingPoint)
	bp := firstKnown(prev.BoilingPoint, next.BoilingPoint)

	switch {
	case prev.Phase == record.PhaseSolid && next.Phase == record.PhaseGas:
		if near(mp) || near(bp) {
			return TransitionSublimation
		}
	case prev.Phase == record.PhaseSolid && next.Phase == record.PhaseLiquid:
		if near(mp) {
			return TransitionMelting
		}
	case prev.Phase == record.PhaseLiquid && next.Phase == record.PhaseGas:
		if near(bp) {
			return TransitionBoiling
		}
	default:
		// Reversed or exotic orderings (liquid->solid from overlapping
		// fits, aqueous involvement) still classify by proximity.
		if near(mp) {
			return TransitionMelting
		}
		if near(bp) {
			return TransitionBoiling
		}
	}
	return TransitionUnknown
}

// boundaryTemperature picks the boundary between two adjacent records:
// the midpoint of any gap or overlap between prev.Tmax and next.Tmin.
func boundaryTemperature(prev, next *record.Record) float64 {
	return (prev.Tmax + next.Tmin) / 2
}

func firstKnown(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
