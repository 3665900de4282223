package filter

import (
	"fmt"
	"math"

	"github.com/thermoflow/thermoflow/internal/record"
)

// dedupStage collapses duplicate rows: same formula, phase, and range,
// with all six coefficients within tolerance. The better-reliability
// copy survives; its duplicate is documented and dropped.
func (p *Pipeline) dedupStage(ctx *Context, recs []*record.Record) ([]*record.Record, []Removal) {
	var (
		kept     []*record.Record
		removals []Removal
	)
	for _, r := range recs {
		dup := -1
		for i, k := range kept {
			if r.Phase == k.Phase &&
				math.Abs(r.Tmin-k.Tmin) <= p.cfg.RangeTolerance &&
				math.Abs(r.Tmax-k.Tmax) <= p.cfg.RangeTolerance &&
				record.CoeffsEqual(r, k, p.cfg.CoeffTolerance) {
				dup = i
				break
			}
		}
		if dup < 0 {
			kept = append(kept, r)
			continue
		}
		if record.BetterReliability(r.ReliabilityClass, kept[dup].ReliabilityClass) {
			removals = append(removals, Removal{
				Record: kept[dup].Key(),
				Reason: fmt.Sprintf("duplicate of %s with worse reliability class %d", r.Key(), kept[dup].ReliabilityClass),
			})
			kept[dup] = r
		} else {
			removals = append(removals, Removal{
				Record: r.Key(),
				Reason: fmt.Sprintf("duplicate of %s", kept[dup].Key()),
			})
		}
	}
	return kept, removals
}

// overlapStage keeps records whose range intersects the effective
// range. If none do, the effective range expands once to the union of
// every candidate's range ("ignore user limits, maximize coverage") and
// the filter retries against the expanded range.
func (p *Pipeline) overlapStage(ctx *Context, recs []*record.Record) ([]*record.Record, []Removal) {
	kept, removals := p.keepOverlapping(ctx.EffectiveRange, recs)
	if len(kept) > 0 || len(recs) == 0 {
		return kept, removals
	}

	expanded := recs[0].Range()
	for _, r := range recs[1:] {
		expanded = expanded.Union(r.Range())
	}
	ctx.EffectiveRange = expanded
	ctx.warn(record.Warningf(record.DiagRangeExpanded,
		"no record overlaps requested %s; effective range expanded to %s", ctx.RequestedRange, expanded))

	return p.keepOverlapping(expanded, recs)
}

func (p *Pipeline) keepOverlapping(rng record.TRange, recs []*record.Record) ([]*record.Record, []Removal) {
	var (
		kept     []*record.Record
		removals []Removal
	)
	for _, r := range recs {
		if r.Range().Overlaps(rng) {
			kept = append(kept, r)
		} else {
			removals = append(removals, Removal{
				Record: r.Key(),
				Reason: fmt.Sprintf("range %s does not intersect %s", r.Range(), rng),
			})
		}
	}
	return kept, removals
}

// phaseStage removes records whose declared phase is not physically
// active at the midpoint of their overlap with the effective range -
// but only where another competing record does match the active phase,
// so sparse data is never discarded on phase grounds alone.
func (p *Pipeline) phaseStage(ctx *Context, recs []*record.Record) ([]*record.Record, []Removal) {
	mp, bp := knownTransitionPoints(recs)

	var (
		kept     []*record.Record
		removals []Removal
	)
	for _, r := range recs {
		mid := midpoint(r.Range().Intersect(ctx.EffectiveRange))

		competitors := 0
		matchExists := false
		for _, o := range recs {
			if !o.Range().Contains(mid) {
				continue
			}
			competitors++
			if o.Phase == p.activePhase(o, mp, bp, mid) {
				matchExists = true
			}
		}
		if competitors < 2 {
			kept = append(kept, r)
			continue
		}

		active := p.activePhase(r, mp, bp, mid)
		if r.Phase == active || !matchExists {
			kept = append(kept, r)
			continue
		}
		removals = append(removals, Removal{
			Record: r.Key(),
			Reason: fmt.Sprintf("phase %s not active at %.2fK (expected %s)", r.Phase, mid, active),
		})
	}
	return kept, removals
}

// activePhase resolves the physically active phase at t, backfilling
// melting/boiling points from the whole candidate set when the record
// itself lacks them.
func (p *Pipeline) activePhase(r *record.Record, mp, bp *float64, t float64) record.Phase {
	probe := *r
	if probe.MeltingPoint == nil {
		probe.MeltingPoint = mp
	}
	if probe.BoilingPoint == nil {
		probe.BoilingPoint = bp
	}
	return p.resolver.Resolve(&probe, t)
}

// reliabilityStage keeps, within each group of records covering the
// same sub-interval of the effective range in the same phase, only the
// best reliability class.
func (p *Pipeline) reliabilityStage(ctx *Context, recs []*record.Record) ([]*record.Record, []Removal) {
	var (
		kept     []*record.Record
		removals []Removal
	)
	drop := make([]bool, len(recs))
	for i, r := range recs {
		if drop[i] {
			continue
		}
		ri := r.Range().Intersect(ctx.EffectiveRange)
		for j := i + 1; j < len(recs); j++ {
			o := recs[j]
			if drop[j] || o.Phase != r.Phase {
				continue
			}
			oi := o.Range().Intersect(ctx.EffectiveRange)
			if math.Abs(ri.Min-oi.Min) > p.cfg.RangeTolerance || math.Abs(ri.Max-oi.Max) > p.cfg.RangeTolerance {
				continue
			}
			// Same covered sub-interval, same phase: redundant pair.
			if record.BetterReliability(o.ReliabilityClass, r.ReliabilityClass) {
				drop[i] = true
				removals = append(removals, Removal{
					Record: r.Key(),
					Reason: fmt.Sprintf("reliability class %d loses to %s (class %d)", r.ReliabilityClass, o.Key(), o.ReliabilityClass),
				})
				break
			}
			drop[j] = true
			removals = append(removals, Removal{
				Record: o.Key(),
				Reason: fmt.Sprintf("reliability class %d loses to %s (class %d)", o.ReliabilityClass, r.Key(), r.ReliabilityClass),
			})
		}
	}
	for i, r := range recs {
		if !drop[i] {
			kept = append(kept, r)
		}
	}
	return kept, removals
}

// coverageStage flags uncovered sub-intervals of the effective range.
// It never removes records.
func (p *Pipeline) coverageStage(ctx *Context, recs []*record.Record) ([]*record.Record, []Removal) {
	gaps := uncoveredGaps(ctx.EffectiveRange, recs, p.cfg.GapTolerance)
	if len(gaps) > 0 {
		ctx.Gaps = gaps
		ctx.warn(record.Warningf(record.DiagPartialCoverage,
			"%d uncovered sub-interval(s) remain inside %s", len(gaps), ctx.EffectiveRange))
	}
	return recs, nil
}

// uncoveredGaps returns the sub-intervals of rng wider than tol that no
// record covers.
func uncoveredGaps(rng record.TRange, recs []*record.Record, tol float64) []record.TRange {
	var gaps []record.TRange
	cursor := rng.Min
	for {
		// Advance the cursor through every record that covers it.
		advanced := true
		for advanced {
			advanced = false
			for _, r := range recs {
				if r.Tmin <= cursor+tol && r.Tmax > cursor {
					cursor = r.Tmax
					advanced = true
				}
			}
		}
		if cursor >= rng.Max-tol {
			return gaps
		}
		// Gap starts at cursor; it ends at the nearest Tmin beyond it.
		next := rng.Max
		for _, r := range recs {
			if r.Tmin > cursor && r.Tmin < next {
				next = r.Tmin
			}
		}
		end := math.Min(next, rng.Max)
		if end-cursor > tol {
			gaps = append(gaps, record.TRange{Min: cursor, Max: end})
		}
		if next >= rng.Max {
			return gaps
		}
		cursor = next
	}
}

func knownTransitionPoints(recs []*record.Record) (mp, bp *float64) {
	for _, r := range recs {
		if mp == nil && r.MeltingPoint != nil {
			mp = r.MeltingPoint
		}
		if bp == nil && r.BoilingPoint != nil {
			bp = r.BoilingPoint
		}
	}
	return mp, bp
}

func midpoint(r record.TRange) float64 { return (r.Min + r.Max) / 2 }
