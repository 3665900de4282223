package selector

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/thermoflow/thermoflow/internal/phase"
	"github.com/thermoflow/thermoflow/internal/record"
)

// ScoreWeights weight the components of the selection score. The
// defaults are documented heuristics, not derived optima.
type ScoreWeights struct {
	RecordCount float64 // w1: favors fewer records
	Reliability float64 // w2: favors better reliability classes
	Transitions float64 // w3: favors transition-aligned boundaries
}

// Config holds the builder tunables.
type Config struct {
	// GapToleranceK is the widest gap (K) the widened tier bridges.
	GapToleranceK float64

	// TransitionToleranceK protects junctions near declared phase
	// transitions from being merged away.
	TransitionToleranceK float64

	// CoeffTolerance bounds the per-coefficient difference for two
	// records to count as coefficient-equivalent.
	CoeffTolerance float64

	// RelaxedTopN caps how many records the relaxed tier returns.
	RelaxedTopN int

	// DisableMerge turns the virtual-record optimization pass off.
	DisableMerge bool

	Weights ScoreWeights
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		GapToleranceK:        1.0,
		TransitionToleranceK: 10.0,
		CoeffTolerance:       1e-6,
		RelaxedTopN:          3,
		Weights: ScoreWeights{
			RecordCount: 0.5,
			Reliability: 0.3,
			Transitions: 0.2,
		},
	}
}

// ResolvedData is a compound's resolved, segment-ordered data.
type ResolvedData struct {
	Formula     string
	Range       record.TRange
	Segments    []record.Segment
	Status      record.CoverageStatus
	Transitions []phase.Transition
	Diagnostics []record.Diagnostic
	Score       float64
}

// Builder implements the three-tier selection strategy plus the
// virtual-record optimization pass. Stateless; safe for concurrent use.
type Builder struct {
	cfg      Config
	resolver *phase.Resolver
}

// NewBuilder creates a Builder, filling zero tunables from defaults.
func NewBuilder(resolver *phase.Resolver, cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.GapToleranceK <= 0 {
		cfg.GapToleranceK = def.GapToleranceK
	}
	if cfg.TransitionToleranceK <= 0 {
		cfg.TransitionToleranceK = def.TransitionToleranceK
	}
	if cfg.CoeffTolerance <= 0 {
		cfg.CoeffTolerance = def.CoeffTolerance
	}
	if cfg.RelaxedTopN <= 0 {
		cfg.RelaxedTopN = def.RelaxedTopN
	}
	if cfg.Weights == (ScoreWeights{}) {
		cfg.Weights = def.Weights
	}
	return &Builder{cfg: cfg, resolver: resolver}
}

// exactEps is the epsilon for "no gap" in the exact tier.
const exactEps = 1e-6

// Build selects records for the range and arranges them into segments.
func (b *Builder) Build(recs []*record.Record, rng record.TRange) (*ResolvedData, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("selector: empty record set")
	}
	formula := recs[0].Formula

	transitions, tdiags := b.resolver.DetectTransitions(recs)

	out := &ResolvedData{
		Formula:     formula,
		Range:       rng,
		Transitions: transitions,
		Diagnostics: tdiags,
	}

	chain, status := b.selectChain(recs, rng)
	out.Status = status
	if status == record.CoverageRelaxed {
		out.Diagnostics = append(out.Diagnostics, record.Warningf(record.DiagPartialCoverage,
			"relaxed selection for %s over %s: coverage may be partial", formula, rng))
	}

	out.Segments = b.segments(chain, rng)
	if !b.cfg.DisableMerge {
		out.Segments = b.mergePass(out.Segments, transitions)
	}
	out.Score = b.score(out.Segments, transitions, rng)

	slog.Debug("range build complete",
		"formula", formula,
		"range", rng.String(),
		"status", string(out.Status),
		"segments", len(out.Segments),
		"score", out.Score,
	)
	return out, nil
}

// selectChain attempts the exact, widened, and relaxed tiers in order.
func (b *Builder) selectChain(recs []*record.Record, rng record.TRange) ([]*record.Record, record.CoverageStatus) {
	if chain, ok := b.chainCover(recs, rng, exactEps, true); ok {
		return chain, record.CoverageExact
	}
	if chain, ok := b.chainCover(recs, rng, b.cfg.GapToleranceK, false); ok {
		return chain, record.CoverageWidened
	}
	return b.relaxed(recs, rng), record.CoverageRelaxed
}

// chainCover builds a left-to-right chain covering rng with gaps no
// wider than gapTol. With phaseStrict set, each record's declared phase
// must match the physically active phase over its contribution.
//
// Two greedy variants are built (prefer-reliability and prefer-span);
// when both succeed the selection score breaks the tie.
func (b *Builder) chainCover(recs []*record.Record, rng record.TRange, gapTol float64, phaseStrict bool) ([]*record.Record, bool) {
	var candidates [][]*record.Record
	for _, preferSpan := range []bool{false, true} {
		if chain, ok := b.greedyChain(recs, rng, gapTol, phaseStrict, preferSpan); ok {
			candidates = append(candidates, chain)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, false
	case 1:
		return candidates[0], true
	}
	if sameChain(candidates[0], candidates[1]) {
		return candidates[0], true
	}
	transitions, _ := b.resolver.DetectTransitions(recs)
	best := candidates[0]
	bestScore := b.score(b.segments(best, rng), transitions, rng)
	if s := b.score(b.segments(candidates[1], rng), transitions, rng); s > bestScore {
		best = candidates[1]
	}
	return best, true
}

func (b *Builder) greedyChain(recs []*record.Record, rng record.TRange, gapTol float64, phaseStrict bool, preferSpan bool) ([]*record.Record, bool) {
	mp, bp := knownTransitionPoints(recs)

	var chain []*record.Record
	cursor := rng.Min
	for cursor < rng.Max-exactEps {
		var pick *record.Record
		for _, r := range recs {
			if r.Tmin > cursor+gapTol || r.Tmax <= cursor {
				continue
			}
			if phaseStrict && !b.phaseMatches(r, mp, bp, cursor, rng) {
				continue
			}
			if pick == nil || better(r, pick, preferSpan) {
				pick = r
			}
		}
		if pick == nil {
			return nil, false
		}
		chain = append(chain, pick)
		cursor = pick.Tmax
	}
	return chain, true
}

// phaseMatches checks the record's declared phase against the active
// phase at the midpoint of its contribution to the range.
func (b *Builder) phaseMatches(r *record.Record, mp, bp *float64, cursor float64, rng record.TRange) bool {
	hi := r.Tmax
	if rng.Max < hi {
		hi = rng.Max
	}
	mid := (cursor + hi) / 2
	probe := *r
	if probe.MeltingPoint == nil {
		probe.MeltingPoint = mp
	}
	if probe.BoilingPoint == nil {
		probe.BoilingPoint = bp
	}
	return b.resolver.Resolve(&probe, mid) == r.Phase
}

// relaxed returns the best-effort top-N records by reliability, ordered
// by Tmin so downstream segment building stays coherent.
func (b *Builder) relaxed(recs []*record.Record, rng record.TRange) []*record.Record {
	sorted := make([]*record.Record, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := record.ReliabilityRank(sorted[i].ReliabilityClass), record.ReliabilityRank(sorted[j].ReliabilityClass)
		if ri != rj {
			return ri < rj
		}
		// Prefer wider overlap with the requested range.
		return overlapWidth(sorted[i], rng) > overlapWidth(sorted[j], rng)
	})
	n := b.cfg.RelaxedTopN
	if n > len(sorted) {
		n = len(sorted)
	}
	top := make([]*record.Record, n)
	copy(top, sorted[:n])
	sort.SliceStable(top, func(i, j int) bool { return top[i].Tmin < top[j].Tmin })
	return top
}

// segments arranges a chain into ordered, contiguous phase segments
// clipped to rng. Gaps between chain records are bridged by extending
// the earlier record's effective bound.
func (b *Builder) segments(chain []*record.Record, rng record.TRange) []record.Segment {
	if len(chain) == 0 {
		return nil
	}
	segs := make([]record.Segment, 0, len(chain))
	start := rng.Min
	for i, r := range chain {
		end := rng.Max
		if i+1 < len(chain) {
			end = r.Tmax
			if next := chain[i+1].Tmin; next > end {
				// Bridged gap: the earlier record extends to meet
				// the next one.
				end = next
			}
			if end > rng.Max {
				end = rng.Max
			}
		}
		if end <= start {
			continue
		}
		segs = append(segs, record.Segment{
			Phase:  r.Phase,
			TStart: start,
			TEnd:   end,
			Record: r,
		})
		start = end
	}
	return segs
}

// mergePass merges adjacent same-phase, coefficient-equivalent
// segments into virtual-record-backed segments. Junctions within the
// transition tolerance of a declared transition stay visible.
func (b *Builder) mergePass(segs []record.Segment, transitions []phase.Transition) []record.Segment {
	if len(segs) < 2 {
		return segs
	}
	out := []record.Segment{segs[0]}
	for _, next := range segs[1:] {
		cur := &out[len(out)-1]
		if !b.mergeable(cur, &next, transitions) {
			out = append(out, next)
			continue
		}
		merged := mergeRecords(cur.Record, next.Record)
		slog.Debug("merged records into virtual record",
			"formula", merged.Formula,
			"range", merged.Range().String(),
			"sources", len(merged.SourceRecords),
		)
		cur.TEnd = next.TEnd
		cur.Record = merged
	}
	return out
}

func (b *Builder) mergeable(a, next *record.Segment, transitions []phase.Transition) bool {
	if a.Phase != next.Phase {
		return false
	}
	ra, rb := a.Record, next.Record
	gap := rb.Tmin - ra.Tmax
	if gap > b.cfg.GapToleranceK {
		return false
	}
	if !record.CoeffsEqual(ra, rb, b.cfg.CoeffTolerance) {
		return false
	}
	junction := a.TEnd
	for _, tr := range transitions {
		d := tr.Temperature - junction
		if d < 0 {
			d = -d
		}
		if d <= b.cfg.TransitionToleranceK {
			return false
		}
	}
	return true
}

// mergeRecords builds a virtual record over two (possibly already
// virtual) records. Coefficients are shared, never averaged; the
// reference values come from the earlier record, matching the
// reference-record rules in the thermo package.
func mergeRecords(a, ab *record.Record) *record.Record {
	sources := flattenSources(a)
	sources = append(sources, flattenSources(ab)...)

	v := &record.Record{
		Formula:          a.Formula,
		Phase:            a.Phase,
		Tmin:             a.Tmin,
		Tmax:             ab.Tmax,
		H298:             a.H298,
		S298:             a.S298,
		Coeffs:           a.Coeffs,
		ReliabilityClass: worseClass(a.ReliabilityClass, ab.ReliabilityClass),
		MeltingPoint:     firstKnown(a.MeltingPoint, ab.MeltingPoint),
		BoilingPoint:     firstKnown(a.BoilingPoint, ab.BoilingPoint),
		IsVirtual:        true,
		SourceRecords:    sources,
	}
	return v
}

func flattenSources(r *record.Record) []*record.Record {
	if !r.IsVirtual {
		return []*record.Record{r}
	}
	return append([]*record.Record(nil), r.SourceRecords...)
}

// score implements the documented tie-break heuristic:
//
//	w1*(1/N) + w2*(avgReliability/3) + w3*transitionCoverage
func (b *Builder) score(segs []record.Segment, transitions []phase.Transition, rng record.TRange) float64 {
	if len(segs) == 0 {
		return 0
	}
	seen := map[*record.Record]bool{}
	var relSum float64
	for _, s := range segs {
		if !seen[s.Record] {
			seen[s.Record] = true
			relSum += record.ReliabilityScore(s.Record.ReliabilityClass)
		}
	}
	n := float64(len(seen))
	avgRel := relSum / n

	w := b.cfg.Weights
	return w.RecordCount*(1/n) + w.Reliability*(avgRel/3) + w.Transitions*b.transitionCoverage(segs, transitions, rng)
}

// transitionCoverage is the fraction of declared transitions inside the
// range that coincide with a segment boundary. No transitions in range
// counts as full coverage.
func (b *Builder) transitionCoverage(segs []record.Segment, transitions []phase.Transition, rng record.TRange) float64 {
	var inRange, covered int
	for _, tr := range transitions {
		if !rng.Contains(tr.Temperature) {
			continue
		}
		inRange++
		for _, s := range segs[1:] {
			d := s.TStart - tr.Temperature
			if d < 0 {
				d = -d
			}
			if d <= b.cfg.TransitionToleranceK {
				covered++
				break
			}
		}
	}
	if inRange == 0 {
		return 1
	}
	return float64(covered) / float64(inRange)
}

func better(r, pick *record.Record, preferSpan bool) bool {
	if preferSpan {
		if r.Tmax != pick.Tmax {
			return r.Tmax > pick.Tmax
		}
		return record.BetterReliability(r.ReliabilityClass, pick.ReliabilityClass)
	}
	if record.ReliabilityRank(r.ReliabilityClass) != record.ReliabilityRank(pick.ReliabilityClass) {
		return record.BetterReliability(r.ReliabilityClass, pick.ReliabilityClass)
	}
	return r.Tmax > pick.Tmax
}

func sameChain(a, b []*record.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func overlapWidth(r *record.Record, rng record.TRange) float64 {
	if !r.Range().Overlaps(rng) {
		return 0
	}
	return r.Range().Intersect(rng).Width()
}

func worseClass(a, b int) int {
	if record.BetterReliability(a, b) {
		return b
	}
	return a
}

func firstKnown(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
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
