package filter

import (
	"log/slog"
	"sort"

	"github.com/thermoflow/thermoflow/internal/phase"
	"github.com/thermoflow/thermoflow/internal/record"
)

// Config holds the pipeline tunables.
type Config struct {
	// CoeffTolerance is the epsilon for coefficient-identical
	// duplicate detection.
	CoeffTolerance float64

	// RangeTolerance is the epsilon in kelvin for treating two record
	// ranges as covering the same sub-interval.
	RangeTolerance float64

	// GapTolerance is the minimum uncovered width in kelvin worth
	// flagging during coverage validation.
	GapTolerance float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		CoeffTolerance: 1e-6,
		RangeTolerance: 1e-6,
		GapTolerance:   1.0,
	}
}

// stage is one pipeline step. Stages remove records and document
// removals; they never add records.
type stage struct {
	name  string
	apply func(ctx *Context, recs []*record.Record) ([]*record.Record, []Removal)
}

// Pipeline runs the canonical stage sequence. Safe for concurrent use:
// all request state lives in the per-call Context.
type Pipeline struct {
	cfg      Config
	resolver *phase.Resolver
	stages   []stage
}

// New builds a pipeline with the canonical stage order.
func New(resolver *phase.Resolver, cfg Config) *Pipeline {
	if cfg.CoeffTolerance <= 0 {
		cfg.CoeffTolerance = DefaultConfig().CoeffTolerance
	}
	if cfg.RangeTolerance <= 0 {
		cfg.RangeTolerance = DefaultConfig().RangeTolerance
	}
	if cfg.GapTolerance <= 0 {
		cfg.GapTolerance = DefaultConfig().GapTolerance
	}
	p := &Pipeline{cfg: cfg, resolver: resolver}
	p.stages = []stage{
		{name: "dedup", apply: p.dedupStage},
		{name: "overlap", apply: p.overlapStage},
		{name: "phase", apply: p.phaseStage},
		{name: "reliability", apply: p.reliabilityStage},
		{name: "coverage", apply: p.coverageStage},
	}
	return p
}

// Execute runs all stages in order over the candidate set.
//
// Returns a *NoCoverageError when zero usable records remain; every
// other degradation is reported through Context diagnostics on a
// successful Result.
func (p *Pipeline) Execute(candidates []*record.Record, requested record.TRange, formula string) (*Result, error) {
	ctx := newContext(formula, requested)

	// Sort up front so stage behaviour and statistics are independent
	// of source ordering.
	recs := make([]*record.Record, len(candidates))
	copy(recs, candidates)
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Tmin != b.Tmin {
			return a.Tmin < b.Tmin
		}
		if a.Tmax != b.Tmax {
			return a.Tmax < b.Tmax
		}
		if a.Phase != b.Phase {
			return a.Phase < b.Phase
		}
		return record.ReliabilityRank(a.ReliabilityClass) < record.ReliabilityRank(b.ReliabilityClass)
	})

	for _, st := range p.stages {
		in := len(recs)
		kept, removals := st.apply(ctx, recs)

		stats := StageStats{Name: st.name, In: in, Out: len(kept), Removals: removals}
		if len(kept) == 0 && in > 0 {
			// Never silently empty the set: skip the stage instead.
			stats.Out = in
			stats.Removals = nil
			stats.Skipped = true
			ctx.warn(record.Warningf(record.DiagStageSkipped,
				"stage %q would remove all %d remaining records; skipped", st.name, in))
			slog.Warn("filter stage skipped",
				"formula", formula,
				"stage", st.name,
				"records", in,
			)
		} else {
			recs = kept
		}
		ctx.Stages = append(ctx.Stages, stats)

		slog.Debug("filter stage complete",
			"formula", formula,
			"stage", st.name,
			"in", stats.In,
			"out", stats.Out,
			"skipped", stats.Skipped,
		)
	}

	if len(recs) == 0 {
		return nil, &NoCoverageError{Formula: formula, RequestedRange: requested, Context: ctx}
	}
	return &Result{Records: recs, Context: ctx}, nil
}
