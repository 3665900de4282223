// Package resolve orchestrates per-compound resolution: record search,
// candidate filtering, range building, and property evaluation - and
// composes resolved compounds into reaction results.
//
// The engine core is synchronous; the only concurrency lives here.
// ResolveAll fans out one goroutine per compound (resolution has no
// cross-compound dependency) and joins before any reaction
// composition. All request state is request-scoped; the optional TTL
// cache is the single shared structure and is populated atomically.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thermoflow/thermoflow/internal/chem"
	"github.com/thermoflow/thermoflow/internal/filter"
	"github.com/thermoflow/thermoflow/internal/phase"
	"github.com/thermoflow/thermoflow/internal/reaction"
	"github.com/thermoflow/thermoflow/internal/record"
	"github.com/thermoflow/thermoflow/internal/selector"
	"github.com/thermoflow/thermoflow/internal/thermo"
)

// RecordSource supplies raw candidate records for a formula. The
// SQLite store implements it in production; tests use fixtures.
// Implementations must be safe for concurrent use.
type RecordSource interface {
	Search(ctx context.Context, formula string) ([]*record.Record, error)
}

// Config aggregates the tunables of every pipeline component.
type Config struct {
	Phase    phase.Config
	Filter   filter.Config
	Selector selector.Config
	Thermo   thermo.Config
	Reaction reaction.Config

	// CacheTTL enables the read-through compound cache when positive.
	CacheTTL time.Duration

	// Tokens generates request tokens; defaults to UUIDv7.
	Tokens TokenGenerator
}

// DefaultConfig returns per-component defaults with a 300 s cache.
func DefaultConfig() Config {
	return Config{
		Phase:    phase.DefaultConfig(),
		Filter:   filter.DefaultConfig(),
		Selector: selector.DefaultConfig(),
		Thermo:   thermo.DefaultConfig(),
		Reaction: reaction.DefaultConfig(),
		CacheTTL: 300 * time.Second,
	}
}

// Compound is one compound's fully resolved data plus the filter
// context that produced it.
type Compound struct {
	RequestID     string
	Formula       string
	Data          *selector.ResolvedData
	FilterContext *filter.Context
	Diagnostics   []record.Diagnostic
}

// Series is a compound-data query result: properties sampled at the
// requested step. Diagnostics carries the compound's diagnostics plus
// any raised during evaluation; the cached *Compound is shared across
// requests and is never written to after Resolve returns it.
type Series struct {
	Compound    *Compound
	Points      []thermo.Properties
	Diagnostics []record.Diagnostic
}

// Resolver wires the pipeline components together.
type Resolver struct {
	source   RecordSource
	pipeline *filter.Pipeline
	builder  *selector.Builder
	engine   *thermo.Engine
	reactor  *reaction.Engine
	cache    *ttlCache
	tokens   TokenGenerator
}

// New creates a Resolver over the given record source.
func New(source RecordSource, cfg Config) *Resolver {
	pr := phase.New(cfg.Phase)
	te := thermo.NewEngine(cfg.Thermo)
	r := &Resolver{
		source:   source,
		pipeline: filter.New(pr, cfg.Filter),
		builder:  selector.NewBuilder(pr, cfg.Selector),
		engine:   te,
		reactor:  reaction.NewEngine(te, cfg.Reaction),
		tokens:   cfg.Tokens,
	}
	if r.tokens == nil {
		r.tokens = UUIDv7Generator{}
	}
	if cfg.CacheTTL > 0 {
		r.cache = newTTLCache(cfg.CacheTTL)
	}
	return r
}

// Engine exposes the property engine for callers that evaluate
// additional temperatures over an already-resolved compound.
func (r *Resolver) Engine() *thermo.Engine { return r.engine }

// Resolve runs search -> filter -> range build for one compound.
//
// Fatal conditions return a *ResolutionError; every non-fatal finding
// lands in the compound's diagnostics.
func (r *Resolver) Resolve(ctx context.Context, formula string, rng record.TRange) (*Compound, error) {
	norm := chem.Normalize(formula)
	key := cacheKey(norm, rng)
	if r.cache != nil {
		if c, ok := r.cache.get(key); ok {
			slog.Debug("compound cache hit", "formula", norm, "range", rng.String())
			return c, nil
		}
	}

	reqID := r.tokens.Generate()
	log := slog.With("request_id", reqID, "formula", norm)
	log.Info("resolving compound", "range", rng.String())

	candidates, err := r.source.Search(ctx, norm)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		log.Warn("no candidate records")
		return nil, &ResolutionError{Code: ErrCodeNoCandidates, Formula: norm, Range: rng}
	}

	fres, err := r.pipeline.Execute(candidates, rng, norm)
	if err != nil {
		log.Warn("filter pipeline exhausted", "error", err)
		return nil, &ResolutionError{Code: ErrCodeNoCoverage, Formula: norm, Range: rng, Err: err}
	}

	data, err := r.builder.Build(fres.Records, fres.Context.EffectiveRange)
	if err != nil {
		return nil, &ResolutionError{Code: ErrCodeNoCoverage, Formula: norm, Range: rng, Err: err}
	}

	c := &Compound{
		RequestID:     reqID,
		Formula:       norm,
		Data:          data,
		FilterContext: fres.Context,
		Diagnostics:   append(append([]record.Diagnostic{}, fres.Context.Diagnostics...), data.Diagnostics...),
	}
	log.Info("compound resolved",
		"status", string(data.Status),
		"segments", len(data.Segments),
		"diagnostics", len(c.Diagnostics),
	)

	if r.cache != nil {
		r.cache.set(key, c)
	}
	return c, nil
}

// Sample resolves a compound and evaluates its properties at the given
// step across the effective range.
func (r *Resolver) Sample(ctx context.Context, formula string, rng record.TRange, step float64) (*Series, error) {
	c, err := r.Resolve(ctx, formula, rng)
	if err != nil {
		return nil, err
	}
	temps := SampleTemperatures(c.Data.Range, step)
	points, diags := r.engine.EvaluateSeries(c.Data, temps)
	all := make([]record.Diagnostic, 0, len(c.Diagnostics)+len(diags))
	all = append(append(all, c.Diagnostics...), diags...)
	return &Series{Compound: c, Points: points, Diagnostics: all}, nil
}

// ResolveAll resolves several compounds concurrently, one worker per
// compound, and joins before returning. Per-compound failures land in
// the errs map; only infrastructure failures (source I/O, cancelled
// context) abort the whole call.
func (r *Resolver) ResolveAll(ctx context.Context, formulas []string, rng record.TRange) (map[string]*Compound, map[string]error, error) {
	var mu sync.Mutex
	compounds := make(map[string]*Compound, len(formulas))
	errs := make(map[string]error)

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range formulas {
		f := f
		g.Go(func() error {
			c, err := r.Resolve(gctx, f, rng)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var re *ResolutionError
				if errors.As(err, &re) {
					errs[chem.Normalize(f)] = err
					return nil
				}
				return err
			}
			compounds[c.Formula] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return compounds, errs, nil
}

// React balances the equation, resolves every participant, and
// composes the reaction series plus equilibrium temperature.
//
// A BalancingError propagates - without coefficients there is nothing
// to compute. A participant that fails resolution does not fail the
// request: the result carries a "missing data" diagnostic and an empty
// series instead.
func (r *Resolver) React(ctx context.Context, reactants, products []string, rng record.TRange, step float64) (*reaction.Result, error) {
	rc, pc, err := reaction.Balance(reactants, products)
	if err != nil {
		return nil, err
	}
	res := &reaction.Result{
		BalancedEquation: reaction.FormatEquation(reactants, products, rc, pc),
	}

	formulas := append(append([]string{}, reactants...), products...)
	compounds, cerrs, err := r.ResolveAll(ctx, formulas, rng)
	if err != nil {
		return nil, err
	}
	if len(cerrs) > 0 {
		for f, cerr := range cerrs {
			res.Diagnostics = append(res.Diagnostics, record.Warningf(record.DiagPartialCoverage,
				"missing data for %s: %v", f, cerr))
		}
		slog.Warn("reaction degraded: missing participant data",
			"equation", res.BalancedEquation,
			"missing", len(cerrs),
		)
		return res, nil
	}

	parts := make([]reaction.Participant, 0, len(formulas))
	for i, f := range reactants {
		parts = append(parts, participant(compounds, f, -float64(rc[i])))
	}
	for i, f := range products {
		parts = append(parts, participant(compounds, f, float64(pc[i])))
	}
	for _, p := range parts {
		res.Diagnostics = append(res.Diagnostics, compounds[p.Formula].Diagnostics...)
	}

	temps := SampleTemperatures(rng, step)
	series, diags := r.reactor.Series(parts, temps)
	res.Series = series
	res.Diagnostics = append(res.Diagnostics, diags...)
	res.EquilibriumTemperature = r.reactor.FindEquilibrium(parts)
	res.Confidence = confidence(parts)
	return res, nil
}

func participant(compounds map[string]*Compound, formula string, coeff float64) reaction.Participant {
	norm := chem.Normalize(formula)
	return reaction.Participant{
		Formula:     norm,
		Coefficient: coeff,
		Data:        compounds[norm].Data,
	}
}

// confidence grades the reaction result by its weakest participant's
// coverage status: exact 1.0, widened 0.8, relaxed 0.5.
func confidence(parts []reaction.Participant) float64 {
	conf := 1.0
	for _, p := range parts {
		var c float64
		switch p.Data.Status {
		case record.CoverageExact:
			c = 1.0
		case record.CoverageWidened:
			c = 0.8
		default:
			c = 0.5
		}
		if c < conf {
			conf = c
		}
	}
	return conf
}

// SampleTemperatures lays a uniform grid of the given step across the
// range, always including both endpoints. A non-positive step yields a
// 10-point grid.
func SampleTemperatures(rng record.TRange, step float64) []float64 {
	if step <= 0 {
		step = rng.Width() / 9
	}
	// Points are computed as Min + i*step rather than accumulated, so
	// rounding cannot land a near-duplicate just below Max.
	var temps []float64
	for i := 0; ; i++ {
		t := rng.Min + float64(i)*step
		if t >= rng.Max-step*1e-9 {
			break
		}
		temps = append(temps, t)
	}
	return append(temps, rng.Max)
}
