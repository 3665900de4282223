package resolve

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/thermoflow/thermoflow/internal/record"
	"github.com/thermoflow/thermoflow/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource serves fixture records and counts searches.
type fakeSource struct {
	records  map[string][]*record.Record
	searches atomic.Int64
	err      error
}

func (f *fakeSource) Search(_ context.Context, formula string) ([]*record.Record, error) {
	f.searches.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.records[formula], nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CacheTTL = 0
	cfg.Tokens = NewFixedGenerator(
		"tok-1", "tok-2", "tok-3", "tok-4", "tok-5", "tok-6", "tok-7", "tok-8",
	)
	return cfg
}

func twoCompoundSource() *fakeSource {
	return &fakeSource{records: map[string][]*record.Record{
		"FeO": {testutil.NewRecord("FeO", 298.15, 1650,
			testutil.WithH298(-272.044), testutil.WithS298(60.75))},
		"MgO": {testutil.NewRecord("MgO", 298.15, 3100,
			testutil.WithH298(-601.6), testutil.WithS298(26.95))},
	}}
}

func TestResolve_Success(t *testing.T) {
	r := New(twoCompoundSource(), testConfig())

	c, err := r.Resolve(context.Background(), "FeO", record.TRange{Min: 400, Max: 900})
	require.NoError(t, err)

	assert.Equal(t, "tok-1", c.RequestID)
	assert.Equal(t, "FeO", c.Formula)
	assert.Equal(t, record.CoverageExact, c.Data.Status)
	require.NotNil(t, c.FilterContext)
	assert.Len(t, c.FilterContext.Stages, 5)
}

func TestResolve_NormalizesFormula(t *testing.T) {
	r := New(twoCompoundSource(), testConfig())

	c, err := r.Resolve(context.Background(), "  FeO(s) ", record.TRange{Min: 400, Max: 900})
	require.NoError(t, err)
	assert.Equal(t, "FeO", c.Formula)
}

func TestResolve_NoCandidates(t *testing.T) {
	r := New(twoCompoundSource(), testConfig())

	_, err := r.Resolve(context.Background(), "Al2O3", record.TRange{Min: 400, Max: 900})
	require.Error(t, err)
	assert.True(t, IsNoCandidates(err))

	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "Al2O3", re.Formula)
}

func TestResolve_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("db gone")
	r := New(&fakeSource{err: boom}, testConfig())

	_, err := r.Resolve(context.Background(), "FeO", record.TRange{Min: 400, Max: 900})
	require.ErrorIs(t, err, boom)
	assert.False(t, IsNoCandidates(err), "infra errors are not resolution errors")
}

func TestResolve_CacheHit(t *testing.T) {
	src := twoCompoundSource()
	cfg := testConfig()
	cfg.CacheTTL = time.Minute
	r := New(src, cfg)
	rng := record.TRange{Min: 400, Max: 900}

	first, err := r.Resolve(context.Background(), "FeO", rng)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "FeO", rng)
	require.NoError(t, err)

	assert.Same(t, first, second, "second call is served from cache")
	assert.Equal(t, int64(1), src.searches.Load())
}

func TestResolve_CacheKeyedByRange(t *testing.T) {
	src := twoCompoundSource()
	cfg := testConfig()
	cfg.CacheTTL = time.Minute
	r := New(src, cfg)

	_, err := r.Resolve(context.Background(), "FeO", record.TRange{Min: 400, Max: 900})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "FeO", record.TRange{Min: 500, Max: 900})
	require.NoError(t, err)

	assert.Equal(t, int64(2), src.searches.Load())
}

func TestTTLCache_Expiry(t *testing.T) {
	c := newTTLCache(time.Minute)
	clock := time.Now()
	c.now = func() time.Time { return clock }

	c.set("k", &Compound{Formula: "FeO"})
	_, ok := c.get("k")
	assert.True(t, ok)

	clock = clock.Add(2 * time.Minute)
	_, ok = c.get("k")
	assert.False(t, ok, "expired entries read as misses")
}

func TestSample(t *testing.T) {
	r := New(twoCompoundSource(), testConfig())

	s, err := r.Sample(context.Background(), "FeO", record.TRange{Min: 400, Max: 900}, 100)
	require.NoError(t, err)
	require.Len(t, s.Points, 6)
	assert.Equal(t, 400.0, s.Points[0].T)
	assert.Equal(t, 900.0, s.Points[len(s.Points)-1].T)
}

func TestSample_DoesNotMutateCachedCompound(t *testing.T) {
	// A record starting at 600 K forces relaxed coverage over
	// [400, 900] K, so every Sample raises evaluation diagnostics for
	// the extrapolated low end.
	src := &fakeSource{records: map[string][]*record.Record{
		"SiC": {testutil.NewRecord("SiC", 600, 900)},
	}}
	cfg := testConfig()
	cfg.CacheTTL = time.Minute
	r := New(src, cfg)
	rng := record.TRange{Min: 400, Max: 900}

	first, err := r.Sample(context.Background(), "SiC", rng, 100)
	require.NoError(t, err)
	compoundDiags := len(first.Compound.Diagnostics)
	assert.Greater(t, len(first.Diagnostics), compoundDiags,
		"series diagnostics include evaluation warnings beyond the compound's own")

	second, err := r.Sample(context.Background(), "SiC", rng, 100)
	require.NoError(t, err)
	assert.Same(t, first.Compound, second.Compound)
	assert.Len(t, second.Compound.Diagnostics, compoundDiags,
		"cached compound diagnostics must not grow across requests")
	assert.Len(t, second.Diagnostics, len(first.Diagnostics))
}

func TestSample_ConcurrentOnSharedCacheEntry(t *testing.T) {
	src := &fakeSource{records: map[string][]*record.Record{
		"SiC": {testutil.NewRecord("SiC", 600, 900)},
	}}
	cfg := testConfig()
	cfg.CacheTTL = time.Minute
	r := New(src, cfg)
	rng := record.TRange{Min: 400, Max: 900}

	c, err := r.Resolve(context.Background(), "SiC", rng)
	require.NoError(t, err)
	compoundDiags := len(c.Diagnostics)

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			_, err := r.Sample(context.Background(), "SiC", rng, 100)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, c.Diagnostics, compoundDiags)
}

func TestSampleTemperatures(t *testing.T) {
	temps := SampleTemperatures(record.TRange{Min: 300, Max: 500}, 50)
	assert.Equal(t, []float64{300, 350, 400, 450, 500}, temps)

	// Non-positive step picks a 10-point grid.
	temps = SampleTemperatures(record.TRange{Min: 300, Max: 500}, 0)
	assert.Len(t, temps, 10)
	assert.Equal(t, 300.0, temps[0])
	assert.Equal(t, 500.0, temps[len(temps)-1])
}

func TestSampleTemperatures_NonRepresentableStep(t *testing.T) {
	// 0.1 is not exactly representable; ten accumulated additions land
	// just below 1.0, which must not yield a near-duplicate final point.
	temps := SampleTemperatures(record.TRange{Min: 0, Max: 1}, 0.1)
	require.Len(t, temps, 11)
	assert.Equal(t, 1.0, temps[len(temps)-1])
	for i := 1; i < len(temps); i++ {
		assert.Greater(t, temps[i]-temps[i-1], 0.05,
			"grid points must stay a meaningful fraction of the step apart")
	}
}

func TestResolve_WideRecordBacksRangeBeyondPlaceholder(t *testing.T) {
	// A truncated zero-enthalpy row alongside a wide-coverage row: the
	// resolved segment must be backed by the wide record, and the
	// enthalpy at the reference temperature must come from its H298.
	src := &fakeSource{records: map[string][]*record.Record{
		"FeO": {
			testutil.NewRecord("FeO", 298.15, 760,
				testutil.WithH298(0), testutil.WithS298(0),
				testutil.WithReliability(0)),
			testutil.NewRecord("FeO", 298.15, 5000,
				testutil.WithH298(-265.053), testutil.WithS298(60.75),
				testutil.WithReliability(2)),
		},
	}}
	r := New(src, testConfig())

	c, err := r.Resolve(context.Background(), "FeO", record.TRange{Min: 773, Max: 973})
	require.NoError(t, err)
	assert.Equal(t, record.CoverageExact, c.Data.Status)
	require.Len(t, c.Data.Segments, 1)
	assert.Equal(t, 5000.0, c.Data.Segments[0].Record.Tmax)
	assert.Equal(t, -265.053, c.Data.Segments[0].Record.H298)

	p, _ := r.Engine().Evaluate(c.Data, 298.15)
	assert.InDelta(t, -265053.0, p.H, 1.0)
	assert.False(t, p.InRange)
}

func TestResolve_ThreePhaseWaterChain(t *testing.T) {
	mp, bp := 273.15, 373.15
	mk := func(phase record.Phase, tmin, tmax float64, coeffs [6]float64) *record.Record {
		return testutil.NewRecord("H2O", tmin, tmax,
			testutil.WithPhase(phase),
			testutil.WithCoeffs(coeffs),
			testutil.WithMeltingPoint(mp),
			testutil.WithBoilingPoint(bp))
	}
	src := &fakeSource{records: map[string][]*record.Record{
		"H2O": {
			mk(record.PhaseSolid, 250, mp, [6]float64{38, 0, 0, 0, 0, 0}),
			mk(record.PhaseLiquid, mp, bp, [6]float64{75, 0, 0, 0, 0, 0}),
			mk(record.PhaseGas, bp, 2500, [6]float64{33.5, 0, 0, 0, 0, 0}),
		},
	}}
	r := New(src, testConfig())

	c, err := r.Resolve(context.Background(), "H2O", record.TRange{Min: 250, Max: 400})
	require.NoError(t, err)
	assert.Equal(t, record.CoverageExact, c.Data.Status)

	require.Len(t, c.Data.Segments, 3)
	assert.Equal(t, record.PhaseSolid, c.Data.Segments[0].Phase)
	assert.Equal(t, mp, c.Data.Segments[0].TEnd)
	assert.Equal(t, record.PhaseLiquid, c.Data.Segments[1].Phase)
	assert.Equal(t, bp, c.Data.Segments[1].TEnd)
	assert.Equal(t, record.PhaseGas, c.Data.Segments[2].Phase)

	// Entropy rises with temperature inside every segment.
	probes := [][2]float64{{255, 270}, {280, 370}, {375, 400}}
	for _, pr := range probes {
		lo, _ := r.Engine().Evaluate(c.Data, pr[0])
		hi, _ := r.Engine().Evaluate(c.Data, pr[1])
		assert.Greater(t, hi.S, lo.S, "S must increase from %.2f to %.2f K", pr[0], pr[1])
	}
}

func TestResolveAll(t *testing.T) {
	r := New(twoCompoundSource(), testConfig())

	compounds, errs, err := r.ResolveAll(context.Background(),
		[]string{"FeO", "MgO", "Al2O3"}, record.TRange{Min: 400, Max: 900})
	require.NoError(t, err, "per-compound failures never abort the call")

	assert.Len(t, compounds, 2)
	assert.Contains(t, compounds, "FeO")
	assert.Contains(t, compounds, "MgO")

	require.Len(t, errs, 1)
	assert.True(t, IsNoCandidates(errs["Al2O3"]))
}

func TestResolveAll_InfraErrorAborts(t *testing.T) {
	boom := errors.New("db gone")
	r := New(&fakeSource{err: boom}, testConfig())

	_, _, err := r.ResolveAll(context.Background(),
		[]string{"FeO", "MgO"}, record.TRange{Min: 400, Max: 900})
	require.ErrorIs(t, err, boom)
}

func reactionSource() *fakeSource {
	mk := func(formula string, h, s float64) []*record.Record {
		return []*record.Record{testutil.NewRecord(formula, 298.15, 2500,
			testutil.WithH298(h), testutil.WithS298(s),
			testutil.WithCoeffs([6]float64{30, 0, 0, 0, 0, 0}))}
	}
	return &fakeSource{records: map[string][]*record.Record{
		"H2":  mk("H2", 0, 130.68),
		"O2":  mk("O2", 0, 205.15),
		"H2O": mk("H2O", -241.83, 188.84),
	}}
}

func TestReact(t *testing.T) {
	r := New(reactionSource(), testConfig())

	res, err := r.React(context.Background(),
		[]string{"H2", "O2"}, []string{"H2O"},
		record.TRange{Min: 400, Max: 800}, 100)
	require.NoError(t, err)

	assert.Equal(t, "2H2 + O2 -> 2H2O", res.BalancedEquation)
	assert.Equal(t, 1.0, res.Confidence)
	require.Len(t, res.Series, 5)

	// 2H2 + O2 -> 2H2O is strongly exothermic everywhere in range.
	for _, pt := range res.Series {
		assert.Negative(t, pt.DeltaH)
		assert.Negative(t, pt.DeltaG)
		assert.Positive(t, pt.LnK)
	}
	assert.Nil(t, res.EquilibriumTemperature, "no ΔG sign change in the bracket")
}

func TestReact_WaterFormationEnthalpy(t *testing.T) {
	// Liquid-water formation values: 2H2 + O2 -> 2H2O releases
	// 571.66 kJ/mol at the reference temperature.
	src := reactionSource()
	src.records["H2O"] = []*record.Record{testutil.NewRecord("H2O", 298.15, 2500,
		testutil.WithPhase(record.PhaseLiquid),
		testutil.WithH298(-285.83), testutil.WithS298(69.95),
		testutil.WithCoeffs([6]float64{30, 0, 0, 0, 0, 0}))}
	r := New(src, testConfig())

	res, err := r.React(context.Background(),
		[]string{"H2", "O2"}, []string{"H2O"},
		record.TRange{Min: 298.15, Max: 1000}, 100)
	require.NoError(t, err)

	require.NotEmpty(t, res.Series)
	assert.Equal(t, 298.15, res.Series[0].T)
	assert.InDelta(t, -571660.0, res.Series[0].DeltaH, 1.0)

	for i, pt := range res.Series {
		assert.Negative(t, pt.DeltaG, "ΔG at %.2f K", pt.T)
		if i > 0 {
			assert.Less(t, pt.LnK, res.Series[i-1].LnK,
				"ln K must fall with temperature for an exothermic reaction")
		}
	}
}

func TestReact_BalancingErrorPropagates(t *testing.T) {
	r := New(reactionSource(), testConfig())

	_, err := r.React(context.Background(),
		[]string{"H2"}, []string{"O2"},
		record.TRange{Min: 400, Max: 800}, 100)
	require.Error(t, err)
}

func TestReact_MissingParticipantDegrades(t *testing.T) {
	src := reactionSource()
	delete(src.records, "O2")
	r := New(src, testConfig())

	res, err := r.React(context.Background(),
		[]string{"H2", "O2"}, []string{"H2O"},
		record.TRange{Min: 400, Max: 800}, 100)
	require.NoError(t, err, "missing data degrades, it does not fail")

	assert.Equal(t, "2H2 + O2 -> 2H2O", res.BalancedEquation)
	assert.Empty(t, res.Series)
	assert.Nil(t, res.EquilibriumTemperature)

	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, record.DiagPartialCoverage, res.Diagnostics[0].Code)
	assert.Contains(t, res.Diagnostics[0].Message, "O2")
}

func TestReact_ConfidenceFromWeakestParticipant(t *testing.T) {
	src := reactionSource()
	// Replace H2O with a record that cannot chain from the range start,
	// forcing relaxed coverage for that participant.
	src.records["H2O"] = []*record.Record{testutil.NewRecord("H2O", 600, 2500,
		testutil.WithH298(-241.83), testutil.WithS298(188.84),
		testutil.WithCoeffs([6]float64{30, 0, 0, 0, 0, 0}))}
	r := New(src, testConfig())

	res, err := r.React(context.Background(),
		[]string{"H2", "O2"}, []string{"H2O"},
		record.TRange{Min: 400, Max: 800}, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.Confidence)
}
