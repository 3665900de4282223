package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermoflow/thermoflow/internal/phase"
	"github.com/thermoflow/thermoflow/internal/record"
	"github.com/thermoflow/thermoflow/internal/testutil"
)

func newPipeline() *Pipeline {
	return New(phase.New(phase.DefaultConfig()), DefaultConfig())
}

func TestExecute_SingleRecordPassesThrough(t *testing.T) {
	p := newPipeline()
	recs := []*record.Record{testutil.NewRecord("FeO", 298.15, 1650)}

	res, err := p.Execute(recs, record.TRange{Min: 600, Max: 900}, "FeO")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	require.Len(t, res.Context.Stages, 5)
	for _, st := range res.Context.Stages {
		assert.Equal(t, 1, st.In, "stage %s", st.Name)
		assert.Equal(t, 1, st.Out, "stage %s", st.Name)
		assert.False(t, st.Skipped, "stage %s", st.Name)
	}
	assert.Empty(t, res.Context.Diagnostics)
	assert.Equal(t, res.Context.RequestedRange, res.Context.EffectiveRange)
}

func TestExecute_StageOrder(t *testing.T) {
	p := newPipeline()
	recs := []*record.Record{testutil.NewRecord("FeO", 298.15, 1650)}

	res, err := p.Execute(recs, record.TRange{Min: 600, Max: 900}, "FeO")
	require.NoError(t, err)

	var names []string
	for _, st := range res.Context.Stages {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"dedup", "overlap", "phase", "reliability", "coverage"}, names)
}

func TestExecute_Idempotent(t *testing.T) {
	// Running the pipeline over its own output changes nothing.
	p := newPipeline()
	recs := []*record.Record{
		testutil.NewRecord("NaCl", 298.15, 1073.15),
		testutil.NewRecord("NaCl", 298.15, 1073.15, testutil.WithReliability(2)),
		testutil.NewRecord("NaCl", 1073.15, 1738.15, testutil.WithPhase(record.PhaseLiquid)),
	}
	rng := record.TRange{Min: 300, Max: 1500}

	first, err := p.Execute(recs, rng, "NaCl")
	require.NoError(t, err)

	second, err := p.Execute(first.Records, rng, "NaCl")
	require.NoError(t, err)
	assert.Equal(t, first.Records, second.Records)
}

func TestExecute_EmptyCandidates(t *testing.T) {
	p := newPipeline()

	_, err := p.Execute(nil, record.TRange{Min: 300, Max: 500}, "FeO")
	require.Error(t, err)

	var nce *NoCoverageError
	require.ErrorAs(t, err, &nce)
	assert.Equal(t, "FeO", nce.Formula)
	assert.True(t, IsNoCoverage(err))
}

func TestDedup_KeepsBetterReliability(t *testing.T) {
	p := newPipeline()
	recs := []*record.Record{
		testutil.NewRecord("NaCl", 298.15, 1073.15, testutil.WithReliability(3)),
		testutil.NewRecord("NaCl", 298.15, 1073.15, testutil.WithReliability(1)),
	}

	res, err := p.Execute(recs, record.TRange{Min: 300, Max: 1000}, "NaCl")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Records[0].ReliabilityClass)

	dedup := res.Context.Stages[0]
	assert.Equal(t, 2, dedup.In)
	assert.Equal(t, 1, dedup.Out)
	require.Len(t, dedup.Removals, 1)
	assert.Contains(t, dedup.Removals[0].Reason, "duplicate")
}

func TestDedup_ClassZeroLosesToRanked(t *testing.T) {
	p := newPipeline()
	recs := []*record.Record{
		testutil.NewRecord("NaCl", 298.15, 1073.15, testutil.WithReliability(0)),
		testutil.NewRecord("NaCl", 298.15, 1073.15, testutil.WithReliability(9)),
	}

	res, err := p.Execute(recs, record.TRange{Min: 300, Max: 1000}, "NaCl")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 9, res.Records[0].ReliabilityClass)
}

func TestDedup_DifferentCoeffsNotDuplicates(t *testing.T) {
	p := newPipeline()
	recs := []*record.Record{
		testutil.NewRecord("NaCl", 298.15, 1073.15),
		testutil.NewRecord("NaCl", 298.15, 1073.15,
			testutil.WithReliability(2),
			testutil.WithCoeffs([6]float64{30, 5, -1, 0, 0, 0})),
	}

	res, err := p.Execute(recs, record.TRange{Min: 300, Max: 1000}, "NaCl")
	require.NoError(t, err)
	// Not duplicates; the reliability stage then drops the worse copy of
	// the identically-covered interval.
	reliability := res.Context.Stages[3]
	assert.Equal(t, 1, reliability.Out)
	assert.Equal(t, 1, res.Records[0].ReliabilityClass)
}

func TestOverlap_RemovesNonIntersecting(t *testing.T) {
	p := newPipeline()
	recs := []*record.Record{
		testutil.NewRecord("FeO", 298.15, 500),
		testutil.NewRecord("FeO", 600, 1650),
	}

	res, err := p.Execute(recs, record.TRange{Min: 700, Max: 900}, "FeO")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 600.0, res.Records[0].Tmin)

	overlap := res.Context.Stages[1]
	assert.Equal(t, 2, overlap.In)
	assert.Equal(t, 1, overlap.Out)
}

func TestOverlap_ExpandsWhenNothingIntersects(t *testing.T) {
	p := newPipeline()
	recs := []*record.Record{
		testutil.NewRecord("TiO2", 500, 900),
		testutil.NewRecord("TiO2", 900, 1100),
	}
	requested := record.TRange{Min: 1500, Max: 1800}

	res, err := p.Execute(recs, requested, "TiO2")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	assert.Equal(t, requested, res.Context.RequestedRange)
	assert.Equal(t, record.TRange{Min: 500, Max: 1100}, res.Context.EffectiveRange)

	require.NotEmpty(t, res.Context.Diagnostics)
	assert.Equal(t, record.DiagRangeExpanded, res.Context.Diagnostics[0].Code)
}

func TestPhase_RemovesMismatchOnlyWithCompetitor(t *testing.T) {
	p := newPipeline()
	mp := 1073.15
	recs := []*record.Record{
		testutil.NewRecord("NaCl", 298.15, 1073.15,
			testutil.WithMeltingPoint(mp)),
		// Gas-tagged record over the same solid-region range; physically
		// wrong below the melting point.
		testutil.NewRecord("NaCl", 298.15, 1073.15,
			testutil.WithPhase(record.PhaseGas),
			testutil.WithReliability(2),
			testutil.WithCoeffs([6]float64{40, 0, 0, 0, 0, 0})),
	}

	res, err := p.Execute(recs, record.TRange{Min: 300, Max: 1000}, "NaCl")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, record.PhaseSolid, res.Records[0].Phase)

	phaseStage := res.Context.Stages[2]
	assert.Equal(t, 1, phaseStage.Out)
	require.Len(t, phaseStage.Removals, 1)
	assert.Contains(t, phaseStage.Removals[0].Reason, "not active")
}

func TestPhase_SparseDataKept(t *testing.T) {
	// A lone mismatched record survives: no competitor covers its
	// midpoint, and dropping it would discard the only data.
	p := newPipeline()
	recs := []*record.Record{
		testutil.NewRecord("NaCl", 298.15, 1073.15,
			testutil.WithPhase(record.PhaseGas),
			testutil.WithMeltingPoint(1073.15)),
	}

	res, err := p.Execute(recs, record.TRange{Min: 300, Max: 1000}, "NaCl")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
}

func TestPhase_OddTaggedRecordsSurvive(t *testing.T) {
	// Gas- and aqueous-tagged records over the same solid-region range:
	// neither matches a thermal phase cleanly, and the stage must not
	// empty the candidate set.
	p := newPipeline()
	mp := 500.0
	recs := []*record.Record{
		testutil.NewRecord("X", 298.15, 1000,
			testutil.WithPhase(record.PhaseGas),
			testutil.WithMeltingPoint(mp)),
		testutil.NewRecord("X", 298.15, 1000,
			testutil.WithPhase(record.PhaseAqueous),
			testutil.WithReliability(2),
			testutil.WithCoeffs([6]float64{40, 0, 0, 0, 0, 0})),
	}

	res, err := p.Execute(recs, record.TRange{Min: 600, Max: 900}, "X")
	require.NoError(t, err)
	require.NotEmpty(t, res.Records)
}

func TestReliability_DropsRedundantWorseClass(t *testing.T) {
	p := newPipeline()
	recs := []*record.Record{
		testutil.NewRecord("FeO", 298.15, 1650),
		testutil.NewRecord("FeO", 250, 1700,
			testutil.WithReliability(4),
			testutil.WithCoeffs([6]float64{40, 0, 0, 0, 0, 0})),
	}

	// Both records cover the whole effective range; the intersections
	// are identical, so the worse class is redundant.
	res, err := p.Execute(recs, record.TRange{Min: 400, Max: 900}, "FeO")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Records[0].ReliabilityClass)
}

func TestReliability_DifferentIntervalsBothKept(t *testing.T) {
	p := newPipeline()
	recs := []*record.Record{
		testutil.NewRecord("MgO", 298.15, 800),
		testutil.NewRecord("MgO", 800, 1500, testutil.WithReliability(4)),
	}

	res, err := p.Execute(recs, record.TRange{Min: 400, Max: 1200}, "MgO")
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
}

func TestCoverage_FlagsGaps(t *testing.T) {
	p := newPipeline()
	recs := []*record.Record{
		testutil.NewRecord("X", 298.15, 500),
		testutil.NewRecord("X", 700, 1000),
	}

	res, err := p.Execute(recs, record.TRange{Min: 300, Max: 900}, "X")
	require.NoError(t, err)
	assert.Len(t, res.Records, 2, "coverage stage never removes records")

	require.Len(t, res.Context.Gaps, 1)
	assert.Equal(t, record.TRange{Min: 500, Max: 700}, res.Context.Gaps[0])

	var codes []record.DiagnosticCode
	for _, d := range res.Context.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, record.DiagPartialCoverage)
}

func TestExecute_DeterministicAcrossInputOrder(t *testing.T) {
	p := newPipeline()
	a := testutil.NewRecord("NaCl", 298.15, 1073.15)
	b := testutil.NewRecord("NaCl", 1073.15, 1738.15, testutil.WithPhase(record.PhaseLiquid))
	rng := record.TRange{Min: 300, Max: 1500}

	res1, err := p.Execute([]*record.Record{a, b}, rng, "NaCl")
	require.NoError(t, err)
	res2, err := p.Execute([]*record.Record{b, a}, rng, "NaCl")
	require.NoError(t, err)

	assert.Equal(t, res1.Records, res2.Records)
	assert.Equal(t, res1.Context.Stages, res2.Context.Stages)
}
