package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			_, err = RunWithGolden(t, scenario)
			require.NoError(t, err)
		})
	}
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "single-record-window.yaml"))
	require.NoError(t, err)

	scenario.Expect.Status = "relaxed"
	_, err = Run(scenario)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected status")
}

func TestRun_SegmentCountMismatch(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "melting-boundary.yaml"))
	require.NoError(t, err)

	scenario.Expect.Segments = 3
	_, err = Run(scenario)
	require.Error(t, err)
	require.Contains(t, err.Error(), "segment")
}

func TestRun_MissingDiagnosticExpectation(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "single-record-window.yaml"))
	require.NoError(t, err)

	scenario.Expect.Diagnostics = []string{"RANGE_EXPANDED"}
	_, err = Run(scenario)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected diagnostic")
}

func TestRun_InvalidFixtureRecord(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad-fixture",
		Description: "fixture with inverted range",
		Records: []RecordFixture{
			{Formula: "FeO", Phase: "solid", Tmin: 900, Tmax: 600, Reliability: 1},
		},
		Request: Request{Formula: "FeO", Tmin: 300, Tmax: 500},
		Expect:  Expect{Status: "exact"},
	}
	_, err := Run(scenario)
	require.Error(t, err)
	require.Contains(t, err.Error(), "records[0]")
}
