package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/thermoflow/thermoflow/internal/chem"
	"github.com/thermoflow/thermoflow/internal/filter"
	"github.com/thermoflow/thermoflow/internal/record"
	"github.com/thermoflow/thermoflow/internal/resolve"
)

// Result is the outcome of one scenario run: the resolved compound (or
// the failure), plus the deterministic trace.
type Result struct {
	Compound *resolve.Compound
	Err      error
	Trace    []string
}

// memSource is an in-memory record source keyed by normalized formula.
type memSource struct {
	records map[string][]*record.Record
}

func (m *memSource) Search(_ context.Context, formula string) ([]*record.Record, error) {
	return m.records[formula], nil
}

// Run executes a scenario against an in-memory source with fixed
// request tokens and the cache disabled, builds the trace, and checks
// the scenario's expectations. An expectation mismatch is returned as
// an error; the expected resolution failure itself is not.
func Run(s *Scenario) (*Result, error) {
	src := &memSource{records: map[string][]*record.Record{}}
	for i := range s.Records {
		r, err := s.Records[i].toRecord()
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		key := chem.Normalize(r.Formula)
		src.records[key] = append(src.records[key], r)
	}

	cfg := resolve.DefaultConfig()
	cfg.CacheTTL = 0
	cfg.Tokens = resolve.NewFixedGenerator("scenario-" + s.Name)
	resolver := resolve.New(src, cfg)

	formula := chem.Normalize(s.Request.Formula)
	rng := record.TRange{Min: s.Request.Tmin, Max: s.Request.Tmax}

	res := &Result{}
	res.Compound, res.Err = resolver.Resolve(context.Background(), s.Request.Formula, rng)
	res.Trace = buildTrace(s, formula, rng, len(src.records[formula]), res)

	if err := verifyExpect(s, res); err != nil {
		return res, err
	}
	return res, nil
}

// buildTrace renders the run as deterministic text lines. Everything
// here must be stable across runs: no durations, no tokens, no map
// iteration order.
func buildTrace(s *Scenario, formula string, rng record.TRange, candidates int, res *Result) []string {
	trace := []string{
		"scenario: " + s.Name,
		fmt.Sprintf("request: %s %s", formula, rng),
		fmt.Sprintf("records: %d", candidates),
	}

	if res.Err != nil {
		var re *resolve.ResolutionError
		if errors.As(res.Err, &re) {
			trace = append(trace, fmt.Sprintf("error: %s", re.Code))
		} else {
			trace = append(trace, fmt.Sprintf("error: %v", res.Err))
		}
		var nce *filter.NoCoverageError
		if errors.As(res.Err, &nce) && nce.Context != nil {
			trace = append(trace, stageLines(nce.Context)...)
		}
		return trace
	}

	c := res.Compound
	trace = append(trace, stageLines(c.FilterContext)...)
	if c.FilterContext.EffectiveRange != c.FilterContext.RequestedRange {
		trace = append(trace, fmt.Sprintf("effective: %s", c.FilterContext.EffectiveRange))
	}

	trace = append(trace,
		fmt.Sprintf("status: %s", c.Data.Status),
		fmt.Sprintf("segments: %d", len(c.Data.Segments)),
	)
	for i, seg := range c.Data.Segments {
		line := fmt.Sprintf("segment %d: %s [%.2f, %.2f]K class=%d",
			i+1, seg.Phase, seg.TStart, seg.TEnd, seg.Record.ReliabilityClass)
		if seg.Record.IsVirtual {
			line += fmt.Sprintf(" virtual(%d)", len(seg.Record.SourceRecords))
		}
		trace = append(trace, line)
	}

	trace = append(trace, fmt.Sprintf("transitions: %d", len(c.Data.Transitions)))
	for _, tr := range c.Data.Transitions {
		trace = append(trace, fmt.Sprintf("transition: %s @ %.2fK (%s -> %s)",
			tr.Type, tr.Temperature, tr.From, tr.To))
	}

	trace = append(trace, fmt.Sprintf("diagnostics: %d", len(c.Diagnostics)))
	for _, d := range c.Diagnostics {
		trace = append(trace, fmt.Sprintf("diagnostic: %s[%s]", d.Severity, d.Code))
	}
	return trace
}

func stageLines(ctx *filter.Context) []string {
	lines := make([]string, 0, len(ctx.Stages))
	for _, st := range ctx.Stages {
		line := fmt.Sprintf("stage %s: in=%d out=%d", st.Name, st.In, st.Out)
		if st.Skipped {
			line += " skipped"
		}
		lines = append(lines, line)
	}
	return lines
}

// verifyExpect checks the scenario's expectations against the run.
func verifyExpect(s *Scenario, res *Result) error {
	if s.Expect.Error != "" {
		switch s.Expect.Error {
		case ExpectNoCandidates:
			if !resolve.IsNoCandidates(res.Err) {
				return fmt.Errorf("expected no-candidates failure, got %v", res.Err)
			}
		case ExpectNoCoverage:
			if !resolve.IsNoCoverage(res.Err) {
				return fmt.Errorf("expected no-coverage failure, got %v", res.Err)
			}
		}
		return nil
	}

	if res.Err != nil {
		return fmt.Errorf("expected success, got %v", res.Err)
	}
	c := res.Compound
	if string(c.Data.Status) != s.Expect.Status {
		return fmt.Errorf("expected status %q, got %q", s.Expect.Status, c.Data.Status)
	}
	if s.Expect.Segments > 0 && len(c.Data.Segments) != s.Expect.Segments {
		return fmt.Errorf("expected %d segment(s), got %d", s.Expect.Segments, len(c.Data.Segments))
	}
	for _, want := range s.Expect.Diagnostics {
		found := false
		for _, d := range c.Diagnostics {
			if string(d.Code) == want {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("expected diagnostic %q, got %d diagnostic(s)", want, len(c.Diagnostics))
		}
	}
	return nil
}
