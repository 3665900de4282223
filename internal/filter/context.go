package filter

import (
	"github.com/thermoflow/thermoflow/internal/record"
)

// Removal documents one dropped record with a human-readable reason.
type Removal struct {
	Record string `json:"record"`
	Reason string `json:"reason"`
}

// StageStats captures one stage's input/output counts and removals.
type StageStats struct {
	Name     string    `json:"name"`
	In       int       `json:"in"`
	Out      int       `json:"out"`
	Removals []Removal `json:"removals,omitempty"`
	Skipped  bool      `json:"skipped,omitempty"`
}

// Context carries the compound identity, requested and effective
// ranges, and per-stage statistics through the pipeline. It is mutated
// only by the stage currently executing and is read-only afterwards.
type Context struct {
	Formula        string              `json:"formula"`
	RequestedRange record.TRange       `json:"requested_range"`
	EffectiveRange record.TRange       `json:"effective_range"`
	Stages         []StageStats        `json:"stages"`
	Gaps           []record.TRange     `json:"gaps,omitempty"`
	Diagnostics    []record.Diagnostic `json:"diagnostics,omitempty"`
}

func newContext(formula string, requested record.TRange) *Context {
	return &Context{
		Formula:        formula,
		RequestedRange: requested,
		EffectiveRange: requested,
	}
}

func (c *Context) warn(d record.Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// Result is the pipeline output: the surviving records plus the full
// stage-by-stage context.
type Result struct {
	Records []*record.Record
	Context *Context
}
