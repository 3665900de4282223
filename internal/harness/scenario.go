package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thermoflow/thermoflow/internal/record"
)

// Scenario is one declarative conformance case: a record fixture set,
// a resolution request, and the expected outcome.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Records is the fixture record set backing the in-memory source.
	// May be empty only when the scenario expects a no-candidates
	// failure.
	Records []RecordFixture `yaml:"records"`

	// Request is the resolution request to execute.
	Request Request `yaml:"request"`

	// Expect declares the outcome the scenario asserts.
	Expect Expect `yaml:"expect"`
}

// RecordFixture is the YAML shape of one fixture record.
type RecordFixture struct {
	Formula      string     `yaml:"formula"`
	Phase        string     `yaml:"phase"`
	Tmin         float64    `yaml:"tmin"`
	Tmax         float64    `yaml:"tmax"`
	H298         float64    `yaml:"h298"`
	S298         float64    `yaml:"s298"`
	Coeffs       [6]float64 `yaml:"coeffs"`
	Reliability  int        `yaml:"reliability"`
	MeltingPoint *float64   `yaml:"melting_point,omitempty"`
	BoilingPoint *float64   `yaml:"boiling_point,omitempty"`
}

// toRecord converts the fixture to a validated pipeline record.
func (f *RecordFixture) toRecord() (*record.Record, error) {
	r := &record.Record{
		Formula:          f.Formula,
		Phase:            record.ParsePhase(f.Phase),
		Tmin:             f.Tmin,
		Tmax:             f.Tmax,
		H298:             f.H298,
		S298:             f.S298,
		Coeffs:           f.Coeffs,
		ReliabilityClass: f.Reliability,
		MeltingPoint:     f.MeltingPoint,
		BoilingPoint:     f.BoilingPoint,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Request is the resolution request a scenario executes.
type Request struct {
	Formula string  `yaml:"formula"`
	Tmin    float64 `yaml:"tmin"`
	Tmax    float64 `yaml:"tmax"`
}

// Expect declares the outcome a scenario asserts. Error and the
// success fields are mutually exclusive.
type Expect struct {
	// Error is the expected failure: "no_candidates" or "no_coverage".
	// Empty means the request must succeed.
	Error string `yaml:"error,omitempty"`

	// Status is the expected coverage status: exact, widened, relaxed.
	Status string `yaml:"status,omitempty"`

	// Segments is the expected segment count.
	Segments int `yaml:"segments,omitempty"`

	// Diagnostics lists diagnostic codes that must appear (subset
	// match, order-independent).
	Diagnostics []string `yaml:"diagnostics,omitempty"`
}

// Expected error labels.
const (
	ExpectNoCandidates = "no_candidates"
	ExpectNoCoverage   = "no_coverage"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently weakening a
// scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Request.Formula == "" {
		return fmt.Errorf("request.formula is required")
	}
	if !(s.Request.Tmin < s.Request.Tmax) {
		return fmt.Errorf("request range [%.2f, %.2f] is empty", s.Request.Tmin, s.Request.Tmax)
	}
	if len(s.Records) == 0 && s.Expect.Error != ExpectNoCandidates {
		return fmt.Errorf("records list is required unless expect.error is %q", ExpectNoCandidates)
	}
	for i, f := range s.Records {
		if f.Formula == "" {
			return fmt.Errorf("records[%d]: formula is required", i)
		}
		if !(f.Tmin < f.Tmax) {
			return fmt.Errorf("records[%d]: range [%.2f, %.2f] is empty", i, f.Tmin, f.Tmax)
		}
	}
	switch s.Expect.Error {
	case "", ExpectNoCandidates, ExpectNoCoverage:
	default:
		return fmt.Errorf("expect.error: unknown value %q", s.Expect.Error)
	}
	if s.Expect.Error != "" && (s.Expect.Status != "" || s.Expect.Segments != 0) {
		return fmt.Errorf("expect: error and success fields are mutually exclusive")
	}
	if s.Expect.Error == "" && s.Expect.Status == "" {
		return fmt.Errorf("expect.status is required for success scenarios")
	}
	return nil
}
