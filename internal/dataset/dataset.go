// Package dataset compiles CUE record datasets into database records.
//
// Datasets are CUE files declaring a named list of records. CUE
// validates structure and numeric constraints (tmin < tmax, exactly
// six coefficients, reliability class bounds) before anything reaches
// the store, so an import either loads clean data or fails with a
// positioned error.
package dataset

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/thermoflow/thermoflow/internal/record"
)

// schema constrains dataset files. Data files unify against it; any
// violation surfaces as a positioned compile error.
const schema = `
dataset: {
	name: string & !=""
	records: [...#Record]
}

#Record: {
	formula: string & !=""
	phase:   "solid" | "liquid" | "gas" | "aqueous" | "other"
	tmin:    number & >0
	tmax:    number & >tmin
	h298:    number | *0.0
	s298:    number | *0.0
	coeffs: [number, number, number, number, number, number]
	reliability:    int & >=0 & <=9 | *0
	melting_point?: number & >0
	boiling_point?: number & >0
}
`

// Dataset is a compiled record dataset.
type Dataset struct {
	Name    string
	Records []*record.Record
}

// CompileError is a dataset validation failure with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and compiles a dataset file.
func Load(path string) (*Dataset, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Compile(string(src), path)
}

// Compile parses CUE source into a Dataset, unifying it against the
// record schema. The filename is used for error positions only.
func Compile(src, filename string) (*Dataset, error) {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(schema, cue.Filename("schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	dataVal := ctx.CompileString(src, cue.Filename(filename))
	if err := dataVal.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schemaVal.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	root := unified.LookupPath(cue.ParsePath("dataset"))
	if !root.Exists() {
		return nil, &CompileError{Field: "dataset", Message: "dataset block is required"}
	}

	var raw struct {
		Name    string `json:"name"`
		Records []struct {
			Formula      string     `json:"formula"`
			Phase        string     `json:"phase"`
			Tmin         float64    `json:"tmin"`
			Tmax         float64    `json:"tmax"`
			H298         float64    `json:"h298"`
			S298         float64    `json:"s298"`
			Coeffs       [6]float64 `json:"coeffs"`
			Reliability  int        `json:"reliability"`
			MeltingPoint *float64   `json:"melting_point"`
			BoilingPoint *float64   `json:"boiling_point"`
		} `json:"records"`
	}
	if err := root.Decode(&raw); err != nil {
		return nil, formatCUEError(err)
	}
	if len(raw.Records) == 0 {
		return nil, &CompileError{Field: "records", Message: "at least one record is required"}
	}

	ds := &Dataset{Name: raw.Name}
	for _, rr := range raw.Records {
		rec := &record.Record{
			Formula:          rr.Formula,
			Phase:            record.ParsePhase(rr.Phase),
			Tmin:             rr.Tmin,
			Tmax:             rr.Tmax,
			H298:             rr.H298,
			S298:             rr.S298,
			Coeffs:           rr.Coeffs,
			ReliabilityClass: rr.Reliability,
			MeltingPoint:     rr.MeltingPoint,
			BoilingPoint:     rr.BoilingPoint,
		}
		if err := rec.Validate(); err != nil {
			return nil, &CompileError{Field: "records", Message: err.Error()}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}
