// Package testutil provides record fixture builders shared by the
// pipeline test suites.
package testutil

import "github.com/thermoflow/thermoflow/internal/record"

// RecordOption mutates a fixture record during construction.
type RecordOption func(*record.Record)

// NewRecord builds a fixture record with sensible defaults: solid
// phase, reliability class 1, and a minimal non-zero coefficient set.
// Options override any field.
//
// The defaults keep test tables short - most cases only care about the
// range and one or two attributes.
func NewRecord(formula string, tmin, tmax float64, opts ...RecordOption) *record.Record {
	r := &record.Record{
		Formula:          formula,
		Phase:            record.PhaseSolid,
		Tmin:             tmin,
		Tmax:             tmax,
		H298:             -100.0,
		S298:             50.0,
		Coeffs:           [6]float64{25.0, 5.0, -1.0, 0, 0, 0},
		ReliabilityClass: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithPhase sets the record's phase.
func WithPhase(p record.Phase) RecordOption {
	return func(r *record.Record) { r.Phase = p }
}

// WithReliability sets the reliability class.
func WithReliability(class int) RecordOption {
	return func(r *record.Record) { r.ReliabilityClass = class }
}

// WithCoeffs sets all six Shomate coefficients.
func WithCoeffs(coeffs [6]float64) RecordOption {
	return func(r *record.Record) { r.Coeffs = coeffs }
}

// WithH298 sets the reference enthalpy of formation (kJ/mol).
func WithH298(h float64) RecordOption {
	return func(r *record.Record) { r.H298 = h }
}

// WithS298 sets the reference entropy (J/(mol*K)).
func WithS298(s float64) RecordOption {
	return func(r *record.Record) { r.S298 = s }
}

// WithMeltingPoint sets the melting point (K).
func WithMeltingPoint(t float64) RecordOption {
	return func(r *record.Record) { r.MeltingPoint = &t }
}

// WithBoilingPoint sets the boiling point (K).
func WithBoilingPoint(t float64) RecordOption {
	return func(r *record.Record) { r.BoilingPoint = &t }
}

// Ptr returns a pointer to v. Handy for optional fixture fields.
func Ptr(v float64) *float64 { return &v }
