package record

import "fmt"

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// DiagnosticCode categorizes diagnostics emitted across the pipeline.
type DiagnosticCode string

const (
	// DiagPartialCoverage: relaxed-tier selection was used, or gaps
	// remain inside the requested range.
	DiagPartialCoverage DiagnosticCode = "PARTIAL_COVERAGE"

	// DiagIntegrationPrecision: the adaptive integrator could not meet
	// the 1% relative error target.
	DiagIntegrationPrecision DiagnosticCode = "INTEGRATION_PRECISION"

	// DiagExtrapolation: a temperature was evaluated outside the
	// backing record's declared range.
	DiagExtrapolation DiagnosticCode = "EXTRAPOLATION"

	// DiagUnknownTransition: adjacent records change phase but no
	// melting/boiling data explains the boundary.
	DiagUnknownTransition DiagnosticCode = "UNKNOWN_TRANSITION"

	// DiagRangeExpanded: no record overlapped the requested range, so
	// the effective range was expanded to the union of available data.
	DiagRangeExpanded DiagnosticCode = "RANGE_EXPANDED"

	// DiagStageSkipped: a filter stage would have removed every
	// remaining record and was skipped instead.
	DiagStageSkipped DiagnosticCode = "STAGE_SKIPPED"

	// DiagReliability: low-reliability data backs part of the result.
	DiagReliability DiagnosticCode = "LOW_RELIABILITY"
)

// Diagnostic is a structured, non-fatal finding attached to results.
// Diagnostics accumulate and never interrupt computation.
type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Code     DiagnosticCode `json:"code"`
	Message  string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code, d.Message)
}

// Warningf builds a warning diagnostic.
func Warningf(code DiagnosticCode, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Infof builds an informational diagnostic.
func Infof(code DiagnosticCode, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityInfo, Code: code, Message: fmt.Sprintf(format, args...)}
}
