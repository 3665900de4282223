package resolve

import (
	"errors"
	"fmt"

	"github.com/thermoflow/thermoflow/internal/record"
)

// ErrorCode categorizes resolution failures.
type ErrorCode string

const (
	// ErrCodeNoCandidates: the record source returned nothing for the
	// formula. Fatal for that compound.
	ErrCodeNoCandidates ErrorCode = "NO_CANDIDATE_RECORDS"

	// ErrCodeNoCoverage: the filter pipeline exhausted all tiers with
	// zero usable records. Fatal for that compound.
	ErrCodeNoCoverage ErrorCode = "NO_COVERAGE"
)

// ResolutionError is a per-compound fatal error. It aborts only that
// compound's resolution; callers decide how the request degrades.
type ResolutionError struct {
	Code    ErrorCode
	Formula string
	Range   record.TRange
	Err     error // wrapped cause, may be nil
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s over %s: %v", e.Code, e.Formula, e.Range, e.Err)
	}
	return fmt.Sprintf("%s: %s over %s", e.Code, e.Formula, e.Range)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// IsNoCandidates reports whether err is a NO_CANDIDATE_RECORDS failure.
func IsNoCandidates(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Code == ErrCodeNoCandidates
}

// IsNoCoverage reports whether err is a NO_COVERAGE failure.
func IsNoCoverage(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Code == ErrCodeNoCoverage
}
