package filter

import (
	"errors"
	"fmt"

	"github.com/thermoflow/thermoflow/internal/record"
)

// NoCoverageError reports that the pipeline exhausted every stage with
// zero usable records for the compound. Fatal for that compound only;
// it is returned as a value, never panicked.
type NoCoverageError struct {
	Formula        string
	RequestedRange record.TRange
	Context        *Context
}

func (e *NoCoverageError) Error() string {
	return fmt.Sprintf("no usable records for %s over %s", e.Formula, e.RequestedRange)
}

// IsNoCoverage reports whether err is (or wraps) a NoCoverageError.
func IsNoCoverage(err error) bool {
	var nc *NoCoverageError
	return errors.As(err, &nc)
}
