package thermo

import "math"

// integrator is an adaptive Simpson integrator with a relative error
// target. It records whether any sub-interval hit the recursion depth
// limit without converging, so callers can raise a precision warning
// instead of failing.
type integrator struct {
	relTol   float64
	maxDepth int
	degraded bool
}

// integrate computes the definite integral of f over [a, b]. Reversed
// bounds negate the result. The degraded flag is sticky across calls.
func (in *integrator) integrate(f func(float64) float64, a, b float64) float64 {
	if a == b {
		return 0
	}
	sign := 1.0
	if a > b {
		a, b = b, a
		sign = -1
	}
	fa, fb := f(a), f(b)
	m := (a + b) / 2
	fm := f(m)
	whole := simpson(a, b, fa, fm, fb)

	// Absolute tolerance derived from the relative target; the floor
	// keeps near-zero integrals from demanding unattainable precision.
	tol := in.relTol * math.Abs(whole)
	if tol < 1e-9 {
		tol = 1e-9
	}
	return sign * in.adaptive(f, a, b, fa, fm, fb, whole, tol, in.maxDepth)
}

func (in *integrator) adaptive(f func(float64) float64, a, b, fa, fm, fb, whole, tol float64, depth int) float64 {
	m := (a + b) / 2
	lm := (a + m) / 2
	rm := (m + b) / 2
	flm, frm := f(lm), f(rm)
	left := simpson(a, m, fa, flm, fm)
	right := simpson(m, b, fm, frm, fb)
	delta := left + right - whole

	if math.Abs(delta) <= 15*tol {
		return left + right + delta/15
	}
	if depth <= 0 {
		in.degraded = true
		return left + right + delta/15
	}
	return in.adaptive(f, a, m, fa, flm, fm, left, tol/2, depth-1) +
		in.adaptive(f, m, b, fm, frm, fb, right, tol/2, depth-1)
}

func simpson(a, b, fa, fm, fb float64) float64 {
	return (b - a) / 6 * (fa + 4*fm + fb)
}
