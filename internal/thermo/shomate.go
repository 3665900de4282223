package thermo

// Cp evaluates the Shomate heat-capacity polynomial at t kelvin, in
// J/(mol*K):
//
//	Cp(T) = f1 + f2*T/1000 + f3*1e5/T^2 + f4*T^2/1e6 + f5*1e3/T^3 + f6*1e-9*T^3
//
// This is the six-coefficient variant used by the record databases this
// engine consumes; f3 and f5 are inverse-power terms, so t must be
// positive.
func Cp(coeffs [6]float64, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return coeffs[0] +
		coeffs[1]*t/1000 +
		coeffs[2]*1e5/t2 +
		coeffs[3]*t2/1e6 +
		coeffs[4]*1e3/t3 +
		coeffs[5]*1e-9*t3
}
