package reaction

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/thermoflow/thermoflow/internal/chem"
)

// BalancingError reports that no valid integer balance exists for the
// supplied compound set. Fatal for reaction queries.
type BalancingError struct {
	Equation string
	Reason   string
}

func (e *BalancingError) Error() string {
	return fmt.Sprintf("cannot balance %q: %s", e.Equation, e.Reason)
}

// IsBalancingError reports whether err is (or wraps) a BalancingError.
func IsBalancingError(err error) bool {
	var be *BalancingError
	return errors.As(err, &be)
}

// Balance solves the stoichiometric balance for the given reactant and
// product formulas. The homogeneous linear system over elemental
// composition (one equation per distinct element) is solved exactly
// with rational arithmetic, then normalized to the smallest positive
// integer coefficients.
//
// Underdetermined systems (more than one independent reaction among
// the species) and systems with no physically sensible non-trivial
// solution return a *BalancingError, never an approximate guess.
func Balance(reactants, products []string) (rcoeffs, pcoeffs []int, err error) {
	eq := sketchEquation(reactants, products)
	if len(reactants) == 0 || len(products) == 0 {
		return nil, nil, &BalancingError{Equation: eq, Reason: "both sides need at least one species"}
	}

	species := make([]chem.Composition, 0, len(reactants)+len(products))
	for _, f := range append(append([]string{}, reactants...), products...) {
		comp, perr := chem.Parse(f)
		if perr != nil {
			return nil, nil, &BalancingError{Equation: eq, Reason: perr.Error()}
		}
		species = append(species, comp)
	}

	elements := distinctElements(species)
	n := len(species)

	// A[e][s] = count of element e in species s, negated for products
	// so that A·x = 0 expresses conservation.
	rows := make([][]*big.Rat, len(elements))
	for i, el := range elements {
		rows[i] = make([]*big.Rat, n)
		for s, comp := range species {
			c := int64(comp[el])
			if s >= len(reactants) {
				c = -c
			}
			rows[i][s] = big.NewRat(c, 1)
		}
	}

	sol, rank := nullspaceVector(rows, n)
	free := n - rank
	switch {
	case free == 0:
		return nil, nil, &BalancingError{Equation: eq, Reason: "only the trivial all-zero solution exists"}
	case free > 1:
		return nil, nil, &BalancingError{Equation: eq, Reason: "underdetermined: species admit more than one independent reaction"}
	}

	ints, ok := smallestIntegers(sol)
	if !ok {
		return nil, nil, &BalancingError{Equation: eq, Reason: "no positive integer solution"}
	}
	return ints[:len(reactants)], ints[len(reactants):], nil
}

// FormatEquation renders a balanced equation, omitting unit
// coefficients: "2H2 + O2 -> 2H2O".
func FormatEquation(reactants, products []string, rcoeffs, pcoeffs []int) string {
	side := func(formulas []string, coeffs []int) string {
		terms := make([]string, len(formulas))
		for i, f := range formulas {
			if coeffs[i] == 1 {
				terms[i] = chem.Normalize(f)
			} else {
				terms[i] = fmt.Sprintf("%d%s", coeffs[i], chem.Normalize(f))
			}
		}
		return strings.Join(terms, " + ")
	}
	return side(reactants, rcoeffs) + " -> " + side(products, pcoeffs)
}

func sketchEquation(reactants, products []string) string {
	return strings.Join(reactants, " + ") + " -> " + strings.Join(products, " + ")
}

func distinctElements(species []chem.Composition) []string {
	set := map[string]bool{}
	for _, comp := range species {
		for el := range comp {
			set[el] = true
		}
	}
	out := make([]string, 0, len(set))
	for el := range set {
		out = append(out, el)
	}
	sort.Strings(out)
	return out
}

// nullspaceVector reduces the matrix to row-echelon form and, when the
// nullspace is one-dimensional, returns a spanning vector (the free
// variable fixed at 1). The returned rank is always valid; the vector
// is only meaningful when n-rank == 1.
func nullspaceVector(rows [][]*big.Rat, n int) ([]*big.Rat, int) {
	m := len(rows)
	pivotCol := make([]int, 0, m)
	r := 0
	for c := 0; c < n && r < m; c++ {
		// Find a pivot in column c.
		pr := -1
		for i := r; i < m; i++ {
			if rows[i][c].Sign() != 0 {
				pr = i
				break
			}
		}
		if pr < 0 {
			continue
		}
		rows[r], rows[pr] = rows[pr], rows[r]

		inv := new(big.Rat).Inv(rows[r][c])
		for j := c; j < n; j++ {
			rows[r][j] = new(big.Rat).Mul(rows[r][j], inv)
		}
		for i := 0; i < m; i++ {
			if i == r || rows[i][c].Sign() == 0 {
				continue
			}
			f := new(big.Rat).Set(rows[i][c])
			for j := c; j < n; j++ {
				rows[i][j] = new(big.Rat).Sub(rows[i][j], new(big.Rat).Mul(f, rows[r][j]))
			}
		}
		pivotCol = append(pivotCol, c)
		r++
	}
	rank := r

	if n-rank != 1 {
		return nil, rank
	}

	// Identify the single free column.
	isPivot := make([]bool, n)
	for _, c := range pivotCol {
		isPivot[c] = true
	}
	freeCol := -1
	for c := 0; c < n; c++ {
		if !isPivot[c] {
			freeCol = c
			break
		}
	}

	sol := make([]*big.Rat, n)
	for i := range sol {
		sol[i] = new(big.Rat)
	}
	sol[freeCol].SetInt64(1)
	for i, c := range pivotCol {
		// Row i: x_c + rows[i][freeCol]*x_free = 0.
		sol[c] = new(big.Rat).Neg(rows[i][freeCol])
	}
	return sol, rank
}

// smallestIntegers scales a rational vector to the smallest positive
// integer vector. Returns false when the entries do not share a sign or
// any entry is zero.
func smallestIntegers(sol []*big.Rat) ([]int, bool) {
	// All entries must be strictly one-signed; a mixed-sign or zero
	// solution has no physical reading as reaction coefficients.
	sign := 0
	for _, v := range sol {
		s := v.Sign()
		if s == 0 {
			return nil, false
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return nil, false
		}
	}

	lcm := big.NewInt(1)
	for _, v := range sol {
		lcm = lcmInt(lcm, v.Denom())
	}
	ints := make([]*big.Int, len(sol))
	for i, v := range sol {
		scaled := new(big.Rat).Mul(v, new(big.Rat).SetInt(lcm))
		ints[i] = new(big.Int).Abs(scaled.Num())
	}
	g := new(big.Int).Set(ints[0])
	for _, v := range ints[1:] {
		g.GCD(nil, nil, g, v)
	}
	out := make([]int, len(ints))
	for i, v := range ints {
		q := new(big.Int).Div(v, g)
		if !q.IsInt64() {
			return nil, false
		}
		out[i] = int(q.Int64())
	}
	return out, true
}

func lcmInt(a, b *big.Int) *big.Int {
	g := new(big.Int).GCD(nil, nil, a, b)
	return new(big.Int).Mul(a, new(big.Int).Div(b, g))
}
