// Package chem parses chemical formulas into elemental compositions.
//
// Formulas arrive from users and databases in slightly different shapes:
// unicode subscripts ("H₂O"), hydrate dots ("CoSO4·7H2O"), trailing
// phase hints ("H2O(g)"). Normalize folds all of these onto the plain
// ASCII form before parsing, so "H₂O(g)" and "H2O" share one identity
// throughout the pipeline.
package chem

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Composition maps element symbols to their (possibly fractional after
// hydrate multiplication, but normally integer) atom counts.
type Composition map[string]int

// Equal reports whether two compositions contain identical elements
// with identical counts.
func (c Composition) Equal(o Composition) bool {
	if len(c) != len(o) {
		return false
	}
	for el, n := range c {
		if o[el] != n {
			return false
		}
	}
	return true
}

// Elements returns the number of distinct elements.
func (c Composition) Elements() int { return len(c) }

// phaseHintRe strips trailing phase annotations such as "(s)", "(l)",
// "(g)", "(aq)" that users commonly attach to formulas.
var phaseHintRe = regexp.MustCompile(`\((?:s|l|g|aq|cr)\)$`)

// Normalize canonicalizes a formula string: NFKC unicode normalization
// (folds subscript digits to ASCII), whitespace trimming, hydrate dot
// unification ('.' and '*' become the canonical middle dot), and phase
// hint removal.
func Normalize(formula string) string {
	s := norm.NFKC.String(strings.TrimSpace(formula))
	s = strings.ReplaceAll(s, " ", "")
	s = phaseHintRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "*", "·")
	// A '.' between formula units is a hydrate separator, but only when
	// followed by a digit or uppercase letter (avoid mangling nothing
	// else - formulas carry no other dots).
	s = strings.ReplaceAll(s, ".", "·")
	return s
}

// ParseError reports where parsing of a formula failed.
type ParseError struct {
	Formula string
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse formula %q at %d: %s", e.Formula, e.Pos, e.Message)
}

// Parse converts a (raw or normalized) formula into its elemental
// composition. Supports nested parentheses and hydrate notation:
//
//	Parse("Fe2(SO4)3")    -> {Fe:2, S:3, O:12}
//	Parse("CoSO4·7H2O")   -> {Co:1, S:1, O:11, H:14}
//	Parse("H₂O(g)")       -> {H:2, O:1}
func Parse(formula string) (Composition, error) {
	s := Normalize(formula)
	if s == "" {
		return nil, &ParseError{Formula: formula, Pos: 0, Message: "empty formula"}
	}

	total := Composition{}
	for _, part := range strings.Split(s, "·") {
		mult := 1
		i := 0
		for i < len(part) && part[i] >= '0' && part[i] <= '9' {
			i++
		}
		if i > 0 {
			// Leading multiplier of a hydrate unit, e.g. "7H2O".
			n, err := atoi(part[:i])
			if err != nil || n == 0 {
				return nil, &ParseError{Formula: formula, Pos: 0, Message: "invalid hydrate multiplier"}
			}
			mult = n
		}
		p := &parser{src: part, pos: i, formula: formula}
		comp, err := p.group(0)
		if err != nil {
			return nil, err
		}
		if p.pos != len(part) {
			return nil, &ParseError{Formula: formula, Pos: p.pos, Message: "unexpected character"}
		}
		if len(comp) == 0 {
			return nil, &ParseError{Formula: formula, Pos: p.pos, Message: "empty formula unit"}
		}
		for el, n := range comp {
			total[el] += n * mult
		}
	}
	return total, nil
}

// IsElemental reports whether the formula contains exactly one distinct
// element (e.g. Fe, O2, S8). Such compounds are elements in their
// standard state for the purpose of the enthalpy override.
func IsElemental(formula string) bool {
	comp, err := Parse(formula)
	if err != nil {
		return false
	}
	return comp.Elements() == 1
}

type parser struct {
	src     string
	pos     int
	formula string
}

// group parses a sequence of element/parenthesized terms until the end
// of input or a closing parenthesis at the given depth.
func (p *parser) group(depth int) (Composition, error) {
	comp := Composition{}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			p.pos++
			inner, err := p.group(depth + 1)
			if err != nil {
				return nil, err
			}
			if p.pos >= len(p.src) || p.src[p.pos] != ')' {
				return nil, &ParseError{Formula: p.formula, Pos: p.pos, Message: "unclosed parenthesis"}
			}
			p.pos++
			n := p.count()
			for el, k := range inner {
				comp[el] += k * n
			}

		case c == ')':
			if depth == 0 {
				return nil, &ParseError{Formula: p.formula, Pos: p.pos, Message: "unmatched ')'"}
			}
			return comp, nil

		case c >= 'A' && c <= 'Z':
			start := p.pos
			p.pos++
			for p.pos < len(p.src) && p.src[p.pos] >= 'a' && p.src[p.pos] <= 'z' {
				p.pos++
			}
			sym := p.src[start:p.pos]
			comp[sym] += p.count()

		default:
			return nil, &ParseError{Formula: p.formula, Pos: p.pos, Message: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	if depth > 0 {
		return nil, &ParseError{Formula: p.formula, Pos: p.pos, Message: "unclosed parenthesis"}
	}
	return comp, nil
}

// count parses an optional trailing integer, defaulting to 1.
func (p *parser) count() int {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 1
	}
	n, err := atoi(p.src[start:p.pos])
	if err != nil {
		return 1
	}
	return n
}

func atoi(s string) (int, error) {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		n = n*10 + int(s[i]-'0')
		if n > 1<<30 {
			return 0, fmt.Errorf("number too large: %q", s)
		}
	}
	return n, nil
}
