package general

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/r1cs"
	"golang.org/x/exp/slices"
)

// VarPower is one (variable, power) factor of a polynomial monomial.
type VarPower struct {
	Var   int
	Power int
}

// degree is a monomial's total degree: the sum of its factors' powers.
func degree(monomial []VarPower) int {
	d := 0
	for _, vp := range monomial {
		d += vp.Power
	}
	return d
}

// PolyTerm is one coeff*monomial summand of a PolyConstraint. Monomial is
// sorted ascending by Var with no duplicate Var entries (equal vars are
// merged into one VarPower by summing their powers); an empty Monomial is
// the constraint's constant term.
type PolyTerm struct {
	Coeff    fr.Element
	Monomial []VarPower
}

// Degree is the term's total degree.
func (t PolyTerm) Degree() int { return degree(t.Monomial) }

// PolyConstraint asserts that the sum of its terms is zero.
type PolyConstraint []PolyTerm

func monomialKey(m []VarPower) string {
	b := make([]byte, 0, len(m)*2)
	for _, vp := range m {
		b = append(b, byte(vp.Var), byte(vp.Var>>8), byte(vp.Var>>16), byte(vp.Power))
	}
	return string(b)
}

// Normalize merges terms that share an identical monomial, drops
// zero-coefficient terms, and sorts the remaining terms by ascending
// degree then monomial key (so the constant term, if any, sorts first).
func (pc PolyConstraint) Normalize() PolyConstraint {
	sums := make(map[string]*PolyTerm)
	var order []string
	for _, t := range pc {
		key := monomialKey(t.Monomial)
		if e, ok := sums[key]; ok {
			e.Coeff.Add(&e.Coeff, &t.Coeff)
		} else {
			cp := t
			sums[key] = &cp
			order = append(order, key)
		}
	}
	out := make(PolyConstraint, 0, len(order))
	for _, k := range order {
		t := sums[k]
		if t.Coeff.IsZero() {
			continue
		}
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b PolyTerm) bool {
		if a.Degree() != b.Degree() {
			return a.Degree() < b.Degree()
		}
		return monomialKey(a.Monomial) < monomialKey(b.Monomial)
	})
	return out
}

func mergeMonomials(a, b []VarPower) []VarPower {
	powers := make(map[int]int, len(a)+len(b))
	var order []int
	for _, vp := range a {
		if _, ok := powers[vp.Var]; !ok {
			order = append(order, vp.Var)
		}
		powers[vp.Var] += vp.Power
	}
	for _, vp := range b {
		if _, ok := powers[vp.Var]; !ok {
			order = append(order, vp.Var)
		}
		powers[vp.Var] += vp.Power
	}
	slices.Sort(order)
	out := make([]VarPower, len(order))
	for i, v := range order {
		out[i] = VarPower{Var: v, Power: powers[v]}
	}
	return out
}

func lcToPolyTerms(lc r1cs.LinearCombination) []PolyTerm {
	lc = lc.Normalize()
	out := make([]PolyTerm, 0, len(lc))
	for _, t := range lc {
		if t.Var == 0 {
			out = append(out, PolyTerm{Coeff: t.Coeff})
			continue
		}
		out = append(out, PolyTerm{Coeff: t.Coeff, Monomial: []VarPower{{Var: t.Var, Power: 1}}})
	}
	return out
}

// toPolyConstraint expands one R1CS triple A*B-C=0 into the equivalent
// multivariate polynomial: every A-term times every B-term, minus every
// C-term, normalised.
func toPolyConstraint(c r1cs.Constraint) PolyConstraint {
	aTerms := lcToPolyTerms(c.A)
	bTerms := lcToPolyTerms(c.B)
	cTerms := lcToPolyTerms(c.C)

	var out PolyConstraint
	for _, a := range aTerms {
		for _, b := range bTerms {
			var coeff fr.Element
			coeff.Mul(&a.Coeff, &b.Coeff)
			out = append(out, PolyTerm{Coeff: coeff, Monomial: mergeMonomials(a.Monomial, b.Monomial)})
		}
	}
	for _, c := range cTerms {
		var neg fr.Element
		neg.Neg(&c.Coeff)
		out = append(out, PolyTerm{Coeff: neg, Monomial: c.Monomial})
	}
	return out.Normalize()
}

// evaluate computes the polynomial's value given a global witness vector.
func (pc PolyConstraint) evaluate(assignments []fr.Element) fr.Element {
	var res fr.Element
	for _, t := range pc {
		term := t.Coeff
		for _, vp := range t.Monomial {
			for p := 0; p < vp.Power; p++ {
				term.Mul(&term, &assignments[vp.Var])
			}
		}
		res.Add(&res, &term)
	}
	return res
}
