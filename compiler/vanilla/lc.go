package vanilla

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/r1cs"
)

// lcSumLeftFold reduces lc to a single (var, coeff, constant) triple by
// folding every non-constant term into an accumulator one at a time, left
// to right. This is V-Simple's baseline reduction: no memoisation, no
// balanced-tree pairing.
func lcSumLeftFold(b *builder, lc r1cs.LinearCombination) (int, fr.Element, fr.Element) {
	lc = lc.Normalize()
	var constant fr.Element
	sumVar := 0
	var sumCoeff fr.Element
	for _, t := range lc {
		if t.Var == 0 {
			constant = t.Coeff
			continue
		}
		sumVar, sumCoeff = b.addition(sumVar, sumCoeff, t.Var, t.Coeff)
	}
	return sumVar, sumCoeff, constant
}

// lcSumTreeFold reduces lc the same way lcSumLeftFold does, but pairs
// terms in a balanced binary tree instead of a left fold (§4.2.4.2):
// position i's "effective index" is fixed to the witness variable index
// originally occupying that slot. Starting with mask bit k=1 and doubling,
// adjacent surviving slots whose effective index agrees on the mask's
// bits are merged via an addition row; the loop stops once all but one
// slot has been folded away. Combined with builder.addition's
// memoisation, this both balances the add-tree's depth and maximises
// opportunities for two constraints to share a common subexpression.
func lcSumTreeFold(b *builder, lc r1cs.LinearCombination) (int, fr.Element, fr.Element) {
	lc = lc.Normalize()
	var constant fr.Element
	var vars []r1cs.Term
	for _, t := range lc {
		if t.Var == 0 {
			constant = t.Coeff
			continue
		}
		vars = append(vars, t)
	}
	if len(vars) == 0 {
		return 0, fr.Element{}, constant
	}

	ids := make([]int, len(vars))
	for i, t := range vars {
		ids[i] = t.Var
	}
	coeffs := make([]fr.Element, len(vars))
	for i, t := range vars {
		coeffs[i] = t.Coeff
	}
	alive := make([]bool, len(vars))
	for i := range alive {
		alive[i] = true
	}
	effIdx := make([]int, len(vars))
	for i, t := range vars {
		effIdx[i] = t.Var
	}

	if len(vars) == 1 {
		return ids[0], coeffs[0], constant
	}

	for k := 1; ; k++ {
		mask := ^((1 << uint(k)) - 1)
		lastIdx := -1
		additions := 0
		for i := range ids {
			if !alive[i] {
				continue
			}
			if lastIdx == -1 {
				lastIdx = i
				continue
			}
			if (effIdx[lastIdx] & mask) == (effIdx[i] & mask) {
				newVar, newCoeff := b.addition(ids[lastIdx], coeffs[lastIdx], ids[i], coeffs[i])
				ids[lastIdx] = newVar
				coeffs[lastIdx] = newCoeff
				alive[i] = false
				additions++
			} else {
				lastIdx = i
			}
		}
		aliveCount := 0
		for _, a := range alive {
			if a {
				aliveCount++
			}
		}
		if aliveCount == 1 {
			break
		}
	}

	for i, a := range alive {
		if a {
			return ids[i], coeffs[i], constant
		}
	}
	panic("vanilla: tree fold left no surviving term")
}

// lcSumCOpt filters lc down to the terms that are 0, varA, or varB (kept
// verbatim) plus a single folded term summarising every other ("free")
// variable, reduced via a left-fold addition chain. Used to fuse C's
// linear combination directly into a multiplication row's selectors
// (§4.2.2's C-side optimisation) instead of spending an addition row on it
// first.
func lcSumCOpt(b *builder, lc r1cs.LinearCombination, varA, varB int) []r1cs.Term {
	lc = lc.Normalize()
	var terms []r1cs.Term
	sumVar := 0
	var sumCoeff fr.Element
	for _, t := range lc {
		if t.Var == 0 || t.Var == varA || t.Var == varB {
			terms = append(terms, t)
			continue
		}
		sumVar, sumCoeff = b.addition(sumVar, sumCoeff, t.Var, t.Coeff)
	}
	terms = append(terms, r1cs.Term{Var: sumVar, Coeff: sumCoeff})
	return terms
}

// freeVarCount returns the number of lc entries whose variable is none of
// 0, varA, varB (capped at the given limit, since callers only need to
// know whether it is "at most one").
func freeVarCount(lc r1cs.LinearCombination, varA, varB, limit int) int {
	lc = lc.Normalize()
	n := 0
	for _, t := range lc {
		if t.Var != 0 && t.Var != varA && t.Var != varB {
			n++
			if n >= limit {
				break
			}
		}
	}
	return n
}
