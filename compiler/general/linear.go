package general

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/nume-crypto/plonkify/gate"
	"github.com/nume-crypto/plonkify/internal/logger"
	"github.com/nume-crypto/plonkify/r1cs"
)

// PlonkifyLinearOnly is the G-Linear-Only compiler (§4.4.2): G-Naive-Linear
// with V-Optimised's improvements generalised to an arbitrary gate --
// canonicalised-chunk memoisation and a balanced, capacity-ary addition
// tree instead of a left fold.
func PlonkifyLinearOnly(f *r1cs.File, rawGate *gate.CustomizedGates, gi *gate.GateInfo) (*circuit.PlonkishCircuit, [][]fr.Element) {
	log := logger.Logger().With().Str("component", "general.linear_only").Logger()
	numPub := int(f.Header.NumPublicInputs())
	log.Debug().Int("constraints", len(f.Constraints)).Int("pub_inputs", numPub).Msg("plonkify start")

	b := newBuilder(gi, f.Witness, true)
	b.emitPublicInputRows(numPub)

	for _, constr := range f.Constraints {
		aTerms, constA := splitConstant(constr.A)
		bTerms, constB := splitConstant(constr.B)
		varA, coeffA := b.foldTreeGeneralized(aTerms)
		varB, coeffB := b.foldTreeGeneralized(bTerms)

		freeTerms := b.lcFreeTermsTree(constr.C, varA, varB)
		var zero fr.Element
		b.mulRow(varA, coeffA, constA, varB, coeffB, constB, freeTerms, zero)
	}

	c, witness := b.finish(rawGate, numPub)
	log.Debug().Int("rows", c.NumConstraints).Msg("plonkify done")
	return c, witness
}

// lcFreeTermsTree is lcFreeTerms but folds any overflow free terms with
// the balanced, memoised tree fold instead of the naive left fold, so
// G-Linear-Only's C-side fusion benefits from the same sharing as A/B.
func (b *builder) lcFreeTermsTree(lc r1cs.LinearCombination, varA, varB int) []r1cs.Term {
	lc = lc.Normalize()
	var kept []r1cs.Term
	var free []r1cs.Term
	for _, t := range lc {
		if t.Var == 0 || t.Var == varA || t.Var == varB {
			kept = append(kept, t)
			continue
		}
		free = append(free, t)
	}
	if len(free) == 0 {
		return kept
	}
	sumVar, sumCoeff := b.foldTreeGeneralized(free)
	return append(kept, r1cs.Term{Var: sumVar, Coeff: sumCoeff})
}
