package vanilla

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/nume-crypto/plonkify/internal/logger"
	"github.com/nume-crypto/plonkify/r1cs"
)

// PlonkifySimple is the V-Simple compiler (§4.2.3): for every R1CS
// constraint, A and B are each reduced to a single (var, coeff, const)
// triple with a naive left-fold of addition rows, C is fused into the
// multiplication row's selectors via the C-side optimisation whenever
// possible, and exactly one multiplication row is emitted per constraint.
// No memoisation, no balanced-tree folding: this is the shape-preserving
// baseline the other two vanilla compilers improve on.
//
// Grounded on original_source/plonkify/plonkify/src/vanilla/simple.rs.
func PlonkifySimple(f *r1cs.File) (*circuit.PlonkishCircuit, [][]fr.Element) {
	log := logger.Logger().With().Str("component", "vanilla.simple").Logger()
	numPub := int(f.Header.NumPublicInputs())
	log.Debug().Int("constraints", len(f.Constraints)).Int("pub_inputs", numPub).Msg("plonkify start")

	b := newBuilder(f.Witness, false)
	b.emitPublicInputRows(numPub)

	for _, constr := range f.Constraints {
		varA, coeffA, constA := lcSumLeftFold(b, constr.A)
		varB, coeffB, constB := lcSumLeftFold(b, constr.B)
		cTerms := lcSumCOpt(b, constr.C, varA, varB)
		var zero fr.Element
		b.mulConstraintCOpt(varA, coeffA, constA, varB, coeffB, constB, cTerms, zero)
	}

	c, witness := b.finish(numPub)
	log.Debug().Int("rows", c.NumConstraints).Msg("plonkify done")
	return c, witness
}
