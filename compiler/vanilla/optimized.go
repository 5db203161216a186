package vanilla

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/nume-crypto/plonkify/internal/logger"
	"github.com/nume-crypto/plonkify/r1cs"
)

// PlonkifyOptimised is the V-Optimised compiler (§4.2.4): A and B are
// reduced with the memoised, balanced-tree addition fold (lcSumTreeFold),
// and C is only spent an extra reduction row on if it carries two or more
// free variables (anything besides the constant column, varA, and varB) —
// otherwise it is fused straight into the multiplication row.
//
// Grounded on original_source/plonkify/plonkify/src/vanilla/optimized.rs.
func PlonkifyOptimised(f *r1cs.File) (*circuit.PlonkishCircuit, [][]fr.Element) {
	log := logger.Logger().With().Str("component", "vanilla.optimized").Logger()
	numPub := int(f.Header.NumPublicInputs())
	log.Debug().Int("constraints", len(f.Constraints)).Int("pub_inputs", numPub).Msg("plonkify start")

	b := newBuilder(f.Witness, true)
	b.emitPublicInputRows(numPub)

	for _, constr := range f.Constraints {
		varA, coeffA, constA := lcSumTreeFold(b, constr.A)
		varB, coeffB, constB := lcSumTreeFold(b, constr.B)

		if freeVarCount(constr.C, varA, varB, 2) <= 1 {
			cTerms := lcSumCOpt(b, constr.C, varA, varB)
			var zero fr.Element
			b.mulConstraintCOpt(varA, coeffA, constA, varB, coeffB, constB, cTerms, zero)
		} else {
			varC, coeffC, constC := lcSumTreeFold(b, constr.C)
			b.mulConstraint(varA, coeffA, constA, varB, coeffB, constB, varC, coeffC, constC)
		}
	}

	c, witness := b.finish(numPub)
	log.Debug().Int("rows", c.NumConstraints).Msg("plonkify done")
	return c, witness
}
