package general

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/nume-crypto/plonkify/gate"
	"github.com/nume-crypto/plonkify/internal/logger"
	"github.com/nume-crypto/plonkify/r1cs"
)

func splitConstant(lc r1cs.LinearCombination) ([]r1cs.Term, fr.Element) {
	lc = lc.Normalize()
	var constant fr.Element
	var terms []r1cs.Term
	for _, t := range lc {
		if t.Var == 0 {
			constant = t.Coeff
			continue
		}
		terms = append(terms, t)
	}
	return terms, constant
}

// PlonkifyNaiveLinear is the G-Naive-Linear compiler (§4.4.1): mirrors
// V-Simple but folds A and B with up to len(gateInfo.LinearTerms) summands
// per addition row instead of two, and fuses C into the multiplication
// row's spare linear/output slots whenever it fits.
//
// rawGate must be the CustomizedGates that produced gateInfo (NewGateInfo
// strips its constant/output terms, so the original is kept around purely
// to label the output circuit).
func PlonkifyNaiveLinear(f *r1cs.File, rawGate *gate.CustomizedGates, gi *gate.GateInfo) (*circuit.PlonkishCircuit, [][]fr.Element) {
	log := logger.Logger().With().Str("component", "general.naive_linear").Logger()
	numPub := int(f.Header.NumPublicInputs())
	log.Debug().Int("constraints", len(f.Constraints)).Int("pub_inputs", numPub).Msg("plonkify start")

	b := newBuilder(gi, f.Witness, false)
	b.emitPublicInputRows(numPub)

	for _, constr := range f.Constraints {
		aTerms, constA := splitConstant(constr.A)
		bTerms, constB := splitConstant(constr.B)
		varA, coeffA := b.foldChunked(aTerms)
		varB, coeffB := b.foldChunked(bTerms)

		freeTerms := b.lcFreeTerms(constr.C, varA, varB)
		var zero fr.Element
		b.mulRow(varA, coeffA, constA, varB, coeffB, constB, freeTerms, zero)
	}

	c, witness := b.finish(rawGate, numPub)
	log.Debug().Int("rows", c.NumConstraints).Msg("plonkify done")
	return c, witness
}
