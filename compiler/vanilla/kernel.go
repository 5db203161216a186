// Package vanilla implements the three vanilla Plonk compilers (V-Simple,
// V-Optimised, V-Greedy-BF): row-emission strategies that reduce an R1CS
// into the fixed 5-selector, 3-witness-column vanilla Plonk gate
// (gate.VanillaPlonkGate). All three share the addition-row and
// multiplication-row kernel in this file; they differ only in how a linear
// combination is folded down to a single (variable, coefficient) pair
// before a multiplication row is emitted.
//
// Grounded on original_source/plonkify/plonkify/src/vanilla/{simple,optimized,greedy_bf}.rs.
package vanilla

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/nume-crypto/plonkify/gate"
	"github.com/nume-crypto/plonkify/r1cs"
)

// builder accumulates the five vanilla selector columns, the per-row
// (var_L, var_R, var_O) variable placement, and the witness values of
// every variable including those introduced while reducing a linear
// combination. A non-nil memo enables V-Optimised/V-Greedy-BF's
// canonicalised-addition sharing; V-Simple leaves it nil.
type builder struct {
	selectors   [5]circuit.SelectorColumn
	variables   [][3]int
	assignments []fr.Element
	memo        map[additionKey]int
}

type additionKey struct {
	varA, varB int
	coeff      fr.Element
}

func newBuilder(witness []fr.Element, memoize bool) *builder {
	b := &builder{assignments: append([]fr.Element(nil), witness...)}
	if memoize {
		b.memo = make(map[additionKey]int)
	}
	return b
}

func (b *builder) addSelectors(qL, qR, qO, qM, qC fr.Element) {
	b.selectors[0] = append(b.selectors[0], qL)
	b.selectors[1] = append(b.selectors[1], qR)
	b.selectors[2] = append(b.selectors[2], qO)
	b.selectors[3] = append(b.selectors[3], qM)
	b.selectors[4] = append(b.selectors[4], qC)
}

// addition emits an addition row encoding w[a] + k*w[b] - w[new] = 0, where
// k = coeffB/coeffA, and returns (new, coeffA) per §4.2.1: the returned
// coefficient is the scale factor of the left operand, propagated
// unchanged so that folding many terms this way (left-fold or balanced
// tree, see optimized.go) never needs a separate normalisation row. Either
// operand being the zero accumulator (coeff == 0, the lc_sum seed) short
// circuits to the other operand without emitting a row.
func (b *builder) addition(varA int, coeffA fr.Element, varB int, coeffB fr.Element) (int, fr.Element) {
	if coeffA.IsZero() {
		return varB, coeffB
	}
	if coeffB.IsZero() {
		return varA, coeffA
	}

	var inv, k fr.Element
	inv.Inverse(&coeffA)
	k.Mul(&inv, &coeffB)

	if b.memo != nil {
		if idx, ok := b.memo[additionKey{varA, varB, k}]; ok {
			return idx, coeffA
		}
	}

	var one, negOne, zero fr.Element
	one.SetOne()
	negOne.SetOne()
	negOne.Neg(&negOne)
	b.addSelectors(one, k, negOne, zero, zero)

	newIdx := len(b.assignments)
	var val fr.Element
	val.Mul(&k, &b.assignments[varB])
	val.Add(&val, &b.assignments[varA])
	b.assignments = append(b.assignments, val)
	b.variables = append(b.variables, [3]int{varA, varB, newIdx})

	if b.memo != nil {
		b.memo[additionKey{varA, varB, k}] = newIdx
	}
	return newIdx, coeffA
}

// mulConstraint emits a full multiplication row for three already-reduced
// operands A=(varA,kA,cA), B=(varB,kB,cB), C=(varC,kC,cC), each encoding
// kX*w[x] + cX (§4.2.2): selectors [cB*kA, cA*kB, -kC, kA*kB, cA*cB-cC].
func (b *builder) mulConstraint(varA int, kA, cA fr.Element, varB int, kB, cB fr.Element, varC int, kC, cC fr.Element) {
	var s0, s1, s2, s3, s4, t fr.Element
	s0.Mul(&cB, &kA)
	s1.Mul(&cA, &kB)
	s2.Neg(&kC)
	s3.Mul(&kA, &kB)
	t.Mul(&cA, &cB)
	s4.Sub(&t, &cC)
	b.addSelectors(s0, s1, s2, s3, s4)
	b.variables = append(b.variables, [3]int{varA, varB, varC})
}

// mulConstraintCOpt fuses C's own linear combination into the
// multiplication row's selectors instead of spending an addition row to
// reduce C first (the "C-side optimisation" of §4.2.2). variablesC must
// have at most one entry whose variable is not 0, varA, or varB (the
// caller is responsible for folding any additional free terms down to one
// first, via lcSumCOpt); constC is subtracted from the constant term
// up front for callers (like V-Greedy-BF) that pre-split C's scalar
// constant out of variablesC.
func (b *builder) mulConstraintCOpt(varA int, kA, cA fr.Element, varB int, kB, cB fr.Element, variablesC []r1cs.Term, constC fr.Element) {
	var s0, s1, s2, s3, s4, t fr.Element
	s0.Mul(&cB, &kA)
	s1.Mul(&cA, &kB)
	s3.Mul(&kA, &kB)
	t.Mul(&cA, &cB)
	s4.Sub(&t, &constC)

	varC := 0
	for _, term := range variablesC {
		switch term.Var {
		case 0:
			s4.Sub(&s4, &term.Coeff)
		case varA:
			s0.Sub(&s0, &term.Coeff)
		case varB:
			s1.Sub(&s1, &term.Coeff)
		default:
			varC = term.Var
			s2.Sub(&s2, &term.Coeff)
		}
	}
	b.addSelectors(s0, s1, s2, s3, s4)
	b.variables = append(b.variables, [3]int{varA, varB, varC})
}

// emitPublicInputRows appends one all-zero-selector row per public input
// wire, each naming that wire as its sole (w_L) variable: a free row the
// permutation builder can use to tie the wire's uses elsewhere in the
// circuit into one equivalence class, without constraining its value.
// Public input wires are variable IDs 1..numPublicInputs (variable 0 is
// the constant wire, never a public input).
func (b *builder) emitPublicInputRows(numPublicInputs int) {
	var zero fr.Element
	for i := 1; i <= numPublicInputs; i++ {
		b.addSelectors(zero, zero, zero, zero, zero)
		b.variables = append(b.variables, [3]int{i, 0, 0})
	}
}

// finish derives the permutation (§4.5) and the column-major witness from
// the accumulated rows and variable assignments.
func (b *builder) finish(numPublicInputs int) (*circuit.PlonkishCircuit, [][]fr.Element) {
	numConstraints := len(b.variables)
	varIDs := [3][]int{
		make([]int, numConstraints),
		make([]int, numConstraints),
		make([]int, numConstraints),
	}
	for row, vars := range b.variables {
		varIDs[0][row] = vars[0]
		varIDs[1][row] = vars[1]
		varIDs[2][row] = vars[2]
	}

	c := &circuit.PlonkishCircuit{
		Gate:           gate.VanillaPlonkGate(),
		NumConstraints: numConstraints,
		NumPubInputs:   numPublicInputs,
		Selectors:      append([]circuit.SelectorColumn(nil), b.selectors[:]...),
		Permutation:    circuit.BuildPermutation(varIDs[:]),
	}

	witness := make([][]fr.Element, 3)
	for col := 0; col < 3; col++ {
		witness[col] = make([]fr.Element, numConstraints)
		for row := 0; row < numConstraints; row++ {
			witness[col][row] = b.assignments[varIDs[col][row]]
		}
	}
	return c, witness
}
