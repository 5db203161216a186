package vanilla_test

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/compiler/vanilla"
	"github.com/nume-crypto/plonkify/r1cs"
	"github.com/stretchr/testify/require"
)

func felt(v int64) fr.Element {
	var e fr.Element
	e.SetInt64(v)
	return e
}

// singleMultiplication builds w1*w2 = 120 as a one-constraint, no-public-input R1CS.
func singleMultiplication() *r1cs.File {
	return &r1cs.File{
		Header: r1cs.Header{NWires: 4, NPrvIn: 3},
		Constraints: []r1cs.Constraint{
			{
				A: r1cs.LinearCombination{{Var: 1, Coeff: felt(1)}},
				B: r1cs.LinearCombination{{Var: 2, Coeff: felt(1)}},
				C: r1cs.LinearCombination{{Var: 0, Coeff: felt(120)}},
			},
		},
		Witness: []fr.Element{felt(1), felt(10), felt(12)},
	}
}

// sharedSubexpression builds two constraints that both multiply (w1+w2) by
// something, so the (w1,w2,1) relation occurs three times across the whole R1CS --
// exercising V-Greedy-BF's cross-constraint sharing and V-Optimised's
// memoised addition.
func sharedSubexpression() *r1cs.File {
	one := felt(1)
	return &r1cs.File{
		Header: r1cs.Header{NWires: 6, NPrvIn: 5},
		Constraints: []r1cs.Constraint{
			{
				A: r1cs.LinearCombination{{Var: 1, Coeff: one}, {Var: 2, Coeff: one}},
				B: r1cs.LinearCombination{{Var: 1, Coeff: one}, {Var: 2, Coeff: one}},
				C: r1cs.LinearCombination{{Var: 4, Coeff: one}},
			},
			{
				A: r1cs.LinearCombination{{Var: 1, Coeff: one}, {Var: 2, Coeff: one}},
				B: r1cs.LinearCombination{{Var: 3, Coeff: one}},
				C: r1cs.LinearCombination{{Var: 5, Coeff: one}},
			},
		},
		Witness: []fr.Element{felt(1), felt(2), felt(3), felt(4), felt(25), felt(20)},
	}
}

func TestPlonkifySimpleSatisfiesSingleMultiplication(t *testing.T) {
	f := singleMultiplication()
	c, witness := vanilla.PlonkifySimple(f)
	require.NoError(t, c.IsSatisfied(witness))
}

func TestPlonkifyOptimisedSingleMultiplicationEmitsOneRow(t *testing.T) {
	f := singleMultiplication()
	c, witness := vanilla.PlonkifyOptimised(f)
	require.NoError(t, c.IsSatisfied(witness))
	// Both operands are single-variable lcs (no addition row needed) and C
	// is a bare constant, so the whole constraint fuses into one
	// multiplication row via the C-side optimisation.
	require.Equal(t, 1, c.NumConstraints)
}

func TestPlonkifyGreedyBFSatisfiesSingleMultiplication(t *testing.T) {
	f := singleMultiplication()
	c, witness := vanilla.PlonkifyGreedyBF(f)
	require.NoError(t, c.IsSatisfied(witness))
}

func TestAllVanillaCompilersSatisfySharedSubexpression(t *testing.T) {
	f := sharedSubexpression()

	cSimple, wSimple := vanilla.PlonkifySimple(f)
	require.NoError(t, cSimple.IsSatisfied(wSimple))

	cOpt, wOpt := vanilla.PlonkifyOptimised(f)
	require.NoError(t, cOpt.IsSatisfied(wOpt))

	cGreedy, wGreedy := vanilla.PlonkifyGreedyBF(f)
	require.NoError(t, cGreedy.IsSatisfied(wGreedy))

	// Sharing the (w1,w2) addition across both constraints should never
	// cost more rows than folding it independently in every constraint.
	require.LessOrEqual(t, cGreedy.NumConstraints, cSimple.NumConstraints)
}

func TestPlonkifyOptimisedHandlesPublicInputs(t *testing.T) {
	one := felt(1)
	f := &r1cs.File{
		Header: r1cs.Header{NWires: 4, NPubIn: 1, NPrvIn: 2},
		Constraints: []r1cs.Constraint{
			{
				A: r1cs.LinearCombination{{Var: 1, Coeff: one}},
				B: r1cs.LinearCombination{{Var: 2, Coeff: one}},
				C: r1cs.LinearCombination{{Var: 3, Coeff: one}},
			},
		},
		Witness: []fr.Element{felt(1), felt(7), felt(6), felt(42)},
	}
	c, witness := vanilla.PlonkifyOptimised(f)
	require.NoError(t, c.IsSatisfied(witness))
	require.Equal(t, 1, c.NumPubInputs)
	// one free row for the public input, one multiplication row.
	require.Equal(t, 2, c.NumConstraints)
}
