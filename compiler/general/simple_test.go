package general

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/gate"
	"github.com/nume-crypto/plonkify/r1cs"
	"github.com/stretchr/testify/require"
)

func TestMatchGateSlotFindsJellyfishQuarticTerm(t *testing.T) {
	gi := gate.JellyfishTurboPlonkGateInfo()
	monomial := []VarPower{{Var: 10, Power: 1}, {Var: 20, Power: 1}, {Var: 30, Power: 1}, {Var: 40, Power: 1}}
	slotIdx, binding, ok := matchGateSlot(gi, monomial)
	require.True(t, ok)
	require.Len(t, gi.Gates[slotIdx], 4)
	require.Len(t, binding, 4)
}

func TestMatchGateSlotFindsJellyfishQuinticTerm(t *testing.T) {
	gi := gate.JellyfishTurboPlonkGateInfo()
	monomial := []VarPower{{Var: 7, Power: 5}}
	slotIdx, binding, ok := matchGateSlot(gi, monomial)
	require.True(t, ok)
	require.Equal(t, 5, gi.Gates[slotIdx][0].Power)
	require.Equal(t, 7, binding[gi.Gates[slotIdx][0].Var])
}

func TestPackConstraintPacksQuarticProductAgainstJellyfishGate(t *testing.T) {
	gi := gate.JellyfishTurboPlonkGateInfo()

	w1, w2, w3, w4 := feltExpand(2), feltExpand(3), feltExpand(5), feltExpand(7)
	var product fr.Element
	product.Mul(&w1, &w2)
	product.Mul(&product, &w3)
	product.Mul(&product, &w4)

	witness := []fr.Element{feltExpand(1), w1, w2, w3, w4}
	b := newBuilder(gi, witness, true)

	var negProduct fr.Element
	negProduct.Neg(&product)

	pc := PolyConstraint{
		{Coeff: feltExpand(1), Monomial: []VarPower{{Var: 1, Power: 1}, {Var: 2, Power: 1}, {Var: 3, Power: 1}, {Var: 4, Power: 1}}},
		{Coeff: negProduct},
	}

	terms, constant := packConstraint(gi, b, pc)
	b.closeZero(terms, constant)

	c, fullWitness := b.finish(gate.JellyfishTurboPlonkGate(), 0)
	require.NoError(t, c.IsSatisfied(fullWitness))
	// one row packs the quartic product into a fresh output variable, a
	// second closes the remaining linear identity against the constant.
	require.Equal(t, 2, c.NumConstraints)
}

// TestCloseZeroFoldsLargeSumIntoExactRowCount packs the 101-term sum
// (sum_{i=1}^101 x_i) - 5151 = 0, x_i = i, against the Jellyfish turbo
// gate's 4-wide linear capacity. The closing row's spare output wire
// carries one extra summand for free, so the fold needs exactly 33 rows.
func TestCloseZeroFoldsLargeSumIntoExactRowCount(t *testing.T) {
	gi := gate.JellyfishTurboPlonkGateInfo()

	const n = 101
	witness := make([]fr.Element, 0, n+1)
	witness = append(witness, feltExpand(1))
	var sum fr.Element
	terms := make(PolyConstraint, 0, n+1)
	for i := 1; i <= n; i++ {
		v := feltExpand(int64(i))
		witness = append(witness, v)
		sum.Add(&sum, &v)
		terms = append(terms, PolyTerm{Coeff: feltExpand(1), Monomial: []VarPower{{Var: i, Power: 1}}})
	}
	var negSum fr.Element
	negSum.Neg(&sum)
	terms = append(terms, PolyTerm{Coeff: negSum})

	b := newBuilder(gi, witness, true)
	reduced, constant := packConstraint(gi, b, terms)
	b.closeZero(reduced, constant)

	c, fullWitness := b.finish(gate.JellyfishTurboPlonkGate(), 0)
	require.NoError(t, c.IsSatisfied(fullWitness))
	require.Equal(t, 33, c.NumConstraints)
}

func TestPlonkifySimpleSatisfiesSingleMultiplication(t *testing.T) {
	gi := gate.JellyfishTurboPlonkGateInfo()
	f := singleMultiplicationForSimple()
	c, witness := PlonkifySimple(f, gate.JellyfishTurboPlonkGate(), gi, ExpansionConfig{Mode: ExpansionNoLimit})
	require.NoError(t, c.IsSatisfied(witness))
}

func singleMultiplicationForSimple() *r1cs.File {
	one := feltExpand(1)
	return &r1cs.File{
		Header: r1cs.Header{NWires: 4, NPrvIn: 3},
		Constraints: []r1cs.Constraint{
			{
				A: r1cs.LinearCombination{{Var: 1, Coeff: one}},
				B: r1cs.LinearCombination{{Var: 2, Coeff: one}},
				C: r1cs.LinearCombination{{Var: 0, Coeff: feltExpand(120)}},
			},
		},
		Witness: []fr.Element{one, feltExpand(10), feltExpand(12)},
	}
}
