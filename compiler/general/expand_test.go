package general

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/r1cs"
	"github.com/stretchr/testify/require"
)

func feltExpand(v int64) fr.Element {
	var e fr.Element
	e.SetInt64(v)
	return e
}

func assertSatisfied(t *testing.T, es *ExpandedSystem) {
	t.Helper()
	for i, pc := range es.Constraints {
		v := pc.evaluate(es.Witness)
		require.True(t, v.IsZero(), "constraint %d did not evaluate to zero", i)
	}
}

func TestExpandSatisfiesSimpleMultiplication(t *testing.T) {
	one := feltExpand(1)
	f := &r1cs.File{
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

	es := Expand(f, ExpansionConfig{Mode: ExpansionNoLimit})
	assertSatisfied(t, es)
	require.Len(t, es.Constraints, 1)
}

func TestExpandOutlinesLongLinearCombination(t *testing.T) {
	one := feltExpand(1)
	var lc r1cs.LinearCombination
	witness := []fr.Element{one}
	var sum fr.Element
	for i := 1; i <= 7; i++ {
		lc = append(lc, r1cs.Term{Var: i, Coeff: one})
		witness = append(witness, feltExpand(int64(i)))
		v := feltExpand(int64(i))
		sum.Add(&sum, &v)
	}
	witness = append(witness, one) // w8 = 1, multiplies the sum

	f := &r1cs.File{
		Header: r1cs.Header{NWires: 9, NPrvIn: 8},
		Constraints: []r1cs.Constraint{
			{
				A: lc,
				B: r1cs.LinearCombination{{Var: 8, Coeff: one}},
				C: r1cs.LinearCombination{{Var: 0, Coeff: sum}},
			},
		},
		Witness: witness,
	}

	es := Expand(f, ExpansionConfig{Mode: ExpansionNoLimit})
	assertSatisfied(t, es)
	// the 7-term lc crosses the outlining threshold, so Expand introduces a
	// fresh witness variable for it and the witness vector grows by one.
	require.Len(t, es.Witness, len(f.Witness)+1)
}

func TestExpansionConfigAllowsNoLimit(t *testing.T) {
	cfg := ExpansionConfig{Mode: ExpansionNoLimit}
	pc := PolyConstraint{{Coeff: feltExpand(1), Monomial: []VarPower{{Var: 1, Power: 3}, {Var: 2, Power: 4}}}}
	require.True(t, cfg.Allows(pc))
}

func TestExpansionConfigMaxWidthDegreeRejectsOversizedTerm(t *testing.T) {
	cfg := ExpansionConfig{Mode: ExpansionMaxWidthDegree, MaxWidth: 2, MaxDegree: 2}
	pc := PolyConstraint{{Coeff: feltExpand(1), Monomial: []VarPower{{Var: 1, Power: 3}}}}
	require.False(t, cfg.Allows(pc))
}

func TestExpansionConfigMaxWeightRejectsHeavyConstraint(t *testing.T) {
	cfg := ExpansionConfig{Mode: ExpansionMaxWeight, MaxWeight: 3}
	pc := PolyConstraint{
		{Coeff: feltExpand(1), Monomial: []VarPower{{Var: 1, Power: 2}}},
		{Coeff: feltExpand(1), Monomial: []VarPower{{Var: 2, Power: 2}}},
	}
	require.False(t, cfg.Allows(pc))
}
