package circuit_test

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/nume-crypto/plonkify/gate"
	"github.com/stretchr/testify/require"
)

func felt(v int64) fr.Element {
	var e fr.Element
	e.SetInt64(v)
	return e
}

// twoRowAdderCircuit builds a vanilla-Plonk circuit with two rows:
// row 0: w0 + w1 - w2 = 0 (qL=1, qR=1, qO=-1, qM=0, qC=0)
// row 1: a trivially-true gate (all selectors zero), present only to carry
// a copy constraint linking row0's output cell (w2) to row1's w0 cell.
func twoRowAdderCircuit() *circuit.PlonkishCircuit {
	qL := circuit.SelectorColumn{felt(1), felt(0)}
	qR := circuit.SelectorColumn{felt(1), felt(0)}
	qO := circuit.SelectorColumn{felt(-1), felt(0)}
	qM := circuit.SelectorColumn{felt(0), felt(0)}
	qC := circuit.SelectorColumn{felt(0), felt(0)}

	c := &circuit.PlonkishCircuit{
		Gate:           gate.VanillaPlonkGate(),
		NumConstraints: 2,
		NumPubInputs:   0,
		Selectors:      []circuit.SelectorColumn{qL, qR, qO, qM, qC},
	}
	// witness columns: w0 (col0), w1 (col1), w2 (col2/output)
	// copy constraint: row0's w2 (col2,row0) == row1's w0 (col0,row1)
	c.Permutation = circuit.BuildPermutation([][]int{
		{100, 1},   // col0: row0=var100 (free), row1=var1 (the shared variable)
		{101, 2},   // col1: row0=var101 (free), row1=var2 (unused, free)
		{1, 3},     // col2: row0=var1 (the shared variable), row1=var3 (free)
	})
	return c
}

func TestIsSatisfiedAcceptsValidWitness(t *testing.T) {
	c := twoRowAdderCircuit()
	witness := [][]fr.Element{
		{felt(2), felt(5)}, // w0
		{felt(3), felt(0)}, // w1
		{felt(5), felt(0)}, // w2 (output of row0, also input to row1 via copy)
	}
	require.NoError(t, c.IsSatisfied(witness))
}

func TestIsSatisfiedRejectsGateViolation(t *testing.T) {
	c := twoRowAdderCircuit()
	witness := [][]fr.Element{
		{felt(2), felt(5)},
		{felt(4), felt(0)}, // wrong: 2+4 != 5
		{felt(5), felt(0)},
	}
	require.ErrorIs(t, c.IsSatisfied(witness), circuit.ErrUnsatisfied)
}

func TestIsSatisfiedRejectsCopyConstraintViolation(t *testing.T) {
	c := twoRowAdderCircuit()
	witness := [][]fr.Element{
		{felt(2), felt(9)}, // row1 w0 should equal row0's w2 output (5), not 9
		{felt(3), felt(0)},
		{felt(5), felt(0)},
	}
	require.ErrorIs(t, c.IsSatisfied(witness), circuit.ErrUnsatisfied)
}

func TestIsSatisfiedRejectsWrongShape(t *testing.T) {
	c := twoRowAdderCircuit()
	witness := [][]fr.Element{
		{felt(2), felt(5)},
		{felt(3), felt(0)},
	}
	require.ErrorIs(t, c.IsSatisfied(witness), circuit.ErrUnsatisfied)
}

func TestFitsUint64(t *testing.T) {
	require.True(t, circuit.FitsUint64(felt(12345)))

	var huge fr.Element
	huge.SetString("21888242871839275222246405745257275088548364400416034343698204186575808495616")
	require.False(t, circuit.FitsUint64(huge))
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	c := &circuit.PlonkishCircuit{NumConstraints: 7}
	for col := 0; col < 4; col++ {
		for row := 0; row < 7; row++ {
			idx := c.Flatten(col, row)
			gotCol, gotRow := c.Unflatten(idx)
			require.Equal(t, col, gotCol)
			require.Equal(t, row, gotRow)
		}
	}
}
