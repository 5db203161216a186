package circuit_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/stretchr/testify/require"
)

// TestCircuitWriteToReadFromRoundTrips checks that a circuit serialized via
// WriteTo and decoded via ReadFrom compares equal field-by-field, including
// its selector values: fr.Element's Equal has a pointer receiver, so cmp
// does not call it and compares each element's limbs instead, which for
// reduced elements is exact field equality.
func TestCircuitWriteToReadFromRoundTrips(t *testing.T) {
	c := twoRowAdderCircuit()

	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)

	var got circuit.PlonkishCircuit
	m, err := got.ReadFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, n, m)

	if diff := cmp.Diff(c, &got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCircuitReadFromRejectsGarbage(t *testing.T) {
	var got circuit.PlonkishCircuit
	_, err := got.ReadFrom(bytes.NewReader([]byte{0xff, 0x00, 0x01}))
	require.Error(t, err)
}
