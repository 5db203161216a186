package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/r1cs"
	"github.com/stretchr/testify/require"
)

func felt(v int64) fr.Element {
	var e fr.Element
	e.SetInt64(v)
	return e
}

// singleMultiplicationFiles writes a one-constraint R1CS (w1*w2=120) and
// its satisfying witness to temp files, returning their paths.
func singleMultiplicationFiles(t *testing.T) (circuitPath, witnessPath string) {
	t.Helper()
	dir := t.TempDir()

	f := &r1cs.File{
		Version: 1,
		Header:  r1cs.Header{NWires: 4, NPrvIn: 3, NConstraints: 1},
		Constraints: []r1cs.Constraint{
			{
				A: r1cs.LinearCombination{{Var: 1, Coeff: felt(1)}},
				B: r1cs.LinearCombination{{Var: 2, Coeff: felt(1)}},
				C: r1cs.LinearCombination{{Var: 0, Coeff: felt(120)}},
			},
		},
	}
	circuitPath = filepath.Join(dir, "circuit.r1cs")
	cf, err := os.Create(circuitPath)
	require.NoError(t, err)
	require.NoError(t, f.WriteTo(cf))
	require.NoError(t, cf.Close())

	witnessPath = filepath.Join(dir, "witness.json")
	wf, err := os.Create(witnessPath)
	require.NoError(t, err)
	require.NoError(t, r1cs.WriteWitnessJSON(wf, []fr.Element{felt(1), felt(10), felt(12)}))
	require.NoError(t, wf.Close())

	return circuitPath, witnessPath
}

func TestRunCompilesAndVerifiesVanillaSimple(t *testing.T) {
	circuitPath, witnessPath := singleMultiplicationFiles(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{circuitPath, witnessPath}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	require.Contains(t, stdout.String(), "ok:")
}

func TestRunCachesCompiledCircuit(t *testing.T) {
	circuitPath, witnessPath := singleMultiplicationFiles(t)
	cachePath := filepath.Join(t.TempDir(), "circuit.cbor")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--cache-out", cachePath, circuitPath, witnessPath}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())

	info, err := os.Stat(cachePath)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestRunGeneralModeWithDefaultGate(t *testing.T) {
	circuitPath, witnessPath := singleMultiplicationFiles(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--general", "--optimize", "0", circuitPath, witnessPath}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr: %s", stderr.String())
}

func TestRunReportsVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--version"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Equal(t, buildVersion.String()+"\n", stdout.String())
}

func TestRunRejectsMissingArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, &stdout, &stderr)
	require.Equal(t, 2, code)
}

func TestFormatVersionSupported(t *testing.T) {
	ok, err := formatVersionSupported(1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = formatVersionSupported(2)
	require.NoError(t, err)
	require.False(t, ok)
}
