package circuit

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/nume-crypto/plonkify/gate"
)

// circuitDTO is the CBOR wire shape for a PlonkishCircuit: field elements
// are stored as their canonical big-endian byte representation since
// fr.Element itself carries no CBOR tags.
type circuitDTO struct {
	Gate           *gate.CustomizedGates
	NumConstraints int
	NumPubInputs   int
	Selectors      [][][32]byte
	Permutation    []int
}

func cborEncMode() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("circuit: building cbor encode mode: %v", err))
	}
	return mode
}

func cborDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{MaxArrayElements: 1 << 24, MaxMapPairs: 1 << 20}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("circuit: building cbor decode mode: %v", err))
	}
	return mode
}

// WriteTo serializes c to w as CBOR: the gate shape, row/public-input
// counts, selector columns, and the permutation. The evaluated witness is
// not part of this format -- callers persist it separately through
// r1cs.WriteWitnessJSON/WriteWitnessBinary, the same separation of
// "circuit shape" from "witness values" the rest of this repository
// keeps throughout.
func (c *PlonkishCircuit) WriteTo(w io.Writer) (int64, error) {
	dto := circuitDTO{
		Gate:           c.Gate,
		NumConstraints: c.NumConstraints,
		NumPubInputs:   c.NumPubInputs,
		Permutation:    c.Permutation,
		Selectors:      make([][][32]byte, len(c.Selectors)),
	}
	for i, col := range c.Selectors {
		dto.Selectors[i] = make([][32]byte, len(col))
		for j := range col {
			dto.Selectors[i][j] = col[j].Bytes()
		}
	}

	data, err := cborEncMode().Marshal(&dto)
	if err != nil {
		return 0, fmt.Errorf("circuit: encoding cbor: %w", err)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ReadFrom decodes a circuit written by WriteTo, replacing c's contents.
func (c *PlonkishCircuit) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	var dto circuitDTO
	if err := cborDecMode().Unmarshal(data, &dto); err != nil {
		return 0, fmt.Errorf("circuit: decoding cbor: %w", err)
	}

	c.Gate = dto.Gate
	c.NumConstraints = dto.NumConstraints
	c.NumPubInputs = dto.NumPubInputs
	c.Permutation = dto.Permutation
	c.Selectors = make([]SelectorColumn, len(dto.Selectors))
	for i, col := range dto.Selectors {
		c.Selectors[i] = make(SelectorColumn, len(col))
		for j := range col {
			c.Selectors[i][j].SetBytes(col[j][:])
		}
	}
	return int64(len(data)), nil
}
