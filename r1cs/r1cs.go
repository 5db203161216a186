// Package r1cs holds the Rank-1 Constraint System data model: a header, a
// list of (A,B,C) linear-combination triples, a wire-to-label map, and a
// witness vector. It also implements the two external file formats (§6A/§6B
// of the design notes): the binary R1CS reader/writer and the JSON/binary
// witness readers/writers. Field arithmetic throughout is bn254's scalar
// field, github.com/consensys/gnark-crypto/ecc/bn254/fr.
package r1cs

import (
	"errors"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ErrInvalidInput is returned for any structurally malformed R1CS or
// witness file: wrong magic, wrong version, truncated section, wrong
// field.
var ErrInvalidInput = errors.New("invalid input")

// Term is one (variable_index, coefficient) entry of a linear combination.
// variable_index 0 denotes the constant column.
type Term struct {
	Var   int
	Coeff fr.Element
}

// LinearCombination is an unordered list of Terms.
type LinearCombination []Term

// Normalize sums duplicate-index entries, folds every var==0 entry into a
// single scalar constant kept at index 0 (dropped entirely if zero),
// drops zero-coefficient entries, and sorts the remainder by variable
// index ascending. The returned slice is newly allocated; lc is untouched.
func (lc LinearCombination) Normalize() LinearCombination {
	sums := make(map[int]*fr.Element, len(lc))
	order := make([]int, 0, len(lc))
	for _, t := range lc {
		if e, ok := sums[t.Var]; ok {
			e.Add(e, &t.Coeff)
		} else {
			v := t.Coeff
			sums[t.Var] = &v
			order = append(order, t.Var)
		}
	}

	out := make(LinearCombination, 0, len(order))
	var constant fr.Element
	haveConstant := false
	for _, v := range order {
		e := sums[v]
		if v == 0 {
			constant.Add(&constant, e)
			haveConstant = true
			continue
		}
		if e.IsZero() {
			continue
		}
		out = append(out, Term{Var: v, Coeff: *e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })

	if haveConstant && !constant.IsZero() {
		out = append([]Term{{Var: 0, Coeff: constant}}, out...)
	}
	return out
}

// Constraint is one R1CS row: <A,w> * <B,w> - <C,w> = 0.
type Constraint struct {
	A, B, C LinearCombination
}

// Header describes the shape of an R1CS file: wire counts and the declared
// field modulus.
type Header struct {
	FieldByteSize uint32
	Modulus       []byte // little-endian, FieldByteSize bytes
	NWires        uint32
	NPubOut       uint32
	NPubIn        uint32
	NPrvIn        uint32
	NLabels       uint64
	NConstraints  uint32
}

// NumPublicInputs is the number of public (instance) wires: outputs then inputs.
func (h Header) NumPublicInputs() uint32 {
	return h.NPubOut + h.NPubIn
}

// File is a fully-loaded R1CS: header, constraints, wire-to-label map, and
// (once attached by a witness reader) the witness vector. Immutable after
// construction, per the compiler's single-threaded-cooperative contract.
type File struct {
	Version      uint32
	Header       Header
	Constraints  []Constraint
	WireMapping  []uint64
	Witness      []fr.Element
}
