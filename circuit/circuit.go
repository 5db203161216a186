// Package circuit holds the Plonkish circuit representation every
// compiler variant emits: selector columns, a witness-column shape, and a
// copy-constraint permutation over witness cells. It also implements the
// satisfaction checker and the permutation padding used to grow a circuit
// up to a target row count.
package circuit

import (
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/gate"
	"github.com/nume-crypto/plonkify/internal/parallel"
)

// ErrUnsatisfied is returned by IsSatisfied when a witness fails either the
// gate identity or a copy constraint.
var ErrUnsatisfied = errors.New("witness does not satisfy circuit")

// SelectorColumn holds one selector's value at every row.
type SelectorColumn []fr.Element

// PlonkishCircuit is the output of every compiler in this repository:
// a row count, a public-input count, the custom gate the rows are checked
// against, one SelectorColumn per selector the gate declares, and a
// copy-constraint permutation over witness cells.
//
// Witness cells are addressed (column, row) and flattened column-major:
// Flatten(col, row) = col*NumConstraints + row. Permutation is a forward
// rotation: Permutation[Flatten(col,row)] names the next cell in that
// cell's equivalence cycle, wrapping back to the first cell of the cycle.
// A cell not constrained to any other cell points to itself.
type PlonkishCircuit struct {
	Gate          *gate.CustomizedGates
	NumConstraints int
	NumPubInputs  int
	Selectors     []SelectorColumn
	Permutation   []int
}

// NumWitnessColumns is the number of witness columns the gate requires.
func (c *PlonkishCircuit) NumWitnessColumns() int {
	return c.Gate.NumWitnessColumns()
}

// Flatten maps a (column, row) witness cell to its index in Permutation
// and in a column-major witness matrix.
func (c *PlonkishCircuit) Flatten(col, row int) int {
	return col*c.NumConstraints + row
}

// Unflatten is the inverse of Flatten.
func (c *PlonkishCircuit) Unflatten(idx int) (col, row int) {
	return idx / c.NumConstraints, idx % c.NumConstraints
}

// FitsUint64 reports whether e's canonical representative fits in a single
// 64-bit limb, i.e. every higher limb is zero. Used to validate public
// input cells, which this compiler's target backends require to be
// expressible as a single machine word.
func FitsUint64(e fr.Element) bool {
	var bi big.Int
	e.BigInt(&bi)
	return bi.IsUint64()
}

// IsSatisfied checks witness (one []fr.Element per witness column, each of
// length c.NumConstraints) against every row's gate identity and every
// copy constraint in c.Permutation. It also checks that every public
// input cell (row < c.NumPubInputs in witness column 0, by this
// compiler's convention the public columns) fits in a single 64-bit limb.
// A permutation that does not hold exactly one entry per witness cell, or
// that names a cell index outside that range, is rejected.
//
// Per §5, rows and cells are verified independently of one another, so the
// row pass and the permutation pass each run across internal/parallel's
// worker pool and combine their per-chunk results by logical AND (the
// first failure any worker observes wins; the others just stop mattering).
func (c *PlonkishCircuit) IsSatisfied(witness [][]fr.Element) error {
	numWitnessCols := c.NumWitnessColumns()
	if len(witness) != numWitnessCols {
		return fmt.Errorf("%w: expected %d witness columns, got %d", ErrUnsatisfied, numWitnessCols, len(witness))
	}
	for col, column := range witness {
		if len(column) != c.NumConstraints {
			return fmt.Errorf("%w: witness column %d has %d rows, expected %d", ErrUnsatisfied, col, len(column), c.NumConstraints)
		}
	}
	for _, sel := range c.Selectors {
		if len(sel) != c.NumConstraints {
			return fmt.Errorf("%w: selector column has %d rows, expected %d", ErrUnsatisfied, len(sel), c.NumConstraints)
		}
	}
	if len(c.Permutation) != numWitnessCols*c.NumConstraints {
		return fmt.Errorf("%w: permutation has %d entries, expected %d", ErrUnsatisfied, len(c.Permutation), numWitnessCols*c.NumConstraints)
	}

	var badRow atomic.Int64
	badRow.Store(-1)
	parallel.Range(c.NumConstraints, func(start, end int) {
		for row := start; row < end; row++ {
			if badRow.Load() != -1 {
				return
			}
			selectorRow := make([]fr.Element, len(c.Selectors))
			for s, sel := range c.Selectors {
				selectorRow[s] = sel[row]
			}
			witnessRow := make([]fr.Element, numWitnessCols)
			for col := range witness {
				witnessRow[col] = witness[col][row]
			}
			eval := c.Gate.Evaluate(selectorRow, witnessRow)
			if !eval.IsZero() {
				badRow.CompareAndSwap(-1, int64(row))
				return
			}
		}
	})
	if row := badRow.Load(); row != -1 {
		return fmt.Errorf("%w: gate identity fails at row %d", ErrUnsatisfied, row)
	}

	var badCell atomic.Int64
	badCell.Store(-1)
	parallel.Range(len(c.Permutation), func(start, end int) {
		for idx := start; idx < end; idx++ {
			if badCell.Load() != -1 {
				return
			}
			next := c.Permutation[idx]
			if next < 0 || next >= len(c.Permutation) {
				badCell.CompareAndSwap(-1, int64(idx))
				return
			}
			if idx == next {
				continue
			}
			col, row := c.Unflatten(idx)
			ncol, nrow := c.Unflatten(next)
			v := witness[col][row]
			nv := witness[ncol][nrow]
			if !v.Equal(&nv) {
				badCell.CompareAndSwap(-1, int64(idx))
				return
			}
		}
	})
	if idx := badCell.Load(); idx != -1 {
		next := c.Permutation[idx]
		col, row := c.Unflatten(int(idx))
		if next < 0 || next >= len(c.Permutation) {
			return fmt.Errorf("%w: permutation entry at cell (%d,%d) is out of range: %d", ErrUnsatisfied, col, row, next)
		}
		ncol, nrow := c.Unflatten(next)
		return fmt.Errorf("%w: copy constraint fails between cell (%d,%d) and (%d,%d)", ErrUnsatisfied, col, row, ncol, nrow)
	}

	for row := 0; row < c.NumPubInputs && row < c.NumConstraints; row++ {
		if !FitsUint64(witness[0][row]) {
			return fmt.Errorf("%w: public input at row %d does not fit a single 64-bit limb", ErrUnsatisfied, row)
		}
	}

	return nil
}
