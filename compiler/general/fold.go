package general

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/r1cs"
	"golang.org/x/exp/slices"
)

func oneElement() fr.Element {
	var e fr.Element
	e.SetOne()
	return e
}

// additionRowRaw emits one generalised addition row: up to
// len(gi.LinearTerms) summands, each placed in its own linear selector,
// output selector fixed to -1 (so the fresh output variable always holds
// the raw sum of the row's inputs plus constant -- a simplification
// relative to compiler/vanilla's 2-ary addition row, which instead
// returns the left operand's own coefficient to let the *caller* rescale
// it for free; with more than two summands per row that trick doesn't
// generalise cleanly, so every fold helper in this file treats a folded
// result as (var, coeff=1) once any row has actually been emitted).
func (b *builder) additionRowRaw(terms []r1cs.Term, constant fr.Element) int {
	selectors := make([]fr.Element, b.numSelectors)
	for i, lt := range b.gi.LinearTerms {
		if i < len(terms) {
			selectors[lt.Selector] = terms[i].Coeff
		}
	}
	var negOne fr.Element
	negOne.SetOne()
	negOne.Neg(&negOne)
	selectors[b.outputSelector] = negOne
	selectors[b.constSelector] = constant

	rowVars := b.newRowVars()
	for i, lt := range b.gi.LinearTerms {
		if i < len(terms) {
			rowVars[lt.Var] = terms[i].Var
		}
	}

	val := constant
	for _, t := range terms {
		var p fr.Element
		p.Mul(&t.Coeff, &b.assignments[t.Var])
		val.Add(&val, &p)
	}
	newVar := len(b.assignments)
	rowVars[b.outputVar] = newVar
	b.assignments = append(b.assignments, val)
	b.addRow(selectors, rowVars)
	return newVar
}

func (b *builder) capacity() int {
	if b.linearCapacity < 2 {
		return 2
	}
	return b.linearCapacity
}

// foldChunked is the G-Naive-Linear reduction (§4.4.1): a naive left-fold,
// generalised from vanilla's binary accumulator to an up-to-capacity-ary
// one -- each row takes the running accumulator (once one exists) plus as
// many fresh terms as still fit.
func (b *builder) foldChunked(terms []r1cs.Term) (int, fr.Element) {
	if len(terms) == 0 {
		return 0, fr.Element{}
	}
	if len(terms) == 1 {
		return terms[0].Var, terms[0].Coeff
	}
	cap := b.capacity()
	var acc *r1cs.Term
	remaining := terms
	for len(remaining) > 0 {
		var chunk []r1cs.Term
		if acc != nil {
			chunk = append(chunk, *acc)
		}
		take := cap - len(chunk)
		if take > len(remaining) {
			take = len(remaining)
		}
		chunk = append(chunk, remaining[:take]...)
		remaining = remaining[take:]

		if acc == nil && len(remaining) == 0 && len(chunk) == 1 {
			single := chunk[0]
			acc = &single
			break
		}

		var zero fr.Element
		newVar := b.additionRowRaw(chunk, zero)
		one := oneElement()
		sum := r1cs.Term{Var: newVar, Coeff: one}
		acc = &sum
	}
	return acc.Var, acc.Coeff
}

// foldTreeGeneralized is the G-Linear-Only reduction (§4.4.2): terms are
// sorted by variable id for a canonical, memo-friendly order, then folded
// in balanced rounds of up-to-capacity-ary addition rows (generalising
// V-Optimised's balanced binary tree) with canonicalised-chunk sharing via
// b.memo.
func (b *builder) foldTreeGeneralized(terms []r1cs.Term) (int, fr.Element) {
	if len(terms) == 0 {
		return 0, fr.Element{}
	}
	if len(terms) == 1 {
		return terms[0].Var, terms[0].Coeff
	}
	cap := b.capacity()
	alive := append([]r1cs.Term(nil), terms...)
	slices.SortFunc(alive, func(a, b r1cs.Term) bool { return a.Var < b.Var })

	for len(alive) > 1 {
		var next []r1cs.Term
		for i := 0; i < len(alive); i += cap {
			end := i + cap
			if end > len(alive) {
				end = len(alive)
			}
			chunk := alive[i:end]
			if len(chunk) == 1 {
				next = append(next, chunk[0])
				continue
			}
			newVar := b.memoizedAdditionRow(chunk)
			next = append(next, r1cs.Term{Var: newVar, Coeff: oneElement()})
		}
		alive = next
	}
	return alive[0].Var, alive[0].Coeff
}

func (b *builder) memoizedAdditionRow(chunk []r1cs.Term) int {
	var key string
	if b.memo != nil {
		key = chunkKey(chunk)
		if v, ok := b.memo[key]; ok {
			return v
		}
	}
	var zero fr.Element
	newVar := b.additionRowRaw(chunk, zero)
	if b.memo != nil {
		b.memo[key] = newVar
	}
	return newVar
}

func chunkKey(chunk []r1cs.Term) string {
	var buf bytes.Buffer
	for _, t := range chunk {
		binary.Write(&buf, binary.LittleEndian, int64(t.Var))
		var bi big.Int
		c := t.Coeff
		c.BigInt(&bi)
		buf.Write(bi.Bytes())
		buf.WriteByte(0xff)
	}
	return buf.String()
}
