// Package general implements the three general-gate compilers
// (G-Naive-Linear, G-Linear-Only, G-Simple) that target an arbitrary
// gate.GateInfo instead of the fixed 5-selector vanilla Plonk gate, plus
// the expanded-circuit preprocessing pass (outlining, dedup, and
// dependency-guided substitution) that feeds G-Simple a polynomial
// constraint system.
//
// G-Naive-Linear and G-Linear-Only mirror compiler/vanilla's V-Simple and
// V-Optimised almost exactly; the row-emission kernel in this file plays
// the same role as compiler/vanilla/kernel.go, generalised to a gate with
// an arbitrary number of linear slots instead of exactly two.
//
// Grounded on original_source/plonkify/plonkify/src/{vanilla,general}/*.rs
// (the general-gate sources generalise the vanilla ones almost verbatim).
package general

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/nume-crypto/plonkify/gate"
	"github.com/nume-crypto/plonkify/r1cs"
)

// slot names one selector/variable pair a multiplication row can fuse a
// free term into: either a genuine linear monomial of the gate, or the
// gate's reserved output slot (which, like vanilla's w_O/q_O, can bind
// any pre-existing variable with any selector weight).
type slot struct {
	varIdx, selector int
}

// builder accumulates rows against one gate.GateInfo: the selector
// columns, each row's local->global variable binding, and every
// variable's witness value including those introduced while folding a
// linear combination. A non-nil memo enables G-Linear-Only's
// canonicalised-addition-row sharing; G-Naive-Linear leaves it nil.
type builder struct {
	gi              *gate.GateInfo
	numSelectors    int
	numWitnessCols  int
	outputSelector  int
	constSelector   int
	outputVar       int
	mulFreeSlots    []slot
	linearCapacity  int

	selectors   [][]fr.Element
	rows        [][]int
	assignments []fr.Element
	memo        map[string]int
}

func newBuilder(gi *gate.GateInfo, witness []fr.Element, memoize bool) *builder {
	numSel := gi.NumSelectorColumns()
	b := &builder{
		gi:             gi,
		numSelectors:   numSel,
		numWitnessCols: gi.NumWitnessColumns(),
		outputSelector: numSel - 2,
		constSelector:  numSel - 1,
		outputVar:      gi.NumWitnessColumns() - 1,
		assignments:    append([]fr.Element(nil), witness...),
		linearCapacity: len(gi.LinearTerms),
	}
	b.selectors = make([][]fr.Element, numSel)

	vc := gi.VanillaCompat
	for _, lt := range gi.LinearTerms {
		if lt.Var == vc.VarA || lt.Var == vc.VarB {
			continue
		}
		b.mulFreeSlots = append(b.mulFreeSlots, slot{varIdx: lt.Var, selector: lt.Selector})
	}
	b.mulFreeSlots = append(b.mulFreeSlots, slot{varIdx: b.outputVar, selector: b.outputSelector})

	if memoize {
		b.memo = make(map[string]int)
	}
	return b
}

func (b *builder) addRow(selectors []fr.Element, vars []int) {
	for i, s := range selectors {
		b.selectors[i] = append(b.selectors[i], s)
	}
	b.rows = append(b.rows, vars)
}

func (b *builder) newRowVars() []int {
	return make([]int, b.numWitnessCols)
}

// emitPublicInputRows appends one free row per public input wire
// (variable ids 1..numPublicInputs), every selector zero, naming the wire
// as the gate's first linear slot so the permutation builder can tie its
// later uses together.
func (b *builder) emitPublicInputRows(numPublicInputs int) {
	if len(b.gi.LinearTerms) == 0 {
		return
	}
	firstSlot := b.gi.LinearTerms[0]
	for i := 1; i <= numPublicInputs; i++ {
		selectors := make([]fr.Element, b.numSelectors)
		rowVars := b.newRowVars()
		rowVars[firstSlot.Var] = i
		b.addRow(selectors, rowVars)
	}
}

func (b *builder) finish(rawGate *gate.CustomizedGates, numPublicInputs int) (*circuit.PlonkishCircuit, [][]fr.Element) {
	numRows := len(b.rows)
	varIDs := make([][]int, b.numWitnessCols)
	for col := range varIDs {
		varIDs[col] = make([]int, numRows)
	}
	for row, vars := range b.rows {
		for col := 0; col < b.numWitnessCols; col++ {
			varIDs[col][row] = vars[col]
		}
	}

	selectorCols := make([]circuit.SelectorColumn, b.numSelectors)
	for i, s := range b.selectors {
		selectorCols[i] = circuit.SelectorColumn(s)
	}

	c := &circuit.PlonkishCircuit{
		Gate:           rawGate,
		NumConstraints: numRows,
		NumPubInputs:   numPublicInputs,
		Selectors:      selectorCols,
		Permutation:    circuit.BuildPermutation(varIDs),
	}

	witness := make([][]fr.Element, b.numWitnessCols)
	for col := 0; col < b.numWitnessCols; col++ {
		witness[col] = make([]fr.Element, numRows)
		for row := 0; row < numRows; row++ {
			witness[col][row] = b.assignments[varIDs[col][row]]
		}
	}
	return c, witness
}

// lcFreeTerms filters lc down to 0/varA/varB-exempt terms plus a single
// folded term summarising every other ("free") variable via a generalised
// addition row -- the general-gate analogue of compiler/vanilla's
// lcSumCOpt.
func (b *builder) lcFreeTerms(lc r1cs.LinearCombination, varA, varB int) []r1cs.Term {
	lc = lc.Normalize()
	var kept []r1cs.Term
	var free []r1cs.Term
	for _, t := range lc {
		if t.Var == 0 || t.Var == varA || t.Var == varB {
			kept = append(kept, t)
			continue
		}
		free = append(free, t)
	}
	if len(free) == 0 {
		return kept
	}
	sumVar, sumCoeff := b.foldChunked(free)
	return append(kept, r1cs.Term{Var: sumVar, Coeff: sumCoeff})
}

// mulRow emits the generalised multiplication row A*B - C = 0, where A and
// B are each already reduced to (var, coeff, const) and C's remaining free
// terms (after filtering 0/varA/varB) are fused directly into whatever
// linear/output slots the gate has spare -- the general-gate analogue of
// compiler/vanilla's mulConstraintCOpt, generalised from "at most one free
// variable" to "at most len(gi.LinearTerms)-1 free variables" (every
// linear slot not already claimed by A or B, plus the always-available
// output slot).
func (b *builder) mulRow(varA int, kA, cA fr.Element, varB int, kB, cB fr.Element, freeTerms []r1cs.Term, constC fr.Element) {
	vc := b.gi.VanillaCompat
	selectors := make([]fr.Element, b.numSelectors)

	var s0, s1, sMul, t, sConst fr.Element
	s0.Mul(&cB, &kA)
	s1.Mul(&cA, &kB)
	sMul.Mul(&kA, &kB)
	t.Mul(&cA, &cB)
	sConst.Sub(&t, &constC)

	selectors[vc.SelA] = s0
	selectors[vc.SelB] = s1
	selectors[vc.SelMul] = sMul

	rowVars := b.newRowVars()
	rowVars[vc.VarA] = varA
	rowVars[vc.VarB] = varB

	slotIdx := 0
	for _, term := range freeTerms {
		switch term.Var {
		case 0:
			sConst.Sub(&sConst, &term.Coeff)
		case varA:
			selectors[vc.SelA].Sub(&selectors[vc.SelA], &term.Coeff)
		case varB:
			selectors[vc.SelB].Sub(&selectors[vc.SelB], &term.Coeff)
		default:
			if slotIdx >= len(b.mulFreeSlots) {
				panic("general: more free C terms than the gate has spare slots for")
			}
			sl := b.mulFreeSlots[slotIdx]
			slotIdx++
			var neg fr.Element
			neg.Neg(&term.Coeff)
			selectors[sl.selector] = neg
			rowVars[sl.varIdx] = term.Var
		}
	}

	selectors[b.constSelector] = sConst
	b.addRow(selectors, rowVars)
}
