package general

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/nume-crypto/plonkify/gate"
	"github.com/nume-crypto/plonkify/internal/logger"
	"github.com/nume-crypto/plonkify/r1cs"
	"golang.org/x/exp/slices"
)

func toVarPowers(ms []gate.Monomial) []VarPower {
	out := make([]VarPower, len(ms))
	for i, m := range ms {
		out[i] = VarPower{Var: m.Var, Power: m.Power}
	}
	return out
}

// matchGateSlot finds a gate monomial slot whose factor powers are, as a
// multiset, identical to monomial's, and returns the local<->global variable
// binding induced by pairing the two lists in descending-power order.
// Reports ok=false if no slot has the right shape.
func matchGateSlot(gi *gate.GateInfo, monomial []VarPower) (int, map[int]int, bool) {
	sorted := append([]VarPower(nil), monomial...)
	slices.SortFunc(sorted, func(a, b VarPower) bool { return a.Power > b.Power })

	for i, slot := range gi.Gates {
		if len(slot) != len(sorted) {
			continue
		}
		slotSorted := toVarPowers(slot)
		slices.SortFunc(slotSorted, func(a, b VarPower) bool { return a.Power > b.Power })

		matches := true
		for j := range sorted {
			if slotSorted[j].Power != sorted[j].Power {
				matches = false
				break
			}
		}
		if !matches {
			continue
		}
		binding := make(map[int]int, len(sorted))
		for j := range sorted {
			binding[slotSorted[j].Var] = sorted[j].Var
		}
		return i, binding, true
	}
	return -1, nil, false
}

// packRow emits one row against gate slot slotIdx bound per binding,
// folding coeff*monomial into a fresh output variable; any linear term in
// linear whose variable lands on one of the gate's own linear slots in this
// same binding is fused in for free. Returns the fresh variable and the
// global variables it consumed from linear.
func (b *builder) packRow(slotIdx int, binding map[int]int, coeff fr.Element, linear map[int]fr.Element) (int, []int) {
	selectors := make([]fr.Element, b.numSelectors)
	selectors[slotIdx] = coeff

	rowVars := b.newRowVars()
	for localVar, globalVar := range binding {
		rowVars[localVar] = globalVar
	}

	val := coeff
	for _, vp := range b.gi.Gates[slotIdx] {
		base := b.assignments[rowVars[vp.Var]]
		for p := 0; p < vp.Power; p++ {
			val.Mul(&val, &base)
		}
	}

	var consumed []int
	for _, lt := range b.gi.LinearTerms {
		globalVar, inRow := binding[lt.Var]
		if !inRow {
			continue
		}
		c, has := linear[globalVar]
		if !has {
			continue
		}
		selectors[lt.Selector] = c
		consumed = append(consumed, globalVar)

		var term fr.Element
		term.Mul(&c, &b.assignments[globalVar])
		val.Add(&val, &term)
	}

	var negOne fr.Element
	negOne.SetOne()
	negOne.Neg(&negOne)
	selectors[b.outputSelector] = negOne

	newVar := len(b.assignments)
	rowVars[b.outputVar] = newVar
	b.assignments = append(b.assignments, val)
	b.addRow(selectors, rowVars)
	return newVar, consumed
}

// packConstraint reduces a polynomial constraint to a plain linear
// combination (plus constant) by packing every degree>=2 term into its own
// row against a matching gate monomial, highest degree first, fusing in any
// already-linear term that happens to share the row's binding.
//
// Simplification relative to the original's DFS-based search_gate: each
// non-linear term gets its own row rather than searching for a binding that
// lets several distinct terms share one row, and matchGateSlot takes the
// first shape-compatible slot instead of ranking candidates. Both only
// affect row count, never correctness.
func packConstraint(gi *gate.GateInfo, b *builder, pc PolyConstraint) ([]PolyTerm, fr.Element) {
	pc = pc.Normalize()
	var constant fr.Element
	linear := make(map[int]fr.Element)
	var higher []PolyTerm
	for _, t := range pc {
		switch {
		case len(t.Monomial) == 0:
			constant = t.Coeff
		case t.Degree() == 1:
			linear[t.Monomial[0].Var] = t.Coeff
		default:
			higher = append(higher, t)
		}
	}

	slices.SortFunc(higher, func(a, b PolyTerm) bool { return a.Degree() > b.Degree() })

	for _, t := range higher {
		slotIdx, binding, ok := matchGateSlot(gi, t.Monomial)
		if !ok {
			panic("general: no gate monomial matches a term's shape; tighten ExpansionConfig or use a higher-degree gate")
		}
		newVar, consumed := b.packRow(slotIdx, binding, t.Coeff, linear)
		for _, v := range consumed {
			delete(linear, v)
		}
		linear[newVar] = oneElement()
	}

	terms := make([]PolyTerm, 0, len(linear))
	for v, c := range linear {
		terms = append(terms, PolyTerm{Coeff: c, Monomial: []VarPower{{Var: v, Power: 1}}})
	}
	slices.SortFunc(terms, func(a, b PolyTerm) bool { return a.Monomial[0].Var < b.Monomial[0].Var })
	return terms, constant
}

// closeZero folds a reduced linear combination down to the gate's linear
// capacity (as foldChunked does) and emits a final row that asserts the
// result plus constant is exactly zero, rather than binding a fresh output
// variable. Because the closing row never needs a fresh output variable,
// its own output wire is free: it carries one extra summand beyond the
// gate's ordinary linear capacity, the same free-slot trick
// builder.mulRow uses to fuse a multiplication row's leftover C terms.
func (b *builder) closeZero(terms []PolyTerm, constant fr.Element) {
	cap := b.capacity()
	finalCap := cap + 1
	for len(terms) > finalCap {
		chunk := terms[:cap]
		terms = terms[cap:]

		rterms := make([]r1cs.Term, len(chunk))
		for i, t := range chunk {
			rterms[i] = r1cs.Term{Var: t.Monomial[0].Var, Coeff: t.Coeff}
		}
		var zero fr.Element
		newVar := b.additionRowRaw(rterms, zero)
		terms = append(terms, PolyTerm{Coeff: oneElement(), Monomial: []VarPower{{Var: newVar, Power: 1}}})
	}

	if len(terms) == 0 && constant.IsZero() {
		return
	}

	selectors := make([]fr.Element, b.numSelectors)
	rowVars := b.newRowVars()
	for i, lt := range b.gi.LinearTerms {
		if i < len(terms) {
			selectors[lt.Selector] = terms[i].Coeff
			rowVars[lt.Var] = terms[i].Monomial[0].Var
		}
	}
	if len(terms) > cap {
		extra := terms[cap]
		selectors[b.outputSelector] = extra.Coeff
		rowVars[b.outputVar] = extra.Monomial[0].Var
	}
	selectors[b.constSelector] = constant
	b.addRow(selectors, rowVars)
}

// PlonkifySimple is the G-Simple compiler (§4.4.3): runs the expanded-circuit
// pass and then packs every resulting polynomial constraint directly against
// the custom gate's own monomials instead of bridging through classic
// multiplication rows.
func PlonkifySimple(f *r1cs.File, rawGate *gate.CustomizedGates, gi *gate.GateInfo, cfg ExpansionConfig) (*circuit.PlonkishCircuit, [][]fr.Element) {
	log := logger.Logger().With().Str("component", "general.simple").Logger()
	expanded := Expand(f, cfg)
	log.Debug().Int("constraints", len(expanded.Constraints)).Int("pub_inputs", expanded.NumPublicInputs).Msg("plonkify start")

	b := newBuilder(gi, expanded.Witness, true)
	b.emitPublicInputRows(expanded.NumPublicInputs)

	for _, pc := range expanded.Constraints {
		terms, constant := packConstraint(gi, b, pc)
		b.closeZero(terms, constant)
	}

	c, witness := b.finish(rawGate, expanded.NumPublicInputs)
	log.Debug().Int("rows", c.NumConstraints).Msg("plonkify done")
	return c, witness
}
