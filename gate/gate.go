// Package gate describes the algebraic shape of a Plonkish custom gate: a
// sum of selector-weighted witness monomials that every row of a compiled
// circuit must evaluate to zero. CustomizedGates is the raw, user-supplied
// description; GateInfo is the derived form the compilers in
// compiler/vanilla and compiler/general actually consume.
package gate

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/exp/slices"
)

// ErrUnsupportedGate is returned when a raw gate violates one of the
// structural preconditions GateInfo construction depends on.
var ErrUnsupportedGate = errors.New("unsupported gate")

// noSelector marks a monomial that carries no selector. Evaluate and
// NumSelectorColumns accept such monomials; NewGateInfo rejects them, and
// none of the gate constructors below produce one.
const noSelector = -1

// RawTerm is one summand of a CustomizedGates: coeff * q_selector * product(vars).
// Coeff must be exactly 1 in a well-formed gate: NewGateInfo rejects any
// other value, including -1.
type RawTerm struct {
	Coeff    int64
	Selector int // noSelector (-1) if this monomial has no selector column
	Vars     []int
}

// CustomizedGates is the raw, user-facing gate description: a flat list of
// terms. The last term must be the pure constant (q_C, no variables); the
// second-to-last must be a single output variable with power 1 (q_O * w_out).
type CustomizedGates struct {
	Gates []RawTerm
}

// Degree returns the highest total degree (variable count, plus one for a
// monomial's own selector being present counts towards nothing — degree is
// purely the witness-variable count) among all terms.
func (g *CustomizedGates) Degree() int {
	res := 0
	for _, t := range g.Gates {
		d := len(t.Vars)
		if d > res {
			res = d
		}
	}
	return res
}

// NumSelectorColumns returns the number of distinct selector columns used.
func (g *CustomizedGates) NumSelectorColumns() int {
	res := 0
	for _, t := range g.Gates {
		if t.Selector != noSelector {
			res++
		}
	}
	return res
}

// NumWitnessColumns returns the number of witness columns, inferred from
// the largest variable index referenced (variable lists must be sorted
// ascending within each term, so only the last entry needs checking).
func (g *CustomizedGates) NumWitnessColumns() int {
	res := 0
	for _, t := range g.Gates {
		if len(t.Vars) == 0 {
			continue
		}
		if p := t.Vars[len(t.Vars)-1]; p >= res {
			res = p
		}
	}
	return res + 1
}

// Evaluate computes the gate polynomial at one row, given the full selector
// and witness vectors for that row (witness indexed directly by the
// variable indices named in the gate, with no local->global indirection).
func (g *CustomizedGates) Evaluate(selectors, witness []fr.Element) fr.Element {
	var res fr.Element
	for _, t := range g.Gates {
		term := coeffElement(t.Coeff)
		if t.Selector != noSelector {
			term.Mul(&term, &selectors[t.Selector])
		}
		for _, wi := range t.Vars {
			term.Mul(&term, &witness[wi])
		}
		res.Add(&res, &term)
	}
	return res
}

func coeffElement(c int64) fr.Element {
	var e fr.Element
	if c < 0 {
		e.SetInt64(-c)
		e.Neg(&e)
	} else {
		e.SetInt64(c)
	}
	return e
}

// VanillaPlonkGate returns the 5-selector vanilla Plonk gate
// q_L*w1 + q_R*w2 + q_O*w3 + q_M*w1*w2 + q_C = 0.
func VanillaPlonkGate() *CustomizedGates {
	return &CustomizedGates{Gates: []RawTerm{
		{Coeff: 1, Selector: 0, Vars: []int{0}},
		{Coeff: 1, Selector: 1, Vars: []int{1}},
		{Coeff: 1, Selector: 2, Vars: []int{2}},
		{Coeff: 1, Selector: 3, Vars: []int{0, 1}},
		{Coeff: 1, Selector: 4, Vars: []int{}},
	}}
}

// JellyfishTurboPlonkGate returns the 13-selector, 5-witness Jellyfish
// Turbo-Plonk gate:
//
//	q1 w1 + q2 w2 + q3 w3 + q4 w4 + qM1 w1w2 + qM2 w3w4
//	+ qH1 w1^5 + qH2 w2^5 + qH3 w3^5 + qH4 w4^5 + qE w1w2w3w4 + qO w5 + qC = 0
func JellyfishTurboPlonkGate() *CustomizedGates {
	return &CustomizedGates{Gates: []RawTerm{
		{Coeff: 1, Selector: 0, Vars: []int{0}},
		{Coeff: 1, Selector: 1, Vars: []int{1}},
		{Coeff: 1, Selector: 2, Vars: []int{2}},
		{Coeff: 1, Selector: 3, Vars: []int{3}},
		{Coeff: 1, Selector: 4, Vars: []int{0, 1}},
		{Coeff: 1, Selector: 5, Vars: []int{2, 3}},
		{Coeff: 1, Selector: 6, Vars: []int{0, 0, 0, 0, 0}},
		{Coeff: 1, Selector: 7, Vars: []int{1, 1, 1, 1, 1}},
		{Coeff: 1, Selector: 8, Vars: []int{2, 2, 2, 2, 2}},
		{Coeff: 1, Selector: 9, Vars: []int{3, 3, 3, 3, 3}},
		{Coeff: 1, Selector: 10, Vars: []int{0, 1, 2, 3}},
		{Coeff: 1, Selector: 11, Vars: []int{4}},
		{Coeff: 1, Selector: 12, Vars: []int{}},
	}}
}

// MockGate returns a gate over numWitness witness columns, with one
// high-degree monomial w_0^degree, a linear term per witness column (the
// one on the last column is the output slot), and a constant. It is a synthetic stress-test fixture,
// not meant to model a real proving backend's gate.
func MockGate(numWitness, degree int) *CustomizedGates {
	highDegree := make([]int, degree-1)
	gates := make([]RawTerm, 0, numWitness+2)
	highDegree = append(highDegree, 0)
	gates = append(gates, RawTerm{Coeff: 1, Selector: 0, Vars: highDegree})
	for i := 0; i < numWitness; i++ {
		gates = append(gates, RawTerm{Coeff: 1, Selector: i + 1, Vars: []int{i}})
	}
	gates = append(gates, RawTerm{Coeff: 1, Selector: numWitness + 1, Vars: []int{}})
	return &CustomizedGates{Gates: gates}
}

// SuperLongSelectorGate returns a gate with more selectors than twice its
// witness-column count: q1 w1 + q2 w2 + q3 w3 + q4 w1w2 + q5 w1w3 + q6 w2w3 + q7 = 0.
func SuperLongSelectorGate() *CustomizedGates {
	return &CustomizedGates{Gates: []RawTerm{
		{Coeff: 1, Selector: 0, Vars: []int{0}},
		{Coeff: 1, Selector: 1, Vars: []int{1}},
		{Coeff: 1, Selector: 2, Vars: []int{2}},
		{Coeff: 1, Selector: 3, Vars: []int{0, 1}},
		{Coeff: 1, Selector: 4, Vars: []int{0, 2}},
		{Coeff: 1, Selector: 5, Vars: []int{1, 2}},
		{Coeff: 1, Selector: 6, Vars: []int{}},
	}}
}

// SuperLongSelectorGateWithOutput is SuperLongSelectorGate plus an explicit
// output slot, used by test_gate_info_2-equivalent fixtures.
func SuperLongSelectorGateWithOutput() *CustomizedGates {
	return &CustomizedGates{Gates: []RawTerm{
		{Coeff: 1, Selector: 0, Vars: []int{0}},
		{Coeff: 1, Selector: 1, Vars: []int{1}},
		{Coeff: 1, Selector: 2, Vars: []int{2}},
		{Coeff: 1, Selector: 3, Vars: []int{0, 1}},
		{Coeff: 1, Selector: 4, Vars: []int{0, 2}},
		{Coeff: 1, Selector: 5, Vars: []int{1, 2}},
		{Coeff: 1, Selector: 6, Vars: []int{3}},
		{Coeff: 1, Selector: 7, Vars: []int{}},
	}}
}

// Monomial is one (local_var, power) pair inside a GateInfo monomial.
type Monomial struct {
	Var   int
	Power int
}

// LinearTerm names a gate monomial that is a single variable raised to the
// first power, together with the selector column it sits in.
type LinearTerm struct {
	Var      int
	Selector int
}

// VanillaCompat is the bridge information used to emit a classic
// multiplication row (a*b -> c) against an arbitrary custom gate: two
// distinguished linear monomials and the multiplication monomial joining
// them.
type VanillaCompat struct {
	VarA, VarB         int
	SelA, SelB, SelMul int
}

// GateInfo is the derived, compiler-facing form of a CustomizedGates: the
// constant and output strip removed, monomials grouped by repeated
// variable into (var, power) pairs, and the witness-variable symmetries of
// the gate enumerated as Orders.
type GateInfo struct {
	Gates         [][]Monomial
	IsLinear      []bool
	Orders        [][]int
	LinearTerms   []LinearTerm
	VanillaCompat VanillaCompat
}

// NumSelectorColumns is the number of non-linear/linear monomial selectors
// plus the two reserved for output and constant.
func (gi *GateInfo) NumSelectorColumns() int {
	return len(gi.Gates) + 2
}

// NumWitnessColumns is the number of witness columns, including the
// reserved output column.
func (gi *GateInfo) NumWitnessColumns() int {
	res := 0
	for _, m := range gi.Gates {
		if len(m) == 0 {
			continue
		}
		if v := m[len(m)-1].Var; v >= res {
			res = v
		}
	}
	return res + 2
}

// NewGateInfo validates a raw gate and derives its GateInfo.
//
// It requires: every coefficient equal to 1, every monomial carrying a
// selector and selectors assigned in strictly increasing order starting at
// 0, a final pure-constant monomial, a second-to-last single-variable
// output monomial referencing the last witness column, and at least two
// linear monomials whose variables also appear together as a plain
// multiplication monomial elsewhere in the gate (the degree-2 "vanilla
// bridge" needed to emit multiplication rows — a gate with no such
// monomial is rejected here rather than failing deep inside term packing).
func NewGateInfo(g *CustomizedGates) (*GateInfo, error) {
	gates := make([][]Monomial, 0, len(g.Gates))
	for _, t := range g.Gates {
		if t.Coeff != 1 {
			return nil, fmt.Errorf("%w: non-1 coefficient is unsupported", ErrUnsupportedGate)
		}
		if t.Selector == noSelector {
			return nil, fmt.Errorf("%w: missing selector is unsupported", ErrUnsupportedGate)
		}
		if t.Selector != len(gates) {
			return nil, fmt.Errorf("%w: selector indices must not be skipped", ErrUnsupportedGate)
		}
		var out []Monomial
		for i, v := range t.Vars {
			if i == 0 || v != t.Vars[i-1] {
				out = append(out, Monomial{Var: v, Power: 0})
			}
			out[len(out)-1].Power++
		}
		gates = append(gates, out)
	}
	if len(gates) == 0 || len(gates[len(gates)-1]) != 0 {
		return nil, fmt.Errorf("%w: missing constant term", ErrUnsupportedGate)
	}
	if len(gates) < 2 {
		return nil, fmt.Errorf("%w: gate has no output term", ErrUnsupportedGate)
	}
	outputTerm := gates[len(gates)-2]
	if len(outputTerm) != 1 || outputTerm[0].Power != 1 || outputTerm[0].Var != g.NumWitnessColumns()-1 {
		return nil, fmt.Errorf("%w: output term is not in proper form", ErrUnsupportedGate)
	}
	gates = gates[:len(gates)-2]

	isLinear := make([]bool, len(gates))
	var linearTerms []LinearTerm
	for selectorIdx, m := range gates {
		if len(m) == 1 && m[0].Power == 1 {
			isLinear[selectorIdx] = true
			linearTerms = append(linearTerms, LinearTerm{Var: m[0].Var, Selector: selectorIdx})
		}
	}
	if len(linearTerms) < 2 {
		return nil, fmt.Errorf("%w: gate needs at least two linear monomials", ErrUnsupportedGate)
	}

	varA, varB := linearTerms[0].Var, linearTerms[1].Var
	mulSelector := -1
	for i, m := range gates {
		if monomialEquals(m, []Monomial{{Var: varA, Power: 1}, {Var: varB, Power: 1}}) {
			mulSelector = i
			break
		}
	}
	if mulSelector == -1 {
		return nil, fmt.Errorf("%w: failed to find multiplication monomial", ErrUnsupportedGate)
	}
	vanillaCompat := VanillaCompat{
		VarA: varA, VarB: varB,
		SelA: linearTerms[0].Selector, SelB: linearTerms[1].Selector,
		SelMul: mulSelector,
	}

	orders := enumerateOrders(gates, g.NumWitnessColumns()-1)

	return &GateInfo{
		Gates:         gates,
		IsLinear:      isLinear,
		Orders:        orders,
		LinearTerms:   linearTerms,
		VanillaCompat: vanillaCompat,
	}, nil
}

func monomialEquals(a, b []Monomial) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// enumerateOrders walks every permutation of [0, numVars) in lexicographic
// order (via nextPermutation) and records, for each, the "effective gate"
// obtained by renaming every monomial's variables through the permutation
// (dropping the reserved output index), sorting each monomial and the
// monomial list, and keeping only the first permutation to produce each
// distinct effective shape.
func enumerateOrders(gates [][]Monomial, numVars int) [][]int {
	perm := make([]int, numVars)
	for i := range perm {
		perm[i] = i
	}

	seen := make(map[string]struct{})
	var orders [][]int
	for {
		effective := make([][]Monomial, 0, len(gates))
		for _, m := range gates {
			renamed := make([]Monomial, 0, len(m))
			for _, mv := range m {
				if mv.Var == numVars {
					continue
				}
				renamed = append(renamed, Monomial{Var: perm[mv.Var], Power: mv.Power})
			}
			slices.SortFunc(renamed, func(a, b Monomial) bool {
				if a.Var != b.Var {
					return a.Var < b.Var
				}
				return a.Power < b.Power
			})
			effective = append(effective, renamed)
		}
		slices.SortFunc(effective, func(a, b []Monomial) bool {
			return monomialSliceLess(a, b)
		})

		key := effectiveKey(effective)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			ordered := make([]int, len(perm))
			copy(ordered, perm)
			orders = append(orders, ordered)
		}

		if !nextPermutation(perm) {
			break
		}
	}
	return orders
}

func monomialSliceLess(a, b []Monomial) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i].Var != b[i].Var {
				return a[i].Var < b[i].Var
			}
			return a[i].Power < b[i].Power
		}
	}
	return len(a) < len(b)
}

func effectiveKey(effective [][]Monomial) string {
	var sb []byte
	for _, m := range effective {
		for _, mv := range m {
			sb = append(sb, byte(mv.Var), byte(mv.Var>>8), byte(mv.Power), byte(mv.Power>>8))
		}
		sb = append(sb, 0xff)
	}
	return string(sb)
}

// nextPermutation rearranges v in-place into the lexicographically next
// permutation; returns false and leaves v sorted ascending if v was
// already the last permutation.
func nextPermutation(v []int) bool {
	if len(v) <= 1 {
		return false
	}
	i := len(v) - 1
	for i > 0 {
		i--
		if v[i] < v[i+1] {
			j := len(v) - 1
			for v[i] >= v[j] {
				j--
			}
			v[i], v[j] = v[j], v[i]
			for lo, hi := i+1, len(v)-1; lo < hi; lo, hi = lo+1, hi-1 {
				v[lo], v[hi] = v[hi], v[lo]
			}
			return true
		}
	}
	return false
}

// JellyfishTurboPlonkGateInfo returns the literal, hand-verified GateInfo
// for the Jellyfish Turbo-Plonk gate, matching what NewGateInfo(JellyfishTurboPlonkGate())
// computes. It exists as a cheap ground-truth fixture for tests.
func JellyfishTurboPlonkGateInfo() *GateInfo {
	return &GateInfo{
		Gates: [][]Monomial{
			{{Var: 0, Power: 1}},
			{{Var: 1, Power: 1}},
			{{Var: 2, Power: 1}},
			{{Var: 3, Power: 1}},
			{{Var: 0, Power: 1}, {Var: 1, Power: 1}},
			{{Var: 2, Power: 1}, {Var: 3, Power: 1}},
			{{Var: 0, Power: 5}},
			{{Var: 1, Power: 5}},
			{{Var: 2, Power: 5}},
			{{Var: 3, Power: 5}},
			{{Var: 0, Power: 1}, {Var: 1, Power: 1}, {Var: 2, Power: 1}, {Var: 3, Power: 1}},
		},
		IsLinear: []bool{true, true, true, true, false, false, false, false, false, false, false},
		Orders: [][]int{
			{0, 1, 2, 3},
			{0, 2, 1, 3},
			{0, 3, 1, 2},
		},
		LinearTerms:   []LinearTerm{{Var: 0, Selector: 0}, {Var: 1, Selector: 1}, {Var: 2, Selector: 2}, {Var: 3, Selector: 3}},
		VanillaCompat: VanillaCompat{VarA: 0, VarB: 1, SelA: 0, SelB: 1, SelMul: 4},
	}
}

// Evaluate computes the gate polynomial, including the output and constant
// selectors, for one row. variables maps each local witness column (the
// gate's own numbering, plus the reserved output column) to a global
// witness index; witness holds the values indexed globally.
func (gi *GateInfo) Evaluate(selectors, witness []fr.Element, variables []int) fr.Element {
	res := gi.evaluateNonOutputTerms(selectors, witness, variables)
	n := len(selectors)
	var outTerm fr.Element
	outTerm.Mul(&selectors[n-2], &witness[variables[len(variables)-1]])
	res.Add(&res, &outTerm)
	res.Add(&res, &selectors[n-1])
	return res
}

// EvaluateNoOutput is Evaluate without the reserved output term.
func (gi *GateInfo) EvaluateNoOutput(selectors, witness []fr.Element, variables []int) fr.Element {
	res := gi.evaluateNonOutputTerms(selectors, witness, variables)
	res.Add(&res, &selectors[len(selectors)-1])
	return res
}

func (gi *GateInfo) evaluateNonOutputTerms(selectors, witness []fr.Element, variables []int) fr.Element {
	var res fr.Element
	for i, m := range gi.Gates {
		if selectors[i].IsZero() {
			continue
		}
		var term fr.Element
		term.SetOne()
		for _, mv := range m {
			base := witness[variables[mv.Var]]
			for p := 0; p < mv.Power; p++ {
				term.Mul(&term, &base)
			}
		}
		term.Mul(&term, &selectors[i])
		res.Add(&res, &term)
	}
	return res
}
