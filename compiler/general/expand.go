package general

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/r1cs"
	"golang.org/x/exp/slices"
)

// ExpansionMode selects the predicate ExpansionConfig.Allows applies
// during dependency-guided substitution (§4.3.3).
type ExpansionMode int

const (
	// ExpansionNoLimit never blocks a substitution.
	ExpansionNoLimit ExpansionMode = iota
	// ExpansionMaxWidthDegree blocks a substitution whose result exceeds
	// either MaxWidth (distinct variables) or MaxDegree (highest
	// monomial degree).
	ExpansionMaxWidthDegree
	// ExpansionMaxWeight blocks a substitution whose result's summed
	// monomial degrees exceed MaxWeight.
	ExpansionMaxWeight
)

// ExpansionConfig bounds how aggressively §4.3.3's substitution pass
// inlines linear variables, trading constraint count for per-constraint
// size.
type ExpansionConfig struct {
	Mode                        ExpansionMode
	MaxWidth, MaxDegree         int
	MaxWeight                   int
}

// Allows reports whether pc fits within the configured bound.
func (cfg ExpansionConfig) Allows(pc PolyConstraint) bool {
	switch cfg.Mode {
	case ExpansionMaxWidthDegree:
		vars := make(map[int]struct{})
		maxDeg := 0
		for _, t := range pc {
			if d := t.Degree(); d > maxDeg {
				maxDeg = d
			}
			for _, vp := range t.Monomial {
				vars[vp.Var] = struct{}{}
			}
		}
		return len(vars) <= cfg.MaxWidth && maxDeg <= cfg.MaxDegree
	case ExpansionMaxWeight:
		weight := 0
		for _, t := range pc {
			weight += t.Degree()
		}
		return weight <= cfg.MaxWeight
	default:
		return true
	}
}

// ExpandedSystem is the output of Expand: a polynomial constraint system
// (the original R1CS with large lcs outlined, outlined lcs deduplicated,
// and linear-only variables substituted away) plus the witness extended
// with any fresh outlined variables.
type ExpandedSystem struct {
	Constraints     []PolyConstraint
	Witness         []fr.Element
	NumPublicInputs int
}

// outlinedEq is one fresh-witness outlined equation `body - y = 0`,
// tracked with its body kept separate from the y term so the dedup pass
// (§4.3.2) can compare bodies without repeatedly stripping y back out.
type outlinedEq struct {
	yVar int
	body PolyConstraint
}

const outlineThreshold = 6

// outlineLC replaces lc with a single fresh variable if it has at least
// outlineThreshold terms, recording the dropped equation `lc - y = 0` (as
// just its body, §4.3.1). assignments is extended in place with y's value.
func outlineLC(lc r1cs.LinearCombination, assignments *[]fr.Element) (r1cs.LinearCombination, *outlinedEq) {
	norm := lc.Normalize()
	if len(norm) < outlineThreshold {
		return norm, nil
	}

	y := len(*assignments)
	var val fr.Element
	for _, t := range norm {
		if t.Var == 0 {
			val.Add(&val, &t.Coeff)
			continue
		}
		var p fr.Element
		p.Mul(&t.Coeff, &(*assignments)[t.Var])
		val.Add(&val, &p)
	}
	*assignments = append(*assignments, val)

	body := make(PolyConstraint, 0, len(norm))
	for _, t := range norm {
		if t.Var == 0 {
			body = append(body, PolyTerm{Coeff: t.Coeff})
			continue
		}
		body = append(body, PolyTerm{Coeff: t.Coeff, Monomial: []VarPower{{Var: t.Var, Power: 1}}})
	}

	one := oneElement()
	return r1cs.LinearCombination{{Var: y, Coeff: one}}, &outlinedEq{yVar: y, body: body.Normalize()}
}

func bodyLinearTerms(body PolyConstraint) []PolyTerm {
	var out []PolyTerm
	for _, t := range body {
		if len(t.Monomial) == 1 && t.Monomial[0].Power == 1 {
			out = append(out, t)
		}
	}
	return out
}

// dedupeOutlined implements §4.3.2: processed in ascending term-count
// order, each outlined equation is checked against every previously-kept
// one for a common scalar-multiple monomial prefix; on a match its body
// is rewritten as that scalar times the earlier equation's y plus its own
// residual, shortening it.
func dedupeOutlined(eqs []*outlinedEq) {
	slices.SortStableFunc(eqs, func(a, b *outlinedEq) bool { return len(a.body) < len(b.body) })
	for bi := 1; bi < len(eqs); bi++ {
		for ai := 0; ai < bi; ai++ {
			if rewriteAsScalarPrefix(eqs[ai], eqs[bi]) {
				break
			}
		}
	}
}

func rewriteAsScalarPrefix(a, b *outlinedEq) bool {
	aTerms := bodyLinearTerms(a.body)
	bTerms := bodyLinearTerms(b.body)
	if len(aTerms) == 0 || len(aTerms) > len(bTerms) {
		return false
	}
	var scalar fr.Element
	for i, at := range aTerms {
		bt := bTerms[i]
		if at.Monomial[0].Var != bt.Monomial[0].Var {
			return false
		}
		var inv, ratio fr.Element
		inv.Inverse(&at.Coeff)
		ratio.Mul(&bt.Coeff, &inv)
		if i == 0 {
			scalar = ratio
		} else if !scalar.Equal(&ratio) {
			return false
		}
	}

	newBody := make(PolyConstraint, 0, len(bTerms)-len(aTerms)+2)
	for _, t := range b.body {
		if len(t.Monomial) == 0 {
			newBody = append(newBody, t)
		}
	}
	newBody = append(newBody, bTerms[len(aTerms):]...)
	newBody = append(newBody, PolyTerm{Coeff: scalar, Monomial: []VarPower{{Var: a.yVar, Power: 1}}})
	for _, t := range a.body {
		if len(t.Monomial) == 0 {
			var c fr.Element
			c.Mul(&scalar, &t.Coeff)
			c.Neg(&c)
			newBody = append(newBody, PolyTerm{Coeff: c})
		}
	}
	b.body = newBody.Normalize()
	return true
}

func finalizeOutlined(eq *outlinedEq) PolyConstraint {
	var negOne fr.Element
	negOne.SetOne()
	negOne.Neg(&negOne)
	out := append(PolyConstraint(nil), eq.body...)
	out = append(out, PolyTerm{Coeff: negOne, Monomial: []VarPower{{Var: eq.yVar, Power: 1}}})
	return out.Normalize()
}

func referencesVar(pc PolyConstraint, v int) bool {
	for _, t := range pc {
		for _, vp := range t.Monomial {
			if vp.Var == v {
				return true
			}
		}
	}
	return false
}

// inlineVar substitutes every occurrence of variable v in pc (at whatever
// power it appears) with the polynomial solution, re-expanding and
// re-normalising the result.
func inlineVar(pc PolyConstraint, v int, solution PolyConstraint) PolyConstraint {
	var out PolyConstraint
	for _, t := range pc {
		idx := -1
		for i, vp := range t.Monomial {
			if vp.Var == v {
				idx = i
				break
			}
		}
		if idx == -1 {
			out = append(out, t)
			continue
		}

		power := t.Monomial[idx].Power
		rest := make([]VarPower, 0, len(t.Monomial)-1)
		rest = append(rest, t.Monomial[:idx]...)
		rest = append(rest, t.Monomial[idx+1:]...)

		expanded := []PolyTerm{{Coeff: t.Coeff, Monomial: rest}}
		for p := 0; p < power; p++ {
			var next []PolyTerm
			for _, e := range expanded {
				for _, s := range solution {
					var c fr.Element
					c.Mul(&e.Coeff, &s.Coeff)
					next = append(next, PolyTerm{Coeff: c, Monomial: mergeMonomials(e.Monomial, s.Monomial)})
				}
			}
			expanded = next
		}
		out = append(out, expanded...)
	}
	return out.Normalize()
}

// substitute implements §4.3.3: repeatedly finds a constraint with a
// variable that appears as a degree-1 term in that constraint and never
// appears nonlinearly anywhere in the (still-active) system, solves for
// it, and inlines the solution into every other constraint that
// references it -- provided both the target constraint and the result of
// inlining still satisfy cfg. A constraint inlining fails for keeps its
// variable (and is retried on a later pass, since other eliminations may
// shrink it enough to fit).
//
// Simplification relative to the original's dual priority queues: ties
// among multiple eligible variables in one pass are broken by constraint
// index order rather than global dependent-count, and a constraint is
// processed as soon as it has any eligible variable rather than waiting
// for exactly one to remain. Termination and the final partition into
// "inlined away" vs "kept" are unaffected; only the order constraints are
// visited in differs.
func substitute(constraints []PolyConstraint, cfg ExpansionConfig) []PolyConstraint {
	active := append([]PolyConstraint(nil), constraints...)
	visited := make([]bool, len(active))
	eliminated := make(map[int]struct{})

	for {
		nonlinearEver := make(map[int]bool)
		for ci, pc := range active {
			if visited[ci] {
				continue
			}
			for _, t := range pc {
				if t.Degree() >= 2 {
					for _, vp := range t.Monomial {
						nonlinearEver[vp.Var] = true
					}
				}
			}
		}

		progressed := false
		for ci := range active {
			if visited[ci] {
				continue
			}
			pc := active[ci]

			chosen := -1
			var chosenCoeff fr.Element
			for _, t := range pc {
				if t.Degree() != 1 {
					continue
				}
				v := t.Monomial[0].Var
				if nonlinearEver[v] {
					continue
				}
				if _, done := eliminated[v]; done {
					continue
				}
				chosen = v
				chosenCoeff = t.Coeff
				break
			}
			if chosen == -1 {
				continue
			}

			residual := make(PolyConstraint, 0, len(pc))
			for _, t := range pc {
				if t.Degree() == 1 && t.Monomial[0].Var == chosen {
					continue
				}
				residual = append(residual, t)
			}
			var invCoeff, negInv fr.Element
			invCoeff.Inverse(&chosenCoeff)
			negInv.Neg(&invCoeff)
			solution := make(PolyConstraint, len(residual))
			for i, t := range residual {
				var c fr.Element
				c.Mul(&t.Coeff, &negInv)
				solution[i] = PolyTerm{Coeff: c, Monomial: t.Monomial}
			}

			attempt := append([]PolyConstraint(nil), active...)
			fits := true
			for oi, opc := range active {
				if oi == ci || visited[oi] {
					continue
				}
				if !referencesVar(opc, chosen) {
					continue
				}
				inlined := inlineVar(opc, chosen, solution)
				if !cfg.Allows(inlined) {
					fits = false
					break
				}
				attempt[oi] = inlined
			}
			if !fits {
				continue
			}

			active = attempt
			visited[ci] = true
			eliminated[chosen] = struct{}{}
			progressed = true
		}
		if !progressed {
			break
		}
	}

	out := make([]PolyConstraint, 0, len(active))
	for i, v := range visited {
		if !v {
			out = append(out, active[i])
		}
	}
	return out
}

// Expand runs the full expanded-circuit pass (§4.3): outline every lc with
// ≥6 terms, deduplicate the outlined equations, expand each (possibly
// outlined) R1CS triple into a multivariate polynomial, and finally
// substitute away whatever linear-only variables cfg allows.
func Expand(f *r1cs.File, cfg ExpansionConfig) *ExpandedSystem {
	witness := append([]fr.Element(nil), f.Witness...)

	var outlined []*outlinedEq
	mainConstraints := make([]PolyConstraint, 0, len(f.Constraints))

	for _, constr := range f.Constraints {
		a, eqA := outlineLC(constr.A, &witness)
		b, eqB := outlineLC(constr.B, &witness)
		c, eqC := outlineLC(constr.C, &witness)
		for _, eq := range []*outlinedEq{eqA, eqB, eqC} {
			if eq != nil {
				outlined = append(outlined, eq)
			}
		}
		mainConstraints = append(mainConstraints, toPolyConstraint(r1cs.Constraint{A: a, B: b, C: c}))
	}

	dedupeOutlined(outlined)

	all := make([]PolyConstraint, 0, len(mainConstraints)+len(outlined))
	all = append(all, mainConstraints...)
	for _, eq := range outlined {
		all = append(all, finalizeOutlined(eq))
	}

	final := substitute(all, cfg)

	return &ExpandedSystem{
		Constraints:     final,
		Witness:         witness,
		NumPublicInputs: int(f.Header.NumPublicInputs()),
	}
}
