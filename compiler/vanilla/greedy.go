package vanilla

import (
	"container/heap"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/nume-crypto/plonkify/circuit"
	"github.com/nume-crypto/plonkify/internal/logger"
	"github.com/nume-crypto/plonkify/internal/parallel"
	"github.com/nume-crypto/plonkify/r1cs"
)

// relation names a candidate two-variable linear sub-expression
// varA + coeff*varB shared across lcs (varA < varB always, matching the
// ascending-by-variable order every lc is kept sorted in).
type relation struct {
	varA, varB int
	coeff      fr.Element
}

// occurrence names one (constraint, lc) site where a relation appears.
type occurrence struct {
	constraintIdx, lcIdx int
}

// coeffInverseCache batch-inverts every coefficient the R1CS's linear
// combinations carry exactly once up front, grounded on the teacher's own
// `coefficientsNegInv := fr.BatchInvert(cs.Coefficients)` in
// internal/backend/bw6-633/cs/r1cs_sparse.go (there to avoid many per-term
// divisions in the constraint solver; here to avoid one per candidate
// relation). makeRelation looks inverses up by canonical value instead of
// calling Inverse per pair.
type coeffInverseCache map[string]fr.Element

func coeffKey(e fr.Element) string {
	var bi big.Int
	e.BigInt(&bi)
	return bi.String()
}

// buildCoeffInverseCache flattens every term coefficient across every lc
// into one slice, batch-inverts it in a single call, and indexes the
// result by canonical value so repeated coefficients share one entry.
func buildCoeffInverseCache(constraints [][3]processedLC) coeffInverseCache {
	var flat []fr.Element
	for _, cl := range constraints {
		for _, p := range cl {
			for _, t := range p.terms {
				flat = append(flat, t.Coeff)
			}
		}
	}
	if len(flat) == 0 {
		return coeffInverseCache{}
	}
	invs := fr.BatchInvert(flat)
	cache := make(coeffInverseCache, len(flat))
	for i, c := range flat {
		cache[coeffKey(c)] = invs[i]
	}
	return cache
}

// inverse returns e's cached inverse, falling back to a direct Inverse call
// for a value the initial batch never saw (unreachable in practice, since
// every coefficient this compiler ever asks to invert is copied forward
// from an original lc term, but kept as a safety net rather than a panic).
func (cache coeffInverseCache) inverse(e fr.Element) fr.Element {
	if inv, ok := cache[coeffKey(e)]; ok {
		return inv
	}
	var inv fr.Element
	inv.Inverse(&e)
	return inv
}

// makeRelation builds the canonical relation key for two (var, coeff)
// positions appearing together in a linear combination: the smaller
// variable first, with the ratio of the larger position's coefficient
// over the smaller's.
func makeRelation(cache coeffInverseCache, var1 int, coeff1 fr.Element, var2 int, coeff2 fr.Element) relation {
	if var1 < var2 {
		var ratio fr.Element
		inv := cache.inverse(coeff1)
		ratio.Mul(&coeff2, &inv)
		return relation{varA: var1, varB: var2, coeff: ratio}
	}
	var ratio fr.Element
	inv := cache.inverse(coeff2)
	ratio.Mul(&coeff1, &inv)
	return relation{varA: var2, varB: var1, coeff: ratio}
}

func compareElements(a, b fr.Element) int {
	var bi, bj big.Int
	a.BigInt(&bi)
	b.BigInt(&bj)
	return bi.Cmp(&bj)
}

// relationRecord is one priority-queue entry: a relation and the
// occurrence count it had when pushed. Stale entries (whose count no
// longer matches the live currentCount table) are discarded lazily on pop
// rather than eagerly removed from the heap.
type relationRecord struct {
	count int
	rel   relation
}

type relationQueue []relationRecord

func (q relationQueue) Len() int { return len(q) }
func (q relationQueue) Less(i, j int) bool {
	if q[i].count != q[j].count {
		return q[i].count > q[j].count
	}
	if q[i].rel.varA != q[j].rel.varA {
		return q[i].rel.varA > q[j].rel.varA
	}
	if q[i].rel.varB != q[j].rel.varB {
		return q[i].rel.varB > q[j].rel.varB
	}
	return compareElements(q[i].rel.coeff, q[j].rel.coeff) > 0
}
func (q relationQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *relationQueue) Push(x any)   { *q = append(*q, x.(relationRecord)) }
func (q *relationQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// processedLC is one R1CS linear combination with its constant term
// folded out and its remaining (nonzero, non-constant) terms sorted
// ascending by variable.
type processedLC struct {
	terms    []r1cs.Term
	constant fr.Element
}

func processLC(lc r1cs.LinearCombination) processedLC {
	lc = lc.Normalize()
	var p processedLC
	for _, t := range lc {
		if t.Var == 0 {
			p.constant = t.Coeff
			continue
		}
		p.terms = append(p.terms, t)
	}
	return p
}

func (p processedLC) toLC() r1cs.LinearCombination {
	out := make(r1cs.LinearCombination, 0, len(p.terms)+1)
	out = append(out, r1cs.Term{Var: 0, Coeff: p.constant})
	out = append(out, p.terms...)
	return out
}

// PlonkifyGreedyBF is the V-Greedy-BF compiler (§4.2.5): instead of
// reducing each constraint's linear combinations independently, it first
// finds the two-variable relations (v_i, v_j, k) that recur most often
// across every lc in the whole R1CS, and greedily closes the most
// frequent one with a single shared addition row, substituting the fresh
// sum variable everywhere that relation occurred. This continues until no
// relation occurs more than once; whatever is left of each lc is then
// closed with V-Optimised's memoised tree fold (lcSumTreeFold).
//
// Grounded on original_source/plonkify/plonkify/src/vanilla/greedy_bf.rs.
func PlonkifyGreedyBF(f *r1cs.File) (*circuit.PlonkishCircuit, [][]fr.Element) {
	log := logger.Logger().With().Str("component", "vanilla.greedy_bf").Logger()
	numPub := int(f.Header.NumPublicInputs())
	log.Debug().Int("constraints", len(f.Constraints)).Int("pub_inputs", numPub).Msg("plonkify start")

	b := newBuilder(f.Witness, true)
	b.emitPublicInputRows(numPub)

	constraints := make([][3]processedLC, len(f.Constraints))
	parallel.Range(len(f.Constraints), func(start, end int) {
		for i := start; i < end; i++ {
			constraints[i] = [3]processedLC{
				processLC(f.Constraints[i].A),
				processLC(f.Constraints[i].B),
				processLC(f.Constraints[i].C),
			}
		}
	})

	cache := buildCoeffInverseCache(constraints)

	// Each constraint's candidate relations are independent of every other
	// constraint's, so the initial relation_occurrences map is built as
	// per-chunk local maps under parallel.Range and combined with
	// parallel.MergeMaps's key-wise append, per §5.
	var chunkMu sync.Mutex
	var chunkMaps []map[relation][]occurrence
	parallel.Range(len(constraints), func(start, end int) {
		local := make(map[relation][]occurrence)
		for ci := start; ci < end; ci++ {
			cl := constraints[ci]
			for li := 0; li < 3; li++ {
				terms := cl[li].terms
				for i := 0; i < len(terms); i++ {
					for j := i + 1; j < len(terms); j++ {
						rel := makeRelation(cache, terms[i].Var, terms[i].Coeff, terms[j].Var, terms[j].Coeff)
						local[rel] = append(local[rel], occurrence{ci, li})
					}
				}
			}
		}
		chunkMu.Lock()
		chunkMaps = append(chunkMaps, local)
		chunkMu.Unlock()
	})
	merged := parallel.MergeMaps(chunkMaps)

	relationOccurrences := make(map[relation]map[occurrence]struct{}, len(merged))
	addOccurrence := func(rel relation, occ occurrence) {
		set, ok := relationOccurrences[rel]
		if !ok {
			set = make(map[occurrence]struct{})
			relationOccurrences[rel] = set
		}
		set[occ] = struct{}{}
	}
	for rel, occs := range merged {
		set := make(map[occurrence]struct{}, len(occs))
		for _, o := range occs {
			set[o] = struct{}{}
		}
		relationOccurrences[rel] = set
	}

	currentCount := make(map[relation]int, len(relationOccurrences))
	for rel, set := range relationOccurrences {
		if len(set) > 1 {
			currentCount[rel] = len(set)
		} else {
			delete(relationOccurrences, rel)
		}
	}

	pq := make(relationQueue, 0, len(currentCount))
	for rel, count := range currentCount {
		pq = append(pq, relationRecord{count: count, rel: rel})
	}
	heap.Init(&pq)

	var one fr.Element
	one.SetOne()

	for pq.Len() > 0 {
		top := heap.Pop(&pq).(relationRecord)
		cur, ok := currentCount[top.rel]
		if !ok || cur != top.count || cur <= 1 {
			continue
		}
		delete(currentCount, top.rel)

		varA, varB, coeff := top.rel.varA, top.rel.varB, top.rel.coeff
		newVar, _ := b.addition(varA, one, varB, coeff)

		occs := relationOccurrences[top.rel]
		delete(relationOccurrences, top.rel)

		touched := make(map[relation]struct{})
		for occ := range occs {
			terms := constraints[occ.constraintIdx][occ.lcIdx].terms
			var coeffA, coeffB fr.Element
			newTerms := make([]r1cs.Term, 0, len(terms)-1)
			for _, t := range terms {
				switch t.Var {
				case varA:
					coeffA = t.Coeff
				case varB:
					coeffB = t.Coeff
				default:
					newTerms = append(newTerms, t)
				}
			}

			for _, t := range newTerms {
				for _, elim := range [2]r1cs.Term{{Var: varA, Coeff: coeffA}, {Var: varB, Coeff: coeffB}} {
					r := makeRelation(cache, t.Var, t.Coeff, elim.Var, elim.Coeff)
					if set, ok := relationOccurrences[r]; ok {
						delete(set, occ)
						if len(set) == 0 {
							delete(relationOccurrences, r)
						}
						touched[r] = struct{}{}
					}
				}
				nr := makeRelation(cache, t.Var, t.Coeff, newVar, coeffA)
				addOccurrence(nr, occ)
				touched[nr] = struct{}{}
			}

			newTerms = append(newTerms, r1cs.Term{Var: newVar, Coeff: coeffA})
			constraints[occ.constraintIdx][occ.lcIdx].terms = newTerms
		}

		for r := range touched {
			set, ok := relationOccurrences[r]
			newCount := 0
			if ok {
				newCount = len(set)
			}
			old, hadOld := currentCount[r]
			if newCount > 1 {
				if !hadOld || old != newCount {
					currentCount[r] = newCount
					heap.Push(&pq, relationRecord{count: newCount, rel: r})
				}
			} else if hadOld {
				delete(currentCount, r)
			}
		}
	}

	for _, cl := range constraints {
		varA, coeffA, constA := lcSumTreeFold(b, cl[0].toLC())
		varB, coeffB, constB := lcSumTreeFold(b, cl[1].toLC())

		cLC := cl[2].toLC()
		if freeVarCount(cLC, varA, varB, 2) <= 1 {
			cTerms := lcSumCOpt(b, cLC, varA, varB)
			var zero fr.Element
			b.mulConstraintCOpt(varA, coeffA, constA, varB, coeffB, constB, cTerms, zero)
		} else {
			varC, coeffC, constC := lcSumTreeFold(b, cLC)
			b.mulConstraint(varA, coeffA, constA, varB, coeffB, constB, varC, coeffC, constC)
		}
	}

	c, witness := b.finish(numPub)
	log.Debug().Int("rows", c.NumConstraints).Msg("plonkify done")
	return c, witness
}
