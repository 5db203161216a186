package circuit

// BuildPermutation builds a forward-rotation copy-constraint permutation
// from a per-cell variable-id matrix varIDs[col][row]: cells that carry the
// same variable id are linked into a cycle where each cell points to the
// next occurrence of that id (in column-major, then row order), wrapping
// the last occurrence back to the first. A variable used in only one cell
// gets a trivial self-cycle.
//
// All columns of varIDs must have equal length; that length is the row
// count the returned permutation (and Flatten/Unflatten) is defined over.
func BuildPermutation(varIDs [][]int) []int {
	numCols := len(varIDs)
	numConstraints := 0
	if numCols > 0 {
		numConstraints = len(varIDs[0])
	}
	flat := func(col, row int) int { return col*numConstraints + row }

	occurrences := make(map[int][]int)
	for col := range varIDs {
		for row, id := range varIDs[col] {
			occurrences[id] = append(occurrences[id], flat(col, row))
		}
	}

	perm := make([]int, numCols*numConstraints)
	for i := range perm {
		perm[i] = i
	}
	for _, cells := range occurrences {
		if len(cells) < 2 {
			continue
		}
		for i, c := range cells {
			perm[c] = cells[(i+1)%len(cells)]
		}
	}
	return perm
}

// PadPermutation grows a permutation built over oldNumConstraints rows per
// column to newNumConstraints rows per column (newNumConstraints >=
// oldNumConstraints). Existing cycles are preserved: every old cell is
// remapped to its new flattened index, which keeps each cycle's closing
// link (the one that used to wrap the last occurrence back to the first)
// pointing at the correct cell under the new row count.
//
// The freshly-inserted rows at the tail of every column are not left as
// bare self-cycles: per §4.5.1, they are chained into a single trailing
// cycle (column-major, ascending row order) so that added rows that are
// not simply padding -- e.g. a padded public-input column, whose cells
// must still agree with each other -- belong to one well-defined
// equivalence class instead of each silently equalling only itself.
func PadPermutation(perm []int, numCols, oldNumConstraints, newNumConstraints int) []int {
	if newNumConstraints < oldNumConstraints {
		panic("circuit: PadPermutation cannot shrink a permutation")
	}
	remap := func(idx int) int {
		col := idx / oldNumConstraints
		row := idx % oldNumConstraints
		return col*newNumConstraints + row
	}

	out := make([]int, numCols*newNumConstraints)
	for i := range out {
		out[i] = i
	}
	for idx, next := range perm {
		out[remap(idx)] = remap(next)
	}

	if newNumConstraints == oldNumConstraints {
		return out
	}
	var fresh []int
	for col := 0; col < numCols; col++ {
		for row := oldNumConstraints; row < newNumConstraints; row++ {
			fresh = append(fresh, col*newNumConstraints+row)
		}
	}
	for i, c := range fresh {
		out[c] = fresh[(i+1)%len(fresh)]
	}
	return out
}
