package store

import "github.com/aleksaelezovic/fusiondb/pkg/encoding"

// idx3 is a three-level trie over ObjectIds, used for the default
// graph's SPO/POS/OSP permutations: the outer two levels narrow by
// exact match, the innermost level's slice is the posting list.
type idx3 map[encoding.ObjectId]map[encoding.ObjectId]map[encoding.ObjectId][]int

// idx4 is the named-graph counterpart (GSPO/GPOS/GOSP): graph is
// always the leading key, so a query restricted to one graph prunes
// the whole subtree in one hash lookup before narrowing further.
type idx4 map[encoding.ObjectId]map[encoding.ObjectId]map[encoding.ObjectId]map[encoding.ObjectId][]int

func insert3(t idx3, a, b, c encoding.ObjectId, pos int) {
	l2, ok := t[a]
	if !ok {
		l2 = map[encoding.ObjectId]map[encoding.ObjectId][]int{}
		t[a] = l2
	}
	l3, ok := l2[b]
	if !ok {
		l3 = map[encoding.ObjectId][]int{}
		l2[b] = l3
	}
	l3[c] = append(l3[c], pos)
}

func insert4(t idx4, g, a, b, c encoding.ObjectId, pos int) {
	l2, ok := t[g]
	if !ok {
		l2 = map[encoding.ObjectId]map[encoding.ObjectId]map[encoding.ObjectId][]int{}
		t[g] = l2
	}
	l3, ok := l2[a]
	if !ok {
		l3 = map[encoding.ObjectId]map[encoding.ObjectId][]int{}
		l2[a] = l3
	}
	l4, ok := l3[b]
	if !ok {
		l4 = map[encoding.ObjectId][]int{}
		l3[b] = l4
	}
	l4[c] = append(l4[c], pos)
}

// index is the live multi-index over a store's quad array: three
// permutations for the default graph and three graph-leading ones for
// named graphs, selected by how many leading positions of the pattern
// are bound once the pattern is rewritten into that permutation's
// order. Maintained incrementally under the store's write lock, so
// readers scanning under an RLock never observe a partially inserted
// posting list.
type index struct {
	spo idx3 // default graph, order (S,P,O)
	pos idx3 // default graph, order (P,O,S)
	osp idx3 // default graph, order (O,S,P)

	gspo idx4 // named graphs, order (G,S,P,O)
	gpos idx4 // named graphs, order (G,P,O,S)
	gosp idx4 // named graphs, order (G,O,S,P)
}

func newIndex() *index {
	return &index{
		spo:  idx3{}, pos: idx3{}, osp: idx3{},
		gspo: idx4{}, gpos: idx4{}, gosp: idx4{},
	}
}

// add indexes the quad at position pos of the store's quad array under
// all six permutations relevant to its graph.
func (ix *index) add(q Quad, pos int) {
	if q.Graph == encoding.DefaultGraphId {
		insert3(ix.spo, q.Subject, q.Predicate, q.Object, pos)
		insert3(ix.pos, q.Predicate, q.Object, q.Subject, pos)
		insert3(ix.osp, q.Object, q.Subject, q.Predicate, pos)
		return
	}
	insert4(ix.gspo, q.Graph, q.Subject, q.Predicate, q.Object, pos)
	insert4(ix.gpos, q.Graph, q.Predicate, q.Object, q.Subject, pos)
	insert4(ix.gosp, q.Graph, q.Object, q.Subject, q.Predicate, pos)
}

// collect3 walks a bound prefix (however many of a,b,c are Bound, in
// that order) then flattens everything beneath it into the result.
func collect3(t idx3, a, b, c Slot) []int {
	if !a.Bound {
		return flatten3(t)
	}
	l2, ok := t[a.Value]
	if !ok {
		return nil
	}
	if !b.Bound {
		return flatten2(l2)
	}
	l3, ok := l2[b.Value]
	if !ok {
		return nil
	}
	if !c.Bound {
		return flattenLeaf(l3)
	}
	return l3[c.Value]
}

func collect4(t idx4, g, a, b, c Slot) []int {
	if !g.Bound {
		var out []int
		for _, l2 := range t {
			out = append(out, collect3FromL2(l2, a, b, c)...)
		}
		return out
	}
	l2, ok := t[g.Value]
	if !ok {
		return nil
	}
	return collect3FromL2(l2, a, b, c)
}

func collect3FromL2(l2 map[encoding.ObjectId]map[encoding.ObjectId]map[encoding.ObjectId][]int, a, b, c Slot) []int {
	if !a.Bound {
		return flatten3(l2)
	}
	l3, ok := l2[a.Value]
	if !ok {
		return nil
	}
	if !b.Bound {
		return flatten2(l3)
	}
	l4, ok := l3[b.Value]
	if !ok {
		return nil
	}
	if !c.Bound {
		return flattenLeaf(l4)
	}
	return l4[c.Value]
}

func flatten3(t idx3) []int {
	var out []int
	for _, l2 := range t {
		out = append(out, flatten2(l2)...)
	}
	return out
}

func flatten2(l2 map[encoding.ObjectId]map[encoding.ObjectId][]int) []int {
	var out []int
	for _, l3 := range l2 {
		out = append(out, flattenLeaf(l3)...)
	}
	return out
}

func flattenLeaf(l3 map[encoding.ObjectId][]int) []int {
	var out []int
	for _, ps := range l3 {
		out = append(out, ps...)
	}
	return out
}

// scan picks the permutation with the longest bound prefix for
// pattern's graph scope and returns the matching quad-array
// positions. ActiveGraphAll scans both the default-graph and
// named-graph tries, since no single permutation covers a cross-graph
// scope; ActiveGraphAnyNamed scans the named-graph tries only, and
// ActiveGraphUnion only the named graphs it lists.
func (ix *index) scan(p Pattern) []int {
	switch p.Graph.Kind {
	case ActiveGraphDefault:
		return ix.scanDefault(p)
	case ActiveGraphAnyNamed:
		return ix.scanNamed(p, nil)
	case ActiveGraphUnion:
		// An empty union (a dataset clause naming only graphs the store
		// has never seen) matches nothing, not every named graph.
		if len(p.Graph.Names) == 0 {
			return nil
		}
		return ix.scanNamed(p, p.Graph.Names)
	default: // ActiveGraphAll
		out := ix.scanDefault(p)
		out = append(out, ix.scanNamed(p, nil)...)
		return out
	}
}

func (ix *index) scanDefault(p Pattern) []int {
	switch {
	case p.Subject.Bound && p.Predicate.Bound:
		return collect3(ix.spo, p.Subject, p.Predicate, p.Object)
	case p.Predicate.Bound && p.Object.Bound:
		return collect3(ix.pos, p.Predicate, p.Object, p.Subject)
	case p.Object.Bound && p.Subject.Bound:
		return collect3(ix.osp, p.Object, p.Subject, p.Predicate)
	case p.Subject.Bound:
		return collect3(ix.spo, p.Subject, p.Predicate, p.Object)
	case p.Predicate.Bound:
		return collect3(ix.pos, p.Predicate, p.Object, p.Subject)
	case p.Object.Bound:
		return collect3(ix.osp, p.Object, p.Subject, p.Predicate)
	default:
		return flatten3(ix.spo)
	}
}

func (ix *index) scanNamed(p Pattern, restrictTo []encoding.ObjectId) []int {
	if len(restrictTo) > 0 {
		var out []int
		for _, g := range restrictTo {
			out = append(out, ix.scanNamedGraph(p, g)...)
		}
		return out
	}

	switch {
	case p.Subject.Bound && p.Predicate.Bound:
		return collect4(ix.gspo, Slot{}, p.Subject, p.Predicate, p.Object)
	case p.Predicate.Bound && p.Object.Bound:
		return collect4(ix.gpos, Slot{}, p.Predicate, p.Object, p.Subject)
	case p.Object.Bound && p.Subject.Bound:
		return collect4(ix.gosp, Slot{}, p.Object, p.Subject, p.Predicate)
	case p.Subject.Bound:
		return collect4(ix.gspo, Slot{}, p.Subject, p.Predicate, p.Object)
	case p.Predicate.Bound:
		return collect4(ix.gpos, Slot{}, p.Predicate, p.Object, p.Subject)
	case p.Object.Bound:
		return collect4(ix.gosp, Slot{}, p.Object, p.Subject, p.Predicate)
	default:
		var out []int
		for _, l2 := range ix.gspo {
			out = append(out, flatten3(l2)...)
		}
		return out
	}
}

func (ix *index) scanNamedGraph(p Pattern, g encoding.ObjectId) []int {
	gSlot := BoundSlot(g)
	switch {
	case p.Subject.Bound:
		return collect4(ix.gspo, gSlot, p.Subject, p.Predicate, p.Object)
	case p.Predicate.Bound:
		return collect4(ix.gpos, gSlot, p.Predicate, p.Object, p.Subject)
	case p.Object.Bound:
		return collect4(ix.gosp, gSlot, p.Object, p.Subject, p.Predicate)
	default:
		return collect4(ix.gspo, gSlot, p.Subject, p.Predicate, p.Object)
	}
}
