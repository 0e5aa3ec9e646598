package physical

import (
	"context"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/plan/logical"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/eval"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/parser"
	"github.com/aleksaelezovic/fusiondb/pkg/store"
)

// PathExec evaluates a property path between two endpoints by compiling
// the path algebra tree bottom-up into sets of (from, to) reachability
// pairs: a predicate leaf is a quad scan, seq is a join on the shared
// midpoint, alt is a union, inverse swaps the pair, and the Kleene
// operators run the same semi-naive closure loop
// KleenePlusClosureExec uses. Pairs never combine across graph names:
// when the scope ranges over a graph variable, each named graph is
// evaluated independently, so a closure cannot stitch an edge in one
// graph to an edge in another.
type PathExec struct {
	materialized
	node *logical.Path
	snap *store.Snapshot
}

func (e *PathExec) Open(ctx context.Context) error {
	type scope struct {
		graph store.ActiveGraph
		term  rdf.Term // bound to the graph variable, if the scan has one
	}

	var scopes []scope
	if e.node.Graph.Variable != "" {
		for _, gid := range e.snap.NamedGraphs() {
			gTerm, ok := e.snap.Dictionary().Term(gid)
			if !ok {
				continue
			}
			scopes = append(scopes, scope{
				graph: store.ActiveGraph{Kind: store.ActiveGraphUnion, Names: []encoding.ObjectId{gid}},
				term:  gTerm,
			})
		}
	} else {
		ag, ok := graphScopeOf(e.snap, e.node.Graph)
		if !ok {
			return nil
		}
		scopes = []scope{{graph: ag}}
	}

	for _, sc := range scopes {
		pairs := evalPath(e.snap, e.node.Expr, sc.graph)

		// A zero-length path relates a term to itself even when the term
		// has no edges, so a constant endpoint joins the identity relation
		// regardless of whether it occurs in the graph.
		if e.node.Expr.Kind == parser.PathZeroOrMore || e.node.Expr.Kind == parser.PathZeroOrOne {
			if !e.node.Subject.IsVariable() {
				pairs = append(pairs, closurePair{from: e.node.Subject.Term, to: e.node.Subject.Term})
			}
			if !e.node.Object.IsVariable() {
				pairs = append(pairs, closurePair{from: e.node.Object.Term, to: e.node.Object.Term})
			}
			pairs = dedupePairs(pairs)
		}

		for _, p := range pairs {
			row, ok := e.bindEndpoints(p, sc.term)
			if ok {
				e.rows = append(e.rows, row)
			}
		}
	}
	return nil
}

// bindEndpoints matches one reachability pair against the node's
// endpoint refs: a constant endpoint filters, a variable endpoint
// binds, and a repeated variable (?x path ?x) requires both ends to
// agree.
func (e *PathExec) bindEndpoints(p closurePair, graphTerm rdf.Term) (eval.Row, bool) {
	row := eval.Row{}

	if e.node.Subject.IsVariable() {
		if e.node.Subject.Variable != "" {
			row[e.node.Subject.Variable] = p.from
		}
	} else if !e.node.Subject.Term.Equals(p.from) {
		return nil, false
	}

	if e.node.Object.IsVariable() {
		if e.node.Object.Variable != "" {
			if existing, bound := row[e.node.Object.Variable]; bound && !existing.Equals(p.to) {
				return nil, false
			}
			row[e.node.Object.Variable] = p.to
		}
	} else if !e.node.Object.Term.Equals(p.to) {
		return nil, false
	}

	if e.node.Graph.Variable != "" && graphTerm != nil {
		row[e.node.Graph.Variable] = graphTerm
	}
	return row, true
}

// evalPath reduces one path algebra node to its deduplicated set of
// (from, to) pairs within a single graph scope.
func evalPath(snap *store.Snapshot, p *parser.PropertyPath, ag store.ActiveGraph) []closurePair {
	switch p.Kind {
	case parser.PathPredicate:
		return scanPredicate(snap, p.IRI, ag)

	case parser.PathInverse:
		inner := evalPath(snap, p.Inner, ag)
		out := make([]closurePair, len(inner))
		for i, pr := range inner {
			out[i] = closurePair{from: pr.to, to: pr.from}
		}
		return out

	case parser.PathSeq:
		left := evalPath(snap, p.Left, ag)
		right := evalPath(snap, p.Right, ag)
		byFrom := map[string][]closurePair{}
		for _, r := range right {
			byFrom[termKey(r.from)] = append(byFrom[termKey(r.from)], r)
		}
		var out []closurePair
		for _, l := range left {
			for _, r := range byFrom[termKey(l.to)] {
				out = append(out, closurePair{from: l.from, to: r.to})
			}
		}
		return dedupePairs(out)

	case parser.PathAlt:
		return dedupePairs(append(evalPath(snap, p.Left, ag), evalPath(snap, p.Right, ag)...))

	case parser.PathOneOrMore:
		return transitiveClosure(evalPath(snap, p.Inner, ag))

	case parser.PathZeroOrMore:
		closure := transitiveClosure(evalPath(snap, p.Inner, ag))
		return dedupePairs(append(closure, identityPairs(snap, ag)...))

	case parser.PathZeroOrOne:
		return dedupePairs(append(evalPath(snap, p.Inner, ag), identityPairs(snap, ag)...))

	case parser.PathNegatedSet:
		return negatedSetPairs(snap, p, ag)

	default:
		return nil
	}
}

// scanPredicate returns every (subject, object) pair connected by one
// concrete predicate within the scope.
func scanPredicate(snap *store.Snapshot, pred *rdf.NamedNode, ag store.ActiveGraph) []closurePair {
	id, ok := snap.Dictionary().Lookup(pred)
	if !ok {
		return nil
	}
	quads := snap.Scan(store.Pattern{Predicate: store.BoundSlot(id), Graph: ag})
	return decodePairs(snap, quads)
}

// negatedSetPairs scans every edge in scope and keeps those whose
// predicate is outside the forbidden set: forward edges when the set
// has forward members (or no inverse ones), and inverted edges when it
// has inverse members.
func negatedSetPairs(snap *store.Snapshot, p *parser.PropertyPath, ag store.ActiveGraph) []closurePair {
	forbidden := func(names []*rdf.NamedNode) map[encoding.ObjectId]bool {
		out := map[encoding.ObjectId]bool{}
		for _, n := range names {
			if id, ok := snap.Dictionary().Lookup(n); ok {
				out[id] = true
			}
		}
		return out
	}

	quads := snap.Scan(store.Pattern{Graph: ag})
	var out []closurePair

	if len(p.NegatedForward) > 0 || len(p.NegatedInverse) == 0 {
		f := forbidden(p.NegatedForward)
		for _, q := range quads {
			if !f[q.Predicate] {
				if pr, ok := decodePair(snap, q); ok {
					out = append(out, pr)
				}
			}
		}
	}
	if len(p.NegatedInverse) > 0 {
		inv := forbidden(p.NegatedInverse)
		for _, q := range quads {
			if !inv[q.Predicate] {
				if pr, ok := decodePair(snap, q); ok {
					out = append(out, closurePair{from: pr.to, to: pr.from})
				}
			}
		}
	}
	return dedupePairs(out)
}

// identityPairs is the zero-length path relation: every node occurring
// in the scope related to itself.
func identityPairs(snap *store.Snapshot, ag store.ActiveGraph) []closurePair {
	quads := snap.Scan(store.Pattern{Graph: ag})
	seen := map[string]bool{}
	var out []closurePair
	add := func(id encoding.ObjectId) {
		term, ok := snap.Dictionary().Term(id)
		if !ok {
			return
		}
		key := termKey(term)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, closurePair{from: term, to: term})
	}
	for _, q := range quads {
		add(q.Subject)
		add(q.Object)
	}
	return out
}

func decodePairs(snap *store.Snapshot, quads []store.Quad) []closurePair {
	out := make([]closurePair, 0, len(quads))
	for _, q := range quads {
		if pr, ok := decodePair(snap, q); ok {
			out = append(out, pr)
		}
	}
	return out
}

func decodePair(snap *store.Snapshot, q store.Quad) (closurePair, bool) {
	s, sok := snap.Dictionary().Term(q.Subject)
	o, ook := snap.Dictionary().Term(q.Object)
	if !sok || !ook {
		return closurePair{}, false
	}
	return closurePair{from: s, to: o}, true
}

// transitiveClosure runs the semi-naive reachable/delta fixpoint over a
// set of single-step pairs: each round extends the previous round's new
// pairs by one more step, stopping when a round adds nothing.
func transitiveClosure(base []closurePair) []closurePair {
	bySource := map[string][]closurePair{}
	for _, p := range base {
		bySource[termKey(p.from)] = append(bySource[termKey(p.from)], p)
	}

	reached := map[string]bool{}
	var result []closurePair
	add := func(p closurePair) bool {
		key := termKey(p.from) + "\x00" + termKey(p.to)
		if reached[key] {
			return false
		}
		reached[key] = true
		result = append(result, p)
		return true
	}

	delta := make([]closurePair, 0, len(base))
	for _, p := range base {
		if add(p) {
			delta = append(delta, p)
		}
	}

	for len(delta) > 0 {
		var next []closurePair
		for _, p := range delta {
			for _, step := range bySource[termKey(p.to)] {
				candidate := closurePair{from: p.from, to: step.to}
				if add(candidate) {
					next = append(next, candidate)
				}
			}
		}
		delta = next
	}
	return result
}

func dedupePairs(pairs []closurePair) []closurePair {
	seen := map[string]bool{}
	out := make([]closurePair, 0, len(pairs))
	for _, p := range pairs {
		key := termKey(p.from) + "\x00" + termKey(p.to)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
