// Package eval compiles the parsed SPARQL expression tree against a
// solution mapping, dispatching scalar work through pkg/ops's function
// catalogue. It is the bridge pkg/plan/physical's Filter, Extend and
// OrderBy operators use to turn parser.Expression into a value.
package eval

import "github.com/aleksaelezovic/fusiondb/pkg/rdf"

// Row is one solution mapping: a partial binding of query variables to
// RDF terms. A variable absent from the map is unbound, distinct from
// being bound to nil.
type Row map[string]rdf.Term

// Clone returns a shallow copy of r, safe to extend without mutating
// the original (e.g. a BIND/Extend producing one new row per input).
func (r Row) Clone() Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Compatible reports whether a and b agree on every variable they
// share, the join condition SPARQL's algebra defines for BGPs,
// OPTIONAL and MINUS.
func Compatible(a, b Row) bool {
	for v, t := range a {
		if ot, ok := b[v]; ok && !t.Equals(ot) {
			return false
		}
	}
	return true
}

// Merge returns the union of a and b's bindings. Callers must check
// Compatible first; Merge itself does not re-validate shared
// variables.
func Merge(a, b Row) Row {
	out := a.Clone()
	for v, t := range b {
		out[v] = t
	}
	return out
}
