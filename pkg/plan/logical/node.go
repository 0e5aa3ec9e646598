// Package logical is the SPARQL query compiler's logical algebra: the
// SPARQL-specific nodes (Quads, Pattern, Path, KleenePlusClosure,
// Extend, Minus) layered over the relational ones (Join, Filter,
// Union, OrderBy, Distinct, Slice, Project) every query compiles down
// to before pkg/plan/physical turns it into an executable operator
// tree.
package logical

// Node is one logical plan node. Schema names the variables this
// node's output rows may bind; a variable's absence from Schema does
// not mean every output row binds it (OPTIONAL, MINUS and UNION all
// produce partially-bound schemas), only that no row binds anything
// outside it.
type Node interface {
	Schema() []string
	Children() []Node
}

// unionSchema merges variable lists from a node's children, keeping
// first-seen order and dropping duplicates, the common case for
// binary relational nodes whose output schema is just its children's
// schemas combined.
func unionSchema(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range lists {
		for _, v := range l {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
