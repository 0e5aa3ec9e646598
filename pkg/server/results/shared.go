// Package results formats pkg/sparql/query.Result values into the
// SPARQL 1.1 Results formats (JSON, XML, CSV, TSV) and CONSTRUCT/DESCRIBE
// output into N-Triples, per the SPARQL 1.1 Protocol's content
// negotiation rules.
package results

import (
	"fmt"
	"sort"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/query"
)

// variableNames returns vars' names in projection order, or (for a
// SELECT whose projection list wasn't carried through) every variable
// name seen across bindings, alphabetically, so every result format
// shares one fallback rule.
func variableNames(vars []*query.Variable, bindings []query.Binding) []string {
	if vars != nil {
		names := make([]string, len(vars))
		for i, v := range vars {
			names[i] = v.Name
		}
		return names
	}

	seen := map[string]bool{}
	var names []string
	for _, binding := range bindings {
		for name := range binding {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// blankNodeLabels canonicalizes the blank node identifiers appearing in
// bindings to a,b,c,...,z,b0,b1,... in order of first appearance, so
// result output doesn't leak internal blank node labels directly.
func blankNodeLabels(bindings []query.Binding) map[string]string {
	labels := make(map[string]string)
	counter := 0
	for _, binding := range bindings {
		for _, term := range binding {
			bn, ok := term.(*rdf.BlankNode)
			if !ok {
				continue
			}
			if _, exists := labels[bn.ID]; exists {
				continue
			}
			var label string
			if counter < 26 {
				label = string(rune('a' + counter))
			} else {
				label = fmt.Sprintf("b%d", counter-26)
			}
			labels[bn.ID] = label
			counter++
		}
	}
	return labels
}

// blankNodeLabelsB0 is the b0,b1,b2,... canonicalization SPARQL TSV
// output conventionally uses, distinct from blankNodeLabels' a,b,c scheme.
func blankNodeLabelsB0(bindings []query.Binding) map[string]string {
	labels := make(map[string]string)
	counter := 0
	for _, binding := range bindings {
		for _, term := range binding {
			bn, ok := term.(*rdf.BlankNode)
			if !ok {
				continue
			}
			if _, exists := labels[bn.ID]; exists {
				continue
			}
			labels[bn.ID] = fmt.Sprintf("b%d", counter)
			counter++
		}
	}
	return labels
}
