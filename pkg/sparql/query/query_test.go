package query

import (
	"context"
	"sort"
	"testing"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/store"
)

func mustExecute(t *testing.T, s *store.Store, q string) *Result {
	t.Helper()
	res, err := NewEngine(s).Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("query %q: %v", q, err)
	}
	return res
}

func bindingValue(t *testing.T, b Binding, name string) rdf.Term {
	t.Helper()
	v, ok := b[name]
	if !ok {
		return nil
	}
	return v
}

// Numeric promotion and overflow: an xsd:int + xsd:int
// addition that overflows 32 bits must leave the computed variable
// unbound rather than wrapping or erroring the whole query.
func TestNumericOverflowLeavesVariableUnbound(t *testing.T) {
	s := store.New()
	a := rdf.NewBlankNode("a")
	p := rdf.NewNamedNode("http://example.org/p")
	q := rdf.NewNamedNode("http://example.org/q")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: p, Object: rdf.NewIntLiteral(2147483647)},
		{Subject: a, Predicate: q, Object: rdf.NewIntLiteral(1)},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT (?x + ?y AS ?z) WHERE {
			_:a <http://example.org/p> ?x .
			_:a <http://example.org/q> ?y .
		}`)

	if len(res.Bindings) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Bindings))
	}
	if v := bindingValue(t, res.Bindings[0], "z"); v != nil {
		t.Fatalf("expected ?z unbound, got %v", v)
	}
}

// CONCAT preserves a shared language tag.
func TestConcatPreservesLanguageTag(t *testing.T) {
	s := store.New()
	a := rdf.NewBlankNode("a")
	p := rdf.NewNamedNode("http://example.org/p")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: p, Object: rdf.NewLiteralWithLanguage("foo", "en")},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT (CONCAT(?v, "bar") AS ?r) WHERE {
			_:a <http://example.org/p> ?v .
		}`)

	if len(res.Bindings) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Bindings))
	}
	lit, ok := bindingValue(t, res.Bindings[0], "r").(*rdf.Literal)
	if !ok {
		t.Fatalf("expected a literal, got %v", bindingValue(t, res.Bindings[0], "r"))
	}
	if lit.Value != "foobar" || lit.Language != "en" {
		t.Fatalf("expected \"foobar\"@en, got %q@%q", lit.Value, lit.Language)
	}
}

// Property path closure (:a :r+ ?x) reaches every
// downstream node exactly once, with no duplicates.
func TestPropertyPathPlusClosure(t *testing.T) {
	s := store.New()
	a := rdf.NewNamedNode("http://example.org/a")
	b := rdf.NewNamedNode("http://example.org/b")
	c := rdf.NewNamedNode("http://example.org/c")
	d := rdf.NewNamedNode("http://example.org/d")
	r := rdf.NewNamedNode("http://example.org/r")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: r, Object: b},
		{Subject: b, Predicate: r, Object: c},
		{Subject: c, Predicate: r, Object: d},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT ?x WHERE { <http://example.org/a> <http://example.org/r>+ ?x }`)

	var got []string
	for _, row := range res.Bindings {
		got = append(got, bindingValue(t, row, "x").String())
	}
	sort.Strings(got)
	want := []string{"<http://example.org/b>", "<http://example.org/c>", "<http://example.org/d>"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

// MINUS removes solutions compatible with the right side.
func TestMinusSemantics(t *testing.T) {
	s := store.New()
	x := rdf.NewBlankNode("x")
	y := rdf.NewBlankNode("y")
	p := rdf.NewNamedNode("http://example.org/p")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: x, Predicate: p, Object: rdf.NewIntegerLiteral(1)},
		{Subject: x, Predicate: p, Object: rdf.NewIntegerLiteral(2)},
		{Subject: y, Predicate: p, Object: rdf.NewIntegerLiteral(3)},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT ?s WHERE {
			?s <http://example.org/p> ?v
			MINUS { ?s <http://example.org/p> 1 }
		}`)

	if len(res.Bindings) != 1 {
		t.Fatalf("expected 1 row, got %d: %v", len(res.Bindings), res.Bindings)
	}
	got := bindingValue(t, res.Bindings[0], "s")
	if !got.Equals(y) {
		t.Fatalf("expected _:y, got %v", got)
	}
}

// MINUS with an empty right side returns the left side unchanged.
func TestMinusWithEmptyRightIsIdentity(t *testing.T) {
	s := store.New()
	x := rdf.NewBlankNode("x")
	p := rdf.NewNamedNode("http://example.org/p")
	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: x, Predicate: p, Object: rdf.NewIntegerLiteral(1)},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT ?s WHERE {
			?s <http://example.org/p> ?v
			MINUS { ?s <http://example.org/nomatch> ?w }
		}`)
	if len(res.Bindings) != 1 {
		t.Fatalf("expected MINUS with no matching right rows to be identity, got %d rows", len(res.Bindings))
	}
}

// FROM restricts the active graph.
func TestGraphScopingRestrictsActiveGraph(t *testing.T) {
	s := store.New()
	sub := rdf.NewNamedNode("http://example.org/s")
	p := rdf.NewNamedNode("http://example.org/p")
	o := rdf.NewNamedNode("http://example.org/o")
	g1 := rdf.NewNamedNode("http://example.org/g1")
	g2 := rdf.NewNamedNode("http://example.org/g2")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: sub, Predicate: p, Object: o, Graph: g1},
		{Subject: sub, Predicate: p, Object: o, Graph: g2},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT (COUNT(*) AS ?c) FROM <http://example.org/g1> WHERE { ?s ?p ?o }`)

	if len(res.Bindings) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Bindings))
	}
	lit, ok := bindingValue(t, res.Bindings[0], "c").(*rdf.Literal)
	if !ok || lit.Value != "1" {
		t.Fatalf("expected ?c=1, got %v", bindingValue(t, res.Bindings[0], "c"))
	}
}

// ASK reduces exactly to the store's contains() check.
func TestAskMatchesContains(t *testing.T) {
	s := store.New()
	sub := rdf.NewNamedNode("http://example.org/s")
	p := rdf.NewNamedNode("http://example.org/p")
	o := rdf.NewNamedNode("http://example.org/o")
	if _, err := s.InsertQuads([]rdf.Quad{{Subject: sub, Predicate: p, Object: o}}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `ASK { <http://example.org/s> <http://example.org/p> <http://example.org/o> }`)
	if res.Kind != KindBoolean || !res.Boolean {
		t.Fatalf("expected ASK to be true, got %+v", res)
	}

	res = mustExecute(t, s, `ASK { <http://example.org/s> <http://example.org/p> <http://example.org/nomatch> }`)
	if res.Kind != KindBoolean || res.Boolean {
		t.Fatalf("expected ASK to be false, got %+v", res)
	}
}

// FILTER(true) is identity and FILTER(false) empties the result.
func TestFilterTrueFalseLaws(t *testing.T) {
	s := store.New()
	sub := rdf.NewNamedNode("http://example.org/s")
	p := rdf.NewNamedNode("http://example.org/p")
	o := rdf.NewNamedNode("http://example.org/o")
	if _, err := s.InsertQuads([]rdf.Quad{{Subject: sub, Predicate: p, Object: o}}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `SELECT ?s WHERE { ?s ?p ?o . FILTER(true) }`)
	if len(res.Bindings) != 1 {
		t.Fatalf("FILTER(true) should be identity, got %d rows", len(res.Bindings))
	}

	res = mustExecute(t, s, `SELECT ?s WHERE { ?s ?p ?o . FILTER(false) }`)
	if len(res.Bindings) != 0 {
		t.Fatalf("FILTER(false) should empty the result, got %d rows", len(res.Bindings))
	}
}

// SELECT * WHERE { ?s ?p ?o } returns every quad in the default graph.
func TestSelectStarReturnsEveryDefaultGraphQuad(t *testing.T) {
	s := store.New()
	sub := rdf.NewNamedNode("http://example.org/s")
	p := rdf.NewNamedNode("http://example.org/p")

	quads := []rdf.Quad{
		{Subject: sub, Predicate: p, Object: rdf.NewIntegerLiteral(1)},
		{Subject: sub, Predicate: p, Object: rdf.NewIntegerLiteral(2)},
		{Subject: sub, Predicate: p, Object: rdf.NewIntegerLiteral(3)},
	}
	if _, err := s.InsertQuads(quads); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `SELECT * WHERE { ?s ?p ?o }`)
	if len(res.Bindings) != len(quads) {
		t.Fatalf("expected %d rows, got %d", len(quads), len(res.Bindings))
	}
}

// ORDER BY across term kinds follows the SortableTerm category order
// (IRI < numeric < string).
func TestOrderByCrossTypeCategoryOrder(t *testing.T) {
	s := store.New()
	a := rdf.NewBlankNode("a")
	p := rdf.NewNamedNode("http://example.org/p")
	x := rdf.NewNamedNode("http://example.org/x")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: p, Object: rdf.NewLiteral("b")},
		{Subject: a, Predicate: p, Object: rdf.NewIntegerLiteral(1)},
		{Subject: a, Predicate: p, Object: x},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `SELECT ?v WHERE { _:a <http://example.org/p> ?v } ORDER BY ?v`)
	if len(res.Bindings) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(res.Bindings))
	}
	got := make([]string, 3)
	for i, row := range res.Bindings {
		got[i] = bindingValue(t, row, "v").String()
	}
	want := []string{"<http://example.org/x>", `"1"^^<http://www.w3.org/2001/XMLSchema#integer>`, `"b"`}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

// GROUP BY + COUNT(*) on an empty input emits no row (an empty group
// has no GROUP BY key to emit); a grouping-free COUNT(*) over an empty
// input still emits one row with count 0.
func TestCountOverEmptyInput(t *testing.T) {
	s := store.New()

	res := mustExecute(t, s, `SELECT (COUNT(*) AS ?c) WHERE { ?s <http://example.org/nomatch> ?o }`)
	if len(res.Bindings) != 1 {
		t.Fatalf("expected 1 row for a grouping-free COUNT(*), got %d", len(res.Bindings))
	}
	lit, ok := bindingValue(t, res.Bindings[0], "c").(*rdf.Literal)
	if !ok || lit.Value != "0" {
		t.Fatalf("expected ?c=0, got %v", bindingValue(t, res.Bindings[0], "c"))
	}

	res = mustExecute(t, s, `SELECT ?s (COUNT(*) AS ?c) WHERE { ?s <http://example.org/nomatch> ?o } GROUP BY ?s`)
	if len(res.Bindings) != 0 {
		t.Fatalf("expected no groups over empty input, got %d", len(res.Bindings))
	}
}

// { A } UNION { B } yields the rows of both branches, not their join.
func TestUnionCombinesBranchRows(t *testing.T) {
	s := store.New()
	a := rdf.NewNamedNode("http://example.org/a")
	b := rdf.NewNamedNode("http://example.org/b")
	p := rdf.NewNamedNode("http://example.org/p")
	q := rdf.NewNamedNode("http://example.org/q")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: p, Object: rdf.NewIntegerLiteral(1)},
		{Subject: b, Predicate: q, Object: rdf.NewIntegerLiteral(2)},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT ?s WHERE {
			{ ?s <http://example.org/p> ?v } UNION { ?s <http://example.org/q> ?v }
		}`)
	if len(res.Bindings) != 2 {
		t.Fatalf("expected 2 rows from the union, got %d: %v", len(res.Bindings), res.Bindings)
	}
}

// OPTIONAL keeps left rows without a matching right row, leaving the
// right-side variables unbound.
func TestOptionalPadsUnmatchedRows(t *testing.T) {
	s := store.New()
	a := rdf.NewNamedNode("http://example.org/a")
	b := rdf.NewNamedNode("http://example.org/b")
	name := rdf.NewNamedNode("http://example.org/name")
	age := rdf.NewNamedNode("http://example.org/age")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: name, Object: rdf.NewLiteral("a")},
		{Subject: b, Predicate: name, Object: rdf.NewLiteral("b")},
		{Subject: a, Predicate: age, Object: rdf.NewIntegerLiteral(30)},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT ?s ?age WHERE {
			?s <http://example.org/name> ?n
			OPTIONAL { ?s <http://example.org/age> ?age }
		}`)
	if len(res.Bindings) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Bindings))
	}
	bound := 0
	for _, row := range res.Bindings {
		if bindingValue(t, row, "age") != nil {
			bound++
		}
	}
	if bound != 1 {
		t.Fatalf("expected exactly one row with ?age bound, got %d", bound)
	}
}

// FILTER EXISTS keeps only rows whose bindings are compatible with some
// solution of the inner pattern; NOT EXISTS inverts that.
func TestExistsAndNotExistsFilters(t *testing.T) {
	s := store.New()
	a := rdf.NewNamedNode("http://example.org/a")
	b := rdf.NewNamedNode("http://example.org/b")
	name := rdf.NewNamedNode("http://example.org/name")
	age := rdf.NewNamedNode("http://example.org/age")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: name, Object: rdf.NewLiteral("a")},
		{Subject: b, Predicate: name, Object: rdf.NewLiteral("b")},
		{Subject: a, Predicate: age, Object: rdf.NewIntegerLiteral(30)},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT ?s WHERE {
			?s <http://example.org/name> ?n
			FILTER EXISTS { ?s <http://example.org/age> ?x }
		}`)
	if len(res.Bindings) != 1 || !bindingValue(t, res.Bindings[0], "s").Equals(a) {
		t.Fatalf("expected EXISTS to keep only <a>, got %v", res.Bindings)
	}

	res = mustExecute(t, s, `
		SELECT ?s WHERE {
			?s <http://example.org/name> ?n
			FILTER NOT EXISTS { ?s <http://example.org/age> ?x }
		}`)
	if len(res.Bindings) != 1 || !bindingValue(t, res.Bindings[0], "s").Equals(b) {
		t.Fatalf("expected NOT EXISTS to keep only <b>, got %v", res.Bindings)
	}
}

// A sequence path :p/:q walks both steps through the shared midpoint.
func TestPropertyPathSequence(t *testing.T) {
	s := store.New()
	a := rdf.NewNamedNode("http://example.org/a")
	b := rdf.NewNamedNode("http://example.org/b")
	c := rdf.NewNamedNode("http://example.org/c")
	p := rdf.NewNamedNode("http://example.org/p")
	q := rdf.NewNamedNode("http://example.org/q")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: p, Object: b},
		{Subject: b, Predicate: q, Object: c},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT ?x WHERE { <http://example.org/a> <http://example.org/p>/<http://example.org/q> ?x }`)
	if len(res.Bindings) != 1 || !bindingValue(t, res.Bindings[0], "x").Equals(c) {
		t.Fatalf("expected {?x=<c>}, got %v", res.Bindings)
	}
}

// An inverse path ^:p swaps the traversal direction.
func TestPropertyPathInverse(t *testing.T) {
	s := store.New()
	a := rdf.NewNamedNode("http://example.org/a")
	b := rdf.NewNamedNode("http://example.org/b")
	p := rdf.NewNamedNode("http://example.org/p")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: p, Object: b},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT ?x WHERE { <http://example.org/b> ^<http://example.org/p> ?x }`)
	if len(res.Bindings) != 1 || !bindingValue(t, res.Bindings[0], "x").Equals(a) {
		t.Fatalf("expected {?x=<a>}, got %v", res.Bindings)
	}
}

// A zero-or-more path includes the starting node itself.
func TestPropertyPathZeroOrMoreIncludesStart(t *testing.T) {
	s := store.New()
	a := rdf.NewNamedNode("http://example.org/a")
	b := rdf.NewNamedNode("http://example.org/b")
	r := rdf.NewNamedNode("http://example.org/r")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: r, Object: b},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT ?x WHERE { <http://example.org/a> <http://example.org/r>* ?x }`)
	var got []string
	for _, row := range res.Bindings {
		got = append(got, bindingValue(t, row, "x").String())
	}
	sort.Strings(got)
	want := []string{"<http://example.org/a>", "<http://example.org/b>"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

// sameTerm matches a stored integer literal against the identical
// integer literal written in the query.
func TestSameTermFilter(t *testing.T) {
	s := store.New()
	a := rdf.NewNamedNode("http://example.org/a")
	p := rdf.NewNamedNode("http://example.org/p")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: p, Object: rdf.NewIntegerLiteral(1)},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `
		SELECT ?v WHERE { ?s ?p ?v . FILTER(SAMETERM(?v, 1)) }`)
	if len(res.Bindings) != 1 {
		t.Fatalf("expected SAMETERM to match the identical integer literal, got %d rows", len(res.Bindings))
	}
}

// A blank node in a query pattern is a variable scoped to its basic
// graph pattern, not a label matched against stored blank nodes: _:x
// below matches every subject, and repeating it unifies like a
// repeated variable would.
func TestBlankNodeInPatternActsAsScopedVariable(t *testing.T) {
	s := store.New()
	a := rdf.NewNamedNode("http://example.org/a")
	b := rdf.NewNamedNode("http://example.org/b")
	p := rdf.NewNamedNode("http://example.org/p")
	q := rdf.NewNamedNode("http://example.org/q")

	if _, err := s.InsertQuads([]rdf.Quad{
		{Subject: a, Predicate: p, Object: rdf.NewIntegerLiteral(1)},
		{Subject: b, Predicate: p, Object: rdf.NewIntegerLiteral(2)},
		{Subject: a, Predicate: q, Object: rdf.NewIntegerLiteral(3)},
	}); err != nil {
		t.Fatal(err)
	}

	res := mustExecute(t, s, `SELECT ?p ?o WHERE { _:x ?p ?o }`)
	if len(res.Bindings) != 3 {
		t.Fatalf("expected _:x to match every subject (3 rows), got %d", len(res.Bindings))
	}
	for _, v := range res.Variables {
		if v.Name != "p" && v.Name != "o" {
			t.Fatalf("expected only ?p and ?o as output columns, got ?%s", v.Name)
		}
	}

	// The same label in one group unifies: only subjects carrying both
	// predicates survive the join.
	res = mustExecute(t, s, `
		SELECT ?v ?w WHERE {
			_:x <http://example.org/p> ?v .
			_:x <http://example.org/q> ?w .
		}`)
	if len(res.Bindings) != 1 {
		t.Fatalf("expected repeated _:x to unify to the one subject with both predicates, got %d rows", len(res.Bindings))
	}
}
