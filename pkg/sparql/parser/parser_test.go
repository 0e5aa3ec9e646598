package parser

import (
	"testing"
)

func TestParseSelectBasicGraphPattern(t *testing.T) {
	q, err := NewParser(`
		PREFIX foaf: <http://xmlns.com/foaf/0.1/>
		SELECT ?name WHERE { ?person foaf:name ?name . }
	`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.QueryType != QueryTypeSelect {
		t.Fatalf("expected a SELECT query, got %v", q.QueryType)
	}
	if len(q.Select.Projections) != 1 || q.Select.Projections[0].Variable.Name != "name" {
		t.Fatalf("expected a single ?name projection, got %+v", q.Select.Projections)
	}
	if len(q.Select.Where.Patterns) != 1 {
		t.Fatalf("expected one triple pattern, got %d", len(q.Select.Where.Patterns))
	}
	pred := q.Select.Where.Patterns[0].Predicate
	nn, ok := pred.Term.(interface{ String() string })
	if !ok {
		t.Fatalf("expected a resolvable predicate term, got %+v", pred)
	}
	if nn.String() != "<http://xmlns.com/foaf/0.1/name>" {
		t.Fatalf("expected the foaf: prefix to resolve, got %s", nn.String())
	}
}

func TestParseSelectStarHasNilProjections(t *testing.T) {
	q, err := NewParser(`SELECT * WHERE { ?s ?p ?o }`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Select.Projections != nil {
		t.Fatalf("expected SELECT * to leave Projections nil, got %+v", q.Select.Projections)
	}
}

func TestParseSelectDistinct(t *testing.T) {
	q, err := NewParser(`SELECT DISTINCT ?s WHERE { ?s ?p ?o }`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Select.Distinct {
		t.Fatal("expected Distinct to be true")
	}
}

func TestParseAskQuery(t *testing.T) {
	q, err := NewParser(`ASK { <http://example.org/s> <http://example.org/p> <http://example.org/o> }`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.QueryType != QueryTypeAsk {
		t.Fatalf("expected an ASK query, got %v", q.QueryType)
	}
	if q.Ask == nil || len(q.Ask.Where.Patterns) != 1 {
		t.Fatalf("expected one triple pattern in the ASK body, got %+v", q.Ask)
	}
}

func TestParseConstructQuery(t *testing.T) {
	q, err := NewParser(`
		CONSTRUCT { ?s <http://example.org/copy> ?o }
		WHERE { ?s <http://example.org/p> ?o }
	`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.QueryType != QueryTypeConstruct {
		t.Fatalf("expected a CONSTRUCT query, got %v", q.QueryType)
	}
	if len(q.Construct.Template) != 1 {
		t.Fatalf("expected one template triple, got %d", len(q.Construct.Template))
	}
}

func TestParseOptionalAndFilter(t *testing.T) {
	q, err := NewParser(`
		SELECT ?s ?o WHERE {
			?s <http://example.org/p> ?v .
			OPTIONAL { ?s <http://example.org/q> ?o }
			FILTER(?v > 1)
		}
	`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, child := range q.Select.Where.Children {
		if child.Type == GraphPatternTypeOptional {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an OPTIONAL child pattern, got %+v", q.Select.Where.Children)
	}
	if len(q.Select.Where.Filters) != 1 {
		t.Fatalf("expected one top-level FILTER, got %d", len(q.Select.Where.Filters))
	}
}

func TestParseUnionPattern(t *testing.T) {
	q, err := NewParser(`
		SELECT ?s WHERE {
			{ ?s <http://example.org/p> ?o } UNION { ?s <http://example.org/q> ?o }
		}
	`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, child := range q.Select.Where.Children {
		if child.Type == GraphPatternTypeUnion {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a UNION child pattern, got %+v", q.Select.Where.Children)
	}
}

func TestParseOrderByAndLimitOffset(t *testing.T) {
	q, err := NewParser(`
		SELECT ?s WHERE { ?s ?p ?o } ORDER BY ?s LIMIT 10 OFFSET 5
	`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.Select.OrderBy) != 1 {
		t.Fatalf("expected one ORDER BY key, got %d", len(q.Select.OrderBy))
	}
	if q.Select.Limit == nil || *q.Select.Limit != 10 {
		t.Fatalf("expected LIMIT 10, got %v", q.Select.Limit)
	}
	if q.Select.Offset == nil || *q.Select.Offset != 5 {
		t.Fatalf("expected OFFSET 5, got %v", q.Select.Offset)
	}
}

func TestParseGroupByWithAggregateAndHaving(t *testing.T) {
	q, err := NewParser(`
		SELECT ?s (COUNT(?o) AS ?c) WHERE { ?s ?p ?o } GROUP BY ?s HAVING (COUNT(?o) > 1)
	`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.Select.GroupBy) != 1 {
		t.Fatalf("expected one GROUP BY key, got %d", len(q.Select.GroupBy))
	}
	if q.Select.Having == nil {
		t.Fatal("expected a HAVING clause")
	}
	if len(q.Select.Projections) != 2 || q.Select.Projections[1].Expression == nil {
		t.Fatalf("expected the second projection to be a computed aggregate, got %+v", q.Select.Projections)
	}
}

func TestParseRejectsMalformedQuery(t *testing.T) {
	if _, err := NewParser(`SELECT ?s WHERE { ?s ?p`).Parse(); err == nil {
		t.Fatal("expected an unterminated graph pattern to fail to parse")
	}
}

func TestParseMinusPattern(t *testing.T) {
	q, err := NewParser(`
		SELECT ?s WHERE {
			?s <http://example.org/p> ?v
			MINUS { ?s <http://example.org/q> ?v }
		}
	`).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, child := range q.Select.Where.Children {
		if child.Type == GraphPatternTypeMinus {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a MINUS child pattern, got %+v", q.Select.Where.Children)
	}
}
