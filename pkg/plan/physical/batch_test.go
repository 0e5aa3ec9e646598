package physical

import (
	"context"
	"testing"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/eval"
)

func TestBatchRoundTripsRowsThroughArrow(t *testing.T) {
	rows := []eval.Row{
		{"s": rdf.NewNamedNode("http://example.org/a"), "o": rdf.NewIntegerLiteral(1)},
		{"s": rdf.NewBlankNode("b"), "o": rdf.NewLiteralWithLanguage("hi", "en")},
		{"s": rdf.NewNamedNode("http://example.org/c")}, // ?o unbound
	}

	b := encodeBatch([]string{"s", "o"}, rows)
	defer b.Release()

	if b.Len() != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), b.Len())
	}
	for i, want := range rows {
		got, err := b.Row(i)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if len(got) != len(want) {
			t.Fatalf("row %d: expected %d bindings, got %d", i, len(want), len(got))
		}
		for v, term := range want {
			if !got[v].Equals(term) {
				t.Fatalf("row %d ?%s: expected %v, got %v", i, v, term, got[v])
			}
		}
	}
}

func TestMaterializedNextEmitsBatchesUntilExhausted(t *testing.T) {
	m := &materialized{rows: []eval.Row{
		{"x": rdf.NewIntegerLiteral(1)},
		{"x": rdf.NewIntegerLiteral(2)},
	}}

	batch, err := m.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if batch == nil || batch.Len() != 2 {
		t.Fatalf("expected one batch of 2 rows, got %+v", batch)
	}
	batch.Release()

	batch, err = m.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if batch != nil {
		t.Fatal("expected nil batch at end of stream")
	}
}
