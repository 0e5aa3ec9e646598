package ops

import (
	"testing"
	"time"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

func TestRegistryDispatchesStrlen(t *testing.T) {
	r := NewRegistry()
	op, ok := r.Lookup("STRLEN")
	if !ok {
		t.Fatal("STRLEN not registered")
	}
	if !op.Sig.Arity.Accepts(1) {
		t.Fatal("STRLEN should accept 1 argument")
	}
	got := op.Call(&Context{}, []Result{OK(rdf.NewLiteral("hello"))})
	if got.IsError() {
		t.Fatal("unexpected error result")
	}
	lit, ok := got.Term.(*rdf.Literal)
	if !ok || lit.Value != "5" {
		t.Fatalf("expected STRLEN(\"hello\")=5, got %v", got.Term)
	}
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	r := NewRegistry()
	r.Register(&Op{Name: "STRLEN", Sig: fixed(1), Call: func(*Context, []Result) Result { return Error() }})
}

func TestRegistryNowUsesSuppliedInstant(t *testing.T) {
	r := NewRegistry()
	op, _ := r.Lookup("NOW")
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := op.Call(&Context{Now: want}, nil)
	if got.IsError() {
		t.Fatal("unexpected error result")
	}
	lit, ok := got.Term.(*rdf.Literal)
	if !ok || lit.Value != "2026-01-02T03:04:05Z" {
		t.Fatalf("expected NOW() to return the supplied instant, got %v", got.Term)
	}
}

func TestBnodeUnaryScopedPerSolution(t *testing.T) {
	r := NewRegistry()
	op, _ := r.Lookup("BNODE")
	scope := map[string]string{}
	ctx := &Context{BNodeScope: scope}

	a := op.Call(ctx, []Result{OK(rdf.NewLiteral("x"))})
	b := op.Call(ctx, []Result{OK(rdf.NewLiteral("x"))})
	if a.Term.(*rdf.BlankNode).ID != b.Term.(*rdf.BlankNode).ID {
		t.Fatal("same BNODE(str) argument within a solution should return the same blank node")
	}

	fresh := &Context{BNodeScope: map[string]string{}}
	c := op.Call(fresh, []Result{OK(rdf.NewLiteral("x"))})
	if c.Term.(*rdf.BlankNode).ID == a.Term.(*rdf.BlankNode).ID {
		t.Fatal("BNODE(str) should not reuse an id across distinct solution scopes")
	}
}

func TestImplementationTableIsKeyedByNameAndEncoding(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Implementation("STRLEN", EncodingPlainTerm); !ok {
		t.Fatal("STRLEN should implement the PlainTerm encoding")
	}
	if _, ok := r.Implementation("STRLEN", EncodingTypedValue); !ok {
		t.Fatal("STRLEN should implement the TypedValue encoding")
	}
	if _, ok := r.Implementation("SAMETERM", EncodingTypedValue); ok {
		t.Fatal("SAMETERM declares no TypedValue implementation; the table must not claim one")
	}
	if _, ok := r.Implementation("SAMETERM", EncodingPlainTerm); !ok {
		t.Fatal("SAMETERM should implement the PlainTerm encoding")
	}
}

func TestRegisterRejectsDeclaredEncodingWithoutImplementation(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when a signature declares TypedValue with no batch implementation")
		}
	}()
	r := NewRegistry()
	r.Register(&Op{
		Name: "BROKEN",
		Sig:  Signature{Arity: Arity{Fixed: 1}, Encodings: []Encoding{EncodingTypedValue}},
	})
}
