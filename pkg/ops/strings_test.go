package ops

import (
	"testing"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

func TestConcatPreservesLanguageTagWhenOtherArgsAreUntagged(t *testing.T) {
	got := Concat([]Result{
		OK(rdf.NewLiteralWithLanguage("foo", "en")),
		OK(rdf.NewLiteral("bar")),
	})
	lit, ok := got.Term.(*rdf.Literal)
	if !ok {
		t.Fatalf("expected a literal result, got %v", got.Term)
	}
	if lit.Value != "foobar" || lit.Language != "en" {
		t.Fatalf(`expected "foobar"@en, got %q@%q`, lit.Value, lit.Language)
	}
}

func TestConcatDropsLanguageTagOnConflict(t *testing.T) {
	got := Concat([]Result{
		OK(rdf.NewLiteralWithLanguage("foo", "en")),
		OK(rdf.NewLiteralWithLanguage("bar", "fr")),
	})
	lit, ok := got.Term.(*rdf.Literal)
	if !ok {
		t.Fatalf("expected a literal result, got %v", got.Term)
	}
	if lit.Value != "foobar" || lit.Language != "" {
		t.Fatalf(`expected "foobar" with no language tag, got %q@%q`, lit.Value, lit.Language)
	}
}

func TestConcatConcatenatesEveryArgumentEvenAfterAConflict(t *testing.T) {
	got := Concat([]Result{
		OK(rdf.NewLiteralWithLanguage("a", "en")),
		OK(rdf.NewLiteralWithLanguage("b", "fr")),
		OK(rdf.NewLiteral("c")),
	})
	lit, ok := got.Term.(*rdf.Literal)
	if !ok {
		t.Fatalf("expected a literal result, got %v", got.Term)
	}
	if lit.Value != "abc" {
		t.Fatalf(`expected "abc", got %q`, lit.Value)
	}
}

func TestConcatOnNonStringArgumentIsExpectedError(t *testing.T) {
	got := Concat([]Result{OK(rdf.NewNamedNode("http://example.org/x"))})
	if !got.IsError() {
		t.Fatal("expected CONCAT on a non-string argument to be an expected_error")
	}
}

func TestDivideByZeroIsExpectedErrorForExactTypes(t *testing.T) {
	got := Divide(OK(rdf.NewIntegerLiteral(1)), OK(rdf.NewIntegerLiteral(0)))
	if !got.IsError() {
		t.Fatal("expected integer division by zero to be an expected_error")
	}
}

func TestDivideByZeroIsInfinityForDouble(t *testing.T) {
	got := Divide(OK(rdf.NewDoubleLiteral(1)), OK(rdf.NewDoubleLiteral(0)))
	if got.IsError() {
		t.Fatal("expected xsd:double division by zero to follow IEEE 754, not error")
	}
}

func TestAddInt32OverflowIsExpectedError(t *testing.T) {
	got := Add(OK(rdf.NewIntLiteral(2147483647)), OK(rdf.NewIntLiteral(1)))
	if !got.IsError() {
		t.Fatal("expected xsd:int addition to overflow into an expected_error")
	}
}

func TestStrLenTypedValueBatchFoldsErrorsIntoInvalidLanes(t *testing.T) {
	r := NewRegistry()
	op, ok := r.Implementation("STRLEN", EncodingTypedValue)
	if !ok {
		t.Fatal("STRLEN should have a TypedValue implementation")
	}

	col := NewTypedValueColumn(3)
	col.Append(encoding.ToTypedValue(rdf.NewLiteral("hello")))
	col.AppendNull()
	col.Append(encoding.ToTypedValue(rdf.NewIntegerLiteral(7))) // not a string

	out := op.TypedValue(&Context{}, []TypedValueColumn{col})
	if out.Len() != 3 {
		t.Fatalf("expected 3 lanes, got %d", out.Len())
	}
	if !out.Valid[0] || out.Values[0].Int != 5 {
		t.Fatalf("expected lane 0 to be the valid length 5, got %+v", out.Values[0])
	}
	if out.Valid[1] {
		t.Fatal("expected the unbound lane to stay invalid")
	}
	if out.Valid[2] {
		t.Fatal("expected the non-string lane to become an expected-error lane")
	}
}
