package encoding

import (
	"testing"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

func TestDictionaryInternIsIdempotent(t *testing.T) {
	d := NewDictionary()
	n := rdf.NewNamedNode("http://example.org/a")

	id1 := d.Intern(n)
	id2 := d.Intern(rdf.NewNamedNode("http://example.org/a"))
	if id1 != id2 {
		t.Fatalf("expected interning the same IRI twice to return the same id, got %d and %d", id1, id2)
	}

	other := d.Intern(rdf.NewNamedNode("http://example.org/b"))
	if other == id1 {
		t.Fatalf("expected a distinct IRI to get a distinct id")
	}
}

func TestDictionaryLookupMissReturnsFalse(t *testing.T) {
	d := NewDictionary()
	if _, ok := d.Lookup(rdf.NewNamedNode("http://example.org/never-interned")); ok {
		t.Fatal("expected Lookup on an uninterned term to report false")
	}
}

func TestDictionaryTermRoundTrip(t *testing.T) {
	d := NewDictionary()
	lit := rdf.NewLiteralWithLanguage("bonjour", "fr")
	id := d.Intern(lit)

	got, ok := d.Term(id)
	if !ok {
		t.Fatal("expected Term to resolve a freshly interned id")
	}
	if !got.Equals(lit) {
		t.Fatalf("expected %v, got %v", lit, got)
	}
}

func TestDictionaryDefaultGraphIsReservedZero(t *testing.T) {
	d := NewDictionary()
	id := d.Intern(rdf.NewDefaultGraph())
	if id != DefaultGraphId {
		t.Fatalf("expected the default graph to intern to id 0, got %d", id)
	}

	got, ok := d.Term(DefaultGraphId)
	if !ok {
		t.Fatal("expected id 0 to resolve")
	}
	if _, isDefault := got.(*rdf.DefaultGraph); !isDefault {
		t.Fatalf("expected id 0 to resolve to the default graph, got %T", got)
	}
}

func TestDictionaryDistinguishesDatatypeFromLanguage(t *testing.T) {
	d := NewDictionary()
	plain := d.Intern(rdf.NewLiteral("5"))
	typed := d.Intern(rdf.NewIntegerLiteral(5))
	tagged := d.Intern(rdf.NewLiteralWithLanguage("5", "en"))

	if plain == typed || plain == tagged || typed == tagged {
		t.Fatalf("expected distinct ids for plain/typed/language-tagged literals sharing a lexical form, got %d %d %d", plain, typed, tagged)
	}
}

func TestClassifyNumericNarrowsIntegerToInt32WhenItFits(t *testing.T) {
	small := rdf.NewIntegerLiteral(42)
	if got := ClassifyNumeric(small); got != NumericInt32 {
		t.Fatalf("expected small xsd:integer to classify as NumericInt32, got %v", got)
	}

	big := rdf.NewIntegerLiteral(1 << 40)
	if got := ClassifyNumeric(big); got != NumericInteger {
		t.Fatalf("expected an out-of-range xsd:integer to classify as NumericInteger, got %v", got)
	}
}

func TestClassifyNumericNonNumericReturnsNone(t *testing.T) {
	if got := ClassifyNumeric(rdf.NewLiteral("hello")); got != NumericNone {
		t.Fatalf("expected a plain string literal to classify as NumericNone, got %v", got)
	}
	if got := ClassifyNumeric(nil); got != NumericNone {
		t.Fatalf("expected a nil literal to classify as NumericNone, got %v", got)
	}
}

func TestParseNumericRoundTripsThroughToLiteral(t *testing.T) {
	lit := rdf.NewDoubleLiteral(3.5)
	v, ok := ParseNumeric(lit)
	if !ok {
		t.Fatal("expected a well-formed xsd:double literal to parse")
	}
	if v.Kind != NumericDouble || v.Float64 != 3.5 {
		t.Fatalf("expected {NumericDouble, 3.5}, got %+v", v)
	}

	back := ToLiteral(v, NumericDouble)
	if back.Datatype.IRI != rdf.XSDDouble.IRI {
		t.Fatalf("expected xsd:double datatype, got %v", back.Datatype)
	}
}

func TestParseNumericRejectsMalformedLexicalForm(t *testing.T) {
	bad := rdf.NewLiteralWithDatatype("not-a-number", rdf.XSDInteger)
	if _, ok := ParseNumeric(bad); ok {
		t.Fatal("expected a malformed numeric lexical form to fail to parse")
	}
}

func TestPromoteTakesTheWiderKind(t *testing.T) {
	cases := []struct {
		a, b, want NumericKind
	}{
		{NumericInt32, NumericDouble, NumericDouble},
		{NumericInteger, NumericDecimal, NumericDecimal},
		{NumericFloat, NumericFloat, NumericFloat},
	}
	for _, c := range cases {
		if got := Promote(c.a, c.b); got != c.want {
			t.Fatalf("Promote(%v, %v): expected %v, got %v", c.a, c.b, c.want, got)
		}
	}
}

func TestFitsInt32BoundaryCheck(t *testing.T) {
	if !FitsInt32(2147483647) {
		t.Fatal("expected the maximum 32-bit signed value to fit")
	}
	if FitsInt32(2147483648) {
		t.Fatal("expected one past the maximum 32-bit signed value to overflow")
	}
	if !FitsInt32(-2147483648) {
		t.Fatal("expected the minimum 32-bit signed value to fit")
	}
}

func TestSortableTermOrdersCategoriesBeforeValues(t *testing.T) {
	ordered := []SortableTerm{
		NewSortableTerm(nil),
		NewSortableTerm(rdf.NewBlankNode("x")),
		NewSortableTerm(rdf.NewNamedNode("http://example.org/x")),
		NewSortableTerm(rdf.NewBooleanLiteral(true)),
		NewSortableTerm(rdf.NewIntegerLiteral(1)),
		NewSortableTerm(rdf.NewLiteral("a")),
		NewSortableTerm(rdf.NewLiteralWithDatatype("2024-01-01T00:00:00Z", rdf.XSDDateTime)),
		NewSortableTerm(rdf.NewLiteralWithDatatype("12:00:00", rdf.XSDTime)),
		NewSortableTerm(rdf.NewLiteralWithDatatype("2024-01-01", rdf.XSDDate)),
		NewSortableTerm(rdf.NewLiteralWithDatatype("P1Y2M", rdf.XSDDuration)),
		NewSortableTerm(rdf.NewLiteralWithDatatype("P1Y", rdf.XSDYearMonthDur)),
		NewSortableTerm(rdf.NewLiteralWithDatatype("PT1H", rdf.XSDDayTimeDur)),
		NewSortableTerm(rdf.NewLiteralWithDatatype("zzz", rdf.NewNamedNode("http://example.org/custom"))),
	}
	for i := 0; i < len(ordered)-1; i++ {
		if ordered[i].Compare(ordered[i+1]) >= 0 {
			t.Fatalf("expected category %d to sort strictly before category %d", i, i+1)
		}
	}
}

func TestSortableTermNumericOrdersByValueNotLexicalForm(t *testing.T) {
	two := NewSortableTerm(rdf.NewIntegerLiteral(2))
	ten := NewSortableTerm(rdf.NewIntegerLiteral(10))
	if two.Compare(ten) >= 0 {
		t.Fatal("expected 2 to sort before 10 numerically, not lexically")
	}
}

func TestSortableTermNegativeNumbersSortBeforePositive(t *testing.T) {
	neg := NewSortableTerm(rdf.NewDoubleLiteral(-5))
	pos := NewSortableTerm(rdf.NewDoubleLiteral(5))
	if neg.Compare(pos) >= 0 {
		t.Fatal("expected a negative double to sort before a positive one")
	}
}

func TestPlainTermBuilderRoundTrip(t *testing.T) {
	terms := []rdf.Term{
		rdf.NewNamedNode("http://example.org/s"),
		rdf.NewBlankNode("b1"),
		rdf.NewLiteral("plain"),
		rdf.NewLiteralWithLanguage("bonjour", "fr"),
		rdf.NewIntegerLiteral(7),
		rdf.NewDefaultGraph(),
	}

	b := NewPlainTermBuilder(nil)
	for _, term := range terms {
		b.Append(term)
	}
	arr := b.NewArray()
	defer arr.Release()

	if arr.Len() != len(terms) {
		t.Fatalf("expected %d rows, got %d", len(terms), arr.Len())
	}
	for i, want := range terms {
		got, err := TermAt(arr, i)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if !got.Equals(want) {
			t.Fatalf("row %d: expected %v, got %v", i, want, got)
		}
	}
}
