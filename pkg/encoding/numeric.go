package encoding

import (
	"math"
	"strconv"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// NumericKind orders the SPARQL numeric type promotion ladder:
// xsd:int ⊂ xsd:integer ⊂ xsd:decimal ⊂ xsd:float ⊂ xsd:double. A higher
// value promotes a lower one in any binary numeric operation. Int32 and
// Integer are both backed by Go's int64 field, but Int32 is additionally
// range-checked against the 32-bit signed boundary on every arithmetic
// op. This is the "int = 32-bit, integer = 64-bit + overflow check"
// split the typed-value catalogue draws between the two.
type NumericKind int

const (
	NumericNone NumericKind = iota
	NumericInt32
	NumericInteger
	NumericDecimal
	NumericFloat
	NumericDouble
)

// NumericValue is a literal's numeric value alongside the kind it was
// read as, prior to any promotion.
type NumericValue struct {
	Kind    NumericKind
	Int     int64
	Float64 float64 // valid for Decimal, Float, Double
}

// ClassifyNumeric reports the NumericKind of lit's datatype, or
// NumericNone if lit is not a recognized numeric literal. xsd:integer is
// narrowed to NumericInt32 when its lexical value fits the 32-bit
// signed range, the representation SPARQL integer literals take by
// default, widening to NumericInteger only for values outside
// that range.
func ClassifyNumeric(lit *rdf.Literal) NumericKind {
	if lit == nil || lit.Datatype == nil {
		return NumericNone
	}
	switch lit.Datatype.IRI {
	case rdf.XSDInt.IRI:
		return NumericInt32
	case rdf.XSDInteger.IRI, rdf.XSDLong.IRI:
		if n, err := strconv.ParseInt(lit.Value, 10, 64); err == nil {
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				return NumericInt32
			}
		}
		return NumericInteger
	case rdf.XSDDecimal.IRI:
		return NumericDecimal
	case rdf.XSDFloat.IRI:
		return NumericFloat
	case rdf.XSDDouble.IRI:
		return NumericDouble
	default:
		return NumericNone
	}
}

// ParseNumeric parses lit's lexical form according to its classified
// NumericKind. ok is false if lit isn't numeric or its lexical form is
// malformed.
func ParseNumeric(lit *rdf.Literal) (NumericValue, bool) {
	kind := ClassifyNumeric(lit)
	if kind == NumericNone {
		return NumericValue{}, false
	}

	if kind == NumericInt32 || kind == NumericInteger {
		n, err := strconv.ParseInt(lit.Value, 10, 64)
		if err != nil {
			return NumericValue{}, false
		}
		return NumericValue{Kind: kind, Int: n, Float64: float64(n)}, true
	}

	f, err := strconv.ParseFloat(lit.Value, 64)
	if err != nil {
		return NumericValue{}, false
	}
	return NumericValue{Kind: kind, Float64: f}, true
}

// FitsInt32 reports whether n is within the 32-bit signed range, the
// overflow check NumericInt32 arithmetic applies after every operation.
func FitsInt32(n int64) bool {
	return n >= math.MinInt32 && n <= math.MaxInt32
}

// Promote returns the NumericKind that a binary operation between a and b
// must use, per the SPARQL numeric type promotion hierarchy: the wider of
// the two operand kinds.
func Promote(a, b NumericKind) NumericKind {
	if a > b {
		return a
	}
	return b
}

// ToLiteral renders a NumericValue back into an RDF literal of the given
// kind (used after promotion to format a computed result).
func ToLiteral(v NumericValue, kind NumericKind) *rdf.Literal {
	switch kind {
	case NumericInt32:
		return rdf.NewIntLiteral(v.Int)
	case NumericInteger:
		return rdf.NewIntegerLiteral(v.Int)
	case NumericDecimal:
		return rdf.NewDecimalLiteral(v.Float64)
	case NumericFloat:
		return rdf.NewFloatLiteral(v.Float64)
	case NumericDouble:
		return rdf.NewDoubleLiteral(v.Float64)
	default:
		return rdf.NewDoubleLiteral(v.Float64)
	}
}

// AsFloat64 returns v's value widened to float64, regardless of kind.
func (v NumericValue) AsFloat64() float64 {
	if v.Kind == NumericInt32 || v.Kind == NumericInteger {
		return float64(v.Int)
	}
	return v.Float64
}
