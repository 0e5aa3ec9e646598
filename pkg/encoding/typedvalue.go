package encoding

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// TypedValueUnionType is the Arrow dense-union layout physical operators
// use to batch TypedValues: one child array per TypedValueKind, sharing a
// single offsets buffer, so a column of mixed-kind values (e.g. the
// result of an arithmetic expression applied across heterogeneous
// literals) still batches without boxing each value individually.
var TypedValueUnionType = arrow.DenseUnionOf(
	[]arrow.Field{
		{Name: "iri", Type: arrow.BinaryTypes.String},
		{Name: "blank_node", Type: arrow.BinaryTypes.String},
		{Name: "string", Type: arrow.BinaryTypes.String},
		{Name: "boolean", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "integer", Type: arrow.PrimitiveTypes.Int64},
		{Name: "decimal", Type: arrow.PrimitiveTypes.Float64},
		{Name: "float", Type: arrow.PrimitiveTypes.Float32},
		{Name: "double", Type: arrow.PrimitiveTypes.Float64},
		{Name: "datetime", Type: arrow.FixedWidthTypes.Timestamp_ns},
		{Name: "date", Type: arrow.FixedWidthTypes.Date32},
		{Name: "time", Type: arrow.FixedWidthTypes.Time64ns},
		{Name: "unknown", Type: arrow.BinaryTypes.String},
	},
	[]arrow.UnionTypeCode{
		int8(TypedValueIRI), int8(TypedValueBlankNode), int8(TypedValueString),
		int8(TypedValueBoolean), int8(TypedValueInteger), int8(TypedValueDecimal),
		int8(TypedValueFloat), int8(TypedValueDouble), int8(TypedValueDateTime),
		int8(TypedValueDate), int8(TypedValueTime), int8(TypedValueUnknown),
	},
)

// TypedValueKind tags which field of a TypedValue is populated. Unlike
// PlainTerm (which keeps every term in its lexical/string form for
// dictionary interning), TypedValue holds values already parsed into
// Go-native types so pkg/ops's scalar functions can operate on them
// without re-parsing a lexical form on every row.
type TypedValueKind uint8

const (
	TypedValueIRI TypedValueKind = iota + 1
	TypedValueBlankNode
	TypedValueString     // plain or language-tagged string; Lang set if tagged
	TypedValueBoolean
	TypedValueInteger
	TypedValueDecimal
	TypedValueFloat
	TypedValueDouble
	TypedValueDateTime
	TypedValueDate
	TypedValueTime
	TypedValueUnknown // literal of an unrecognized/custom datatype
)

// TypedValue is one SPARQL value in its dispatch-ready form.
type TypedValue struct {
	Kind     TypedValueKind
	Str      string // IRI, blank node id, string value, or unknown-literal lexical form
	Lang     string
	Datatype string // only set for TypedValueUnknown, the original datatype IRI
	Bool     bool
	Int      int64
	Float    float64 // Decimal/Float/Double share this field; Kind says which
	Time     time.Time
}

// ToTypedValue lowers an rdf.Term into its TypedValue, parsing numeric and
// temporal lexical forms. A malformed lexical form for a recognized
// datatype still produces TypedValueUnknown rather than an error: SPARQL
// treats an ill-typed literal as an opaque value, not a query error, until
// an operator actually needs its numeric/temporal value (at which point
// pkg/ops returns a type error for that specific evaluation).
func ToTypedValue(term rdf.Term) TypedValue {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return TypedValue{Kind: TypedValueIRI, Str: t.IRI}
	case *rdf.BlankNode:
		return TypedValue{Kind: TypedValueBlankNode, Str: t.ID}
	case *rdf.Literal:
		return typedValueFromLiteral(t)
	default:
		return TypedValue{Kind: TypedValueUnknown, Str: term.String()}
	}
}

func typedValueFromLiteral(lit *rdf.Literal) TypedValue {
	if lit.Language != "" {
		return TypedValue{Kind: TypedValueString, Str: lit.Value, Lang: lit.Language}
	}
	if lit.Datatype == nil {
		return TypedValue{Kind: TypedValueString, Str: lit.Value}
	}

	switch lit.Datatype.IRI {
	case rdf.XSDString.IRI:
		return TypedValue{Kind: TypedValueString, Str: lit.Value}
	case rdf.XSDBoolean.IRI:
		switch lit.Value {
		case "true", "1":
			return TypedValue{Kind: TypedValueBoolean, Bool: true}
		case "false", "0":
			return TypedValue{Kind: TypedValueBoolean, Bool: false}
		}
	case rdf.XSDDateTime.IRI:
		if ts, err := parseXSDDateTime(lit.Value); err == nil {
			return TypedValue{Kind: TypedValueDateTime, Time: ts}
		}
	case rdf.XSDDate.IRI:
		if ts, err := time.Parse("2006-01-02", lit.Value); err == nil {
			return TypedValue{Kind: TypedValueDate, Time: ts}
		}
	case rdf.XSDTime.IRI:
		if ts, err := time.Parse("15:04:05", lit.Value); err == nil {
			return TypedValue{Kind: TypedValueTime, Time: ts}
		}
	}

	if nv, ok := ParseNumeric(lit); ok {
		switch nv.Kind {
		case NumericInt32, NumericInteger:
			return TypedValue{Kind: TypedValueInteger, Int: nv.Int}
		case NumericDecimal:
			return TypedValue{Kind: TypedValueDecimal, Float: nv.Float64}
		case NumericFloat:
			return TypedValue{Kind: TypedValueFloat, Float: nv.Float64}
		case NumericDouble:
			return TypedValue{Kind: TypedValueDouble, Float: nv.Float64}
		}
	}

	return TypedValue{Kind: TypedValueUnknown, Str: lit.Value, Datatype: lit.Datatype.IRI}
}

func parseXSDDateTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, s)
}

// ToTerm reconstructs an rdf.Term from a TypedValue, the inverse of
// ToTypedValue for well-typed values.
func (v TypedValue) ToTerm() rdf.Term {
	switch v.Kind {
	case TypedValueIRI:
		return rdf.NewNamedNode(v.Str)
	case TypedValueBlankNode:
		return rdf.NewBlankNode(v.Str)
	case TypedValueString:
		if v.Lang != "" {
			return rdf.NewLiteralWithLanguage(v.Str, v.Lang)
		}
		return rdf.NewLiteral(v.Str)
	case TypedValueBoolean:
		return rdf.NewBooleanLiteral(v.Bool)
	case TypedValueInteger:
		return rdf.NewIntegerLiteral(v.Int)
	case TypedValueDecimal:
		return rdf.NewDecimalLiteral(v.Float)
	case TypedValueFloat:
		return rdf.NewFloatLiteral(v.Float)
	case TypedValueDouble:
		return rdf.NewDoubleLiteral(v.Float)
	case TypedValueDateTime:
		return rdf.NewDateTimeLiteral(v.Time)
	case TypedValueDate:
		return rdf.NewDateLiteral(v.Time)
	case TypedValueTime:
		return rdf.NewLiteralWithDatatype(v.Time.Format("15:04:05"), rdf.XSDTime)
	default:
		if v.Datatype != "" {
			return rdf.NewLiteralWithDatatype(v.Str, rdf.NewNamedNode(v.Datatype))
		}
		return rdf.NewLiteral(v.Str)
	}
}
