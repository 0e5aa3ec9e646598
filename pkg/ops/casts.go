package ops

import (
	"strconv"
	"strings"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// CastBoolean implements xsd:boolean(arg): numerics cast by zero-ness,
// strings parse the XSD boolean lexical space ("true"/"false"/"1"/"0"),
// and a boolean argument passes through.
func CastBoolean(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	lit, ok := operand.Term.(*rdf.Literal)
	if !ok {
		return Error()
	}
	if lit.Datatype != nil && lit.Datatype.IRI == rdf.XSDBoolean.IRI {
		return OK(lit)
	}
	if nv, ok := encoding.ParseNumeric(lit); ok {
		return OK(rdf.NewBooleanLiteral(nv.AsFloat64() != 0))
	}
	if lit.Language == "" && (lit.Datatype == nil || lit.Datatype.IRI == rdf.XSDString.IRI) {
		switch strings.TrimSpace(lit.Value) {
		case "true", "1":
			return OK(rdf.NewBooleanLiteral(true))
		case "false", "0":
			return OK(rdf.NewBooleanLiteral(false))
		}
	}
	return Error()
}

// castNumeric is the shared implementation for xsd:integer/int/decimal/
// float/double casts: booleans map to 0/1, numerics re-render in the
// target kind (truncating toward zero for the integer kinds), and
// strings parse their lexical form as a number.
func castNumeric(operand Result, kind encoding.NumericKind) Result {
	if operand.IsError() {
		return Error()
	}
	lit, ok := operand.Term.(*rdf.Literal)
	if !ok {
		return Error()
	}

	if lit.Datatype != nil && lit.Datatype.IRI == rdf.XSDBoolean.IRI {
		v := 0.0
		if lit.Value == "true" || lit.Value == "1" {
			v = 1.0
		}
		return OK(encoding.ToLiteral(encoding.NumericValue{Int: int64(v), Float64: v}, kind))
	}

	if nv, ok := encoding.ParseNumeric(lit); ok {
		f := nv.AsFloat64()
		if kind == encoding.NumericInt32 || kind == encoding.NumericInteger {
			f = float64(int64(f))
		}
		return OK(encoding.ToLiteral(encoding.NumericValue{Int: int64(f), Float64: f}, kind))
	}

	if lit.Language == "" && (lit.Datatype == nil || lit.Datatype.IRI == rdf.XSDString.IRI) {
		f, err := strconv.ParseFloat(strings.TrimSpace(lit.Value), 64)
		if err != nil {
			return Error()
		}
		if kind == encoding.NumericInt32 || kind == encoding.NumericInteger {
			f = float64(int64(f))
		}
		return OK(encoding.ToLiteral(encoding.NumericValue{Int: int64(f), Float64: f}, kind))
	}
	return Error()
}

func CastInt(operand Result) Result     { return castNumeric(operand, encoding.NumericInt32) }
func CastInteger(operand Result) Result { return castNumeric(operand, encoding.NumericInteger) }
func CastDecimal(operand Result) Result { return castNumeric(operand, encoding.NumericDecimal) }
func CastFloat(operand Result) Result   { return castNumeric(operand, encoding.NumericFloat) }
func CastDouble(operand Result) Result  { return castNumeric(operand, encoding.NumericDouble) }

// CastString implements xsd:string(arg): any IRI or literal casts to its
// lexical form as a plain string; blank nodes have no cast.
func CastString(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	switch t := operand.Term.(type) {
	case *rdf.NamedNode:
		return OK(rdf.NewLiteral(t.IRI))
	case *rdf.Literal:
		return OK(rdf.NewLiteral(t.Value))
	default:
		return Error()
	}
}

// CastDateTime implements xsd:dateTime(arg): a dateTime literal passes
// through, and a plain/xsd:string literal casts if its lexical form
// parses as a valid xsd:dateTime.
func CastDateTime(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	lit, ok := operand.Term.(*rdf.Literal)
	if !ok {
		return Error()
	}
	if lit.Datatype != nil && lit.Datatype.IRI == rdf.XSDDateTime.IRI {
		return OK(lit)
	}
	if lit.Language == "" && (lit.Datatype == nil || lit.Datatype.IRI == rdf.XSDString.IRI) {
		candidate := rdf.NewLiteralWithDatatype(lit.Value, rdf.XSDDateTime)
		if _, ok := dateTimeLiteral(OK(candidate)); ok {
			if _, _, ok := parseDateTimeValue(candidate); ok {
				return OK(candidate)
			}
		}
	}
	return Error()
}
