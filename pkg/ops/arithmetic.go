package ops

import (
	"math"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// Add, Subtract, Multiply, Divide implement SPARQL numeric arithmetic,
// promoting operands to the wider of their two numeric kinds and
// re-rendering the result in that kind, preserving the xsd:int /
// xsd:integer / xsd:decimal / xsd:float / xsd:double distinction across
// the operation instead of collapsing everything to float64. When both
// operands promote to NumericInt32, the result is range-checked against
// the 32-bit signed boundary and overflow is an expected error rather
// than a silently wrapped or widened value.
func Add(left, right Result) Result {
	return arithInt(left, right, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
}
func Subtract(left, right Result) Result {
	return arithInt(left, right, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
}
func Multiply(left, right Result) Result {
	return arithInt(left, right, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
}

// Divide implements "/". Division by zero is a SPARQL expected error for
// integer/decimal operands, and produces signed infinity or NaN (per
// IEEE 754) for float/double operands, matching the type promotion rules.
func Divide(left, right Result) Result {
	if left.IsError() || right.IsError() {
		return Error()
	}
	lv, lok := numericOf(left.Term)
	rv, rok := numericOf(right.Term)
	if !lok || !rok {
		return Error()
	}

	kind := encoding.Promote(lv.Kind, rv.Kind)
	rf := rv.AsFloat64()
	if rf == 0 && (kind == encoding.NumericInt32 || kind == encoding.NumericInteger || kind == encoding.NumericDecimal) {
		return Error()
	}

	result := lv.AsFloat64() / rf
	resultKind := kind
	if resultKind == encoding.NumericInt32 || resultKind == encoding.NumericInteger {
		// SPARQL defines "/" over two integers as producing a decimal.
		resultKind = encoding.NumericDecimal
	}
	return OK(encoding.ToLiteral(encoding.NumericValue{Float64: result}, resultKind))
}

// arithInt dispatches to integer arithmetic with an int32-overflow check
// when both operands promote to NumericInt32, and to the float64 path
// (with NumericInteger's wider but still exact int64 arithmetic) for
// everything above it on the promotion ladder.
func arithInt(left, right Result, fi func(a, b int64) int64, ff func(a, b float64) float64) Result {
	if left.IsError() || right.IsError() {
		return Error()
	}
	lv, lok := numericOf(left.Term)
	rv, rok := numericOf(right.Term)
	if !lok || !rok {
		return Error()
	}
	kind := encoding.Promote(lv.Kind, rv.Kind)

	switch kind {
	case encoding.NumericInt32:
		sum := fi(lv.Int, rv.Int)
		if !encoding.FitsInt32(sum) {
			return Error()
		}
		return OK(encoding.ToLiteral(encoding.NumericValue{Int: sum}, kind))
	case encoding.NumericInteger:
		sum := fi(lv.Int, rv.Int)
		return OK(encoding.ToLiteral(encoding.NumericValue{Int: sum}, kind))
	default:
		result := ff(lv.AsFloat64(), rv.AsFloat64())
		return OK(encoding.ToLiteral(encoding.NumericValue{Float64: result}, kind))
	}
}

// UnaryMinus negates a numeric operand, preserving its kind.
func UnaryMinus(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	nv, ok := numericOf(operand.Term)
	if !ok {
		return Error()
	}
	neg := encoding.NumericValue{Int: -nv.Int, Float64: -nv.Float64}
	return OK(encoding.ToLiteral(neg, nv.Kind))
}

// Abs, Ceil, Floor, Round implement the SPARQL numeric functions of the
// same name, each preserving the operand's numeric kind.
func Abs(operand Result) Result   { return numericUnary(operand, math.Abs) }
func Ceil(operand Result) Result  { return numericUnary(operand, math.Ceil) }
func Floor(operand Result) Result { return numericUnary(operand, math.Floor) }
func Round(operand Result) Result { return numericUnary(operand, math.Round) }

func numericUnary(operand Result, f func(float64) float64) Result {
	if operand.IsError() {
		return Error()
	}
	nv, ok := numericOf(operand.Term)
	if !ok {
		return Error()
	}
	result := f(nv.AsFloat64())
	return OK(encoding.ToLiteral(encoding.NumericValue{Int: int64(result), Float64: result}, nv.Kind))
}

// IsNumeric implements isNumeric().
func IsNumeric(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	lit, ok := operand.Term.(*rdf.Literal)
	if !ok {
		return OK(rdf.NewBooleanLiteral(false))
	}
	_, ok = encoding.ParseNumeric(lit)
	return OK(rdf.NewBooleanLiteral(ok))
}
