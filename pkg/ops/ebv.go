package ops

import (
	"strconv"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// EffectiveBooleanValue computes a term's EBV per the SPARQL spec:
// booleans by their value, numerics by zero/NaN-ness, strings by
// emptiness; anything else (IRIs, blank nodes, unrecognized-datatype
// literals) has no EBV.
func EffectiveBooleanValue(r Result) Result {
	if r.IsError() {
		return r
	}
	lit, ok := r.Term.(*rdf.Literal)
	if !ok {
		return Error()
	}

	if lit.Datatype != nil && lit.Datatype.IRI == rdf.XSDBoolean.IRI {
		b, err := strconv.ParseBool(normalizeBoolLexical(lit.Value))
		if err != nil {
			return Error()
		}
		return OK(rdf.NewBooleanLiteral(b))
	}

	if nv, ok := encoding.ParseNumeric(lit); ok {
		v := nv.AsFloat64()
		return OK(rdf.NewBooleanLiteral(v != 0 && !isNaN(v)))
	}

	if lit.Datatype == nil || lit.Datatype.IRI == rdf.XSDString.IRI {
		return OK(rdf.NewBooleanLiteral(lit.Value != ""))
	}

	return Error()
}

func normalizeBoolLexical(s string) string {
	if s == "1" {
		return "true"
	}
	if s == "0" {
		return "false"
	}
	return s
}

func isNaN(f float64) bool { return f != f }

// And implements SPARQL's three-valued logical AND: an error operand only
// propagates if the other operand isn't definitively false.
func And(left, right Result) Result {
	l := EffectiveBooleanValue(left)
	if !l.IsError() && !asBool(l) {
		return OK(rdf.NewBooleanLiteral(false))
	}
	r := EffectiveBooleanValue(right)
	if !r.IsError() && !asBool(r) {
		return OK(rdf.NewBooleanLiteral(false))
	}
	if l.IsError() || r.IsError() {
		return Error()
	}
	return OK(rdf.NewBooleanLiteral(true))
}

// Or implements SPARQL's three-valued logical OR: an error operand only
// propagates if the other operand isn't definitively true.
func Or(left, right Result) Result {
	l := EffectiveBooleanValue(left)
	if !l.IsError() && asBool(l) {
		return OK(rdf.NewBooleanLiteral(true))
	}
	r := EffectiveBooleanValue(right)
	if !r.IsError() && asBool(r) {
		return OK(rdf.NewBooleanLiteral(true))
	}
	if l.IsError() || r.IsError() {
		return Error()
	}
	return OK(rdf.NewBooleanLiteral(false))
}

// Not implements logical NOT over an EBV.
func Not(operand Result) Result {
	v := EffectiveBooleanValue(operand)
	if v.IsError() {
		return Error()
	}
	return OK(rdf.NewBooleanLiteral(!asBool(v)))
}

func asBool(r Result) bool {
	lit, ok := r.Term.(*rdf.Literal)
	return ok && lit.Value == "true"
}
