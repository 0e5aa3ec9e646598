package ops

import (
	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// ValueEqual implements SPARQL's "=" operator: numerics compare across
// subtype after promotion, strings compare by value with a language-tag
// compatibility rule (untagged compares equal to a reflexively-tagged
// string only when both are untagged or both carry the same tag), and
// anything else falls back to term identity. Comparing two literals of
// incompatible, non-numeric datatypes is an expected error, not false:
// SPARQL leaves that case undefined for "=" and engines must not silently
// treat it as a mismatch.
func ValueEqual(left, right Result) Result {
	if left.IsError() || right.IsError() {
		return Error()
	}

	lNum, lIsNum := numericOf(left.Term)
	rNum, rIsNum := numericOf(right.Term)
	if lIsNum && rIsNum {
		return OK(rdf.NewBooleanLiteral(lNum.AsFloat64() == rNum.AsFloat64()))
	}
	if lIsNum != rIsNum {
		_, lLiteral := left.Term.(*rdf.Literal)
		_, rLiteral := right.Term.(*rdf.Literal)
		if lLiteral && rLiteral {
			return Error()
		}
		return OK(rdf.NewBooleanLiteral(false))
	}

	lLit, lIsLit := left.Term.(*rdf.Literal)
	rLit, rIsLit := right.Term.(*rdf.Literal)
	if lIsLit && rIsLit {
		if !stringTypesComparable(lLit, rLit) {
			return Error()
		}
		return OK(rdf.NewBooleanLiteral(lLit.Value == rLit.Value && lLit.Language == rLit.Language))
	}
	if lIsLit != rIsLit {
		return OK(rdf.NewBooleanLiteral(false))
	}

	return OK(rdf.NewBooleanLiteral(left.Term.Equals(right.Term)))
}

// ValueNotEqual is the negation of ValueEqual, propagating its errors.
func ValueNotEqual(left, right Result) Result {
	eq := ValueEqual(left, right)
	if eq.IsError() {
		return eq
	}
	return Not(eq)
}

// stringTypesComparable reports whether two literals may be compared by
// value under "=": both plain strings, both the same language tag, or
// both xsd:string.
func stringTypesComparable(a, b *rdf.Literal) bool {
	if a.Language != "" || b.Language != "" {
		return a.Language == b.Language
	}
	aStr := a.Datatype == nil || a.Datatype.IRI == rdf.XSDString.IRI
	bStr := b.Datatype == nil || b.Datatype.IRI == rdf.XSDString.IRI
	if aStr && bStr {
		return true
	}
	if a.Datatype != nil && b.Datatype != nil {
		return a.Datatype.IRI == b.Datatype.IRI
	}
	return false
}

func numericOf(t rdf.Term) (encoding.NumericValue, bool) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return encoding.NumericValue{}, false
	}
	return encoding.ParseNumeric(lit)
}

// Order implements ORDER BY / "<", "<=", ">", ">=" comparisons. Numerics
// compare by value, strings by codepoint, booleans false<true, date-times
// chronologically; cross-kind comparisons (e.g. an IRI against a literal)
// are an expected error, since SPARQL only defines ordering within a kind
// for the relational operators (ORDER BY instead uses the total order in
// encoding.SortableTerm).
func Order(left, right Result) (cmp int, ok bool) {
	if left.IsError() || right.IsError() {
		return 0, false
	}

	if lNum, lok := numericOf(left.Term); lok {
		if rNum, rok := numericOf(right.Term); rok {
			lf, rf := lNum.AsFloat64(), rNum.AsFloat64()
			switch {
			case lf < rf:
				return -1, true
			case lf > rf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	lLit, lIsLit := left.Term.(*rdf.Literal)
	rLit, rIsLit := right.Term.(*rdf.Literal)
	if lIsLit && rIsLit && stringTypesComparable(lLit, rLit) {
		switch {
		case lLit.Value < rLit.Value:
			return -1, true
		case lLit.Value > rLit.Value:
			return 1, true
		default:
			return 0, true
		}
	}

	return 0, false
}

// LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual wrap Order
// into Result-returning comparison operators.
func LessThan(l, r Result) Result           { return orderResult(l, r, func(c int) bool { return c < 0 }) }
func LessThanOrEqual(l, r Result) Result    { return orderResult(l, r, func(c int) bool { return c <= 0 }) }
func GreaterThan(l, r Result) Result        { return orderResult(l, r, func(c int) bool { return c > 0 }) }
func GreaterThanOrEqual(l, r Result) Result { return orderResult(l, r, func(c int) bool { return c >= 0 }) }

func orderResult(l, r Result, pred func(int) bool) Result {
	cmp, ok := Order(l, r)
	if !ok {
		return Error()
	}
	return OK(rdf.NewBooleanLiteral(pred(cmp)))
}

// SameTerm implements sameTerm(): strict RDF term identity, with no value
// promotion at all.
func SameTerm(left, right Result) Result {
	if left.IsError() || right.IsError() {
		return Error()
	}
	return OK(rdf.NewBooleanLiteral(left.Term.Equals(right.Term)))
}
