package ops

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
)

// TypedValueColumn is one argument or result column in the TypedValue
// encoding's dispatch path: values already parsed into their Go-native
// representation plus a validity mask. An invalid lane is an unbound
// input or an expected error; batch implementations propagate it
// without branching into per-row Go error handling.
type TypedValueColumn struct {
	Values []encoding.TypedValue
	Valid  []bool
}

// NewTypedValueColumn returns an empty column with capacity for n lanes.
func NewTypedValueColumn(n int) TypedValueColumn {
	return TypedValueColumn{
		Values: make([]encoding.TypedValue, 0, n),
		Valid:  make([]bool, 0, n),
	}
}

// Append adds one valid lane.
func (c *TypedValueColumn) Append(v encoding.TypedValue) {
	c.Values = append(c.Values, v)
	c.Valid = append(c.Valid, true)
}

// AppendNull adds one invalid lane.
func (c *TypedValueColumn) AppendNull() {
	c.Values = append(c.Values, encoding.TypedValue{})
	c.Valid = append(c.Valid, false)
}

// Len returns the number of lanes.
func (c TypedValueColumn) Len() int { return len(c.Values) }

// BatchFunc is an op's columnar implementation over the TypedValue
// encoding: argument columns in, one column of the same length out.
type BatchFunc func(ctx *Context, args []TypedValueColumn) TypedValueColumn

// typedValueUnary lifts a per-lane function into a BatchFunc,
// propagating invalid lanes and folding per-lane errors into nulls.
func typedValueUnary(f func(encoding.TypedValue) (encoding.TypedValue, bool)) BatchFunc {
	return func(_ *Context, args []TypedValueColumn) TypedValueColumn {
		in := args[0]
		out := NewTypedValueColumn(in.Len())
		for i, v := range in.Values {
			if !in.Valid[i] {
				out.AppendNull()
				continue
			}
			r, ok := f(v)
			if !ok {
				out.AppendNull()
				continue
			}
			out.Append(r)
		}
		return out
	}
}

func typedValueBinary(f func(a, b encoding.TypedValue) (encoding.TypedValue, bool)) BatchFunc {
	return func(_ *Context, args []TypedValueColumn) TypedValueColumn {
		l, r := args[0], args[1]
		out := NewTypedValueColumn(l.Len())
		for i := range l.Values {
			if !l.Valid[i] || !r.Valid[i] {
				out.AppendNull()
				continue
			}
			v, ok := f(l.Values[i], r.Values[i])
			if !ok {
				out.AppendNull()
				continue
			}
			out.Append(v)
		}
		return out
	}
}

// The per-lane TypedValue forms of the string and numeric builtins:
// unlike the PlainTerm implementations they never touch a lexical
// form, operating on the already-parsed value directly.

func strLenTyped(v encoding.TypedValue) (encoding.TypedValue, bool) {
	if v.Kind != encoding.TypedValueString {
		return encoding.TypedValue{}, false
	}
	return encoding.TypedValue{
		Kind: encoding.TypedValueInteger,
		Int:  int64(utf8.RuneCountInString(v.Str)),
	}, true
}

func uCaseTyped(v encoding.TypedValue) (encoding.TypedValue, bool) {
	if v.Kind != encoding.TypedValueString {
		return encoding.TypedValue{}, false
	}
	return encoding.TypedValue{Kind: encoding.TypedValueString, Str: strings.ToUpper(v.Str), Lang: v.Lang}, true
}

func lCaseTyped(v encoding.TypedValue) (encoding.TypedValue, bool) {
	if v.Kind != encoding.TypedValueString {
		return encoding.TypedValue{}, false
	}
	return encoding.TypedValue{Kind: encoding.TypedValueString, Str: strings.ToLower(v.Str), Lang: v.Lang}, true
}

func numericUnaryTyped(fi func(int64) int64, ff func(float64) float64) func(encoding.TypedValue) (encoding.TypedValue, bool) {
	return func(v encoding.TypedValue) (encoding.TypedValue, bool) {
		switch v.Kind {
		case encoding.TypedValueInteger:
			return encoding.TypedValue{Kind: v.Kind, Int: fi(v.Int)}, true
		case encoding.TypedValueDecimal, encoding.TypedValueFloat, encoding.TypedValueDouble:
			return encoding.TypedValue{Kind: v.Kind, Float: ff(v.Float)}, true
		default:
			return encoding.TypedValue{}, false
		}
	}
}

func absInt(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

var (
	absTyped   = numericUnaryTyped(absInt, math.Abs)
	ceilTyped  = numericUnaryTyped(func(n int64) int64 { return n }, math.Ceil)
	floorTyped = numericUnaryTyped(func(n int64) int64 { return n }, math.Floor)
	roundTyped = numericUnaryTyped(func(n int64) int64 { return n }, math.Round)
)

// typedStringsCompatible applies the language-tag compatibility rule to
// two TypedValue string lanes.
func typedStringsCompatible(a, b encoding.TypedValue) bool {
	if a.Kind != encoding.TypedValueString || b.Kind != encoding.TypedValueString {
		return false
	}
	return b.Lang == "" || a.Lang == b.Lang
}

func strPredicateTyped(f func(s, substr string) bool) func(a, b encoding.TypedValue) (encoding.TypedValue, bool) {
	return func(a, b encoding.TypedValue) (encoding.TypedValue, bool) {
		if !typedStringsCompatible(a, b) {
			return encoding.TypedValue{}, false
		}
		return encoding.TypedValue{Kind: encoding.TypedValueBoolean, Bool: f(a.Str, b.Str)}, true
	}
}
