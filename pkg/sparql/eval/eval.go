package eval

import (
	"strings"

	"github.com/aleksaelezovic/fusiondb/pkg/ops"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/parser"
)

// Eval evaluates expr against row, dispatching builtin/extension
// function calls through reg and threading ctx for the handful of
// builtins that need query-wide or per-solution state (NOW, BNODE).
// An unbound variable reference, a malformed literal, or any builtin
// returning an expected error all collapse to ops.Error(), SPARQL's
// expected-error propagation rule, not a Go error.
func Eval(expr parser.Expression, row Row, ctx *ops.Context, reg *ops.Registry) ops.Result {
	switch e := expr.(type) {
	case *parser.VariableExpression:
		term, ok := row[e.Variable.Name]
		if !ok {
			return ops.Error()
		}
		return ops.OK(term)

	case *parser.LiteralExpression:
		return ops.OK(e.Literal)

	case *parser.UnaryExpression:
		operand := Eval(e.Operand, row, ctx, reg)
		switch e.Operator {
		case parser.OpNot:
			return ops.Not(operand)
		case parser.OpSubtract:
			return ops.UnaryMinus(operand)
		default:
			return ops.Error()
		}

	case *parser.BinaryExpression:
		return evalBinary(e, row, ctx, reg)

	case *parser.FunctionCallExpression:
		return evalCall(e, row, ctx, reg)

	case *parser.InExpression:
		return evalIn(e, row, ctx, reg)

	case *parser.ExistsExpression:
		// EXISTS/NOT EXISTS is resolved by the physical plan, which
		// rewrites it into a correlated subplan and substitutes a
		// LiteralExpression boolean before this function ever sees the
		// row; reaching here means the rewrite was skipped.
		return ops.Error()

	default:
		return ops.Error()
	}
}

func evalBinary(e *parser.BinaryExpression, row Row, ctx *ops.Context, reg *ops.Registry) ops.Result {
	switch e.Operator {
	case parser.OpAnd:
		return ops.And(Eval(e.Left, row, ctx, reg), Eval(e.Right, row, ctx, reg))
	case parser.OpOr:
		return ops.Or(Eval(e.Left, row, ctx, reg), Eval(e.Right, row, ctx, reg))
	}

	l := Eval(e.Left, row, ctx, reg)
	r := Eval(e.Right, row, ctx, reg)

	switch e.Operator {
	case parser.OpEqual:
		return ops.ValueEqual(l, r)
	case parser.OpNotEqual:
		return ops.ValueNotEqual(l, r)
	case parser.OpLessThan:
		return ops.LessThan(l, r)
	case parser.OpLessThanOrEqual:
		return ops.LessThanOrEqual(l, r)
	case parser.OpGreaterThan:
		return ops.GreaterThan(l, r)
	case parser.OpGreaterThanOrEqual:
		return ops.GreaterThanOrEqual(l, r)
	case parser.OpAdd:
		return ops.Add(l, r)
	case parser.OpSubtract:
		return ops.Subtract(l, r)
	case parser.OpMultiply:
		return ops.Multiply(l, r)
	case parser.OpDivide:
		return ops.Divide(l, r)
	default:
		return ops.Error()
	}
}

const xsdNamespace = "http://www.w3.org/2001/XMLSchema#"

// RegistryName maps a parsed function reference onto its registry key:
// SPARQL keywords are case-insensitive, and a PREFIX-expanded xsd cast
// IRI resolves to the same op as the bare "xsd:..." form. The physical
// plan's columnar dispatch uses the same mapping when it consults the
// registry's (name, encoding) table.
func RegistryName(name string) string {
	if local, ok := strings.CutPrefix(name, xsdNamespace); ok {
		return "xsd:" + local
	}
	if !strings.Contains(name, ":") {
		return strings.ToUpper(name)
	}
	return name
}

func evalCall(e *parser.FunctionCallExpression, row Row, ctx *ops.Context, reg *ops.Registry) ops.Result {
	name := RegistryName(e.Function)

	// BOUND's argument is a variable reference, not evaluated as an
	// expression: SPARQL defines BOUND(?x) over whether ?x appears in
	// the binding, not over ops.Error's unbound-is-error convention.
	if name == "BOUND" {
		if len(e.Arguments) != 1 {
			return ops.Error()
		}
		v, ok := e.Arguments[0].(*parser.VariableExpression)
		if !ok {
			return ops.Error()
		}
		_, bound := row[v.Variable.Name]
		return ops.Bound(bound)
	}

	if name == "IF" {
		if len(e.Arguments) != 3 {
			return ops.Error()
		}
		cond := Eval(e.Arguments[0], row, ctx, reg)
		ebv := ops.EffectiveBooleanValue(cond)
		if ebv.IsError() {
			return ops.Error()
		}
		if ebv.Term.(*rdf.Literal).Value == "true" {
			return Eval(e.Arguments[1], row, ctx, reg)
		}
		return Eval(e.Arguments[2], row, ctx, reg)
	}

	op, ok := reg.Lookup(name)
	if !ok {
		return ops.Error()
	}
	args := make([]ops.Result, len(e.Arguments))
	for i, a := range e.Arguments {
		args[i] = Eval(a, row, ctx, reg)
	}
	if !op.Sig.Arity.Accepts(len(args)) {
		return ops.Error()
	}
	return op.Call(ctx, args)
}

func evalIn(e *parser.InExpression, row Row, ctx *ops.Context, reg *ops.Registry) ops.Result {
	lhs := Eval(e.Expression, row, ctx, reg)
	found := false
	sawError := lhs.IsError()
	for _, v := range e.Values {
		rhs := Eval(v, row, ctx, reg)
		eq := ops.ValueEqual(lhs, rhs)
		if eq.IsError() {
			sawError = true
			continue
		}
		if eq.Term.(*rdf.Literal).Value == "true" {
			found = true
			break
		}
	}
	if found {
		return ops.OK(rdf.NewBooleanLiteral(!e.Not))
	}
	if sawError {
		return ops.Error()
	}
	return ops.OK(rdf.NewBooleanLiteral(e.Not))
}
