package physical

import (
	"context"

	"github.com/aleksaelezovic/fusiondb/pkg/ops"
	"github.com/aleksaelezovic/fusiondb/pkg/plan/logical"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/eval"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/parser"
	"github.com/aleksaelezovic/fusiondb/pkg/store"
)

// evalExpr evaluates expr against one solution mapping. EXISTS and NOT
// EXISTS subexpressions are resolved here rather than in
// pkg/sparql/eval: each occurrence compiles its inner pattern into a
// correlated subplan against the same snapshot the outer query runs
// on, probes it with the row's bindings, and is substituted by its
// boolean outcome before the remaining scalar expression is handed to
// eval.Eval.
func evalExpr(expr parser.Expression, row eval.Row, snap *store.Snapshot, reg *ops.Registry, ctx *ops.Context) ops.Result {
	// BNODE(str) is scoped to one solution mapping: the same argument
	// yields the same blank node within this evaluation, but a fresh one
	// for the next row.
	for k := range ctx.BNodeScope {
		delete(ctx.BNodeScope, k)
	}
	if hasExists(expr) {
		expr = substituteExists(expr, row, snap, reg, ctx)
	}
	return eval.Eval(expr, row, ctx, reg)
}

func hasExists(expr parser.Expression) bool {
	switch t := expr.(type) {
	case *parser.ExistsExpression:
		return true
	case *parser.BinaryExpression:
		return hasExists(t.Left) || hasExists(t.Right)
	case *parser.UnaryExpression:
		return hasExists(t.Operand)
	case *parser.FunctionCallExpression:
		for _, a := range t.Arguments {
			if hasExists(a) {
				return true
			}
		}
	case *parser.InExpression:
		if hasExists(t.Expression) {
			return true
		}
		for _, v := range t.Values {
			if hasExists(v) {
				return true
			}
		}
	}
	return false
}

// substituteExists returns a copy of expr with every
// EXISTS/NOT EXISTS node replaced by the boolean it evaluates to under
// row. Only the spine containing exists nodes is copied; leaf
// expressions are shared.
func substituteExists(expr parser.Expression, row eval.Row, snap *store.Snapshot, reg *ops.Registry, ctx *ops.Context) parser.Expression {
	switch t := expr.(type) {
	case *parser.ExistsExpression:
		holds := existsHolds(t, row, snap, reg, ctx)
		if t.Not {
			holds = !holds
		}
		return &parser.LiteralExpression{Literal: rdf.NewBooleanLiteral(holds)}

	case *parser.BinaryExpression:
		return &parser.BinaryExpression{
			Left:     substituteExists(t.Left, row, snap, reg, ctx),
			Operator: t.Operator,
			Right:    substituteExists(t.Right, row, snap, reg, ctx),
		}

	case *parser.UnaryExpression:
		return &parser.UnaryExpression{
			Operator: t.Operator,
			Operand:  substituteExists(t.Operand, row, snap, reg, ctx),
		}

	case *parser.FunctionCallExpression:
		args := make([]parser.Expression, len(t.Arguments))
		for i, a := range t.Arguments {
			args[i] = substituteExists(a, row, snap, reg, ctx)
		}
		return &parser.FunctionCallExpression{Function: t.Function, Arguments: args, Distinct: t.Distinct}

	case *parser.InExpression:
		values := make([]parser.Expression, len(t.Values))
		for i, v := range t.Values {
			values[i] = substituteExists(v, row, snap, reg, ctx)
		}
		return &parser.InExpression{
			Expression: substituteExists(t.Expression, row, snap, reg, ctx),
			Not:        t.Not,
			Values:     values,
		}

	default:
		return expr
	}
}

// existsHolds reports whether the inner pattern has at least one
// solution compatible with row's bindings. A pattern that fails to
// plan holds for no row; compilation problems surface when the same
// pattern appears outside a filter, not as a spurious match here.
func existsHolds(e *parser.ExistsExpression, row eval.Row, snap *store.Snapshot, reg *ops.Registry, ctx *ops.Context) bool {
	node, err := logical.BuildPattern(&e.Pattern, logical.DefaultScope())
	if err != nil {
		return false
	}
	node = logical.Optimize(node)

	op, err := compile(node, snap, reg, ctx)
	if err != nil {
		return false
	}
	rows, err := drain(context.Background(), op)
	if err != nil {
		return false
	}
	for _, inner := range rows {
		if eval.Compatible(row, inner) {
			return true
		}
	}
	return false
}
