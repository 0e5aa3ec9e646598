package physical

import (
	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/ops"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/eval"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/parser"
)

// tryVectorized evaluates an expression columnarly over a whole row set
// when it is a single function call whose arguments are plain variables
// and whose op implements the TypedValue encoding. The rows' terms are
// converted into one TypedValue column per argument (the explicit
// conversion the planner owes an op that doesn't speak the incoming
// layout), the op's columnar form runs once over the batch, and invalid
// lanes come back as expected errors. Reports false when the expression
// doesn't fit this shape, in which case the caller falls back to
// term-at-a-time evaluation.
func tryVectorized(expr parser.Expression, rows []eval.Row, reg *ops.Registry, ctx *ops.Context) ([]ops.Result, bool) {
	call, ok := expr.(*parser.FunctionCallExpression)
	if !ok || call.Distinct || len(call.Arguments) == 0 {
		return nil, false
	}
	op, ok := reg.Implementation(eval.RegistryName(call.Function), ops.EncodingTypedValue)
	if !ok || op.Sig.Volatile || !op.Sig.Arity.Accepts(len(call.Arguments)) {
		return nil, false
	}

	vars := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		v, ok := a.(*parser.VariableExpression)
		if !ok {
			return nil, false
		}
		vars[i] = v.Variable.Name
	}

	args := make([]ops.TypedValueColumn, len(vars))
	for i := range args {
		args[i] = ops.NewTypedValueColumn(len(rows))
	}
	for _, row := range rows {
		for i, name := range vars {
			term, bound := row[name]
			if !bound {
				args[i].AppendNull()
				continue
			}
			args[i].Append(encoding.ToTypedValue(term))
		}
	}

	col := op.TypedValue(ctx, args)
	out := make([]ops.Result, len(rows))
	for i := range rows {
		if i < col.Len() && col.Valid[i] {
			out[i] = ops.OK(col.Values[i].ToTerm())
		} else {
			out[i] = ops.Error()
		}
	}
	return out, true
}
