package logical

import "github.com/aleksaelezovic/fusiondb/pkg/sparql/parser"

// Optimize rewrites a freshly built logical plan through a fixed,
// always-run sequence of passes: expression simplification, quad
// pattern lowering (a Quads node's member patterns become a join
// tree so physical compilation never special-cases its arity), and
// filter pushdown. The passes are intentionally unconditional and
// order-independent of any cost model. This is a rule-based
// optimizer, not a cardinality-driven one.
func Optimize(n Node) Node {
	n = simplifyExpressions(n)
	n = lowerQuadPatterns(n)
	n = pushDownFilters(n)
	return n
}

// simplifyExpressions removes a top-level double negation
// (NOT(NOT(x)) -> x) from every Filter/Extend/Optional expression
// reachable from n. No other rewrite is applied: boolean constants are
// not folded and IS_COMPATIBLE is not rewritten to "=".
func simplifyExpressions(n Node) Node {
	switch t := n.(type) {
	case *Filter:
		t.Expression = simplifyExpr(t.Expression)
		t.Child = simplifyExpressions(t.Child)
	case *Extend:
		t.Expression = simplifyExpr(t.Expression)
		t.Child = simplifyExpressions(t.Child)
	case *Optional:
		if t.Filter != nil {
			t.Filter = simplifyExpr(t.Filter)
		}
		t.Left = simplifyExpressions(t.Left)
		t.Right = simplifyExpressions(t.Right)
	default:
		for _, c := range n.Children() {
			simplifyExpressions(c)
		}
	}
	return n
}

func simplifyExpr(e parser.Expression) parser.Expression {
	u, ok := e.(*parser.UnaryExpression)
	if !ok || u.Operator != parser.OpNot {
		return e
	}
	inner, ok := u.Operand.(*parser.UnaryExpression)
	if ok && inner.Operator == parser.OpNot {
		return inner.Operand
	}
	return e
}

// lowerQuadPatterns replaces every Quads node's pattern list with a
// left-deep Join tree of its members (QuadPattern or Path nodes),
// matching how the rest of the logical algebra already composes BGPs
// with OPTIONAL/UNION/MINUS via Join. A Quads with zero patterns
// lowers to itself (the empty-pattern identity relation: one row, no
// bindings), used by buildGroupGraphPattern as a join unit.
func lowerQuadPatterns(n Node) Node {
	switch t := n.(type) {
	case *Quads:
		if len(t.Patterns) == 0 {
			return t
		}
		var acc Node = t.Patterns[0]
		for _, p := range t.Patterns[1:] {
			acc = NewJoin(acc, p)
		}
		return acc
	case *Join:
		t.Left = lowerQuadPatterns(t.Left)
		t.Right = lowerQuadPatterns(t.Right)
		return t
	case *Filter:
		t.Child = lowerQuadPatterns(t.Child)
		return t
	case *Extend:
		t.Child = lowerQuadPatterns(t.Child)
		return t
	case *Optional:
		t.Left = lowerQuadPatterns(t.Left)
		t.Right = lowerQuadPatterns(t.Right)
		return t
	case *Minus:
		t.Left = lowerQuadPatterns(t.Left)
		t.Right = lowerQuadPatterns(t.Right)
		return t
	case *Union:
		t.Left = lowerQuadPatterns(t.Left)
		t.Right = lowerQuadPatterns(t.Right)
		return t
	case *OrderBy:
		t.Child = lowerQuadPatterns(t.Child)
		return t
	case *Distinct:
		t.Child = lowerQuadPatterns(t.Child)
		return t
	case *Slice:
		t.Child = lowerQuadPatterns(t.Child)
		return t
	case *Project:
		t.Child = lowerQuadPatterns(t.Child)
		return t
	case *Aggregate:
		t.Child = lowerQuadPatterns(t.Child)
		return t
	case *Pattern:
		t.Child = lowerQuadPatterns(t.Child)
		return t
	default:
		return n
	}
}

// pushDownFilters moves a Filter whose expression only references
// variables bound by one side of an underlying Join down past that
// Join, letting the narrower side filter before the join instead of
// after it.
func pushDownFilters(n Node) Node {
	switch t := n.(type) {
	case *Filter:
		t.Child = pushDownFilters(t.Child)
		if join, ok := t.Child.(*Join); ok {
			vars := exprVariables(t.Expression)
			if subsetOf(vars, join.Left.Schema()) {
				join.Left = NewFilter(join.Left, t.Expression)
				return join
			}
			if subsetOf(vars, join.Right.Schema()) {
				join.Right = NewFilter(join.Right, t.Expression)
				return join
			}
		}
		return t
	case *Join:
		t.Left = pushDownFilters(t.Left)
		t.Right = pushDownFilters(t.Right)
		return t
	case *Extend:
		t.Child = pushDownFilters(t.Child)
		return t
	case *Optional:
		t.Left = pushDownFilters(t.Left)
		t.Right = pushDownFilters(t.Right)
		return t
	case *Minus:
		t.Left = pushDownFilters(t.Left)
		t.Right = pushDownFilters(t.Right)
		return t
	case *Union:
		t.Left = pushDownFilters(t.Left)
		t.Right = pushDownFilters(t.Right)
		return t
	case *OrderBy:
		t.Child = pushDownFilters(t.Child)
		return t
	case *Distinct:
		t.Child = pushDownFilters(t.Child)
		return t
	case *Slice:
		t.Child = pushDownFilters(t.Child)
		return t
	case *Project:
		t.Child = pushDownFilters(t.Child)
		return t
	case *Aggregate:
		t.Child = pushDownFilters(t.Child)
		return t
	case *Pattern:
		t.Child = pushDownFilters(t.Child)
		return t
	default:
		return n
	}
}

func subsetOf(vars []string, schema []string) bool {
	if len(vars) == 0 {
		return false
	}
	have := map[string]bool{}
	for _, s := range schema {
		have[s] = true
	}
	for _, v := range vars {
		if !have[v] {
			return false
		}
	}
	return true
}

func exprVariables(e parser.Expression) []string {
	var out []string
	var walk func(parser.Expression)
	walk = func(e parser.Expression) {
		switch t := e.(type) {
		case *parser.VariableExpression:
			out = append(out, t.Variable.Name)
		case *parser.BinaryExpression:
			walk(t.Left)
			walk(t.Right)
		case *parser.UnaryExpression:
			walk(t.Operand)
		case *parser.FunctionCallExpression:
			for _, a := range t.Arguments {
				walk(a)
			}
		case *parser.InExpression:
			walk(t.Expression)
			for _, v := range t.Values {
				walk(v)
			}
		}
	}
	walk(e)
	return out
}
