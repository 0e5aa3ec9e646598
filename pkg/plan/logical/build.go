package logical

import (
	"fmt"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/parser"
)

// Build compiles a parsed SPARQL query into its (unoptimized) logical
// plan. CONSTRUCT/DESCRIBE's template is left to the caller; Build
// only compiles the WHERE clause and, for SELECT, the full
// project/group/order/slice pipeline.
func Build(q *parser.Query) (Node, error) {
	var blanks int
	switch q.QueryType {
	case parser.QueryTypeSelect:
		return buildSelect(q.Select, &blanks)
	case parser.QueryTypeAsk:
		return buildGroupGraphPattern(q.Ask.Where, datasetGraphScope(q.Ask.Dataset), &blanks)
	case parser.QueryTypeConstruct:
		return buildGroupGraphPattern(q.Construct.Where, datasetGraphScope(q.Construct.Dataset), &blanks)
	case parser.QueryTypeDescribe:
		scope := datasetGraphScope(q.Describe.Dataset)
		if q.Describe.Where == nil {
			return NewQuads(scope), nil
		}
		return buildGroupGraphPattern(q.Describe.Where, scope, &blanks)
	default:
		return nil, fmt.Errorf("logical: unknown query type %v", q.QueryType)
	}
}

func buildSelect(q *parser.SelectQuery, blanks *int) (Node, error) {
	node, err := buildGroupGraphPattern(q.Where, datasetGraphScope(q.Dataset), blanks)
	if err != nil {
		return nil, err
	}

	if len(q.GroupBy) > 0 || hasAggregate(q.Projections) {
		node = buildAggregate(node, q)
	}

	for _, h := range q.Having {
		node = NewFilter(node, h.Expression)
	}

	if len(q.OrderBy) > 0 {
		keys := make([]SortKey, len(q.OrderBy))
		for i, o := range q.OrderBy {
			keys[i] = SortKey{Expression: o.Expression, Ascending: o.Ascending}
		}
		node = NewOrderBy(node, keys)
	}

	if q.Projections != nil {
		cols := make([]ProjectColumn, len(q.Projections))
		for i, p := range q.Projections {
			// Aggregate projections were already computed (and bound to
			// their alias) by the Aggregate node; re-extending them here
			// would re-dispatch COUNT/SUM/... as scalar functions.
			if p.Expression != nil && !containsAggregateCall(p.Expression) {
				node = NewExtend(node, p.Variable.Name, p.Expression)
			}
			cols[i] = ProjectColumn{Variable: p.Variable.Name}
		}
		node = NewProject(node, cols)
	}

	if q.Distinct {
		node = NewDistinct(node)
	}

	if q.Offset != nil || q.Limit != nil {
		offset, limit := 0, -1
		if q.Offset != nil {
			offset = *q.Offset
		}
		if q.Limit != nil {
			limit = *q.Limit
		}
		node = NewSlice(node, offset, limit)
	}

	return node, nil
}

func hasAggregate(projections []*parser.ProjectionItem) bool {
	for _, p := range projections {
		if p.Expression != nil && containsAggregateCall(p.Expression) {
			return true
		}
	}
	return false
}

func containsAggregateCall(expr parser.Expression) bool {
	switch e := expr.(type) {
	case *parser.FunctionCallExpression:
		if isAggregateFunction(e.Function) {
			return true
		}
		for _, a := range e.Arguments {
			if containsAggregateCall(a) {
				return true
			}
		}
	case *parser.BinaryExpression:
		return containsAggregateCall(e.Left) || containsAggregateCall(e.Right)
	case *parser.UnaryExpression:
		return containsAggregateCall(e.Operand)
	}
	return false
}

func isAggregateFunction(name string) bool {
	switch name {
	case "COUNT", "SUM", "AVG", "MIN", "MAX", "GROUP_CONCAT", "SAMPLE":
		return true
	}
	return false
}

func buildAggregate(child Node, q *parser.SelectQuery) Node {
	groupKeys := make([]ProjectColumn, len(q.GroupBy))
	for i, g := range q.GroupBy {
		if g.Variable != nil {
			groupKeys[i] = ProjectColumn{Variable: g.Variable.Name, Expression: g.Expression}
		}
	}

	var calls []AggregateCall
	for _, p := range q.Projections {
		if p.Expression == nil {
			continue
		}
		if fc, ok := p.Expression.(*parser.FunctionCallExpression); ok && isAggregateFunction(fc.Function) {
			var arg parser.Expression
			if len(fc.Arguments) == 1 {
				arg = fc.Arguments[0]
			}
			// COUNT(*) parses as a single "*" variable argument; an
			// argument-free AggregateCall is what counts whole rows.
			if v, ok := arg.(*parser.VariableExpression); ok && v.Variable.Name == "*" {
				arg = nil
			}
			calls = append(calls, AggregateCall{
				Function: fc.Function,
				Argument: arg,
				Distinct: fc.Distinct,
				Variable: p.Variable.Name,
			})
		}
	}

	return NewAggregate(child, groupKeys, calls)
}

// BuildPattern compiles one group graph pattern against a graph scope,
// outside the context of a whole query. The physical layer uses it to
// plan the correlated subpattern of an EXISTS/NOT EXISTS filter.
func BuildPattern(gp *parser.GraphPattern, graph GraphScope) (Node, error) {
	var blanks int
	return buildGroupGraphPattern(gp, graph, &blanks)
}

// DefaultScope is the implicit default-graph scope used when no
// dataset clause or GRAPH block applies.
func DefaultScope() GraphScope { return defaultGraphScope() }

// buildGroupGraphPattern compiles one { ... } group graph pattern,
// folding its triple patterns into a Quads/Path join tree and layering
// its FILTER/BIND/OPTIONAL/MINUS/UNION/GRAPH children on top in
// source order where PatternElement ordering is available, or in the
// conventional BGP-then-modifiers order otherwise.
func buildGroupGraphPattern(gp *parser.GraphPattern, graph GraphScope, blanks *int) (Node, error) {
	if gp == nil {
		return NewQuads(graph), nil
	}

	scope := graph
	if gp.Type == parser.GraphPatternTypeGraph && gp.Graph != nil {
		scope = graphScopeOf(gp.Graph)
	}

	bs := newBlankScope(blanks)

	var acc Node
	if len(gp.Elements) > 0 {
		n, err := buildFromElements(gp.Elements, scope, bs)
		if err != nil {
			return nil, err
		}
		acc = n
	} else {
		patterns := make([]Node, len(gp.Patterns))
		for i, tp := range gp.Patterns {
			patterns[i] = buildTriplePattern(tp, scope, bs)
		}
		acc = NewQuads(scope, patterns...)
		for _, f := range gp.Filters {
			acc = NewFilter(acc, f.Expression)
		}
		for _, b := range gp.Binds {
			acc = NewExtend(acc, b.Variable.Name, b.Expression)
		}
	}

	var unionBranches []Node
	for _, child := range gp.Children {
		switch child.Type {
		case parser.GraphPatternTypeOptional:
			right, err := buildGroupGraphPattern(child, scope, blanks)
			if err != nil {
				return nil, err
			}
			var filter parser.Expression
			if len(child.Filters) == 1 {
				filter = child.Filters[0].Expression
			}
			acc = NewOptional(acc, right, filter)

		case parser.GraphPatternTypeMinus:
			right, err := buildGroupGraphPattern(child, scope, blanks)
			if err != nil {
				return nil, err
			}
			acc = NewMinus(acc, right)

		case parser.GraphPatternTypeUnion:
			// The parser represents { A } UNION { B } as one Union child
			// whose own Children are the branches.
			var union Node
			for _, br := range child.Children {
				branch, err := buildGroupGraphPattern(br, scope, blanks)
				if err != nil {
					return nil, err
				}
				if union == nil {
					union = branch
				} else {
					union = NewUnion(union, branch)
				}
			}
			if union != nil {
				unionBranches = append(unionBranches, union)
			}

		case parser.GraphPatternTypeGraph:
			branch, err := buildGroupGraphPattern(child, scope, blanks)
			if err != nil {
				return nil, err
			}
			acc = joinOrReplace(acc, branch)

		default: // nested plain { ... } group
			branch, err := buildGroupGraphPattern(child, scope, blanks)
			if err != nil {
				return nil, err
			}
			acc = joinOrReplace(acc, branch)
		}
	}

	if len(unionBranches) > 0 {
		union := unionBranches[0]
		for _, b := range unionBranches[1:] {
			union = NewUnion(union, b)
		}
		acc = joinOrReplace(acc, union)
	}

	return acc, nil
}

// joinOrReplace joins left with right, or simply returns right when
// left is an empty Quads node (the common case of a group graph
// pattern whose only content is a single nested sub-pattern).
func joinOrReplace(left, right Node) Node {
	if q, ok := left.(*Quads); ok && len(q.Patterns) == 0 {
		return right
	}
	return NewJoin(left, right)
}

func buildFromElements(elements []parser.PatternElement, scope GraphScope, bs *blankScope) (Node, error) {
	var bgp []Node
	acc := Node(nil)

	flushBGP := func() {
		if len(bgp) == 0 {
			return
		}
		q := NewQuads(scope, bgp...)
		if acc == nil {
			acc = q
		} else {
			acc = NewJoin(acc, q)
		}
		bgp = nil
	}

	for _, el := range elements {
		switch {
		case el.Triple != nil:
			bgp = append(bgp, buildTriplePattern(el.Triple, scope, bs))
		case el.Filter != nil:
			flushBGP()
			if acc == nil {
				acc = NewQuads(scope)
			}
			acc = NewFilter(acc, el.Filter.Expression)
		case el.Bind != nil:
			flushBGP()
			if acc == nil {
				acc = NewQuads(scope)
			}
			acc = NewExtend(acc, el.Bind.Variable.Name, el.Bind.Expression)
		}
	}
	flushBGP()
	if acc == nil {
		acc = NewQuads(scope)
	}
	return acc, nil
}

func buildTriplePattern(tp *parser.TriplePattern, scope GraphScope, bs *blankScope) Node {
	subject := bs.refOf(tp.Subject)
	object := bs.refOf(tp.Object)
	if tp.Path != nil {
		return NewPath(subject, object, tp.Path, scope)
	}
	return NewQuadPattern(subject, bs.refOf(tp.Predicate), object, scope)
}

// blankScope maps each blank node label in one basic graph pattern to
// a hidden query variable, so repeated labels within the group unify
// (the same way a repeated variable would) while the same label in a
// different group stays distinct. The counter is query-global so two
// groups never mint the same variable name.
type blankScope struct {
	id   int
	vars map[string]string
}

func newBlankScope(counter *int) *blankScope {
	*counter++
	return &blankScope{id: *counter, vars: map[string]string{}}
}

func (bs *blankScope) varFor(label string) string {
	v, ok := bs.vars[label]
	if !ok {
		v = fmt.Sprintf("%sb%d_%s", hiddenBlankPrefix, bs.id, label)
		bs.vars[label] = v
	}
	return v
}

// refOf lowers one pattern slot, applying the query reading of blank
// nodes: a blank label becomes a scoped hidden variable.
func (bs *blankScope) refOf(tv parser.TermOrVariable) TermRef {
	if tv.Variable != nil {
		return TermRef{Variable: tv.Variable.Name}
	}
	if bn, ok := tv.Term.(*rdf.BlankNode); ok {
		return TermRef{Variable: bs.varFor(bn.ID)}
	}
	return TermRef{Term: tv.Term}
}

func graphScopeOf(g *parser.GraphTerm) GraphScope {
	if g.Variable != nil {
		return GraphScope{Variable: g.Variable.Name}
	}
	return GraphScope{IRI: g.IRI}
}
