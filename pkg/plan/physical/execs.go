package physical

import (
	"context"
	"sort"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/ops"
	"github.com/aleksaelezovic/fusiondb/pkg/plan/logical"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/eval"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/parser"
	"github.com/aleksaelezovic/fusiondb/pkg/store"
)

// EmptyPatternExec is the identity relation: one empty row, no
// bindings. It is what an empty basic graph pattern ("{}") compiles
// to, and what Join/Optional/Minus use as a neutral left operand.
type EmptyPatternExec struct {
	materialized
	opened bool
}

func (e *EmptyPatternExec) Open(ctx context.Context) error {
	if !e.opened {
		e.rows = []eval.Row{{}}
		e.opened = true
	}
	return nil
}

// QuadPatternExec scans the store for quads matching one triple
// pattern within a graph scope, decoding each matching ObjectId tuple
// back into RDF terms via the snapshot's dictionary and binding them
// to the pattern's variables.
type QuadPatternExec struct {
	materialized
	node *logical.QuadPattern
	snap *store.Snapshot
}

func (e *QuadPatternExec) Open(ctx context.Context) error {
	pattern, ok := buildStorePattern(e.snap, e.node.Subject, e.node.Predicate, e.node.Object, e.node.Graph, e.node.BlankNodes)
	if !ok {
		e.rows = nil
		return nil
	}

	quads := e.snap.Scan(pattern)
	e.rows = make([]eval.Row, 0, len(quads))
	for _, q := range quads {
		row, ok := decodeRow(e.snap, q, e.node.Subject, e.node.Predicate, e.node.Object, e.node.Graph)
		if ok {
			e.rows = append(e.rows, row)
		}
	}
	return nil
}

func buildStorePattern(snap *store.Snapshot, subject, predicate, object logical.TermRef, graph logical.GraphScope, mode logical.BlankNodeMatchingMode) (store.Pattern, bool) {
	// In as-variables mode a blank term left in a slot (a plan built
	// programmatically rather than by the query builder, which rewrites
	// labels into variables) is an anonymous wildcard; in exact mode it
	// is a constant like any other term.
	slot := func(ref logical.TermRef) (store.Slot, bool) {
		if mode == logical.MatchBlankNodesAsVariables {
			if _, blank := ref.Term.(*rdf.BlankNode); blank {
				return store.Slot{}, true
			}
		}
		return slotOf(snap, ref)
	}

	s, ok := slot(subject)
	if !ok {
		return store.Pattern{}, false
	}
	p, ok := slot(predicate)
	if !ok {
		return store.Pattern{}, false
	}
	o, ok := slot(object)
	if !ok {
		return store.Pattern{}, false
	}
	ag, ok := graphScopeOf(snap, graph)
	if !ok {
		return store.Pattern{}, false
	}
	return store.Pattern{Subject: s, Predicate: p, Object: o, Graph: ag}, true
}

func decodeRow(snap *store.Snapshot, q store.Quad, subject, predicate, object logical.TermRef, graph logical.GraphScope) (eval.Row, bool) {
	row := eval.Row{}
	bind := func(ref logical.TermRef, id encoding.ObjectId) bool {
		if !ref.IsVariable() || ref.Variable == "" {
			return true
		}
		term, ok := snap.Dictionary().Term(id)
		if !ok {
			return false
		}
		if existing, bound := row[ref.Variable]; bound && !existing.Equals(term) {
			return false
		}
		row[ref.Variable] = term
		return true
	}
	if !bind(subject, q.Subject) || !bind(predicate, q.Predicate) || !bind(object, q.Object) {
		return nil, false
	}
	if graph.Variable != "" {
		if !bind(logical.TermRef{Variable: graph.Variable}, q.Graph) {
			return nil, false
		}
	}
	return row, true
}

// JoinExec is the natural join of Left and Right on their shared
// variables, implemented as a nested-loop join: for an in-memory
// store the dominant cost is almost always the underlying quad scans,
// not the join arithmetic over their (typically small) result sets.
type JoinExec struct {
	materialized
	node *logical.Join
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *JoinExec) Open(ctx context.Context) error {
	left, err := compile(e.node.Left, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	right, err := compile(e.node.Right, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	leftRows, err := drain(ctx, left)
	if err != nil {
		return err
	}
	rightRows, err := drain(ctx, right)
	if err != nil {
		return err
	}

	for _, l := range leftRows {
		for _, r := range rightRows {
			if eval.Compatible(l, r) {
				e.rows = append(e.rows, eval.Merge(l, r))
			}
		}
	}
	return nil
}

// OptionalExec is SPARQL's left outer join: every Left row survives,
// joined with each compatible Right row, or padded unbound if none
// match (or none pass the OPTIONAL block's own inner FILTER).
type OptionalExec struct {
	materialized
	node *logical.Optional
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *OptionalExec) Open(ctx context.Context) error {
	left, err := compile(e.node.Left, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	right, err := compile(e.node.Right, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	leftRows, err := drain(ctx, left)
	if err != nil {
		return err
	}
	rightRows, err := drain(ctx, right)
	if err != nil {
		return err
	}

	for _, l := range leftRows {
		matched := false
		for _, r := range rightRows {
			if !eval.Compatible(l, r) {
				continue
			}
			merged := eval.Merge(l, r)
			if e.node.Filter != nil {
				ebv := ops.EffectiveBooleanValue(evalExpr(e.node.Filter, merged, e.snap, e.reg, e.ctx))
				if ebv.IsError() || !asBoolResult(ebv) {
					continue
				}
			}
			e.rows = append(e.rows, merged)
			matched = true
		}
		if !matched {
			e.rows = append(e.rows, l)
		}
	}
	return nil
}

// MinusExec removes every Left row compatible with some Right row,
// implemented as a left-anti-join. A Left row sharing no variable
// with Right is never removed, per SPARQL MINUS's definition.
type MinusExec struct {
	materialized
	node *logical.Minus
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *MinusExec) Open(ctx context.Context) error {
	left, err := compile(e.node.Left, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	right, err := compile(e.node.Right, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	leftRows, err := drain(ctx, left)
	if err != nil {
		return err
	}
	rightRows, err := drain(ctx, right)
	if err != nil {
		return err
	}

	for _, l := range leftRows {
		remove := false
		for _, r := range rightRows {
			if sharesVariable(l, r) && eval.Compatible(l, r) {
				remove = true
				break
			}
		}
		if !remove {
			e.rows = append(e.rows, l)
		}
	}
	return nil
}

func sharesVariable(a, b eval.Row) bool {
	for v := range a {
		if _, ok := b[v]; ok {
			return true
		}
	}
	return false
}

// UnionExec is the bag union of Left and Right's rows.
type UnionExec struct {
	materialized
	node *logical.Union
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *UnionExec) Open(ctx context.Context) error {
	left, err := compile(e.node.Left, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	right, err := compile(e.node.Right, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	leftRows, err := drain(ctx, left)
	if err != nil {
		return err
	}
	rightRows, err := drain(ctx, right)
	if err != nil {
		return err
	}
	e.rows = append(append([]eval.Row{}, leftRows...), rightRows...)
	return nil
}

// FilterExec discards rows whose expression's effective boolean value
// is not true.
type FilterExec struct {
	materialized
	node *logical.Filter
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *FilterExec) Open(ctx context.Context) error {
	child, err := compile(e.node.Child, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	rows, err := drain(ctx, child)
	if err != nil {
		return err
	}
	for _, r := range rows {
		ebv := ops.EffectiveBooleanValue(evalExpr(e.node.Expression, r, e.snap, e.reg, e.ctx))
		if !ebv.IsError() && asBoolResult(ebv) {
			e.rows = append(e.rows, r)
		}
	}
	return nil
}

// ExtendExec adds one computed column (BIND) to each row. Per SPARQL,
// an expression error just leaves the variable unbound rather than
// discarding the row.
type ExtendExec struct {
	materialized
	node *logical.Extend
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *ExtendExec) Open(ctx context.Context) error {
	child, err := compile(e.node.Child, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	rows, err := drain(ctx, child)
	if err != nil {
		return err
	}

	// Columnar fast path: a bare function call over bound variables
	// whose op implements the TypedValue encoding evaluates once over
	// the whole row set instead of term by term.
	if results, ok := tryVectorized(e.node.Expression, rows, e.reg, e.ctx); ok {
		for i, r := range rows {
			out := r.Clone()
			if !results[i].IsError() {
				out[e.node.Variable] = results[i].Term
			}
			e.rows = append(e.rows, out)
		}
		return nil
	}

	for _, r := range rows {
		result := evalExpr(e.node.Expression, r, e.snap, e.reg, e.ctx)
		out := r.Clone()
		if !result.IsError() {
			out[e.node.Variable] = result.Term
		}
		e.rows = append(e.rows, out)
	}
	return nil
}

// KleenePlusClosureExec computes Child's transitive closure over its
// Subject/Object columns via a semi-naive reachable/delta fixpoint:
// each round extends the previous round's newly-reached pairs by one
// more hop of Child, stopping once a round adds nothing new.
type KleenePlusClosureExec struct {
	materialized
	node *logical.KleenePlusClosure
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

type closurePair struct{ from, to rdf.Term }

func (e *KleenePlusClosureExec) Open(ctx context.Context) error {
	child, err := compile(e.node.Child, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	baseRows, err := drain(ctx, child)
	if err != nil {
		return err
	}

	var base []closurePair
	for _, r := range baseRows {
		from, fok := r[e.node.Subject]
		to, tok := r[e.node.Object]
		if !fok || !tok {
			continue
		}
		base = append(base, closurePair{from: from, to: to})
	}

	result := transitiveClosure(base)
	e.rows = make([]eval.Row, 0, len(result))
	for _, p := range result {
		e.rows = append(e.rows, eval.Row{e.node.Subject: p.from, e.node.Object: p.to})
	}
	return nil
}

// termKey is a map key distinguishing every term Term.Equals
// distinguishes; the String() forms of the term kinds ("<iri>", "_:id",
// quoted literals) never collide across kinds. nil stands for unbound.
func termKey(t rdf.Term) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// OrderByExec sorts rows by Keys using SPARQL's ORDER BY total
// ordering via encoding.SortableTerm: unlike the relational "<"
// operator (which errors on cross-kind operands), ORDER BY defines a
// category order (unbound < blank < IRI < boolean < numeric <
// string < ...) so
// every pair of keys compares, and ties fall through key by key.
type OrderByExec struct {
	materialized
	node *logical.OrderBy
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *OrderByExec) Open(ctx context.Context) error {
	child, err := compile(e.node.Child, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	rows, err := drain(ctx, child)
	if err != nil {
		return err
	}
	e.rows = rows

	sort.SliceStable(e.rows, func(i, j int) bool {
		for _, key := range e.node.Keys {
			li := e.sortKeyOf(key.Expression, e.rows[i])
			lj := e.sortKeyOf(key.Expression, e.rows[j])
			cmp := li.Compare(lj)
			if cmp == 0 {
				continue
			}
			if key.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
	return nil
}

// sortKeyOf reduces one ORDER BY key expression to its comparison key
// for row; an erroring expression sorts as unbound.
func (e *OrderByExec) sortKeyOf(expr parser.Expression, row eval.Row) encoding.SortableTerm {
	result := evalExpr(expr, row, e.snap, e.reg, e.ctx)
	if result.IsError() {
		return encoding.NewSortableTerm(nil)
	}
	return encoding.NewSortableTerm(result.Term)
}

// DistinctExec removes duplicate rows by their full binding set.
type DistinctExec struct {
	materialized
	node *logical.Distinct
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *DistinctExec) Open(ctx context.Context) error {
	child, err := compile(e.node.Child, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	rows, err := drain(ctx, child)
	if err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, r := range rows {
		key := rowKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		e.rows = append(e.rows, r)
	}
	return nil
}

func rowKey(r eval.Row) string {
	vars := make([]string, 0, len(r))
	for v := range r {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	key := ""
	for _, v := range vars {
		key += v + "=" + termKey(r[v]) + "\x01"
	}
	return key
}

// SliceExec applies LIMIT/OFFSET to the row stream.
type SliceExec struct {
	materialized
	node *logical.Slice
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *SliceExec) Open(ctx context.Context) error {
	child, err := compile(e.node.Child, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	rows, err := drain(ctx, child)
	if err != nil {
		return err
	}
	if e.node.Offset > 0 {
		if e.node.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[e.node.Offset:]
		}
	}
	if e.node.Limit >= 0 && e.node.Limit < len(rows) {
		rows = rows[:e.node.Limit]
	}
	e.rows = rows
	return nil
}

// ProjectExec restricts and reorders rows down to its output columns,
// evaluating any computed column along the way.
type ProjectExec struct {
	materialized
	node *logical.Project
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *ProjectExec) Open(ctx context.Context) error {
	child, err := compile(e.node.Child, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	rows, err := drain(ctx, child)
	if err != nil {
		return err
	}
	for _, r := range rows {
		out := eval.Row{}
		for _, col := range e.node.Columns {
			if col.Expression != nil {
				result := evalExpr(col.Expression, r, e.snap, e.reg, e.ctx)
				if !result.IsError() {
					out[col.Variable] = result.Term
				}
				continue
			}
			if term, ok := r[col.Variable]; ok {
				out[col.Variable] = term
			}
		}
		e.rows = append(e.rows, out)
	}
	return nil
}

// AggregateExec groups rows by GroupKeys and computes each
// AggregateCall per group.
type AggregateExec struct {
	materialized
	node *logical.Aggregate
	snap *store.Snapshot
	reg  *ops.Registry
	ctx  *ops.Context
}

func (e *AggregateExec) Open(ctx context.Context) error {
	child, err := compile(e.node.Child, e.snap, e.reg, e.ctx)
	if err != nil {
		return err
	}
	rows, err := drain(ctx, child)
	if err != nil {
		return err
	}

	type group struct {
		key  eval.Row
		rows []eval.Row
	}
	order := []string{}
	groups := map[string]*group{}

	for _, r := range rows {
		key := eval.Row{}
		for _, k := range e.node.GroupKeys {
			if k.Expression != nil {
				result := evalExpr(k.Expression, r, e.snap, e.reg, e.ctx)
				if !result.IsError() {
					key[k.Variable] = result.Term
				}
			} else if term, ok := r[k.Variable]; ok {
				key[k.Variable] = term
			}
		}
		gk := rowKey(key)
		g, ok := groups[gk]
		if !ok {
			g = &group{key: key}
			groups[gk] = g
			order = append(order, gk)
		}
		g.rows = append(g.rows, r)
	}

	if len(order) == 0 && len(e.node.GroupKeys) == 0 {
		// SELECT COUNT(*) with no matching rows still produces one
		// group whose aggregates operate over the empty set.
		groups[""] = &group{key: eval.Row{}}
		order = append(order, "")
	}

	for _, gk := range order {
		g := groups[gk]
		out := g.key.Clone()
		for _, agg := range e.node.Aggregates {
			out[agg.Variable] = computeAggregate(agg, g.rows, e.snap, e.ctx, e.reg)
		}
		e.rows = append(e.rows, out)
	}
	return nil
}

func computeAggregate(agg logical.AggregateCall, rows []eval.Row, snap *store.Snapshot, ctx *ops.Context, reg *ops.Registry) rdf.Term {
	values := make([]ops.Result, 0, len(rows))
	for _, r := range rows {
		if agg.Argument == nil {
			values = append(values, ops.OK(rdf.NewBooleanLiteral(true))) // COUNT(*) placeholder
			continue
		}
		result := evalExpr(agg.Argument, r, snap, reg, ctx)
		if !result.IsError() {
			values = append(values, result)
		}
	}
	if agg.Distinct {
		values = dedupeResults(values)
	}

	switch agg.Function {
	case "COUNT":
		return rdf.NewIntegerLiteral(int64(len(values)))
	case "SUM":
		return reduceNumeric(values, rdf.NewIntegerLiteral(0), ops.Add)
	case "MIN":
		return reduceExtreme(values, true)
	case "MAX":
		return reduceExtreme(values, false)
	case "AVG":
		if len(values) == 0 {
			return rdf.NewIntegerLiteral(0)
		}
		sum := reduceNumeric(values, rdf.NewIntegerLiteral(0), ops.Add)
		return ops.Divide(ops.OK(sum), ops.OK(rdf.NewIntegerLiteral(int64(len(values))))).Term
	case "SAMPLE":
		if len(values) == 0 {
			return nil
		}
		return values[0].Term
	case "GROUP_CONCAT":
		s := ""
		for i, v := range values {
			if i > 0 {
				s += " "
			}
			if lit, ok := v.Term.(*rdf.Literal); ok {
				s += lit.Value
			}
		}
		return rdf.NewLiteral(s)
	default:
		return nil
	}
}

func dedupeResults(values []ops.Result) []ops.Result {
	seen := map[string]bool{}
	var out []ops.Result
	for _, v := range values {
		k := termKey(v.Term)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

func reduceNumeric(values []ops.Result, zero rdf.Term, f func(a, b ops.Result) ops.Result) rdf.Term {
	acc := ops.OK(zero)
	for _, v := range values {
		acc = f(acc, v)
	}
	return acc.Term
}

func reduceExtreme(values []ops.Result, min bool) rdf.Term {
	if len(values) == 0 {
		return nil
	}
	best := values[0]
	for _, v := range values[1:] {
		cmp, ok := ops.Order(v, best)
		if !ok {
			continue
		}
		if (min && cmp < 0) || (!min && cmp > 0) {
			best = v
		}
	}
	return best.Term
}

// drain pulls every batch out of an Operator after opening it,
// decoding each lane back into a solution mapping at this consumer's
// input boundary.
func drain(ctx context.Context, op Operator) ([]eval.Row, error) {
	if err := op.Open(ctx); err != nil {
		return nil, err
	}
	defer op.Close()
	var rows []eval.Row
	for {
		batch, err := op.Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			return rows, nil
		}
		for i := 0; i < batch.Len(); i++ {
			row, err := batch.Row(i)
			if err != nil {
				batch.Release()
				return nil, err
			}
			rows = append(rows, row)
		}
		batch.Release()
	}
}

func asBoolResult(r ops.Result) bool {
	lit, ok := r.Term.(*rdf.Literal)
	return ok && lit.Value == "true"
}
