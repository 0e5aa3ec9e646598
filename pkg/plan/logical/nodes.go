package logical

import (
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/parser"
)

// TermRef is a quad pattern slot: either a concrete RDF term or the
// name of a variable it must bind.
type TermRef struct {
	Term     rdf.Term
	Variable string
}

func (t TermRef) IsVariable() bool { return t.Term == nil }

// BlankNodeMatchingMode selects what a blank node in a pattern slot
// means. In query syntax a blank node is a variable scoped to its
// basic graph pattern, so the query builder rewrites each label into a
// hidden variable (see hiddenBlankPrefix) and tags the pattern
// MatchBlankNodesAsVariables: any blank term still present in such a
// pattern is treated as an anonymous wildcard by the scan. In
// data-manipulation position a blank node is an identity-bearing term,
// and MatchBlankNodesExact makes the scan match it against the stored
// blank node with that exact label.
type BlankNodeMatchingMode int

const (
	MatchBlankNodesAsVariables BlankNodeMatchingMode = iota
	MatchBlankNodesExact
)

// hiddenBlankPrefix starts every variable the builder mints for a
// blank node label. A parsed query variable can never contain ':', so
// the namespace cannot collide, and result shaping strips these
// bindings before they reach a caller.
const hiddenBlankPrefix = "_:"

// IsHiddenVariable reports whether name is one of the internal
// variables blank-node unification mints, which result shaping must
// not expose as an output column.
func IsHiddenVariable(name string) bool {
	return len(name) >= len(hiddenBlankPrefix) && name[:len(hiddenBlankPrefix)] == hiddenBlankPrefix
}

// GraphScope names which graphs a Quads/QuadPattern/Path node reads
// from, mirroring store.ActiveGraph at the logical level: either a
// fixed IRI, a variable ranging over every named graph, a fixed set of
// named graphs unioned together (FROM/FROM NAMED), or the implicit
// default graph.
type GraphScope struct {
	Default  bool
	IRI      *rdf.NamedNode
	Variable string           // bound to each named graph in turn, if non-empty
	Names    []*rdf.NamedNode // FROM-clause dataset: union of these named graphs
}

func defaultGraphScope() GraphScope { return GraphScope{Default: true} }

// datasetGraphScope returns the GraphScope a query's FROM/FROM NAMED
// clauses describe, or the implicit default graph scope when the
// query names no dataset clauses at all.
func datasetGraphScope(ds *parser.DatasetClause) GraphScope {
	if ds == nil || (len(ds.Default) == 0 && len(ds.Named) == 0) {
		return defaultGraphScope()
	}
	if len(ds.Default) > 0 {
		return GraphScope{Names: ds.Default}
	}
	// FROM NAMED only, no FROM: the default graph is the (empty) RDF
	// merge of the named dataset, so queries against it see nothing.
	// Names is a non-nil empty slice (not nil) so it is distinguishable
	// from the zero-value GraphScope.
	return GraphScope{Names: []*rdf.NamedNode{}}
}

// QuadPattern is the leaf node scanning the store for quads matching
// one (subject, predicate, object) pattern within a graph scope. It is
// the logical form quad-pattern lowering rewrites each BGP triple
// into. BlankNodes records how a blank node left in a slot matches;
// the zero value is the query reading (as-variables).
type QuadPattern struct {
	Subject, Predicate, Object TermRef
	Graph                      GraphScope
	BlankNodes                 BlankNodeMatchingMode
}

func NewQuadPattern(subject, predicate, object TermRef, graph GraphScope) *QuadPattern {
	return &QuadPattern{Subject: subject, Predicate: predicate, Object: object, Graph: graph}
}

func (n *QuadPattern) Children() []Node { return nil }

func (n *QuadPattern) Schema() []string {
	var out []string
	for _, r := range []TermRef{n.Subject, n.Predicate, n.Object} {
		if r.IsVariable() && r.Variable != "" {
			out = append(out, r.Variable)
		}
	}
	if n.Graph.Variable != "" {
		out = append(out, n.Graph.Variable)
	}
	return out
}

// Quads is a basic graph pattern: the natural join of every
// QuadPattern (or Path) in Patterns, scoped to one GraphScope. The
// query builder produces one Quads node per group graph pattern's
// triple-pattern block; the quad-pattern-lowering optimizer pass is
// what eventually rewrites it into nested Join(QuadPattern, ...).
type Quads struct {
	Patterns []Node
	Graph    GraphScope
}

func NewQuads(graph GraphScope, patterns ...Node) *Quads {
	return &Quads{Patterns: patterns, Graph: graph}
}

func (n *Quads) Children() []Node { return n.Patterns }

func (n *Quads) Schema() []string {
	lists := make([][]string, len(n.Patterns))
	for i, p := range n.Patterns {
		lists[i] = p.Schema()
	}
	return unionSchema(lists...)
}

// Pattern establishes an active-graph context (a GRAPH <iri-or-var> {
// ... } block) for its single child, which is itself usually a Quads
// or Join tree.
type Pattern struct {
	Graph GraphScope
	Child Node
}

func NewPattern(graph GraphScope, child Node) *Pattern { return &Pattern{Graph: graph, Child: child} }

func (n *Pattern) Children() []Node { return []Node{n.Child} }

func (n *Pattern) Schema() []string {
	if n.Graph.Variable != "" {
		return unionSchema(n.Child.Schema(), []string{n.Graph.Variable})
	}
	return n.Child.Schema()
}

// Path is a property path traversal between Subject and Object,
// carrying the parsed path algebra tree that physical.PathExec
// evaluates recursively over (subject, object) pair sets.
type Path struct {
	Subject, Object TermRef
	Expr            *parser.PropertyPath
	Graph           GraphScope
}

func NewPath(subject, object TermRef, expr *parser.PropertyPath, graph GraphScope) *Path {
	return &Path{Subject: subject, Object: object, Expr: expr, Graph: graph}
}

func (n *Path) Children() []Node { return nil }

func (n *Path) Schema() []string {
	var out []string
	for _, r := range []TermRef{n.Subject, n.Object} {
		if r.IsVariable() && r.Variable != "" {
			out = append(out, r.Variable)
		}
	}
	return out
}

// KleenePlusClosure evaluates Child (a single-step path relation
// binding Subject/Object) to its transitive closure via a semi-naive
// reachable/delta fixpoint loop. No builder in this package emits this
// node: property paths, ZeroOrMore included, are planned as Path nodes.
type KleenePlusClosure struct {
	Subject, Object string // variable names Child binds
	Child           Node
}

func NewKleenePlusClosure(subject, object string, child Node) *KleenePlusClosure {
	return &KleenePlusClosure{Subject: subject, Object: object, Child: child}
}

func (n *KleenePlusClosure) Children() []Node { return []Node{n.Child} }
func (n *KleenePlusClosure) Schema() []string { return []string{n.Subject, n.Object} }

// Extend adds one computed column (BIND(expr AS ?var)) to each row of
// Child.
type Extend struct {
	Child      Node
	Variable   string
	Expression parser.Expression
}

func NewExtend(child Node, variable string, expr parser.Expression) *Extend {
	return &Extend{Child: child, Variable: variable, Expression: expr}
}

func (n *Extend) Children() []Node { return []Node{n.Child} }
func (n *Extend) Schema() []string { return unionSchema(n.Child.Schema(), []string{n.Variable}) }

// Minus removes from Left every row compatible with some row of
// Right, per SPARQL MINUS's compatible-and-sharing-a-variable rule
// (rows sharing no variable with Right are never removed).
type Minus struct {
	Left, Right Node
}

func NewMinus(left, right Node) *Minus { return &Minus{Left: left, Right: right} }
func (n *Minus) Children() []Node      { return []Node{n.Left, n.Right} }
func (n *Minus) Schema() []string      { return n.Left.Schema() }

// Join is the natural (inner) join of Left and Right on their shared
// variables.
type Join struct {
	Left, Right Node
}

func NewJoin(left, right Node) *Join { return &Join{Left: left, Right: right} }
func (n *Join) Children() []Node     { return []Node{n.Left, n.Right} }
func (n *Join) Schema() []string     { return unionSchema(n.Left.Schema(), n.Right.Schema()) }

// Optional is SPARQL's left outer join: every row of Left appears in
// the output, joined with a compatible row of Right when one exists,
// or padded with unbound Right variables otherwise.
type Optional struct {
	Left, Right Node
	Filter      parser.Expression // optional FILTER inside the OPTIONAL block, nil if none
}

func NewOptional(left, right Node, filter parser.Expression) *Optional {
	return &Optional{Left: left, Right: right, Filter: filter}
}

func (n *Optional) Children() []Node { return []Node{n.Left, n.Right} }
func (n *Optional) Schema() []string { return unionSchema(n.Left.Schema(), n.Right.Schema()) }

// Filter discards rows of Child whose Expression does not have
// effective boolean value true.
type Filter struct {
	Child      Node
	Expression parser.Expression
}

func NewFilter(child Node, expr parser.Expression) *Filter { return &Filter{Child: child, Expression: expr} }
func (n *Filter) Children() []Node                         { return []Node{n.Child} }
func (n *Filter) Schema() []string                         { return n.Child.Schema() }

// Union is the bag union of Left and Right's rows.
type Union struct {
	Left, Right Node
}

func NewUnion(left, right Node) *Union { return &Union{Left: left, Right: right} }
func (n *Union) Children() []Node      { return []Node{n.Left, n.Right} }
func (n *Union) Schema() []string      { return unionSchema(n.Left.Schema(), n.Right.Schema()) }

// SortKey is one ORDER BY key.
type SortKey struct {
	Expression parser.Expression
	Ascending  bool
}

// OrderBy sorts Child's rows by Keys in order, using SPARQL's ORDER
// BY total ordering (so keys that aren't comparable still sort
// deterministically rather than erroring).
type OrderBy struct {
	Child Node
	Keys  []SortKey
}

func NewOrderBy(child Node, keys []SortKey) *OrderBy { return &OrderBy{Child: child, Keys: keys} }
func (n *OrderBy) Children() []Node                  { return []Node{n.Child} }
func (n *OrderBy) Schema() []string                  { return n.Child.Schema() }

// Distinct removes duplicate rows (by the full row, not the eventual
// projection) from Child.
type Distinct struct {
	Child Node
}

func NewDistinct(child Node) *Distinct { return &Distinct{Child: child} }
func (n *Distinct) Children() []Node   { return []Node{n.Child} }
func (n *Distinct) Schema() []string   { return n.Child.Schema() }

// Slice applies LIMIT/OFFSET to Child's row stream.
type Slice struct {
	Child  Node
	Offset int
	Limit  int // -1 means unbounded
}

func NewSlice(child Node, offset, limit int) *Slice { return &Slice{Child: child, Offset: offset, Limit: limit} }
func (n *Slice) Children() []Node                   { return []Node{n.Child} }
func (n *Slice) Schema() []string                   { return n.Child.Schema() }

// ProjectColumn is one output column: either a bare variable carried
// through from Child, or a computed "(expr AS ?var)" projection.
type ProjectColumn struct {
	Variable   string
	Expression parser.Expression // nil for a bare variable
}

// Project restricts and reorders Child's rows down to Columns.
type Project struct {
	Child   Node
	Columns []ProjectColumn
}

func NewProject(child Node, columns []ProjectColumn) *Project { return &Project{Child: child, Columns: columns} }
func (n *Project) Children() []Node                            { return []Node{n.Child} }
func (n *Project) Schema() []string {
	out := make([]string, len(n.Columns))
	for i, c := range n.Columns {
		out[i] = c.Variable
	}
	return out
}

// AggregateCall is one SELECT-list or HAVING aggregate invocation,
// e.g. COUNT(DISTINCT ?x) AS ?n.
type AggregateCall struct {
	Function string // COUNT, SUM, AVG, MIN, MAX, GROUP_CONCAT, SAMPLE
	Argument parser.Expression // nil for COUNT(*)
	Distinct bool
	Variable string // output variable
}

// Aggregate computes GroupKeys-grouped aggregate functions over
// Child's rows; with no GroupKeys the whole input is one group,
// matching plain "SELECT COUNT(*) WHERE {...}" queries.
type Aggregate struct {
	Child      Node
	GroupKeys  []ProjectColumn
	Aggregates []AggregateCall
}

func NewAggregate(child Node, groupKeys []ProjectColumn, aggregates []AggregateCall) *Aggregate {
	return &Aggregate{Child: child, GroupKeys: groupKeys, Aggregates: aggregates}
}

func (n *Aggregate) Children() []Node { return []Node{n.Child} }
func (n *Aggregate) Schema() []string {
	out := make([]string, 0, len(n.GroupKeys)+len(n.Aggregates))
	for _, k := range n.GroupKeys {
		out = append(out, k.Variable)
	}
	for _, a := range n.Aggregates {
		out = append(out, a.Variable)
	}
	return out
}
