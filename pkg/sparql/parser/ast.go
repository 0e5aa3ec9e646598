package parser

import "github.com/aleksaelezovic/fusiondb/pkg/rdf"

// QueryType identifies the top-level SPARQL query form.
type QueryType int

const (
	QueryTypeSelect QueryType = iota + 1
	QueryTypeAsk
	QueryTypeConstruct
	QueryTypeDescribe
)

// Query is the parsed result of one SPARQL query string. Exactly one of
// Select, Ask, Construct, Describe is populated, selected by QueryType.
type Query struct {
	QueryType QueryType
	Select    *SelectQuery
	Ask       *AskQuery
	Construct *ConstructQuery
	Describe  *DescribeQuery
}

// ProjectionItem is one entry of a SELECT clause: either a bare projected
// variable (Expression nil) or a computed "(expr AS ?var)" projection.
type ProjectionItem struct {
	Variable   *Variable
	Expression Expression
}

// DatasetClause holds a query's FROM/FROM NAMED IRIs, naming the RDF
// dataset the query runs against in place of the store's whole graph
// set. Default holds each FROM <iri>; Named holds each FROM NAMED
// <iri>. Nil when the query has no dataset clause at all.
type DatasetClause struct {
	Default []*rdf.NamedNode
	Named   []*rdf.NamedNode
}

// SelectQuery is a parsed SELECT query.
type SelectQuery struct {
	Distinct bool
	Reduced  bool

	// Projections is nil for "SELECT *". Otherwise it holds one entry per
	// projected column, in source order.
	Projections []*ProjectionItem

	Dataset *DatasetClause
	Where   *GraphPattern
	GroupBy []*GroupCondition
	Having  []*Filter
	OrderBy []*OrderCondition
	Limit   *int
	Offset  *int
}

// AskQuery is a parsed ASK query.
type AskQuery struct {
	Dataset *DatasetClause
	Where   *GraphPattern
}

// ConstructQuery is a parsed CONSTRUCT query.
type ConstructQuery struct {
	Template []*TriplePattern
	Dataset  *DatasetClause
	Where    *GraphPattern
}

// DescribeQuery is a parsed DESCRIBE query.
type DescribeQuery struct {
	Resources []*rdf.NamedNode
	Dataset   *DatasetClause
	Where     *GraphPattern
}

// GraphPatternType distinguishes the kinds of group graph pattern.
type GraphPatternType int

const (
	GraphPatternTypeBasic GraphPatternType = iota + 1
	GraphPatternTypeOptional
	GraphPatternTypeMinus
	GraphPatternTypeUnion
	GraphPatternTypeGraph
)

// PatternElement is one source-ordered element of a group graph pattern's
// body: a triple pattern, a FILTER, or a BIND. Exactly one field is set.
// Preserving this order matters because BIND and FILTER placement relative
// to triple patterns affects which variables are in scope.
type PatternElement struct {
	Triple *TriplePattern
	Filter *Filter
	Bind   *Bind
}

// GraphPattern is a group graph pattern: a set of triple patterns, FILTERs
// and BINDs at this level (Patterns/Filters/Binds/Elements), plus nested
// sub-patterns (Children) such as OPTIONAL, MINUS, UNION branches, or a
// nested { ... } group. Graph (only set when Type is GraphPatternTypeGraph)
// names the active graph for this pattern's Patterns.
type GraphPattern struct {
	Type     GraphPatternType
	Patterns []*TriplePattern
	Filters  []*Filter
	Binds    []*Bind
	Children []*GraphPattern
	Graph    *GraphTerm
	Elements []PatternElement
}

// GraphTerm names the graph in a GRAPH <iri-or-var> { ... } pattern.
type GraphTerm struct {
	IRI      *rdf.NamedNode
	Variable *Variable
}

// Variable is a SPARQL query variable (without its leading ? or $).
type Variable struct {
	Name string
}

// TermOrVariable holds exactly one of a concrete RDF term or a variable,
// as they appear interchangeably in triple pattern positions.
type TermOrVariable struct {
	Term     rdf.Term
	Variable *Variable
}

// TriplePattern is one subject-predicate-object triple pattern. Path is
// nil for an ordinary triple pattern (Predicate holds the IRI/variable
// directly); it is set instead of Predicate when the predicate position
// used SPARQL 1.1 property path syntax (?s :p+ ?o, :p1/:p2, ^:p, ...).
type TriplePattern struct {
	Subject   TermOrVariable
	Predicate TermOrVariable
	Object    TermOrVariable
	Path      *PropertyPath
}

// PathKind identifies the property path algebra operator a PropertyPath
// node applies.
type PathKind int

const (
	PathPredicate  PathKind = iota + 1 // leaf: a single concrete predicate IRI
	PathSeq                            // Left / Right
	PathAlt                            // Left | Right
	PathZeroOrOne                      // Inner ?
	PathZeroOrMore                     // Inner *
	PathOneOrMore                      // Inner +
	PathInverse                        // ^ Inner
	PathNegatedSet                     // !(iri1|iri2|^iri3|...)
)

// PropertyPath is a node of the property path algebra tree: seq, alt,
// zeroOrOne, zeroOrMore, oneOrMore, inverse, and negated-property-set,
// composed over leaf predicate IRIs.
type PropertyPath struct {
	Kind  PathKind
	IRI   *rdf.NamedNode // PathPredicate
	Left  *PropertyPath  // PathSeq, PathAlt
	Right *PropertyPath  // PathSeq, PathAlt
	Inner *PropertyPath  // PathZeroOrOne, PathZeroOrMore, PathOneOrMore, PathInverse

	// NegatedForward/NegatedInverse partition a negated property set's
	// members by direction: !(:p|^:q) forbids :p in the forward
	// direction and :q in the inverse direction.
	NegatedForward []*rdf.NamedNode
	NegatedInverse []*rdf.NamedNode
}

// Filter is a FILTER clause's boolean expression.
type Filter struct {
	Expression Expression
}

// Bind is a BIND(expr AS ?var) clause.
type Bind struct {
	Expression Expression
	Variable   *Variable
}

// GroupCondition is one GROUP BY key: either a bare variable (Variable set,
// Expression nil) or a computed "(expr AS ?var)" grouping key (Expression
// set, Variable set only if an alias was given).
type GroupCondition struct {
	Variable   *Variable
	Expression Expression
}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expression Expression
	Ascending  bool
}

// Operator identifies a binary or unary expression operator.
type Operator int

const (
	OpOr Operator = iota + 1
	OpAnd
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
)

// Expression is any SPARQL value expression.
type Expression interface {
	expressionNode()
}

// BinaryExpression is a two-operand expression such as comparisons,
// arithmetic, and logical AND/OR.
type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

// UnaryExpression is a one-operand expression (logical NOT).
type UnaryExpression struct {
	Operator Operator
	Operand  Expression
}

// VariableExpression references a bound (or possibly unbound) variable.
type VariableExpression struct {
	Variable *Variable
}

// LiteralExpression is a constant RDF term (literal or IRI).
type LiteralExpression struct {
	Literal rdf.Term
}

// FunctionCallExpression is a built-in or extension function invocation,
// e.g. STRLEN(?x) or xsd:integer(?x). Function holds the expanded IRI for
// prefixed names, or the bare keyword (e.g. "STRLEN", "COUNT") otherwise.
// COUNT(*) is represented as a single argument VariableExpression{Name:"*"}.
type FunctionCallExpression struct {
	Function  string
	Arguments []Expression
	Distinct  bool
}

// InExpression is "expr IN (v1, v2, ...)" or "expr NOT IN (...)".
type InExpression struct {
	Expression Expression
	Not        bool
	Values     []Expression
}

// ExistsExpression is "EXISTS { pattern }" or "NOT EXISTS { pattern }".
type ExistsExpression struct {
	Not     bool
	Pattern GraphPattern
}

func (*BinaryExpression) expressionNode()      {}
func (*UnaryExpression) expressionNode()       {}
func (*VariableExpression) expressionNode()    {}
func (*LiteralExpression) expressionNode()     {}
func (*FunctionCallExpression) expressionNode() {}
func (*InExpression) expressionNode()          {}
func (*ExistsExpression) expressionNode()      {}
