// Package query is the SPARQL 1.1 engine facade: it parses query text,
// compiles it through pkg/plan/logical and pkg/plan/physical, drains the
// resulting operator tree against a pkg/store snapshot, and shapes the
// output into one of the three result forms the SPARQL 1.1 Protocol
// exposes (solutions, boolean, graph). pkg/server and the
// cmd/fusiondb CLI construct query.Engine; everything upstream of them
// only ever sees Result.
package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aleksaelezovic/fusiondb/pkg/ops"
	"github.com/aleksaelezovic/fusiondb/pkg/plan/logical"
	"github.com/aleksaelezovic/fusiondb/pkg/plan/physical"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/eval"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/parser"
	"github.com/aleksaelezovic/fusiondb/pkg/store"
)

// Kind distinguishes the three result shapes a SPARQL query can produce.
type Kind int

const (
	KindSolutions Kind = iota + 1 // SELECT: a table of variable bindings
	KindBoolean                   // ASK: a single true/false
	KindGraph                     // CONSTRUCT/DESCRIBE: a set of triples
)

// Variable is one output column of a SELECT result, in projection order.
type Variable struct {
	Name string
}

// Binding is one SELECT result row: a solution mapping restricted to
// the variables the query projects, omitting any the solution left
// unbound.
type Binding map[string]rdf.Term

// Result is the outcome of executing one SPARQL query. Exactly the
// fields relevant to Kind are populated: Variables/Bindings for
// KindSolutions, Boolean for KindBoolean, Triples for KindGraph.
type Result struct {
	Kind      Kind
	Variables []*Variable
	Bindings  []Binding
	Boolean   bool
	Triples   []*rdf.Triple
}

// Engine compiles and executes SPARQL 1.1 queries against a store.Store,
// sharing one ops.Registry across queries for builtin function dispatch.
type Engine struct {
	Store    *store.Store
	Registry *ops.Registry
}

// NewEngine returns an Engine over s with a fresh builtin function registry.
func NewEngine(s *store.Store) *Engine {
	return &Engine{Store: s, Registry: ops.NewRegistry()}
}

// Execute parses, plans, and runs one SPARQL query against a snapshot
// of the engine's store taken at call time, so the result reflects a
// single consistent point in the store's history even if writers keep
// appending while rows are drained.
func (e *Engine) Execute(ctx context.Context, queryText string) (*Result, error) {
	q, err := parser.NewParser(queryText).Parse()
	if err != nil {
		return nil, fmt.Errorf("query: parse: %w", err)
	}

	switch q.QueryType {
	case parser.QueryTypeSelect:
		return e.executeSelect(ctx, q)
	case parser.QueryTypeAsk:
		return e.executeAsk(ctx, q)
	case parser.QueryTypeConstruct:
		return e.executeConstruct(ctx, q)
	case parser.QueryTypeDescribe:
		return e.executeDescribe(ctx, q)
	default:
		return nil, fmt.Errorf("query: unsupported query type %v", q.QueryType)
	}
}

// compile builds, optimizes, and lowers q's logical plan, returning the
// physical operator alongside the snapshot it was compiled against (the
// caller drives Open/Next/Close).
func (e *Engine) compile(q *parser.Query) (physical.Operator, *store.Snapshot, error) {
	node, err := logical.Build(q)
	if err != nil {
		return nil, nil, fmt.Errorf("query: plan: %w", err)
	}
	node = logical.Optimize(node)

	snap := e.Store.Snapshot()
	op, err := physical.Compile(node, snap, e.Registry, ops.Context{Now: time.Now()})
	if err != nil {
		return nil, nil, fmt.Errorf("query: compile: %w", err)
	}
	return op, snap, nil
}

// schemaOf re-derives a query's output variable list without running
// it, used by result shaping code that needs variable order but
// already has rows in hand from a different Operator instance.
func schemaOf(q *parser.Query) ([]string, error) {
	node, err := logical.Build(q)
	if err != nil {
		return nil, fmt.Errorf("query: plan: %w", err)
	}
	return node.Schema(), nil
}

func (e *Engine) executeSelect(ctx context.Context, q *parser.Query) (*Result, error) {
	op, _, err := e.compile(q)
	if err != nil {
		return nil, err
	}
	rows, err := drain(ctx, op)
	if err != nil {
		return nil, err
	}

	schema, err := schemaOf(q)
	if err != nil {
		return nil, err
	}
	// Variables minted for blank nodes in the pattern join like any
	// other variable but are not output columns.
	varNames := make([]string, 0, len(schema))
	for _, n := range schema {
		if !logical.IsHiddenVariable(n) {
			varNames = append(varNames, n)
		}
	}
	vars := make([]*Variable, len(varNames))
	for i, n := range varNames {
		vars[i] = &Variable{Name: n}
	}

	bindings := make([]Binding, len(rows))
	for i, r := range rows {
		b := make(Binding, len(varNames))
		for _, n := range varNames {
			if t, ok := r[n]; ok && t != nil {
				b[n] = t
			}
		}
		bindings[i] = b
	}

	return &Result{Kind: KindSolutions, Variables: vars, Bindings: bindings}, nil
}

func (e *Engine) executeAsk(ctx context.Context, q *parser.Query) (*Result, error) {
	op, _, err := e.compile(q)
	if err != nil {
		return nil, err
	}
	if err := op.Open(ctx); err != nil {
		return nil, fmt.Errorf("query: open: %w", err)
	}
	defer op.Close()

	batch, err := op.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: next: %w", err)
	}
	found := batch != nil && batch.Len() > 0
	if batch != nil {
		batch.Release()
	}
	return &Result{Kind: KindBoolean, Boolean: found}, nil
}

func (e *Engine) executeConstruct(ctx context.Context, q *parser.Query) (*Result, error) {
	op, _, err := e.compile(q)
	if err != nil {
		return nil, err
	}
	rows, err := drain(ctx, op)
	if err != nil {
		return nil, err
	}

	tb := newTemplateBuilder()
	for _, r := range rows {
		tb.instantiate(q.Construct.Template, r)
	}

	return &Result{Kind: KindGraph, Triples: tb.triples()}, nil
}

func (e *Engine) executeDescribe(ctx context.Context, q *parser.Query) (*Result, error) {
	described := map[string]rdf.Term{}
	addTerm := func(t rdf.Term) {
		if t == nil {
			return
		}
		if _, ok := t.(*rdf.NamedNode); !ok {
			if _, ok := t.(*rdf.BlankNode); !ok {
				return
			}
		}
		described[t.String()] = t
	}

	for _, r := range q.Describe.Resources {
		addTerm(r)
	}

	if q.Describe.Where != nil {
		op, _, err := e.compile(q)
		if err != nil {
			return nil, err
		}
		rows, err := drain(ctx, op)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			for _, t := range row {
				addTerm(t)
			}
		}
	}

	snap := e.Store.Snapshot()
	dict := snap.Dictionary()
	tb := newTemplateBuilder()
	for _, res := range described {
		id, ok := dict.Lookup(res)
		if !ok {
			continue
		}
		quads := snap.Scan(store.Pattern{
			Subject: store.BoundSlot(id),
			Graph:   store.ActiveGraph{Kind: store.ActiveGraphAll},
		})
		for _, quad := range quads {
			p, pok := dict.Term(quad.Predicate)
			o, ook := dict.Term(quad.Object)
			if !pok || !ook {
				continue
			}
			tb.add(rdf.NewTriple(res, p, o))
		}
	}

	return &Result{Kind: KindGraph, Triples: tb.triples()}, nil
}

// drain pulls every Arrow batch out of op and decodes it back into
// solution mappings at the result boundary, collecting eagerly since
// every Operator in pkg/plan/physical already materializes its output
// inside Open.
func drain(ctx context.Context, op physical.Operator) ([]eval.Row, error) {
	if err := op.Open(ctx); err != nil {
		return nil, fmt.Errorf("query: open: %w", err)
	}
	defer op.Close()

	var rows []eval.Row
	for {
		batch, err := op.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("query: next: %w", err)
		}
		if batch == nil {
			return rows, nil
		}
		for i := 0; i < batch.Len(); i++ {
			row, err := batch.Row(i)
			if err != nil {
				batch.Release()
				return nil, fmt.Errorf("query: decode: %w", err)
			}
			rows = append(rows, row)
		}
		batch.Release()
	}
}

// templateBuilder materializes CONSTRUCT/DESCRIBE output triples,
// deduplicating by canonical text since the result is logically a set.
type templateBuilder struct {
	seen map[string]bool
	out  []*rdf.Triple
	// next is bumped once per instantiate call and appended to every
	// blank node label it mints, so two different solutions never
	// alias the same blank node while multiple template triples within
	// one solution that repeat a label still share it.
	next int
}

func newTemplateBuilder() *templateBuilder {
	return &templateBuilder{seen: map[string]bool{}}
}

func (tb *templateBuilder) add(t *rdf.Triple) {
	key := t.String()
	if tb.seen[key] {
		return
	}
	tb.seen[key] = true
	tb.out = append(tb.out, t)
}

func (tb *templateBuilder) triples() []*rdf.Triple {
	sort.Slice(tb.out, func(i, j int) bool { return tb.out[i].String() < tb.out[j].String() })
	return tb.out
}

// instantiate substitutes row's bindings into template, skipping any
// triple whose subject, predicate, or object variable is left unbound
// by row, per CONSTRUCT's defined behavior.
func (tb *templateBuilder) instantiate(template []*parser.TriplePattern, row eval.Row) {
	tb.next++
	scope := tb.next

	for _, tp := range template {
		s, ok := tb.resolve(tp.Subject, row, scope)
		if !ok {
			continue
		}
		p, ok := tb.resolve(tp.Predicate, row, scope)
		if !ok {
			continue
		}
		o, ok := tb.resolve(tp.Object, row, scope)
		if !ok {
			continue
		}
		tb.add(rdf.NewTriple(s, p, o))
	}
}

func (tb *templateBuilder) resolve(tv parser.TermOrVariable, row eval.Row, scope int) (rdf.Term, bool) {
	if tv.Variable != nil {
		t, ok := row[tv.Variable.Name]
		return t, ok && t != nil
	}
	if bn, ok := tv.Term.(*rdf.BlankNode); ok {
		label := fmt.Sprintf("%s-%d", bn.ID, scope)
		return rdf.NewBlankNode(label), true
	}
	return tv.Term, true
}
