// Package physical turns an optimized pkg/plan/logical tree into an
// executable operator tree over a pkg/store snapshot, and evaluates
// expressions through pkg/sparql/eval.
package physical

import (
	"context"
	"fmt"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/ops"
	"github.com/aleksaelezovic/fusiondb/pkg/plan/logical"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/eval"
	"github.com/aleksaelezovic/fusiondb/pkg/store"
)

// BatchSize is the row count of one Batch, the unit every operator's
// Next emits and the granularity at which a consumer can stop pulling.
const BatchSize = 8192

// Operator is one physical execution node: a Volcano-style pull model
// whose unit of exchange is an Arrow Batch of PlainTerm-encoded
// columns, Open()/Next()/Close(). Next returns nil at end of stream.
// Every concrete Operator in this package materializes its output
// inside Open and chunks it through Next, a deliberate simplification
// for an in-memory, single-node query engine, where the dominant cost
// is the quad scan the materialization ultimately pulls from, not
// downstream batch throughput.
type Operator interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (*Batch, error)
	Close() error
}

// newEvalContext returns the per-query evaluation context: the NOW()
// instant every call in this execution observes, plus the BNODE()
// argument scope, which evalExpr empties at the start of each per-row
// evaluation so blank nodes stay stable within one solution mapping
// and fresh across them.
func newEvalContext(now ops.Context) *ops.Context {
	c := now
	c.BNodeScope = map[string]string{}
	return &c
}

// materialized is the common eager Operator base: Open fills rows,
// Next encodes them into PlainTerm Arrow batches of at most BatchSize
// rows each.
type materialized struct {
	rows []eval.Row
	vars []string
	pos  int
}

func (m *materialized) Next(ctx context.Context) (*Batch, error) {
	if m.pos >= len(m.rows) {
		return nil, nil
	}
	if m.vars == nil {
		m.vars = rowVars(m.rows)
	}
	end := m.pos + BatchSize
	if end > len(m.rows) {
		end = len(m.rows)
	}
	b := encodeBatch(m.vars, m.rows[m.pos:end])
	m.pos = end
	return b, nil
}

func (m *materialized) Close() error { return nil }

// Compile lowers an optimized logical.Node into an executable
// Operator against snap, dispatching scalar work through reg and
// stamping every NOW()/BNODE() call in this execution with the same
// instant and a fresh per-query blank-node scope.
func Compile(n logical.Node, snap *store.Snapshot, reg *ops.Registry, now ops.Context) (Operator, error) {
	evalCtx := newEvalContext(now)
	return compile(n, snap, reg, evalCtx)
}

func compile(n logical.Node, snap *store.Snapshot, reg *ops.Registry, ctx *ops.Context) (Operator, error) {
	switch t := n.(type) {
	case *logical.QuadPattern:
		return &QuadPatternExec{node: t, snap: snap}, nil
	case *logical.Path:
		return &PathExec{node: t, snap: snap}, nil
	case *logical.Quads:
		if len(t.Patterns) != 0 {
			return nil, fmt.Errorf("physical: Quads with patterns reached compile; run logical.Optimize first")
		}
		return &EmptyPatternExec{}, nil
	case *logical.Pattern:
		return compile(t.Child, snap, reg, ctx)
	case *logical.Join:
		return &JoinExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.Optional:
		return &OptionalExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.Minus:
		return &MinusExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.Union:
		return &UnionExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.Filter:
		return &FilterExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.Extend:
		return &ExtendExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.KleenePlusClosure:
		return &KleenePlusClosureExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.OrderBy:
		return &OrderByExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.Distinct:
		return &DistinctExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.Slice:
		return &SliceExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.Project:
		return &ProjectExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	case *logical.Aggregate:
		return &AggregateExec{node: t, snap: snap, reg: reg, ctx: ctx}, nil
	default:
		return nil, fmt.Errorf("physical: no compilation rule for %T", n)
	}
}

// resolveConst interns-or-looks-up a constant TermRef against the
// snapshot's dictionary, returning ok=false if the term was never
// interned (so the pattern can never match anything live).
func resolveConst(snap *store.Snapshot, ref logical.TermRef) (encoding.ObjectId, bool) {
	if ref.IsVariable() {
		return 0, false
	}
	return snap.Dictionary().Lookup(ref.Term)
}

func slotOf(snap *store.Snapshot, ref logical.TermRef) (store.Slot, bool) {
	if ref.IsVariable() {
		return store.Slot{}, true
	}
	id, ok := resolveConst(snap, ref)
	if !ok {
		return store.Slot{}, false
	}
	return store.BoundSlot(id), true
}

func graphScopeOf(snap *store.Snapshot, g logical.GraphScope) (store.ActiveGraph, bool) {
	switch {
	case g.Default:
		return store.DefaultActiveGraph(), true
	case g.IRI != nil:
		id, ok := snap.Dictionary().Lookup(g.IRI)
		if !ok {
			return store.ActiveGraph{}, false
		}
		return store.ActiveGraph{Kind: store.ActiveGraphUnion, Names: []encoding.ObjectId{id}}, true
	case g.Names != nil:
		// A FROM/FROM NAMED dataset clause: union of the named graphs
		// listed, resolving to nothing live if none are interned yet.
		ids := make([]encoding.ObjectId, 0, len(g.Names))
		for _, n := range g.Names {
			if id, ok := snap.Dictionary().Lookup(n); ok {
				ids = append(ids, id)
			}
		}
		return store.ActiveGraph{Kind: store.ActiveGraphUnion, Names: ids}, true
	default:
		return store.ActiveGraph{Kind: store.ActiveGraphAnyNamed}, true
	}
}
