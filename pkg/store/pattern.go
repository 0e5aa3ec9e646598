// Package store is the in-memory, dictionary-encoded quad storage: an
// object-ID mapping shared by all readers and writers, an append-only
// MVCC change log, and a hashed multi-index pattern scan that backs
// pkg/plan/physical's QuadPatternExec.
package store

import "github.com/aleksaelezovic/fusiondb/pkg/encoding"

// ActiveGraphKind selects which graphs a quad-pattern scan observes.
type ActiveGraphKind int

const (
	ActiveGraphDefault   ActiveGraphKind = iota // only the default graph
	ActiveGraphAll                              // default graph + every named graph
	ActiveGraphAnyNamed                         // any named graph, default excluded
	ActiveGraphUnion                            // the union of a fixed set of named graphs
)

// ActiveGraph describes the graph scope of a Quads scan.
type ActiveGraph struct {
	Kind  ActiveGraphKind
	Names []encoding.ObjectId // only meaningful for ActiveGraphUnion
}

// DefaultActiveGraph scans only the default graph.
func DefaultActiveGraph() ActiveGraph { return ActiveGraph{Kind: ActiveGraphDefault} }

// Slot is one (bound value | unbound) position of a quad pattern.
type Slot struct {
	Bound bool
	Value encoding.ObjectId
}

// BoundSlot wraps a concrete ObjectId into a bound Slot.
func BoundSlot(id encoding.ObjectId) Slot { return Slot{Bound: true, Value: id} }

// Pattern is a quad pattern at the object-ID level: each of subject,
// predicate, object may be bound to a concrete ObjectId or left
// unbound (a wildcard, filled by the caller's own variable binding).
// Graph selection is handled separately via ActiveGraph since it can
// name a set rather than a single slot.
type Pattern struct {
	Subject   Slot
	Predicate Slot
	Object    Slot
	Graph     ActiveGraph
}

// Quad is one stored quad, addressed entirely by ObjectId.
type Quad struct {
	Graph     encoding.ObjectId
	Subject   encoding.ObjectId
	Predicate encoding.ObjectId
	Object    encoding.ObjectId
}
