package store

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
)

// quadIdSchema is the Arrow layout of one log batch: four uint32
// object-id columns, one per quad position.
var quadIdSchema = arrow.StructOf(
	arrow.Field{Name: "graph", Type: arrow.PrimitiveTypes.Uint32},
	arrow.Field{Name: "subject", Type: arrow.PrimitiveTypes.Uint32},
	arrow.Field{Name: "predicate", Type: arrow.PrimitiveTypes.Uint32},
	arrow.Field{Name: "object", Type: arrow.PrimitiveTypes.Uint32},
)

// QuadIds is an Arrow-backed batch of object-id quads, the form a log
// entry's insertions and deletions are stored in. The zero value is an
// empty batch.
type QuadIds struct {
	arr *array.Struct
}

func newQuadIds(quads []Quad) QuadIds {
	if len(quads) == 0 {
		return QuadIds{}
	}
	sb := array.NewStructBuilder(memory.NewGoAllocator(), quadIdSchema)
	g := sb.FieldBuilder(0).(*array.Uint32Builder)
	s := sb.FieldBuilder(1).(*array.Uint32Builder)
	p := sb.FieldBuilder(2).(*array.Uint32Builder)
	o := sb.FieldBuilder(3).(*array.Uint32Builder)
	for _, q := range quads {
		sb.Append(true)
		g.Append(uint32(q.Graph))
		s.Append(uint32(q.Subject))
		p.Append(uint32(q.Predicate))
		o.Append(uint32(q.Object))
	}
	return QuadIds{arr: sb.NewStructArray()}
}

// Len returns the number of quads in the batch.
func (q QuadIds) Len() int {
	if q.arr == nil {
		return 0
	}
	return q.arr.Len()
}

// At decodes the quad at row i.
func (q QuadIds) At(i int) Quad {
	return Quad{
		Graph:     encoding.ObjectId(q.arr.Field(0).(*array.Uint32).Value(i)),
		Subject:   encoding.ObjectId(q.arr.Field(1).(*array.Uint32).Value(i)),
		Predicate: encoding.ObjectId(q.arr.Field(2).(*array.Uint32).Value(i)),
		Object:    encoding.ObjectId(q.arr.Field(3).(*array.Uint32).Value(i)),
	}
}

// LogEntry is one committed version of the append-only change log: the
// batch of quads inserted and the batch deleted to produce this version
// from the previous one, each stored as Arrow arrays of object-ids.
// The log never mutates in place (a DELETE is its own entry, never a
// rewrite of an earlier insertion), which is what lets a Snapshot taken
// mid-log keep observing a consistent prefix while the writer keeps
// appending.
type LogEntry struct {
	Version    uint64
	Insertions QuadIds
	Deletions  QuadIds
}

// changeLog is the single writer's append-only history. It is never
// read directly by queries; the index folds writes into posting lists,
// and Snapshot pins the version a reader observed.
type changeLog struct {
	entries []LogEntry
}

func (l *changeLog) append(ins, del []Quad) LogEntry {
	version := uint64(len(l.entries)) + 1
	entry := LogEntry{Version: version, Insertions: newQuadIds(ins), Deletions: newQuadIds(del)}
	l.entries = append(l.entries, entry)
	return entry
}

func (l *changeLog) length() int { return len(l.entries) }

func (l *changeLog) latestVersion() uint64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Version
}
