package store

import "github.com/aleksaelezovic/fusiondb/pkg/encoding"

// Snapshot is an isolated, read-only view of a Store pinned at one
// log version: inserts and deletes committed after the snapshot was
// taken are invisible to it, even though the underlying Store keeps
// accepting writes concurrently.
type Snapshot struct {
	store   *Store
	version uint64
}

// Version returns the log version this snapshot is pinned at.
func (sn *Snapshot) Version() uint64 { return sn.version }

// Dictionary exposes the term dictionary backing this snapshot's
// ObjectIds. The dictionary itself is append-only and shared across
// all snapshots, so resolving a term never requires re-synchronizing
// with the snapshot's version.
func (sn *Snapshot) Dictionary() *encoding.Dictionary { return sn.store.dict }

// Scan returns every quad visible in this snapshot that matches
// pattern, selecting an index permutation by pattern's bound prefix.
func (sn *Snapshot) Scan(pattern Pattern) []Quad {
	sn.store.mu.RLock()
	defer sn.store.mu.RUnlock()

	positions := sn.store.ix.scan(pattern)
	out := make([]Quad, 0, len(positions))
	for _, pos := range positions {
		sq := sn.store.quads[pos]
		if sq.visibleAt(sn.version) {
			out = append(out, sq.Quad)
		}
	}
	return out
}

// NamedGraphs returns the ObjectIds of graphs with at least one quad
// visible in this snapshot.
func (sn *Snapshot) NamedGraphs() []encoding.ObjectId {
	sn.store.mu.RLock()
	defer sn.store.mu.RUnlock()

	counts := map[encoding.ObjectId]int{}
	for _, sq := range sn.store.quads {
		if sq.Graph == encoding.DefaultGraphId || !sq.visibleAt(sn.version) {
			continue
		}
		counts[sq.Graph]++
	}
	out := make([]encoding.ObjectId, 0, len(counts))
	for g := range counts {
		out = append(out, g)
	}
	return out
}
