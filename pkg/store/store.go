package store

import (
	"fmt"
	"sync"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// storedQuad is one physical slot of the store's quad array: the
// object-ID tuple plus the half-open version range [InsertedAt,
// DeletedAt) it is visible in. DeletedAt of 0 means still live.
type storedQuad struct {
	Quad
	InsertedAt uint64
	DeletedAt  uint64
}

func (sq storedQuad) visibleAt(version uint64) bool {
	return sq.InsertedAt <= version && (sq.DeletedAt == 0 || sq.DeletedAt > version)
}

// Store is the single-writer, multi-reader in-memory quad store: a
// term dictionary, an append-only version log, a flat quad array and
// its six-permutation index. Writers serialize through mu; readers
// query through a Snapshot obtained from Snapshot(), which takes mu's
// read lock only for the duration of one index probe, so concurrent
// queries never block each other and hold off the writer only during
// a probe.
type Store struct {
	mu   sync.RWMutex
	dict *encoding.Dictionary
	log  changeLog
	ix   *index
	quads []storedQuad

	// graphs counts live quads per named graph ObjectId, used to answer
	// NamedGraphs/ContainsNamedGraph without a full scan.
	graphs map[encoding.ObjectId]int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		dict:   encoding.NewDictionary(),
		ix:     newIndex(),
		graphs: map[encoding.ObjectId]int{},
	}
}

// Dictionary exposes the store's term dictionary for decoding scan
// results and encoding query constants.
func (s *Store) Dictionary() *encoding.Dictionary { return s.dict }

// InsertQuads interns and appends a batch of quads as one new log
// version, skipping any quad already live. It returns the version
// number the insertions landed on.
func (s *Store) InsertQuads(quads []rdf.Quad) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := s.log.latestVersion() + 1
	var inserted []Quad

	for _, q := range quads {
		oid, err := s.internQuad(q)
		if err != nil {
			return 0, err
		}
		if _, ok := s.findLive(oid); ok {
			continue
		}
		pos := len(s.quads)
		s.quads = append(s.quads, storedQuad{Quad: oid, InsertedAt: version})
		s.ix.add(oid, pos)
		inserted = append(inserted, oid)
		if oid.Graph != encoding.DefaultGraphId {
			s.graphs[oid.Graph]++
		}
	}

	s.log.append(inserted, nil)
	return version, nil
}

// RemoveQuad marks one quad deleted as of a new log version. It is a
// no-op if the quad was never present or already removed.
func (s *Store) RemoveQuad(q rdf.Quad) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oid, err := s.internQuad(q)
	if err != nil {
		return 0, err
	}
	pos, ok := s.findLive(oid)
	if !ok {
		return s.log.latestVersion(), nil
	}

	version := s.log.latestVersion() + 1
	s.quads[pos].DeletedAt = version
	if oid.Graph != encoding.DefaultGraphId {
		s.graphs[oid.Graph]--
		if s.graphs[oid.Graph] <= 0 {
			delete(s.graphs, oid.Graph)
		}
	}
	s.log.append(nil, []Quad{oid})
	return version, nil
}

// ClearGraph removes every live quad in the named graph (or the
// default graph, if iri is nil) as one new log version.
func (s *Store) ClearGraph(iri *rdf.NamedNode) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target encoding.ObjectId
	if iri != nil {
		id, ok := s.dict.Lookup(iri)
		if !ok {
			return s.log.latestVersion(), nil
		}
		target = id
	}

	version := s.log.latestVersion() + 1
	var deleted []Quad
	for i := range s.quads {
		sq := &s.quads[i]
		if sq.DeletedAt != 0 || sq.Graph != target {
			continue
		}
		sq.DeletedAt = version
		deleted = append(deleted, sq.Quad)
	}
	if target != encoding.DefaultGraphId {
		delete(s.graphs, target)
	}
	s.log.append(nil, deleted)
	return version, nil
}

// ClearAll removes every live quad across every graph as one new log
// version.
func (s *Store) ClearAll() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := s.log.latestVersion() + 1
	var deleted []Quad
	for i := range s.quads {
		sq := &s.quads[i]
		if sq.DeletedAt != 0 {
			continue
		}
		sq.DeletedAt = version
		deleted = append(deleted, sq.Quad)
	}
	s.graphs = map[encoding.ObjectId]int{}
	s.log.append(nil, deleted)
	return version, nil
}

// NamedGraphs returns the ObjectIds of every named graph with at
// least one live quad.
func (s *Store) NamedGraphs() []encoding.ObjectId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]encoding.ObjectId, 0, len(s.graphs))
	for g := range s.graphs {
		out = append(out, g)
	}
	return out
}

// ContainsNamedGraph reports whether iri names a graph with at least
// one live quad.
func (s *Store) ContainsNamedGraph(iri *rdf.NamedNode) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.dict.Lookup(iri)
	if !ok {
		return false
	}
	return s.graphs[id] > 0
}

func (s *Store) internQuad(q rdf.Quad) (Quad, error) {
	g := q.Graph
	if g == nil {
		g = rdf.NewDefaultGraph()
	}
	if q.Subject == nil || q.Predicate == nil || q.Object == nil {
		return Quad{}, fmt.Errorf("store: quad has a nil term")
	}
	return Quad{
		Graph:     s.dict.Intern(g),
		Subject:   s.dict.Intern(q.Subject),
		Predicate: s.dict.Intern(q.Predicate),
		Object:    s.dict.Intern(q.Object),
	}, nil
}

// findLive returns the array position of oid if it is currently live,
// used to de-duplicate inserts and locate the slot a delete targets.
func (s *Store) findLive(oid Quad) (int, bool) {
	p := Pattern{
		Subject:   BoundSlot(oid.Subject),
		Predicate: BoundSlot(oid.Predicate),
		Object:    BoundSlot(oid.Object),
		Graph:     graphSlotOf(oid.Graph),
	}
	for _, pos := range s.ix.scan(p) {
		sq := s.quads[pos]
		if sq.DeletedAt == 0 && sq == (storedQuad{Quad: oid, InsertedAt: sq.InsertedAt}) {
			return pos, true
		}
	}
	return 0, false
}

func graphSlotOf(g encoding.ObjectId) ActiveGraph {
	if g == encoding.DefaultGraphId {
		return DefaultActiveGraph()
	}
	return ActiveGraph{Kind: ActiveGraphUnion, Names: []encoding.ObjectId{g}}
}

// Snapshot pins the store's current log version so a reader observes
// a consistent view even as the writer keeps appending. The read lock
// is held only while the version is read; scans through the snapshot
// take it again per probe.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{
		store:   s,
		version: s.log.latestVersion(),
	}
}
