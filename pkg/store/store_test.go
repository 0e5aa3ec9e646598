package store

import (
	"testing"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

func mustQuad(s, p, o string, g *rdf.NamedNode) rdf.Quad {
	return rdf.Quad{
		Subject:   rdf.NewNamedNode(s),
		Predicate: rdf.NewNamedNode(p),
		Object:    rdf.NewNamedNode(o),
		Graph:     g,
	}
}

func TestInsertAndScanBySubject(t *testing.T) {
	s := New()
	if _, err := s.InsertQuads([]rdf.Quad{
		mustQuad("http://ex/alice", "http://ex/knows", "http://ex/bob", nil),
		mustQuad("http://ex/alice", "http://ex/knows", "http://ex/carol", nil),
		mustQuad("http://ex/bob", "http://ex/knows", "http://ex/carol", nil),
	}); err != nil {
		t.Fatalf("InsertQuads: %v", err)
	}

	snap := s.Snapshot()
	alice, ok := snap.Dictionary().Lookup(rdf.NewNamedNode("http://ex/alice"))
	if !ok {
		t.Fatal("alice not interned")
	}

	results := snap.Scan(Pattern{Subject: BoundSlot(alice), Graph: DefaultActiveGraph()})
	if len(results) != 2 {
		t.Fatalf("expected 2 quads for alice, got %d", len(results))
	}
}

func TestDeleteMakesQuadInvisibleAtLaterSnapshot(t *testing.T) {
	s := New()
	q := mustQuad("http://ex/a", "http://ex/b", "http://ex/c", nil)
	if _, err := s.InsertQuads([]rdf.Quad{q}); err != nil {
		t.Fatalf("InsertQuads: %v", err)
	}

	before := s.Snapshot()
	if _, err := s.RemoveQuad(q); err != nil {
		t.Fatalf("RemoveQuad: %v", err)
	}
	after := s.Snapshot()

	p := Pattern{Graph: DefaultActiveGraph()}
	if len(before.Scan(p)) != 1 {
		t.Fatal("quad should still be visible in the snapshot taken before the delete")
	}
	if len(after.Scan(p)) != 0 {
		t.Fatal("quad should be gone in a snapshot taken after the delete")
	}
}

func TestNamedGraphTracking(t *testing.T) {
	s := New()
	g := rdf.NewNamedNode("http://ex/g1")
	if _, err := s.InsertQuads([]rdf.Quad{
		mustQuad("http://ex/a", "http://ex/b", "http://ex/c", g),
	}); err != nil {
		t.Fatalf("InsertQuads: %v", err)
	}

	if !s.ContainsNamedGraph(g) {
		t.Fatal("expected graph to be tracked as named")
	}
	if _, err := s.ClearGraph(g); err != nil {
		t.Fatalf("ClearGraph: %v", err)
	}
	if s.ContainsNamedGraph(g) {
		t.Fatal("expected graph to be gone after ClearGraph")
	}
}

func TestInsertDeduplicates(t *testing.T) {
	s := New()
	q := mustQuad("http://ex/a", "http://ex/b", "http://ex/c", nil)
	if _, err := s.InsertQuads([]rdf.Quad{q, q}); err != nil {
		t.Fatalf("InsertQuads: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Scan(Pattern{Graph: DefaultActiveGraph()})) != 1 {
		t.Fatal("expected duplicate insert to collapse to one live quad")
	}
}

// The change log stores each version's insertions and deletions as
// Arrow arrays of object-ids; the entry written by an insert must
// decode back to the interned quad.
func TestLogEntryHoldsObjectIdArrays(t *testing.T) {
	s := New()
	q := mustQuad("http://ex/a", "http://ex/b", "http://ex/c", nil)
	if _, err := s.InsertQuads([]rdf.Quad{q}); err != nil {
		t.Fatalf("InsertQuads: %v", err)
	}
	if _, err := s.RemoveQuad(q); err != nil {
		t.Fatalf("RemoveQuad: %v", err)
	}

	if len(s.log.entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(s.log.entries))
	}

	ins := s.log.entries[0].Insertions
	if ins.Len() != 1 || s.log.entries[0].Deletions.Len() != 0 {
		t.Fatalf("expected version 1 to hold 1 insertion and 0 deletions")
	}
	sub, ok := s.dict.Lookup(rdf.NewNamedNode("http://ex/a"))
	if !ok {
		t.Fatal("subject not interned")
	}
	if got := ins.At(0); got.Subject != sub {
		t.Fatalf("expected decoded subject id %d, got %d", sub, got.Subject)
	}

	del := s.log.entries[1].Deletions
	if del.Len() != 1 || s.log.entries[1].Insertions.Len() != 0 {
		t.Fatalf("expected version 2 to hold 1 deletion and 0 insertions")
	}
	if del.At(0) != ins.At(0) {
		t.Fatalf("expected the deletion to address the same object-id quad as the insertion")
	}
}
