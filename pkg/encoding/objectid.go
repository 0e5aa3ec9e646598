// Package encoding implements the term encodings used throughout the query
// engine: the object-ID dictionary, the Arrow-batch-friendly PlainTerm and
// TypedValue layouts, and the SortableTerm ordering key.
package encoding

import (
	"fmt"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// ObjectId is a dictionary-encoded handle for an RDF term. 0 is reserved
// for the default graph and is never assigned to any other term.
type ObjectId uint32

// DefaultGraphId is the reserved ObjectId naming the default graph.
const DefaultGraphId ObjectId = 0

// dictEntry pairs a term with its canonical string form, used to break
// xxh3 hash collisions without re-deriving the key each lookup.
type dictEntry struct {
	term rdf.Term
	key  string
}

// Dictionary is a monotonic, append-only term<->ObjectId mapping. IDs are
// never reused or reassigned once handed out, so a previously observed
// ObjectId remains valid for the lifetime of the Dictionary even after
// concurrent inserts. Every operation takes mu briefly; the critical
// sections are a single hash-bucket probe or slice index, so the lock is
// never held across parsing, I/O, or another lock.
type Dictionary struct {
	mu      sync.Mutex
	buckets map[uint64][]bucketSlot
	id2term []rdf.Term // index 0 unused (reserved for DefaultGraphId)
}

type bucketSlot struct {
	entry dictEntry
	id    ObjectId
}

// NewDictionary returns an empty Dictionary with slot 0 reserved for the
// default graph.
func NewDictionary() *Dictionary {
	d := &Dictionary{
		buckets: make(map[uint64][]bucketSlot),
		id2term: make([]rdf.Term, 1),
	}
	d.id2term[0] = rdf.NewDefaultGraph()
	return d
}

// termKey produces the canonical string used for dictionary identity. Two
// terms with the same key are the same RDF term; this must agree with
// Term.Equals on distinguishing every case Equals distinguishes.
func termKey(t rdf.Term) string {
	switch v := t.(type) {
	case *rdf.NamedNode:
		return "N" + v.IRI
	case *rdf.BlankNode:
		return "B" + v.ID
	case *rdf.Literal:
		dt := ""
		if v.Datatype != nil {
			dt = v.Datatype.IRI
		}
		return "L" + v.Value + "\x00" + v.Language + "\x00" + dt
	case *rdf.DefaultGraph:
		return "G"
	default:
		return fmt.Sprintf("?%v", t)
	}
}

// Lookup returns the ObjectId already assigned to term, if any. Bucket
// selection is by xxh3 hash of the term's canonical key; collisions within
// a bucket are broken by exact key comparison.
func (d *Dictionary) Lookup(term rdf.Term) (ObjectId, bool) {
	if _, ok := term.(*rdf.DefaultGraph); ok {
		return DefaultGraphId, true
	}
	key := termKey(term)
	h := xxh3.HashString(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, slot := range d.buckets[h] {
		if slot.entry.key == key {
			return slot.id, true
		}
	}
	return 0, false
}

// Intern assigns term an ObjectId, reusing the existing one if term was
// already interned.
func (d *Dictionary) Intern(term rdf.Term) ObjectId {
	if _, ok := term.(*rdf.DefaultGraph); ok {
		return DefaultGraphId
	}
	key := termKey(term)
	h := xxh3.HashString(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, slot := range d.buckets[h] {
		if slot.entry.key == key {
			return slot.id
		}
	}

	id := ObjectId(len(d.id2term))
	d.id2term = append(d.id2term, term)
	d.buckets[h] = append(d.buckets[h], bucketSlot{entry: dictEntry{term: term, key: key}, id: id})

	return id
}

// Term resolves an ObjectId back to its term. Returns false if id was
// never assigned by this Dictionary.
func (d *Dictionary) Term(id ObjectId) (rdf.Term, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(id) >= len(d.id2term) {
		return nil, false
	}
	return d.id2term[id], id == 0 || d.id2term[id] != nil
}

// Len returns the number of distinct terms interned, including the
// reserved default-graph slot.
func (d *Dictionary) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.id2term)
}
