package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/store"
)

// Export writes every quad visible in snap to st: one TableDict entry per
// distinct term it references, keyed by ObjectId, and one empty-valued
// TableQuads entry per quad, keyed by the concatenated (graph, subject,
// predicate, object) ObjectId tuple. Object-ID values are not stable
// across an Export/Import round-trip (Import rebuilds the dictionary
// from scratch), only the logical set of quads is.
func Export(st Storage, snap *store.Snapshot) (err error) {
	tx, err := st.Begin(true)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	quads := snap.Scan(store.Pattern{Graph: store.ActiveGraph{Kind: store.ActiveGraphAll}})
	dict := snap.Dictionary()
	written := map[encoding.ObjectId]bool{}

	putTerm := func(id encoding.ObjectId) error {
		if id == encoding.DefaultGraphId || written[id] {
			return nil
		}
		term, ok := dict.Term(id)
		if !ok {
			return fmt.Errorf("storage: export: dangling object id %d", id)
		}
		written[id] = true
		return tx.Set(TableDict, idKey(id), []byte(term.String()))
	}

	for _, q := range quads {
		if err = putTerm(q.Graph); err != nil {
			return err
		}
		if err = putTerm(q.Subject); err != nil {
			return err
		}
		if err = putTerm(q.Predicate); err != nil {
			return err
		}
		if err = putTerm(q.Object); err != nil {
			return err
		}
		key := make([]byte, 16)
		binary.BigEndian.PutUint32(key[0:4], uint32(q.Graph))
		binary.BigEndian.PutUint32(key[4:8], uint32(q.Subject))
		binary.BigEndian.PutUint32(key[8:12], uint32(q.Predicate))
		binary.BigEndian.PutUint32(key[12:16], uint32(q.Object))
		if err = tx.Set(TableQuads, key, nil); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Import reconstructs a store.Store from a snapshot st previously produced
// by Export. Terms are re-interned as they are encountered, so the
// resulting store logically contains the same quads as the exported
// snapshot even though it assigns them fresh ObjectIds.
func Import(st Storage) (*store.Store, error) {
	tx, err := st.Begin(false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	terms := map[encoding.ObjectId]rdf.Term{}
	dictIt, err := tx.Scan(TableDict, nil, nil)
	if err != nil {
		return nil, err
	}
	for dictIt.Next() {
		key := dictIt.Key()
		if len(key) < 4 {
			continue
		}
		id := encoding.ObjectId(binary.BigEndian.Uint32(key[0:4]))
		text, err := dictIt.Value()
		if err != nil {
			_ = dictIt.Close()
			return nil, err
		}
		term, err := rdf.ParseTerm(string(text))
		if err != nil {
			_ = dictIt.Close()
			return nil, fmt.Errorf("storage: import: decoding term for id %d: %w", id, err)
		}
		terms[id] = term
	}
	if err := dictIt.Close(); err != nil {
		return nil, err
	}

	resolve := func(id encoding.ObjectId) (rdf.Term, error) {
		if id == encoding.DefaultGraphId {
			return rdf.NewDefaultGraph(), nil
		}
		t, ok := terms[id]
		if !ok {
			return nil, fmt.Errorf("storage: import: missing dictionary entry for id %d", id)
		}
		return t, nil
	}

	quadIt, err := tx.Scan(TableQuads, nil, nil)
	if err != nil {
		return nil, err
	}
	var quads []rdf.Quad
	for quadIt.Next() {
		key := quadIt.Key()
		if len(key) < 16 {
			continue
		}
		g, err := resolve(encoding.ObjectId(binary.BigEndian.Uint32(key[0:4])))
		if err != nil {
			_ = quadIt.Close()
			return nil, err
		}
		s, err := resolve(encoding.ObjectId(binary.BigEndian.Uint32(key[4:8])))
		if err != nil {
			_ = quadIt.Close()
			return nil, err
		}
		p, err := resolve(encoding.ObjectId(binary.BigEndian.Uint32(key[8:12])))
		if err != nil {
			_ = quadIt.Close()
			return nil, err
		}
		o, err := resolve(encoding.ObjectId(binary.BigEndian.Uint32(key[12:16])))
		if err != nil {
			_ = quadIt.Close()
			return nil, err
		}
		quads = append(quads, rdf.Quad{Graph: g, Subject: s, Predicate: p, Object: o})
	}
	if err := quadIt.Close(); err != nil {
		return nil, err
	}

	s := store.New()
	if _, err := s.InsertQuads(quads); err != nil {
		return nil, err
	}
	return s, nil
}

func idKey(id encoding.ObjectId) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, uint32(id))
	return key
}
