package encoding

import (
	"bytes"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// SortTypeTag orders terms by SPARQL's ORDER BY type precedence: unbound
// first, then blank nodes, then IRIs, then literals by category in the
// order boolean, numeric, string, dateTime, time, date, duration,
// yearMonthDuration, dayTimeDuration, with literals of unrecognized
// datatypes last. Within a category numerics order by value, strings by
// codepoint, and everything else falls back to lexical byte order.
type SortTypeTag uint8

const (
	SortTagUnbound SortTypeTag = iota
	SortTagBlankNode
	SortTagIRI
	SortTagBoolean
	SortTagNumeric
	SortTagString
	SortTagDateTime
	SortTagTime
	SortTagDate
	SortTagDuration
	SortTagYearMonthDuration
	SortTagDayTimeDuration
	SortTagOther
)

// SortableTerm is a term reduced to its ORDER BY comparison key:
// TypeTag buckets terms so cross-kind comparisons follow SPARQL's
// term-ordering rules, NumericKey is a big-endian-encoded value letting
// numerics compare with a plain byte-wise comparison regardless of
// original literal kind, and LexBytes is the tiebreaker (and the entire
// key for string-like tags).
type SortableTerm struct {
	TypeTag    SortTypeTag
	NumericKey []byte
	LexBytes   []byte
}

// NewSortableTerm derives the ordering key for term. nil represents an
// unbound variable.
func NewSortableTerm(term rdf.Term) SortableTerm {
	if term == nil {
		return SortableTerm{TypeTag: SortTagUnbound}
	}

	switch t := term.(type) {
	case *rdf.BlankNode:
		return SortableTerm{TypeTag: SortTagBlankNode, LexBytes: []byte(t.ID)}
	case *rdf.NamedNode:
		return SortableTerm{TypeTag: SortTagIRI, LexBytes: []byte(t.IRI)}
	case *rdf.Literal:
		return sortableLiteral(t)
	default:
		return SortableTerm{TypeTag: SortTagOther, LexBytes: []byte(term.String())}
	}
}

func sortableLiteral(lit *rdf.Literal) SortableTerm {
	if nv, ok := ParseNumeric(lit); ok {
		key := rdf.EncodeFloat64BigEndian(nv.AsFloat64())
		// Flip the sign bit (and invert on negative) so the big-endian
		// float bit pattern sorts the same as the numeric value: IEEE-754
		// floats only sort correctly as unsigned integers for non-negative
		// values as-is.
		if key[0]&0x80 != 0 {
			for i := range key {
				key[i] = ^key[i]
			}
		} else {
			key[0] |= 0x80
		}
		return SortableTerm{TypeTag: SortTagNumeric, NumericKey: key, LexBytes: []byte(lit.Value)}
	}

	if lit.Datatype != nil {
		switch lit.Datatype.IRI {
		case rdf.XSDBoolean.IRI:
			b := byte(0)
			if lit.Value == "true" || lit.Value == "1" {
				b = 1
			}
			return SortableTerm{TypeTag: SortTagBoolean, NumericKey: []byte{b}, LexBytes: []byte(lit.Value)}
		case rdf.XSDDateTime.IRI:
			return SortableTerm{TypeTag: SortTagDateTime, LexBytes: []byte(lit.Value)}
		case rdf.XSDTime.IRI:
			return SortableTerm{TypeTag: SortTagTime, LexBytes: []byte(lit.Value)}
		case rdf.XSDDate.IRI:
			return SortableTerm{TypeTag: SortTagDate, LexBytes: []byte(lit.Value)}
		case rdf.XSDDuration.IRI:
			return SortableTerm{TypeTag: SortTagDuration, LexBytes: []byte(lit.Value)}
		case rdf.XSDYearMonthDur.IRI:
			return SortableTerm{TypeTag: SortTagYearMonthDuration, LexBytes: []byte(lit.Value)}
		case rdf.XSDDayTimeDur.IRI:
			return SortableTerm{TypeTag: SortTagDayTimeDuration, LexBytes: []byte(lit.Value)}
		}
	}

	if lit.Language != "" || lit.Datatype == nil || lit.Datatype.IRI == rdf.XSDString.IRI {
		return SortableTerm{TypeTag: SortTagString, LexBytes: []byte(lit.Value)}
	}

	// Unrecognized datatype: order by lexical form, tie-breaking on the
	// datatype IRI so distinct literals never compare equal.
	return SortableTerm{TypeTag: SortTagOther, LexBytes: []byte(lit.Value + "\x00" + lit.Datatype.IRI)}
}

// Compare returns -1, 0, or 1 as a orders before, the same as, or after b.
func (a SortableTerm) Compare(b SortableTerm) int {
	if a.TypeTag != b.TypeTag {
		if a.TypeTag < b.TypeTag {
			return -1
		}
		return 1
	}
	if a.NumericKey != nil || b.NumericKey != nil {
		if c := bytes.Compare(a.NumericKey, b.NumericKey); c != 0 {
			return c
		}
	}
	return bytes.Compare(a.LexBytes, b.LexBytes)
}
