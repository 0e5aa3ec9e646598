package encoding

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// PlainTermSchema is the Arrow struct layout used to batch RDF terms
// through the physical plan before they are looked up in (or interned
// into) the ObjectId dictionary: one term per row, term_kind picking out
// which of lex/lang/datatype apply.
var PlainTermSchema = arrow.StructOf(
	arrow.Field{Name: "term_kind", Type: arrow.PrimitiveTypes.Uint8},
	arrow.Field{Name: "lex", Type: arrow.BinaryTypes.String},
	arrow.Field{Name: "lang", Type: arrow.BinaryTypes.String, Nullable: true},
	arrow.Field{Name: "datatype", Type: arrow.BinaryTypes.String, Nullable: true},
)

// PlainTermBuilder accumulates RDF terms into an Arrow struct array batch.
type PlainTermBuilder struct {
	alloc *array.StructBuilder
	kind  *array.Uint8Builder
	lex   *array.StringBuilder
	lang  *array.StringBuilder
	dt    *array.StringBuilder
}

// NewPlainTermBuilder returns a builder using mem, or a new
// memory.GoAllocator if mem is nil.
func NewPlainTermBuilder(mem memory.Allocator) *PlainTermBuilder {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	sb := array.NewStructBuilder(mem, PlainTermSchema)
	return &PlainTermBuilder{
		alloc: sb,
		kind:  sb.FieldBuilder(0).(*array.Uint8Builder),
		lex:   sb.FieldBuilder(1).(*array.StringBuilder),
		lang:  sb.FieldBuilder(2).(*array.StringBuilder),
		dt:    sb.FieldBuilder(3).(*array.StringBuilder),
	}
}

// Append encodes one RDF term as a row.
func (b *PlainTermBuilder) Append(term rdf.Term) {
	b.alloc.Append(true)
	switch t := term.(type) {
	case *rdf.NamedNode:
		b.kind.Append(uint8(rdf.TermTypeNamedNode))
		b.lex.Append(t.IRI)
		b.lang.AppendNull()
		b.dt.AppendNull()
	case *rdf.BlankNode:
		b.kind.Append(uint8(rdf.TermTypeBlankNode))
		b.lex.Append(t.ID)
		b.lang.AppendNull()
		b.dt.AppendNull()
	case *rdf.Literal:
		b.kind.Append(uint8(literalTermType(t)))
		b.lex.Append(t.Value)
		if t.Language != "" {
			b.lang.Append(t.Language)
		} else {
			b.lang.AppendNull()
		}
		if t.Datatype != nil {
			b.dt.Append(t.Datatype.IRI)
		} else {
			b.dt.AppendNull()
		}
	case *rdf.DefaultGraph:
		b.kind.Append(uint8(rdf.TermTypeDefaultGraph))
		b.lex.Append("")
		b.lang.AppendNull()
		b.dt.AppendNull()
	default:
		panic(fmt.Sprintf("encoding: unsupported term type %T", term))
	}
}

// AppendNull marks the next lane as null, the representation of an
// unbound variable in a column of terms. Child builders still receive
// a zero value each so every column stays the same length.
func (b *PlainTermBuilder) AppendNull() {
	b.alloc.Append(false)
	b.kind.Append(0)
	b.lex.Append("")
	b.lang.AppendNull()
	b.dt.AppendNull()
}

// NewArray finalizes the batch built so far, resetting the builder.
func (b *PlainTermBuilder) NewArray() *array.Struct {
	return b.alloc.NewStructArray()
}

func literalTermType(lit *rdf.Literal) rdf.TermType {
	if lit.Language != "" {
		return rdf.TermTypeLangStringLiteral
	}
	if lit.Datatype == nil {
		return rdf.TermTypeStringLiteral
	}
	switch lit.Datatype.IRI {
	case rdf.XSDInteger.IRI, rdf.XSDInt.IRI, rdf.XSDLong.IRI:
		return rdf.TermTypeIntegerLiteral
	case rdf.XSDDecimal.IRI:
		return rdf.TermTypeDecimalLiteral
	case rdf.XSDDouble.IRI:
		return rdf.TermTypeDoubleLiteral
	case rdf.XSDFloat.IRI:
		return rdf.TermTypeFloatLiteral
	case rdf.XSDBoolean.IRI:
		return rdf.TermTypeBooleanLiteral
	case rdf.XSDDateTime.IRI:
		return rdf.TermTypeDateTimeLiteral
	case rdf.XSDDate.IRI:
		return rdf.TermTypeDateLiteral
	case rdf.XSDTime.IRI:
		return rdf.TermTypeTimeLiteral
	case rdf.XSDDuration.IRI, rdf.XSDYearMonthDur.IRI, rdf.XSDDayTimeDur.IRI:
		return rdf.TermTypeDurationLiteral
	default:
		return rdf.TermTypeStringLiteral
	}
}

// TermAt decodes row i of arr back into an rdf.Term.
func TermAt(arr *array.Struct, i int) (rdf.Term, error) {
	if arr.IsNull(i) {
		return nil, fmt.Errorf("encoding: null term at row %d", i)
	}
	kind := rdf.TermType(arr.Field(0).(*array.Uint8).Value(i))
	lex := arr.Field(1).(*array.String).Value(i)
	langArr := arr.Field(2).(*array.String)
	dtArr := arr.Field(3).(*array.String)

	switch kind {
	case rdf.TermTypeNamedNode:
		return rdf.NewNamedNode(lex), nil
	case rdf.TermTypeBlankNode:
		return rdf.NewBlankNode(lex), nil
	case rdf.TermTypeDefaultGraph:
		return rdf.NewDefaultGraph(), nil
	case rdf.TermTypeLangStringLiteral:
		lang := ""
		if !langArr.IsNull(i) {
			lang = langArr.Value(i)
		}
		return rdf.NewLiteralWithLanguage(lex, lang), nil
	default:
		if dtArr.IsNull(i) {
			return rdf.NewLiteral(lex), nil
		}
		return rdf.NewLiteralWithDatatype(lex, rdf.NewNamedNode(dtArr.Value(i))), nil
	}
}
