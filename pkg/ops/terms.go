package ops

import (
	"strings"

	"github.com/google/uuid"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// Str implements STR(): IRIs and literals yield their lexical form as a
// plain string; blank nodes have no lexical form and are an expected
// error, matching the SPARQL function's domain.
func Str(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	switch t := operand.Term.(type) {
	case *rdf.NamedNode:
		return OK(rdf.NewLiteral(t.IRI))
	case *rdf.Literal:
		return OK(rdf.NewLiteral(t.Value))
	default:
		return Error()
	}
}

// Iri implements IRI()/URI(): a bound IRI argument passes through
// unchanged, a string literal is interpreted as an (unresolved) IRI
// reference.
func Iri(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	switch t := operand.Term.(type) {
	case *rdf.NamedNode:
		return OK(t)
	case *rdf.Literal:
		return OK(rdf.NewNamedNode(t.Value))
	default:
		return Error()
	}
}

// BnodeNullary implements the zero-argument BNODE() form: a fresh blank
// node distinct from every other call.
func BnodeNullary(fresh func() string) Result {
	return OK(rdf.NewBlankNode(fresh()))
}

// BnodeUnary implements the one-argument BNODE(str) form. Repeated
// calls with the same lexical argument return the same blank node
// within one solution mapping's lifetime, so callers thread a
// per-solution scope map through seen and key the blank node off
// str's value.
func BnodeUnary(operand Result, seen map[string]string, fresh func() string) Result {
	if operand.IsError() {
		return Error()
	}
	lit, ok := operand.Term.(*rdf.Literal)
	if !ok {
		return Error()
	}
	if id, ok := seen[lit.Value]; ok {
		return OK(rdf.NewBlankNode(id))
	}
	id := fresh()
	seen[lit.Value] = id
	return OK(rdf.NewBlankNode(id))
}

// NewBlankNodeID generates a fresh, globally-unique blank node label
// using the same UUID source as STRUUID/UUID.
func NewBlankNodeID() string {
	return "b" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// StrDt implements STRDT(lexicalForm, datatypeIRI): builds a new typed
// literal from a plain string and an IRI naming its datatype.
func StrDt(lexical, datatype Result) Result {
	if lexical.IsError() || datatype.IsError() {
		return Error()
	}
	lit, ok := lexical.Term.(*rdf.Literal)
	if !ok || lit.Language != "" || (lit.Datatype != nil && lit.Datatype.IRI != rdf.XSDString.IRI) {
		return Error()
	}
	dt, ok := datatype.Term.(*rdf.NamedNode)
	if !ok {
		return Error()
	}
	return OK(rdf.NewLiteralWithDatatype(lit.Value, dt))
}

// StrLang implements STRLANG(lexicalForm, langTag): builds a new
// language-tagged literal from a plain string and a tag.
func StrLang(lexical, lang Result) Result {
	if lexical.IsError() || lang.IsError() {
		return Error()
	}
	lit, ok := lexical.Term.(*rdf.Literal)
	if !ok || lit.Language != "" || (lit.Datatype != nil && lit.Datatype.IRI != rdf.XSDString.IRI) {
		return Error()
	}
	tagLit, ok := lang.Term.(*rdf.Literal)
	if !ok {
		return Error()
	}
	return OK(rdf.NewLiteralWithLanguage(lit.Value, tagLit.Value))
}

// Lang implements LANG(): a literal's language tag, or the empty string
// for an untagged literal. Not applicable to IRIs/blank nodes.
func Lang(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	lit, ok := operand.Term.(*rdf.Literal)
	if !ok {
		return Error()
	}
	return OK(rdf.NewLiteral(lit.Language))
}

// Datatype implements DATATYPE(): a literal's datatype IRI, defaulting
// to rdf:langString for language-tagged strings and xsd:string for
// plain ones.
func Datatype(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	lit, ok := operand.Term.(*rdf.Literal)
	if !ok {
		return Error()
	}
	return OK(rdf.NewNamedNode(lit.EffectiveDatatype()))
}

// Uuid implements UUID(): a freshly generated urn:uuid: IRI.
func Uuid() Result {
	return OK(rdf.NewNamedNode("urn:uuid:" + uuid.NewString()))
}

// StrUuid implements STRUUID(): a freshly generated UUID as a plain
// string literal.
func StrUuid() Result {
	return OK(rdf.NewLiteral(uuid.NewString()))
}

// IsIRI, IsBlank, IsLiteral implement the corresponding type-test
// builtins, each total over any bound term.
func IsIRI(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	_, ok := operand.Term.(*rdf.NamedNode)
	return OK(rdf.NewBooleanLiteral(ok))
}

func IsBlank(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	_, ok := operand.Term.(*rdf.BlankNode)
	return OK(rdf.NewBooleanLiteral(ok))
}

func IsLiteral(operand Result) Result {
	if operand.IsError() {
		return Error()
	}
	_, ok := operand.Term.(*rdf.Literal)
	return OK(rdf.NewBooleanLiteral(ok))
}
