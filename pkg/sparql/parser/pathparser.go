package parser

import (
	"fmt"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// rdfType is the expansion of the "a" keyword shorthand in a property
// path; parseTermOrVariable spells out the same IRI for its own "a".
const rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// parsePredicate parses a triple pattern's predicate position, which is
// either a plain variable or a SPARQL 1.1 property path expression. A
// path expression that turns out to be a single bare predicate IRI
// collapses to the ordinary TermOrVariable form so the rest of the
// compiler only has to deal with Path for genuine path queries.
func (p *Parser) parsePredicate() (TermOrVariable, *PropertyPath, error) {
	p.skipWhitespace()
	if ch := p.peek(); ch == '?' || ch == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return TermOrVariable{}, nil, err
		}
		return TermOrVariable{Variable: v}, nil, nil
	}

	path, err := p.parsePathAlternative()
	if err != nil {
		return TermOrVariable{}, nil, err
	}
	if path.Kind == PathPredicate {
		return TermOrVariable{Term: path.IRI}, nil, nil
	}
	return TermOrVariable{}, path, nil
}

func (p *Parser) parsePathAlternative() (*PropertyPath, error) {
	left, err := p.parsePathSequence()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.peek() != '|' {
			break
		}
		p.advance()
		right, err := p.parsePathSequence()
		if err != nil {
			return nil, err
		}
		left = &PropertyPath{Kind: PathAlt, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePathSequence() (*PropertyPath, error) {
	left, err := p.parsePathEltOrInverse()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if p.peek() != '/' {
			break
		}
		p.advance()
		right, err := p.parsePathEltOrInverse()
		if err != nil {
			return nil, err
		}
		left = &PropertyPath{Kind: PathSeq, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePathEltOrInverse() (*PropertyPath, error) {
	p.skipWhitespace()
	if p.peek() == '^' {
		p.advance()
		inner, err := p.parsePathPrimaryWithMod()
		if err != nil {
			return nil, err
		}
		return &PropertyPath{Kind: PathInverse, Inner: inner}, nil
	}
	return p.parsePathPrimaryWithMod()
}

func (p *Parser) parsePathPrimaryWithMod() (*PropertyPath, error) {
	prim, err := p.parsePathPrimary()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	switch p.peek() {
	case '*':
		p.advance()
		return &PropertyPath{Kind: PathZeroOrMore, Inner: prim}, nil
	case '+':
		p.advance()
		return &PropertyPath{Kind: PathOneOrMore, Inner: prim}, nil
	case '?':
		// "?name" right after the path is the object variable, not a
		// zero-or-one modifier.
		if p.pos+1 < p.length {
			if c := p.input[p.pos+1]; (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
				return prim, nil
			}
		}
		p.advance()
		return &PropertyPath{Kind: PathZeroOrOne, Inner: prim}, nil
	default:
		return prim, nil
	}
}

func (p *Parser) parsePathPrimary() (*PropertyPath, error) {
	p.skipWhitespace()
	ch := p.peek()

	if ch == '(' {
		p.advance()
		inner, err := p.parsePathAlternative()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' closing property path group")
		}
		p.advance()
		return inner, nil
	}

	if ch == '!' {
		p.advance()
		return p.parseNegatedPropertySet()
	}

	iri, err := p.parsePathIRI()
	if err != nil {
		return nil, err
	}
	return &PropertyPath{Kind: PathPredicate, IRI: rdf.NewNamedNode(iri)}, nil
}

// parsePathIRI parses one IRI-valued path leaf: <...>, a prefixed name,
// or the "a" shorthand for rdf:type.
func (p *Parser) parsePathIRI() (string, error) {
	p.skipWhitespace()
	ch := p.peek()
	if ch == '<' {
		return p.parseIRI()
	}
	if ch == 'a' && (p.pos+1 >= p.length || !isPNameChar(p.input[p.pos+1])) {
		p.advance()
		return rdfType, nil
	}
	return p.parsePrefixedName()
}

func isPNameChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') || ch == '_' || ch == '-' || ch == ':'
}

// parseNegatedPropertySet parses "!iri", "!^iri", or
// "!(iri1|^iri2|...)" into a PathNegatedSet node.
func (p *Parser) parseNegatedPropertySet() (*PropertyPath, error) {
	path := &PropertyPath{Kind: PathNegatedSet}

	addMember := func() error {
		p.skipWhitespace()
		inverse := false
		if p.peek() == '^' {
			inverse = true
			p.advance()
		}
		iri, err := p.parsePathIRI()
		if err != nil {
			return err
		}
		if inverse {
			path.NegatedInverse = append(path.NegatedInverse, rdf.NewNamedNode(iri))
		} else {
			path.NegatedForward = append(path.NegatedForward, rdf.NewNamedNode(iri))
		}
		return nil
	}

	p.skipWhitespace()
	if p.peek() == '(' {
		p.advance()
		p.skipWhitespace()
		if p.peek() != ')' {
			if err := addMember(); err != nil {
				return nil, err
			}
			for {
				p.skipWhitespace()
				if p.peek() != '|' {
					break
				}
				p.advance()
				if err := addMember(); err != nil {
					return nil, err
				}
			}
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' closing negated property set")
		}
		p.advance()
		return path, nil
	}

	if err := addMember(); err != nil {
		return nil, err
	}
	return path, nil
}
