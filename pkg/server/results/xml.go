package results

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/query"
)

// XMLResults represents SPARQL XML query results, used both to parse an
// external endpoint's response (ParseXMLResults, for test comparison
// against this engine's own output) and as the in-memory shape this
// package serializes to.
type XMLResults struct {
	Head    XMLHead    `xml:"head"`
	Results XMLResultsElement `xml:"results"`
	Boolean *bool      `xml:"boolean"` // For ASK queries
}

// XMLHead represents the head element with variable names
type XMLHead struct {
	Variables []XMLVariable `xml:"variable"`
}

// XMLVariable represents a variable declaration
type XMLVariable struct {
	Name string `xml:"name,attr"`
}

// XMLResultsElement contains the result bindings
type XMLResultsElement struct {
	Results []XMLResult `xml:"result"`
}

// XMLResult represents a single result binding
type XMLResult struct {
	Bindings []XMLBinding `xml:"binding"`
}

// XMLBinding represents a variable binding in a result
type XMLBinding struct {
	Name    string     `xml:"name,attr"`
	URI     *string    `xml:"uri"`
	Literal *XMLLiteral `xml:"literal"`
	BNode   *string    `xml:"bnode"`
}

// XMLLiteral represents a literal value
type XMLLiteral struct {
	Value    string `xml:",chardata"`
	Lang     string `xml:"lang,attr,omitempty"`
	Datatype string `xml:"datatype,attr,omitempty"`
}

// ParseXMLResults parses SPARQL XML results
func ParseXMLResults(r io.Reader) (*XMLResults, error) {
	var results XMLResults
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to parse XML results: %w", err)
	}
	return &results, nil
}

// ToBindings converts XML results to a list of bindings (maps of variable name to RDF term)
func (r *XMLResults) ToBindings() ([]map[string]rdf.Term, error) {
	if r.Boolean != nil {
		return nil, fmt.Errorf("ASK queries not supported for binding comparison")
	}

	var bindings []map[string]rdf.Term

	for _, result := range r.Results.Results {
		binding := make(map[string]rdf.Term)

		for _, b := range result.Bindings {
			var term rdf.Term

			switch {
			case b.URI != nil:
				term = rdf.NewNamedNode(*b.URI)
			case b.BNode != nil:
				term = rdf.NewBlankNode(*b.BNode)
			case b.Literal != nil:
				if b.Literal.Lang != "" {
					term = rdf.NewLiteralWithLanguage(b.Literal.Value, b.Literal.Lang)
				} else if b.Literal.Datatype != "" {
					term = rdf.NewLiteralWithDatatype(b.Literal.Value, rdf.NewNamedNode(b.Literal.Datatype))
				} else {
					term = rdf.NewLiteral(b.Literal.Value)
				}
			default:
				return nil, fmt.Errorf("binding %s has no value", b.Name)
			}

			binding[b.Name] = term
		}

		bindings = append(bindings, binding)
	}

	return bindings, nil
}

// CompareResults compares two sets of bindings, ignoring order
func CompareResults(expected, actual []map[string]rdf.Term) bool {
	if len(expected) != len(actual) {
		return false
	}

	sortBindings := func(bindings []map[string]rdf.Term) []string {
		var strs []string
		for _, binding := range bindings {
			strs = append(strs, bindingToString(binding))
		}
		sort.Strings(strs)
		return strs
	}

	expectedStrs := sortBindings(expected)
	actualStrs := sortBindings(actual)

	for i := range expectedStrs {
		if expectedStrs[i] != actualStrs[i] {
			return false
		}
	}

	return true
}

// bindingToString converts a binding to a canonical string representation
func bindingToString(binding map[string]rdf.Term) string {
	var vars []string
	for v := range binding {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	var str string
	for i, v := range vars {
		if i > 0 {
			str += "|"
		}
		str += v + "=" + binding[v].String()
	}
	return str
}

// SPARQL XML Results Format (Serialization)
// https://www.w3.org/TR/rdf-sparql-XMLres/

// FormatSelectResultsXML converts a SELECT result to SPARQL XML format
func FormatSelectResultsXML(vars []*query.Variable, bindings []query.Binding) ([]byte, error) {
	varNames := variableNames(vars, bindings)

	out := `<?xml version="1.0"?>
<sparql xmlns="http://www.w3.org/2005/sparql-results#">
  <head>
`
	for _, varName := range varNames {
		out += "    <variable name=\"" + xmlEscape(varName) + "\"/>\n"
	}

	out += `  </head>
  <results>
`
	for _, binding := range bindings {
		out += "    <result>\n"
		for _, varName := range varNames {
			term, ok := binding[varName]
			if !ok {
				continue
			}
			out += "      <binding name=\"" + xmlEscape(varName) + "\">\n"
			out += termToXML(term, "        ")
			out += "      </binding>\n"
		}
		out += "    </result>\n"
	}

	out += `  </results>
</sparql>
`

	return []byte(out), nil
}

// FormatAskResultXML converts an ASK result to SPARQL XML format
func FormatAskResultXML(result bool) ([]byte, error) {
	boolStr := "false"
	if result {
		boolStr = "true"
	}

	out := `<?xml version="1.0"?>
<sparql xmlns="http://www.w3.org/2005/sparql-results#">
  <head/>
  <boolean>` + boolStr + `</boolean>
</sparql>
`

	return []byte(out), nil
}

func termToXML(term rdf.Term, indent string) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return indent + "<uri>" + xmlEscape(t.IRI) + "</uri>\n"

	case *rdf.BlankNode:
		return indent + "<bnode>" + xmlEscape(t.ID) + "</bnode>\n"

	case *rdf.Literal:
		if t.Language != "" {
			return indent + "<literal xml:lang=\"" + t.Language + "\">" + xmlEscape(t.Value) + "</literal>\n"
		} else if t.Datatype != nil {
			return indent + "<literal datatype=\"" + xmlEscape(t.Datatype.IRI) + "\">" + xmlEscape(t.Value) + "</literal>\n"
		}
		return indent + "<literal>" + xmlEscape(t.Value) + "</literal>\n"

	default:
		return indent + "<literal>" + xmlEscape(term.String()) + "</literal>\n"
	}
}

func xmlEscape(s string) string {
	var out []byte
	for _, r := range s {
		switch r {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		case '"':
			out = append(out, "&quot;"...)
		case '\'':
			out = append(out, "&apos;"...)
		default:
			out = append(out, string(r)...)
		}
	}
	return string(out)
}
