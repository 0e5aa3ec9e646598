package ops

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// stringLiteral returns operand's literal if it is a simple string or a
// language-tagged string (the SPARQL "string literal" domain every
// string function is defined over); anything else, including IRIs and
// typed literals other than xsd:string, is not a string argument.
func stringLiteral(r Result) (*rdf.Literal, bool) {
	if r.IsError() {
		return nil, false
	}
	lit, ok := r.Term.(*rdf.Literal)
	if !ok {
		return nil, false
	}
	if lit.Language != "" {
		return lit, true
	}
	if lit.Datatype == nil || lit.Datatype.IRI == rdf.XSDString.IRI {
		return lit, true
	}
	return nil, false
}

// argsCompatible implements the language-tag compatibility rule shared
// by STRSTARTS, STRENDS, CONTAINS and STRBEFORE/STRAFTER: an untagged
// second argument is compatible with
// any first argument; if both carry a tag, the tags must match.
func argsCompatible(a, b *rdf.Literal) bool {
	if b.Language == "" {
		return true
	}
	return a.Language == b.Language
}

// resultLang returns the language tag a string-function result should
// carry, applying the same compatibility rule.
func resultLang(a, b *rdf.Literal) string {
	if a.Language != "" {
		return a.Language
	}
	return b.Language
}

func newStringResult(value, lang string) Result {
	if lang != "" {
		return OK(rdf.NewLiteralWithLanguage(value, lang))
	}
	return OK(rdf.NewLiteral(value))
}

// StrLen implements STRLEN(): the length in Unicode codepoints.
func StrLen(operand Result) Result {
	lit, ok := stringLiteral(operand)
	if !ok {
		return Error()
	}
	return OK(rdf.NewIntegerLiteral(int64(utf8.RuneCountInString(lit.Value))))
}

// SubStr implements the 2- and 3-ary SUBSTR(), 1-indexed per the SPARQL
// grammar, operating on codepoints rather than bytes.
func SubStr(source Result, start Result, length *Result) Result {
	lit, ok := stringLiteral(source)
	if !ok {
		return Error()
	}
	startN, sok := numericOf(start.Term)
	if start.IsError() || !sok {
		return Error()
	}
	runes := []rune(lit.Value)

	startIdx := int(startN.AsFloat64()) - 1
	if startIdx < 0 {
		startIdx = 0
	}
	if startIdx > len(runes) {
		startIdx = len(runes)
	}

	endIdx := len(runes)
	if length != nil {
		lenN, lok := numericOf(length.Term)
		if length.IsError() || !lok {
			return Error()
		}
		endIdx = startIdx + int(lenN.AsFloat64())
		if endIdx > len(runes) {
			endIdx = len(runes)
		}
		if endIdx < startIdx {
			endIdx = startIdx
		}
	}

	return newStringResult(string(runes[startIdx:endIdx]), lit.Language)
}

// UCase, LCase implement UCASE()/LCASE(), preserving the language tag.
func UCase(operand Result) Result {
	lit, ok := stringLiteral(operand)
	if !ok {
		return Error()
	}
	return newStringResult(strings.ToUpper(lit.Value), lit.Language)
}

func LCase(operand Result) Result {
	lit, ok := stringLiteral(operand)
	if !ok {
		return Error()
	}
	return newStringResult(strings.ToLower(lit.Value), lit.Language)
}

// StrStarts, StrEnds, Contains implement the corresponding predicates,
// honoring argument language-tag compatibility.
func StrStarts(a, b Result) Result { return strPredicate(a, b, strings.HasPrefix) }
func StrEnds(a, b Result) Result   { return strPredicate(a, b, strings.HasSuffix) }
func Contains(a, b Result) Result  { return strPredicate(a, b, strings.Contains) }

func strPredicate(a, b Result, f func(s, substr string) bool) Result {
	litA, ok := stringLiteral(a)
	if !ok {
		return Error()
	}
	litB, ok := stringLiteral(b)
	if !ok || !argsCompatible(litA, litB) {
		return Error()
	}
	return OK(rdf.NewBooleanLiteral(f(litA.Value, litB.Value)))
}

// StrBefore, StrAfter implement STRBEFORE()/STRAFTER(): the substring
// before/after the first occurrence of the second argument, or the
// empty string with no language tag if the second argument does not
// occur.
func StrBefore(a, b Result) Result { return strSplit(a, b, true) }
func StrAfter(a, b Result) Result  { return strSplit(a, b, false) }

func strSplit(a, b Result, before bool) Result {
	litA, ok := stringLiteral(a)
	if !ok {
		return Error()
	}
	litB, ok := stringLiteral(b)
	if !ok || !argsCompatible(litA, litB) {
		return Error()
	}
	if litB.Value == "" {
		if before {
			return newStringResult("", litA.Language)
		}
		return newStringResult(litA.Value, litA.Language)
	}
	idx := strings.Index(litA.Value, litB.Value)
	if idx < 0 {
		return OK(rdf.NewLiteral(""))
	}
	if before {
		return newStringResult(litA.Value[:idx], litA.Language)
	}
	return newStringResult(litA.Value[idx+len(litB.Value):], litA.Language)
}

// Concat implements CONCAT(): variadic string concatenation. The result
// keeps a language tag when every tagged argument agrees on it; an
// untagged argument is compatible with any tag and does not clear it.
func Concat(args []Result) Result {
	var b strings.Builder
	lang := ""
	haveLang, conflict := false, false
	for _, arg := range args {
		lit, ok := stringLiteral(arg)
		if !ok {
			return Error()
		}
		b.WriteString(lit.Value)
		if lit.Language == "" || conflict {
			continue
		}
		if !haveLang {
			lang, haveLang = lit.Language, true
		} else if lang != lit.Language {
			conflict = true
		}
	}
	if conflict {
		lang = ""
	}
	return newStringResult(b.String(), lang)
}

// EncodeForURI implements ENCODE_FOR_URI(): percent-encodes everything
// except unreserved characters, matching RFC 3986.
func EncodeForURI(operand Result) Result {
	lit, ok := stringLiteral(operand)
	if !ok {
		return Error()
	}
	return OK(rdf.NewLiteral(percentEncode(lit.Value)))
}

func percentEncode(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.' || c == '~' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

// LangMatches implements langMatches(tag, range): "*" matches any
// non-empty tag, otherwise BCP-47 subtag prefix matching applies.
func LangMatches(tag, langRange Result) Result {
	tagLit, ok := stringLiteral(tag)
	if !ok {
		return Error()
	}
	rangeLit, ok := stringLiteral(langRange)
	if !ok {
		return Error()
	}

	t := strings.ToLower(tagLit.Value)
	r := strings.ToLower(rangeLit.Value)

	if r == "*" {
		return OK(rdf.NewBooleanLiteral(t != ""))
	}
	if t == r {
		return OK(rdf.NewBooleanLiteral(true))
	}
	return OK(rdf.NewBooleanLiteral(strings.HasPrefix(t, r+"-")))
}

// compileRegex translates SPARQL's REGEX/REPLACE flag letters (s, m, i,
// x, q) into a Go regexp, internalErrorf-ing on an unsupported flag or
// an unparsable pattern. A malformed pattern is a query-construction
// mistake, not a per-row SPARQL expected error.
func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	quote, extended := false, false
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 's', 'm', 'i':
			inline.WriteRune(f)
		case 'x':
			extended = true
		case 'q':
			quote = true
		default:
			return nil, internalErrorf("REGEX", "unsupported flag %q", f)
		}
	}
	if extended {
		// x: whitespace outside character classes is removed.
		inClass := false
		pattern = strings.Map(func(r rune) rune {
			switch {
			case r == '[':
				inClass = true
			case r == ']':
				inClass = false
			case !inClass && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
				return -1
			}
			return r
		}, pattern)
	}
	if quote {
		pattern = regexp.QuoteMeta(pattern)
	}
	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, internalErrorf("REGEX", "invalid pattern: %w", err)
	}
	return re, nil
}

// Regex implements the 2- and 3-ary REGEX().
func Regex(text, pattern Result, flags *Result) (Result, error) {
	textLit, ok := stringLiteral(text)
	if !ok {
		return Error(), nil
	}
	patLit, ok := stringLiteral(pattern)
	if !ok {
		return Error(), nil
	}
	flagStr := ""
	if flags != nil {
		fLit, ok := stringLiteral(*flags)
		if !ok {
			return Error(), nil
		}
		flagStr = fLit.Value
	}
	re, err := compileRegex(patLit.Value, flagStr)
	if err != nil {
		return Result{}, err
	}
	return OK(rdf.NewBooleanLiteral(re.MatchString(textLit.Value))), nil
}

// Replace implements the 3- and 4-ary REPLACE().
func Replace(text, pattern, replacement Result, flags *Result) (Result, error) {
	textLit, ok := stringLiteral(text)
	if !ok {
		return Error(), nil
	}
	patLit, ok := stringLiteral(pattern)
	if !ok {
		return Error(), nil
	}
	replLit, ok := stringLiteral(replacement)
	if !ok {
		return Error(), nil
	}
	flagStr := ""
	if flags != nil {
		fLit, ok := stringLiteral(*flags)
		if !ok {
			return Error(), nil
		}
		flagStr = fLit.Value
	}
	re, err := compileRegex(patLit.Value, flagStr)
	if err != nil {
		return Result{}, err
	}
	goRepl := regexp.MustCompile(`\$(\d+)`).ReplaceAllString(replLit.Value, `$${$1}`)
	return newStringResult(re.ReplaceAllString(textLit.Value, goRepl), textLit.Language), nil
}

// Md5Hash, Sha1Hash, Sha256Hash, Sha384Hash, Sha512Hash implement the
// corresponding SPARQL digest functions, returning the lowercase hex
// digest as a plain string.
func Md5Hash(operand Result) Result {
	lit, ok := stringLiteral(operand)
	if !ok {
		return Error()
	}
	sum := md5.Sum([]byte(lit.Value))
	return OK(rdf.NewLiteral(hex.EncodeToString(sum[:])))
}

func Sha1Hash(operand Result) Result {
	lit, ok := stringLiteral(operand)
	if !ok {
		return Error()
	}
	sum := sha1.Sum([]byte(lit.Value))
	return OK(rdf.NewLiteral(hex.EncodeToString(sum[:])))
}

func Sha256Hash(operand Result) Result {
	lit, ok := stringLiteral(operand)
	if !ok {
		return Error()
	}
	sum := sha256.Sum256([]byte(lit.Value))
	return OK(rdf.NewLiteral(hex.EncodeToString(sum[:])))
}

func Sha384Hash(operand Result) Result {
	lit, ok := stringLiteral(operand)
	if !ok {
		return Error()
	}
	sum := sha512.Sum384([]byte(lit.Value))
	return OK(rdf.NewLiteral(hex.EncodeToString(sum[:])))
}

func Sha512Hash(operand Result) Result {
	lit, ok := stringLiteral(operand)
	if !ok {
		return Error()
	}
	sum := sha512.Sum512([]byte(lit.Value))
	return OK(rdf.NewLiteral(hex.EncodeToString(sum[:])))
}
