package ops

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Arity describes how many operands a function accepts.
type Arity struct {
	Fixed int   // exact argument count, if OneOf is nil
	OneOf []int // any of these counts, for functions like SUBSTR(s,start[,len])
}

// Accepts reports whether n arguments satisfies this arity.
func (a Arity) Accepts(n int) bool {
	if len(a.OneOf) > 0 {
		for _, k := range a.OneOf {
			if k == n {
				return true
			}
		}
		return false
	}
	return n == a.Fixed
}

// Encoding names one of the term-column layouts a scalar op can be
// invoked on. PlainTerm is the lexical layout every op implements;
// TypedValue is the parsed, computation-oriented layout a subset of
// ops additionally implement in columnar form.
type Encoding uint8

const (
	EncodingPlainTerm Encoding = iota + 1
	EncodingTypedValue
)

// Signature is a function's calling convention: how many arguments it
// takes, whether it is volatile (NOW, RAND, UUID, BNODE()) and so
// must not be constant-folded or evaluated more than once per the
// scope the function defines (once per query for NOW, once per
// solution mapping for BNODE), and the set of encodings it implements.
// A nil Encodings set means PlainTerm only. A caller holding arguments
// in an encoding outside the set converts them first; the evaluator
// never asks an op to interpret a layout it didn't declare.
type Signature struct {
	Arity     Arity
	Volatile  bool
	Encodings []Encoding
}

// Context carries the per-evaluation state a handful of builtins need
// that ordinary arguments don't express: NOW()'s query-wide instant,
// and BNODE(str)'s per-solution-mapping blank node scope.
type Context struct {
	Now        time.Time
	BNodeScope map[string]string
}

// Func is a function's evaluator: already-evaluated argument Results
// in, one Result out. Functions that need the Context for volatility
// (NOW, BNODE) close over it via the caller; Func itself stays a
// plain slice-in/Result-out shape so non-volatile builtins don't have
// to thread an unused parameter.
type Func func(ctx *Context, args []Result) Result

// Op is one entry of the function catalogue: a name, its calling
// signature, and one implementation per declared encoding. Call is the
// PlainTerm implementation (term-at-a-time over rdf.Term); TypedValue
// is the columnar implementation over parsed values, present exactly
// when the signature declares EncodingTypedValue.
type Op struct {
	Name       string
	Sig        Signature
	Call       Func
	TypedValue BatchFunc
}

// implKey keys the registry's flat dispatch table: one entry per
// (function name, encoding) pair an op implements.
type implKey struct {
	Name     string
	Encoding Encoding
}

// Registry is the function catalogue every scalar builtin and user
// extension function is dispatched through. A name is registered once;
// alongside the name index the registry keeps a flat table keyed by
// (function name, encoding), which is what the evaluator and the
// physical plan's columnar dispatch consult to pick an implementation
// for the layout they hold arguments in.
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]*Op
	table map[implKey]*Op
}

// NewRegistry returns a Registry pre-populated with every built-in
// SPARQL 1.1 function this package implements.
func NewRegistry() *Registry {
	r := &Registry{ops: map[string]*Op{}, table: map[implKey]*Op{}}
	registerBuiltins(r)
	return r
}

// Register binds name to op under every encoding its signature
// declares. It panics on a duplicate name, or on a signature declaring
// an encoding the op provides no implementation for, since both are
// programming errors (a builtin registered twice, a user extension
// shadowing a core function, a declared-but-missing implementation),
// never runtime conditions a caller should recover from.
func (r *Registry) Register(op *Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[op.Name]; exists {
		panic(fmt.Sprintf("ops: function %q already registered", op.Name))
	}

	encodings := op.Sig.Encodings
	if len(encodings) == 0 {
		encodings = []Encoding{EncodingPlainTerm}
	}
	for _, enc := range encodings {
		switch enc {
		case EncodingPlainTerm:
			if op.Call == nil {
				panic(fmt.Sprintf("ops: function %q declares PlainTerm but has no Call", op.Name))
			}
		case EncodingTypedValue:
			if op.TypedValue == nil {
				panic(fmt.Sprintf("ops: function %q declares TypedValue but has no batch implementation", op.Name))
			}
		}
		r.table[implKey{Name: op.Name, Encoding: enc}] = op
	}
	r.ops[op.Name] = op
}

// Lookup returns the Op bound to name, if any.
func (r *Registry) Lookup(name string) (*Op, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Implementation returns the op bound to (name, enc) in the dispatch
// table, reporting false when the function exists but does not
// implement that encoding. Callers holding arguments in an unsupported
// encoding convert them and retry under the encoding they converted
// to.
func (r *Registry) Implementation(name string, enc Encoding) (*Op, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.table[implKey{Name: name, Encoding: enc}]
	return op, ok
}

func fixed(n int) Signature { return Signature{Arity: Arity{Fixed: n}} }

func registerBuiltins(r *Registry) {
	reg := func(name string, sig Signature, fn Func) {
		r.Register(&Op{Name: name, Sig: sig, Call: fn})
	}
	// regBoth registers an op under PlainTerm and TypedValue: fn is the
	// term-at-a-time form, batch the columnar one.
	regBoth := func(name string, sig Signature, fn Func, batch BatchFunc) {
		sig.Encodings = []Encoding{EncodingPlainTerm, EncodingTypedValue}
		r.Register(&Op{Name: name, Sig: sig, Call: fn, TypedValue: batch})
	}

	reg("STR", fixed(1), func(_ *Context, a []Result) Result { return Str(a[0]) })
	reg("IRI", fixed(1), func(_ *Context, a []Result) Result { return Iri(a[0]) })
	reg("URI", fixed(1), func(_ *Context, a []Result) Result { return Iri(a[0]) })
	reg("LANG", fixed(1), func(_ *Context, a []Result) Result { return Lang(a[0]) })
	reg("DATATYPE", fixed(1), func(_ *Context, a []Result) Result { return Datatype(a[0]) })
	reg("ISIRI", fixed(1), func(_ *Context, a []Result) Result { return IsIRI(a[0]) })
	reg("ISURI", fixed(1), func(_ *Context, a []Result) Result { return IsIRI(a[0]) })
	reg("ISBLANK", fixed(1), func(_ *Context, a []Result) Result { return IsBlank(a[0]) })
	reg("ISLITERAL", fixed(1), func(_ *Context, a []Result) Result { return IsLiteral(a[0]) })
	reg("ISNUMERIC", fixed(1), func(_ *Context, a []Result) Result { return IsNumeric(a[0]) })
	reg("SAMETERM", fixed(2), func(_ *Context, a []Result) Result { return SameTerm(a[0], a[1]) })

	regBoth("STRLEN", fixed(1), func(_ *Context, a []Result) Result { return StrLen(a[0]) }, typedValueUnary(strLenTyped))
	regBoth("UCASE", fixed(1), func(_ *Context, a []Result) Result { return UCase(a[0]) }, typedValueUnary(uCaseTyped))
	regBoth("LCASE", fixed(1), func(_ *Context, a []Result) Result { return LCase(a[0]) }, typedValueUnary(lCaseTyped))
	regBoth("STRSTARTS", fixed(2), func(_ *Context, a []Result) Result { return StrStarts(a[0], a[1]) }, typedValueBinary(strPredicateTyped(strings.HasPrefix)))
	regBoth("STRENDS", fixed(2), func(_ *Context, a []Result) Result { return StrEnds(a[0], a[1]) }, typedValueBinary(strPredicateTyped(strings.HasSuffix)))
	regBoth("CONTAINS", fixed(2), func(_ *Context, a []Result) Result { return Contains(a[0], a[1]) }, typedValueBinary(strPredicateTyped(strings.Contains)))
	reg("STRBEFORE", fixed(2), func(_ *Context, a []Result) Result { return StrBefore(a[0], a[1]) })
	reg("STRAFTER", fixed(2), func(_ *Context, a []Result) Result { return StrAfter(a[0], a[1]) })
	reg("ENCODE_FOR_URI", fixed(1), func(_ *Context, a []Result) Result { return EncodeForURI(a[0]) })
	reg("LANGMATCHES", fixed(2), func(_ *Context, a []Result) Result { return LangMatches(a[0], a[1]) })
	reg("CONCAT", Signature{Arity: Arity{OneOf: concatArities}}, func(_ *Context, a []Result) Result { return Concat(a) })

	reg("SUBSTR", Signature{Arity: Arity{OneOf: []int{2, 3}}}, func(_ *Context, a []Result) Result {
		if len(a) == 2 {
			return SubStr(a[0], a[1], nil)
		}
		return SubStr(a[0], a[1], &a[2])
	})
	reg("REPLACE", Signature{Arity: Arity{OneOf: []int{3, 4}}}, func(_ *Context, a []Result) Result {
		var flags *Result
		if len(a) == 4 {
			flags = &a[3]
		}
		res, err := Replace(a[0], a[1], a[2], flags)
		if err != nil {
			return Error()
		}
		return res
	})
	reg("REGEX", Signature{Arity: Arity{OneOf: []int{2, 3}}}, func(_ *Context, a []Result) Result {
		var flags *Result
		if len(a) == 3 {
			flags = &a[2]
		}
		res, err := Regex(a[0], a[1], flags)
		if err != nil {
			return Error()
		}
		return res
	})

	reg("MD5", fixed(1), func(_ *Context, a []Result) Result { return Md5Hash(a[0]) })
	reg("SHA1", fixed(1), func(_ *Context, a []Result) Result { return Sha1Hash(a[0]) })
	reg("SHA256", fixed(1), func(_ *Context, a []Result) Result { return Sha256Hash(a[0]) })
	reg("SHA384", fixed(1), func(_ *Context, a []Result) Result { return Sha384Hash(a[0]) })
	reg("SHA512", fixed(1), func(_ *Context, a []Result) Result { return Sha512Hash(a[0]) })

	regBoth("ABS", fixed(1), func(_ *Context, a []Result) Result { return Abs(a[0]) }, typedValueUnary(absTyped))
	regBoth("CEIL", fixed(1), func(_ *Context, a []Result) Result { return Ceil(a[0]) }, typedValueUnary(ceilTyped))
	regBoth("FLOOR", fixed(1), func(_ *Context, a []Result) Result { return Floor(a[0]) }, typedValueUnary(floorTyped))
	regBoth("ROUND", fixed(1), func(_ *Context, a []Result) Result { return Round(a[0]) }, typedValueUnary(roundTyped))

	reg("YEAR", fixed(1), func(_ *Context, a []Result) Result { return Year(a[0]) })
	reg("MONTH", fixed(1), func(_ *Context, a []Result) Result { return Month(a[0]) })
	reg("DAY", fixed(1), func(_ *Context, a []Result) Result { return Day(a[0]) })
	reg("HOURS", fixed(1), func(_ *Context, a []Result) Result { return Hours(a[0]) })
	reg("MINUTES", fixed(1), func(_ *Context, a []Result) Result { return Minutes(a[0]) })
	reg("SECONDS", fixed(1), func(_ *Context, a []Result) Result { return Seconds(a[0]) })
	reg("TIMEZONE", fixed(1), func(_ *Context, a []Result) Result { return Timezone(a[0]) })
	reg("TZ", fixed(1), func(_ *Context, a []Result) Result { return Tz(a[0]) })
	reg("NOW", Signature{Arity: Arity{Fixed: 0}, Volatile: true}, func(ctx *Context, _ []Result) Result {
		return Now(ctx.Now)
	})

	reg("UUID", Signature{Arity: Arity{Fixed: 0}, Volatile: true}, func(_ *Context, _ []Result) Result { return Uuid() })
	reg("STRUUID", Signature{Arity: Arity{Fixed: 0}, Volatile: true}, func(_ *Context, _ []Result) Result { return StrUuid() })
	reg("BNODE", Signature{Arity: Arity{OneOf: []int{0, 1}}, Volatile: true}, func(ctx *Context, a []Result) Result {
		if len(a) == 0 {
			return BnodeNullary(NewBlankNodeID)
		}
		return BnodeUnary(a[0], ctx.BNodeScope, NewBlankNodeID)
	})

	reg("STRDT", fixed(2), func(_ *Context, a []Result) Result { return StrDt(a[0], a[1]) })
	reg("STRLANG", fixed(2), func(_ *Context, a []Result) Result { return StrLang(a[0], a[1]) })

	reg("xsd:boolean", fixed(1), func(_ *Context, a []Result) Result { return CastBoolean(a[0]) })
	reg("xsd:int", fixed(1), func(_ *Context, a []Result) Result { return CastInt(a[0]) })
	reg("xsd:integer", fixed(1), func(_ *Context, a []Result) Result { return CastInteger(a[0]) })
	reg("xsd:decimal", fixed(1), func(_ *Context, a []Result) Result { return CastDecimal(a[0]) })
	reg("xsd:float", fixed(1), func(_ *Context, a []Result) Result { return CastFloat(a[0]) })
	reg("xsd:double", fixed(1), func(_ *Context, a []Result) Result { return CastDouble(a[0]) })
	reg("xsd:string", fixed(1), func(_ *Context, a []Result) Result { return CastString(a[0]) })
	reg("xsd:dateTime", fixed(1), func(_ *Context, a []Result) Result { return CastDateTime(a[0]) })

	reg("COALESCE", Signature{Arity: Arity{OneOf: coalesceArities}}, func(_ *Context, a []Result) Result { return Coalesce(a) })
	reg("IF", fixed(3), func(_ *Context, a []Result) Result { return If(a[0], a[1], a[2]) })
}

// concatArities/coalesceArities are generated once up to a generous
// bound rather than special-cased as variadic, since Signature models
// every function (including these) as a closed set of accepted
// counts, and the evaluator needs to validate arity before calling Func.
var concatArities = arityRange(0, 64)
var coalesceArities = arityRange(1, 64)

func arityRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, n)
	}
	return out
}
