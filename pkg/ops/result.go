// Package ops is the scalar operation catalogue: SPARQL's built-in
// functions and operators, dispatched over rdf.Term values and
// returning either a computed term or SPARQL's payload-free expected
// error.
package ops

import (
	"fmt"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// Outcome distinguishes a successfully produced term from a SPARQL
// "expected" error, a condition the language itself defines as
// producing no value (type errors, division by zero, an unbound
// variable feeding a function that requires a bound one). Expected
// errors carry no payload: per SPARQL semantics the row surviving an
// error in one expression still participates in FILTER (as false) or
// leaves the bound variable unset in a projection, so nothing downstream
// ever needs to inspect why.
type Outcome uint8

const (
	OutcomeOK Outcome = iota
	OutcomeExpectedError
)

// Result is one scalar evaluation's outcome.
type Result struct {
	Term    rdf.Term
	Outcome Outcome
}

// OK wraps a successfully computed term.
func OK(term rdf.Term) Result { return Result{Term: term, Outcome: OutcomeOK} }

// Error returns the thin expected-error result.
func Error() Result { return Result{Outcome: OutcomeExpectedError} }

// IsError reports whether r is an expected error.
func (r Result) IsError() bool { return r.Outcome == OutcomeExpectedError }

// InternalError is a heap-allocated error for conditions SPARQL itself
// doesn't define as part of expression evaluation: a malformed REGEX
// pattern, an argument-count mismatch at plan time, or similar misuse
// that should fail the whole query rather than produce a null lane for
// one row.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string { return fmt.Sprintf("ops: %s: %v", e.Op, e.Err) }
func (e *InternalError) Unwrap() error { return e.Err }

func internalErrorf(op, format string, args ...any) error {
	return &InternalError{Op: op, Err: fmt.Errorf(format, args...)}
}
