package ops

import "github.com/aleksaelezovic/fusiondb/pkg/rdf"

// If implements the IF(cond, then, else) functional form: cond's
// effective boolean value selects which already-evaluated branch to
// return. An erroring condition is itself an expected error; the
// eval layer is responsible for short-circuiting so only the selected
// branch is ever evaluated (IF must not evaluate both arms).
func If(cond, then, els Result) Result {
	ebv := EffectiveBooleanValue(cond)
	if ebv.IsError() {
		return Error()
	}
	if asBool(ebv) {
		return then
	}
	return els
}

// Coalesce implements COALESCE(): the first argument in args that is
// neither unbound nor an evaluation error; an empty result (all
// unbound/erroring) is itself an expected error.
func Coalesce(args []Result) Result {
	for _, a := range args {
		if !a.IsError() {
			return a
		}
	}
	return Error()
}

// Bound implements BOUND(?var) given whether the variable appeared in
// the solution mapping; unlike every other builtin, BOUND's argument is
// not evaluated as an expression. The eval layer checks the binding
// map directly and calls this only to wrap the outcome.
func Bound(isBound bool) Result {
	return OK(rdf.NewBooleanLiteral(isBound))
}
