package ops

import (
	"fmt"
	"regexp"
	"time"

	"github.com/aleksaelezovic/fusiondb/pkg/rdf"
)

// timezoneSuffix matches the trailing Z or ±HH:MM offset of an XSD
// dateTime/date/time lexical form, used to tell "has an explicit
// timezone" apart from "local, no timezone", since SPARQL's TZ/TIMEZONE
// distinguish the two.
var timezoneSuffix = regexp.MustCompile(`(Z|[+-]\d{2}:\d{2})$`)

func dateTimeLiteral(r Result) (*rdf.Literal, bool) {
	if r.IsError() {
		return nil, false
	}
	lit, ok := r.Term.(*rdf.Literal)
	if !ok || lit.Datatype == nil {
		return nil, false
	}
	switch lit.Datatype.IRI {
	case rdf.XSDDateTime.IRI, rdf.XSDDate.IRI, rdf.XSDTime.IRI:
		return lit, true
	default:
		return nil, false
	}
}

func parseDateTimeValue(lit *rdf.Literal) (time.Time, bool, bool) {
	layout := time.RFC3339Nano
	switch lit.Datatype.IRI {
	case rdf.XSDDate.IRI:
		layout = "2006-01-02Z07:00"
	case rdf.XSDTime.IRI:
		layout = "15:04:05Z07:00"
	}
	hasTZ := timezoneSuffix.MatchString(lit.Value)
	t, err := time.Parse(layout, lit.Value)
	if err != nil {
		// Retry without a timezone suffix for inputs that omit one.
		noTZLayout := layout[:len(layout)-len("Z07:00")]
		t, err = time.Parse(noTZLayout, lit.Value)
		if err != nil {
			return time.Time{}, false, false
		}
	}
	return t, hasTZ, true
}

// Tz implements TZ(): the timezone part of a date/time/dateTime value as
// a plain string ("" if the value has no timezone), e.g. "+01:00" or
// "Z".
func Tz(operand Result) Result {
	lit, ok := dateTimeLiteral(operand)
	if !ok {
		return Error()
	}
	m := timezoneSuffix.FindString(lit.Value)
	if m == "Z" {
		return OK(rdf.NewLiteral("Z"))
	}
	return OK(rdf.NewLiteral(m))
}

// Timezone implements TIMEZONE(): the timezone part as an
// xsd:dayTimeDuration. A value with no explicit timezone is an expected
// error rather than a zero duration, per the SPARQL recommendation.
func Timezone(operand Result) Result {
	lit, ok := dateTimeLiteral(operand)
	if !ok {
		return Error()
	}
	_, hasTZ, ok := parseDateTimeValue(lit)
	if !ok || !hasTZ {
		return Error()
	}
	m := timezoneSuffix.FindString(lit.Value)
	if m == "" || m == "Z" {
		return OK(rdf.NewLiteralWithDatatype("PT0S", rdf.XSDDayTimeDur))
	}
	sign := ""
	if m[0] == '-' {
		sign = "-"
	}
	var hh, mm int
	_, _ = fmt.Sscanf(m[1:], "%d:%d", &hh, &mm)
	dur := ""
	if hh != 0 {
		dur += fmt.Sprintf("%dH", hh)
	}
	if mm != 0 {
		dur += fmt.Sprintf("%dM", mm)
	}
	if dur == "" {
		dur = "0S"
	}
	return OK(rdf.NewLiteralWithDatatype(sign+"PT"+dur, rdf.XSDDayTimeDur))
}

// Year, Month, Day, Hours, Minutes, Seconds implement the corresponding
// date/time component accessors over dateTime/date/time literals.
func Year(operand Result) Result  { return dateComponent(operand, func(t time.Time) int64 { return int64(t.Year()) }) }
func Month(operand Result) Result { return dateComponent(operand, func(t time.Time) int64 { return int64(t.Month()) }) }
func Day(operand Result) Result   { return dateComponent(operand, func(t time.Time) int64 { return int64(t.Day()) }) }
func Hours(operand Result) Result { return dateComponent(operand, func(t time.Time) int64 { return int64(t.Hour()) }) }
func Minutes(operand Result) Result {
	return dateComponent(operand, func(t time.Time) int64 { return int64(t.Minute()) })
}

// Seconds returns an xsd:decimal, since SPARQL's seconds() includes the
// fractional second component.
func Seconds(operand Result) Result {
	lit, ok := dateTimeLiteral(operand)
	if !ok {
		return Error()
	}
	t, _, ok := parseDateTimeValue(lit)
	if !ok {
		return Error()
	}
	return OK(rdf.NewDecimalLiteral(float64(t.Second()) + float64(t.Nanosecond())/1e9))
}

func dateComponent(operand Result, f func(time.Time) int64) Result {
	lit, ok := dateTimeLiteral(operand)
	if !ok {
		return Error()
	}
	t, _, ok := parseDateTimeValue(lit)
	if !ok {
		return Error()
	}
	return OK(rdf.NewIntegerLiteral(f(t)))
}

// Now implements NOW(): the query's fixed notion of the current
// instant, threaded in by the caller so every NOW() call within one
// query execution is consistent.
func Now(current time.Time) Result {
	return OK(rdf.NewDateTimeLiteral(current))
}
