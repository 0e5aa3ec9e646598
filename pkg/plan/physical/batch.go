package physical

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/aleksaelezovic/fusiondb/pkg/encoding"
	"github.com/aleksaelezovic/fusiondb/pkg/sparql/eval"
)

// Batch is one unit of the operator protocol: a set of named columns,
// one PlainTerm-encoded Arrow struct array per variable, all the same
// length. An unbound variable is a null lane in its column. Producers
// emit at most BatchSize rows per Batch; consumers decode lanes back
// into solution mappings at their input boundary.
type Batch struct {
	vars []string
	cols []*array.Struct
	n    int
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int { return b.n }

// Vars returns the column names, in column order.
func (b *Batch) Vars() []string { return b.vars }

// Row decodes row i back into a solution mapping, skipping null lanes.
func (b *Batch) Row(i int) (eval.Row, error) {
	row := eval.Row{}
	for c, name := range b.vars {
		col := b.cols[c]
		if col.IsNull(i) {
			continue
		}
		term, err := encoding.TermAt(col, i)
		if err != nil {
			return nil, err
		}
		row[name] = term
	}
	return row, nil
}

// Release frees the batch's column buffers.
func (b *Batch) Release() {
	for _, col := range b.cols {
		col.Release()
	}
	b.cols = nil
	b.n = 0
}

// encodeBatch materializes rows into one Batch with the given column
// order. A variable a row leaves unbound becomes a null lane.
func encodeBatch(vars []string, rows []eval.Row) *Batch {
	builders := make([]*encoding.PlainTermBuilder, len(vars))
	for i := range vars {
		builders[i] = encoding.NewPlainTermBuilder(nil)
	}
	for _, row := range rows {
		for i, name := range vars {
			if term, ok := row[name]; ok && term != nil {
				builders[i].Append(term)
			} else {
				builders[i].AppendNull()
			}
		}
	}
	cols := make([]*array.Struct, len(vars))
	for i, b := range builders {
		cols[i] = b.NewArray()
	}
	return &Batch{vars: vars, cols: cols, n: len(rows)}
}

// rowVars derives a stable column order from a row set: the union of
// bound variable names, sorted. Execs whose logical node knows its own
// schema could pass it instead; deriving from the rows keeps the
// hidden variables blank-node unification mints in scope too.
func rowVars(rows []eval.Row) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		for v := range r {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}
