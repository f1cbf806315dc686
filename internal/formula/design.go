package formula

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// component is one expanded piece of a term: a column label fragment and
// its per-row values.
type component struct {
	label string
	vals  []float64
}

func (f *Formula) expandVar(fr *Frame, name string) ([]component, error) {
	if vals, ok := fr.Numeric(name); ok {
		return []component{{label: name, vals: vals}}, nil
	}
	vals, levels, ok := fr.Factor(name)
	if !ok {
		return nil, fmt.Errorf("variable %s not present in data", name)
	}
	// Dummy coding: one column per non-reference level, labelled R-style
	// by concatenating variable and level.
	var comps []component
	for _, level := range levels[1:] {
		col := make([]float64, len(vals))
		for i, v := range vals {
			if v == level {
				col[i] = 1
			}
		}
		comps = append(comps, component{label: name + level, vals: col})
	}
	return comps, nil
}

// Design builds the model matrix for this formula against fr, with an
// intercept column first and term columns in formula order. Factor terms
// are dummy-coded against their first level; interaction terms are the
// row-wise products of their components. Column labels follow the
// coefficient-naming convention of the fitting routines, so a stored
// coefficient table can be aligned against the returned names.
func (f *Formula) Design(fr *Frame) (*mat.Dense, []string, error) {
	n := fr.Len()
	if n == 0 {
		return nil, nil, fmt.Errorf("empty frame")
	}

	cols := []component{{label: "(Intercept)", vals: ones(n)}}

	for _, term := range f.Terms {
		expanded := []component{{label: "", vals: ones(n)}}
		for _, v := range term.Vars {
			comps, err := f.expandVar(fr, v)
			if err != nil {
				return nil, nil, fmt.Errorf("term %s: %w", term, err)
			}
			var next []component
			for _, base := range expanded {
				for _, c := range comps {
					prod := make([]float64, n)
					for i := range prod {
						prod[i] = base.vals[i] * c.vals[i]
					}
					label := c.label
					if base.label != "" {
						label = base.label + ":" + c.label
					}
					next = append(next, component{label: label, vals: prod})
				}
			}
			expanded = next
		}
		cols = append(cols, expanded...)
	}

	names := make([]string, len(cols))
	x := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		names[j] = c.label
		x.SetCol(j, c.vals)
	}
	return x, names, nil
}

// ColumnNames returns the design column labels without materializing the
// matrix values.
func (f *Formula) ColumnNames(fr *Frame) ([]string, error) {
	_, names, err := f.Design(fr)
	return names, err
}

func (f *Formula) String() string {
	terms := make([]string, len(f.Terms))
	for i, t := range f.Terms {
		terms[i] = t.String()
	}
	return f.Response + " ~ " + strings.Join(terms, " + ")
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
