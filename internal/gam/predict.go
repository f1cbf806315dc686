package gam

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ewhitmore/haulfit/internal/formula"
)

// PredictResult holds linear-predictor fitted values and standard errors
// for new rows.
type PredictResult struct {
	Fit []float64
	SE  []float64
}

// Predict evaluates the fit at new rows on the linear-predictor scale.
// Terms named in exclude (e.g. "s(subject)") are removed from both the
// fitted value and the standard error: their design columns are zeroed, so
// any validly-typed placeholder value in the corresponding frame column
// cannot influence the result.
func (f *Fitted) Predict(fr *formula.Frame, exclude ...string) (*PredictResult, error) {
	for _, name := range exclude {
		if !f.hasTerm(name) {
			return nil, fmt.Errorf("gam predict: cannot exclude unknown term %s", name)
		}
	}
	// The frame must still carry every model column, excluded or not.
	if f.spec.SubjectVar != "" && !fr.HasColumn(f.spec.SubjectVar) {
		return nil, fmt.Errorf("gam predict: frame missing %s column", f.spec.SubjectVar)
	}

	x, err := f.design(fr)
	if err != nil {
		return nil, err
	}
	for _, name := range exclude {
		for _, t := range f.terms {
			if t.name != name {
				continue
			}
			n := fr.Len()
			for j := t.start; j < t.end; j++ {
				for i := 0; i < n; i++ {
					x.Set(i, j, 0)
				}
			}
		}
	}

	n, _ := x.Dims()
	var fit mat.VecDense
	fit.MulVec(x, f.beta)

	var xv mat.Dense
	xv.Mul(x, f.cov)

	res := &PredictResult{Fit: make([]float64, n), SE: make([]float64, n)}
	for i := 0; i < n; i++ {
		res.Fit[i] = fit.AtVec(i)
		v := mat.Dot(xv.RowView(i), x.RowView(i))
		if v < 0 {
			return nil, fmt.Errorf("gam predict: negative prediction variance %g at row %d", v, i)
		}
		res.SE[i] = math.Sqrt(v)
	}
	return res, nil
}

func (f *Fitted) hasTerm(name string) bool {
	for _, t := range f.terms {
		if t.name == name {
			return true
		}
	}
	return false
}

// SubjectTerm returns the exclusion name of the random-effect smooth, e.g.
// "s(subject)".
func (f *Fitted) SubjectTerm() string {
	if f.spec.SubjectVar == "" {
		return ""
	}
	return "s(" + f.spec.SubjectVar + ")"
}
