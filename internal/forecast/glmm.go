package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ewhitmore/haulfit/internal/formula"
	"github.com/ewhitmore/haulfit/internal/models"
)

// GLMMModel is the loaded fixed-effects portion of a previously fitted
// mixed model: the full coefficient table (aliased entries included), the
// coefficient covariance matrix over the full table, and the fixed-effect
// formula used to build the design matrix at fit time.
type GLMMModel struct {
	Formula      *formula.Formula
	Coefficients []models.Coefficient
	Covariance   *mat.SymDense
}

// PredictGLMM computes out-of-sample predictions for new covariate rows.
//
// The design matrix is rebuilt from the stored formula so column order and
// encoding match the fit. Coefficients without a standard error are
// structurally aliased (a redundant intercept from the mixed-model
// parameterization) and are dropped, along with the matching covariance
// rows and columns, before alignment. The linear predictor is X*b and the
// per-row variance is the diagonal of X*V*X', with the square root taken
// before interval construction.
func PredictGLMM(m *GLMMModel, fr *formula.Frame) (*Result, error) {
	if m.Formula == nil {
		return nil, fmt.Errorf("glmm predict: no formula")
	}
	nCoef := len(m.Coefficients)
	if m.Covariance == nil {
		return nil, fmt.Errorf("glmm predict: no covariance matrix")
	}
	if d := m.Covariance.SymmetricDim(); d != nCoef {
		return nil, fmt.Errorf("glmm predict: covariance is %dx%d but model has %d coefficients", d, d, nCoef)
	}

	// Drop aliased entries.
	var kept []int
	for i, c := range m.Coefficients {
		if c.HasSE {
			kept = append(kept, i)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("glmm predict: all coefficients aliased")
	}

	x, names, err := m.Formula.Design(fr)
	if err != nil {
		return nil, fmt.Errorf("glmm predict: build design: %w", err)
	}
	rows, cols := x.Dims()
	if cols != len(kept) {
		return nil, fmt.Errorf("glmm predict: design has %d columns, %d non-aliased coefficients", cols, len(kept))
	}
	for j, idx := range kept {
		if got, want := names[j], m.Coefficients[idx].Term; got != want {
			return nil, fmt.Errorf("glmm predict: design column %d is %q, coefficient is %q", j, got, want)
		}
	}

	beta := mat.NewVecDense(len(kept), nil)
	for j, idx := range kept {
		beta.SetVec(j, m.Coefficients[idx].Estimate)
	}
	cov := mat.NewSymDense(len(kept), nil)
	for a, ia := range kept {
		for b, ib := range kept {
			if b < a {
				continue
			}
			cov.SetSym(a, b, m.Covariance.At(ia, ib))
		}
	}

	// lp = X b
	var lp mat.VecDense
	lp.MulVec(x, beta)

	// var_i = x_i V x_i'
	var xv mat.Dense
	xv.Mul(x, cov)

	res := newResult(rows)
	for i := 0; i < rows; i++ {
		v := mat.Dot(xv.RowView(i), x.RowView(i))
		if v < 0 {
			return nil, fmt.Errorf("glmm predict: negative prediction variance %g at row %d", v, i)
		}
		se := math.Sqrt(v)
		l := lp.AtVec(i)
		res.Logit[i] = l
		res.SE[i] = se
		res.Prob[i], res.Lower95[i], res.Upper95[i] = ResponseScale(l, se)
	}
	return res, nil
}
