// Package gam fits penalized generalized additive models for binary
// responses. It stands in for the external GAM library the report delegates
// fitting to: a binomial IRLS loop over a fixed basis (parametric terms, a
// penalized cubic spline smooth of one variable, and a ridge-penalized
// per-subject random-effect term) with an optional AR1 working weight
// driven by a correlation coefficient and per-row start-of-block flags.
//
// Fitting internals are not part of the comparison contract; the
// load-bearing surface is Predict with term exclusion, which mirrors the
// population-level prediction interface of the reference fitting routine.
package gam

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ewhitmore/haulfit/internal/formula"
	"github.com/ewhitmore/haulfit/internal/models"
)

// Spec names the columns of the model: the binary response, numeric terms
// entering linearly, one categorical fixed effect, the spline smooth
// variable, and the random-effect grouping variable.
type Spec struct {
	Response   string
	Parametric []string
	Factor     string
	SmoothVar  string
	SubjectVar string
}

// Config holds fitting options.
type Config struct {
	Rho            float64 // AR1 working correlation, 0 disables
	MaxIter        int
	Tol            float64
	SmoothPenalty  float64
	SubjectPenalty float64
	Discrete       bool // coarsen the spline basis for speed
}

// DefaultConfig mirrors the settings used for the report fits.
func DefaultConfig() Config {
	return Config{
		MaxIter:        50,
		Tol:            1e-8,
		SmoothPenalty:  1.0,
		SubjectPenalty: 1.0,
	}
}

type term struct {
	name       string
	start, end int // design column range [start, end)
}

// Fitted is an immutable fit result.
type Fitted struct {
	spec Spec
	cfg  Config

	terms []term
	names []string

	beta *mat.VecDense
	cov  *mat.SymDense

	knots                []float64
	smoothMin, smoothMax float64
	factorLevels         []string
	subjectLevels        []string

	deviance   float64
	edf        float64
	aic        float64
	iterations int
	nobs       int
}

const (
	interiorKnots         = 8
	interiorKnotsDiscrete = 4
	muFloor               = 1e-8
)

// Fit estimates the model on the training frame.
func Fit(spec Spec, fr *formula.Frame, cfg Config) (*Fitted, error) {
	y, ok := fr.Numeric(spec.Response)
	if !ok {
		return nil, fmt.Errorf("gam: response %s not in frame", spec.Response)
	}
	for _, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("gam: response %s is not binary (found %g)", spec.Response, v)
		}
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = DefaultConfig().MaxIter
	}
	if cfg.Tol <= 0 {
		cfg.Tol = DefaultConfig().Tol
	}
	if cfg.SmoothPenalty <= 0 {
		cfg.SmoothPenalty = DefaultConfig().SmoothPenalty
	}
	if cfg.SubjectPenalty <= 0 {
		cfg.SubjectPenalty = DefaultConfig().SubjectPenalty
	}

	f := &Fitted{spec: spec, cfg: cfg, nobs: fr.Len()}
	if err := f.resolveBases(fr); err != nil {
		return nil, err
	}

	x, err := f.design(fr)
	if err != nil {
		return nil, err
	}
	n, p := x.Dims()

	penalty := f.penaltyDiag(p)

	// Prior weights: ones, with non-initial rows of an AR block
	// down-weighted by (1 - rho^2) as a working prewhitening scheme.
	w0 := make([]float64, n)
	for i := range w0 {
		w0[i] = 1
	}
	if cfg.Rho != 0 {
		start, ok := fr.Numeric("start_of_block")
		if !ok {
			return nil, fmt.Errorf("gam: rho set but start_of_block column missing")
		}
		factor := 1 - cfg.Rho*cfg.Rho
		if factor <= 0 {
			return nil, fmt.Errorf("gam: rho %g out of range", cfg.Rho)
		}
		for i := range w0 {
			if start[i] == 0 {
				w0[i] = factor
			}
		}
	}

	// Penalized IRLS.
	eta := make([]float64, n)
	mu := make([]float64, n)
	for i := range mu {
		mu[i] = (y[i] + 0.5) / 2
		eta[i] = math.Log(mu[i] / (1 - mu[i]))
	}

	z := make([]float64, n)
	w := make([]float64, n)
	beta := mat.NewVecDense(p, nil)
	xtwx := mat.NewSymDense(p, nil)
	var chol mat.Cholesky

	prevDev := math.Inf(1)
	iter := 0
	for ; iter < cfg.MaxIter; iter++ {
		for i := 0; i < n; i++ {
			m := clampMu(mu[i])
			v := m * (1 - m)
			w[i] = w0[i] * v
			z[i] = eta[i] + (y[i]-m)/v
		}

		weightedCross(xtwx, x, w)
		a := mat.NewSymDense(p, nil)
		a.CopySym(xtwx)
		for j := 0; j < p; j++ {
			a.SetSym(j, j, a.At(j, j)+penalty[j])
		}

		if ok := chol.Factorize(a); !ok {
			return nil, fmt.Errorf("gam: penalized system singular at iteration %d", iter)
		}

		// rhs = X' W z
		rhs := mat.NewVecDense(p, nil)
		for j := 0; j < p; j++ {
			var s float64
			for i := 0; i < n; i++ {
				s += x.At(i, j) * w[i] * z[i]
			}
			rhs.SetVec(j, s)
		}
		if err := chol.SolveVecTo(beta, rhs); err != nil {
			return nil, fmt.Errorf("gam: solve failed at iteration %d: %w", iter, err)
		}

		etaVec := mat.NewVecDense(n, eta)
		etaVec.MulVec(x, beta)
		dev := 0.0
		for i := 0; i < n; i++ {
			mu[i] = 1 / (1 + math.Exp(-eta[i]))
			m := clampMu(mu[i])
			if y[i] == 1 {
				dev -= 2 * w0[i] * math.Log(m)
			} else {
				dev -= 2 * w0[i] * math.Log(1-m)
			}
		}

		if math.Abs(prevDev-dev) < cfg.Tol*(math.Abs(dev)+0.1) {
			prevDev = dev
			iter++
			break
		}
		prevDev = dev
	}

	f.deviance = prevDev
	f.iterations = iter
	f.beta = beta

	// Posterior covariance (X'WX + S)^-1 and effective degrees of freedom
	// tr((X'WX + S)^-1 X'WX).
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, fmt.Errorf("gam: covariance inverse: %w", err)
	}
	f.cov = &cov

	var ftr mat.Dense
	ftr.Mul(&cov, xtwx)
	for j := 0; j < p; j++ {
		f.edf += ftr.At(j, j)
	}
	f.aic = f.deviance + 2*f.edf

	return f, nil
}

func clampMu(m float64) float64 {
	if m < muFloor {
		return muFloor
	}
	if m > 1-muFloor {
		return 1 - muFloor
	}
	return m
}

// weightedCross sets dst = X' diag(w) X.
func weightedCross(dst *mat.SymDense, x *mat.Dense, w []float64) {
	n, p := x.Dims()
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			var s float64
			for i := 0; i < n; i++ {
				s += x.At(i, a) * w[i] * x.At(i, b)
			}
			dst.SetSym(a, b, s)
		}
	}
}

// AIC returns deviance + 2*edf for the fit.
func (f *Fitted) AIC() float64 { return f.aic }

// Deviance returns the final binomial deviance.
func (f *Fitted) Deviance() float64 { return f.deviance }

// EDF returns the effective degrees of freedom.
func (f *Fitted) EDF() float64 { return f.edf }

// Iterations returns the IRLS iteration count.
func (f *Fitted) Iterations() int { return f.iterations }

// Coefficients returns the full coefficient table with standard errors
// from the posterior covariance diagonal.
func (f *Fitted) Coefficients() []models.Coefficient {
	out := make([]models.Coefficient, len(f.names))
	for j, name := range f.names {
		out[j] = models.Coefficient{
			Term:     name,
			Estimate: f.beta.AtVec(j),
			SE:       math.Sqrt(f.cov.At(j, j)),
			HasSE:    true,
		}
	}
	return out
}
