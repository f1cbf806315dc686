// Package smooth fits small basis-regression smoothers used to synthesize
// plausible covariate surfaces for the prediction grid: a cubic polynomial
// in day of year, optionally combined with diurnal Fourier terms in hour.
// Fitting is ordinary least squares, so refitting identical data yields
// identical surfaces.
package smooth

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrTooFewPoints is returned when the predictor has fewer than two
// distinct values, leaving the smoother undefined.
var ErrTooFewPoints = errors.New("smooth: fewer than 2 distinct predictor values")

// Surface is a fitted covariate surface over (yday) or (yday, hour).
type Surface struct {
	withHour bool
	coefs    []float64
}

const (
	ydayCenter = 182.5
	ydayScale  = 100.0
)

func ydayBasis(yday float64) []float64 {
	d := (yday - ydayCenter) / ydayScale
	return []float64{1, d, d * d, d * d * d}
}

func hourBasis(hour float64) []float64 {
	return []float64{
		math.Sin(2 * math.Pi * hour / 24),
		math.Cos(2 * math.Pi * hour / 24),
		math.Sin(2 * math.Pi * hour / 12),
		math.Cos(2 * math.Pi * hour / 12),
	}
}

// FitYday fits y against a cubic polynomial in day of year.
func FitYday(yday, y []float64) (*Surface, error) {
	return fit(yday, nil, y)
}

// FitYdayHour fits y against the day-of-year polynomial plus 24h and 12h
// Fourier terms in hour, for covariates with a diurnal cycle.
func FitYdayHour(yday, hour, y []float64) (*Surface, error) {
	return fit(yday, hour, y)
}

func fit(yday, hour, y []float64) (*Surface, error) {
	n := len(y)
	if len(yday) != n || (hour != nil && len(hour) != n) {
		return nil, fmt.Errorf("smooth: mismatched input lengths")
	}
	distinct := map[float64]bool{}
	for _, v := range yday {
		distinct[v] = true
	}
	if len(distinct) < 2 {
		return nil, ErrTooFewPoints
	}

	withHour := hour != nil
	p := 4
	if withHour {
		p += 4
	}
	if n < p {
		return nil, fmt.Errorf("smooth: %d rows for %d basis terms", n, p)
	}

	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		row := ydayBasis(yday[i])
		if withHour {
			row = append(row, hourBasis(hour[i])...)
		}
		x.SetRow(i, row)
	}

	var qr mat.QR
	qr.Factorize(x)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, mat.NewVecDense(n, y)); err != nil {
		return nil, fmt.Errorf("smooth: solve: %w", err)
	}

	coefs := make([]float64, p)
	for j := 0; j < p; j++ {
		coefs[j] = sol.At(j, 0)
	}
	return &Surface{withHour: withHour, coefs: coefs}, nil
}

// At evaluates the fitted surface. The hour argument is ignored for
// surfaces fitted on day of year alone.
func (s *Surface) At(yday, hour float64) float64 {
	row := ydayBasis(yday)
	if s.withHour {
		row = append(row, hourBasis(hour)...)
	}
	var v float64
	for j, c := range s.coefs {
		v += c * row[j]
	}
	return v
}
