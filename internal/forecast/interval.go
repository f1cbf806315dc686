package forecast

import "math"

// zCrit is the normal-approximation 95% interval multiplier. Both
// forecasting paths must use this value and the same back-transform so
// their interval widths are comparable like for like.
const zCrit = 1.96

// Logistic maps a logit-scale value to a probability in [0, 1].
func Logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Logit is the inverse of Logistic for p in (0, 1).
func Logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// ResponseScale back-transforms a linear-predictor estimate and its
// standard error to the probability scale with symmetric 95% bounds
// computed on the logit scale.
func ResponseScale(logit, se float64) (prob, lower, upper float64) {
	return Logistic(logit), Logistic(logit - zCrit*se), Logistic(logit + zCrit*se)
}

// Result holds per-row forecaster output on both scales. Slices share one
// length equal to the input row count.
type Result struct {
	Logit   []float64
	SE      []float64
	Prob    []float64
	Lower95 []float64
	Upper95 []float64
}

func newResult(n int) *Result {
	return &Result{
		Logit:   make([]float64, n),
		SE:      make([]float64, n),
		Prob:    make([]float64, n),
		Lower95: make([]float64, n),
		Upper95: make([]float64, n),
	}
}

func (r *Result) Len() int { return len(r.Logit) }
