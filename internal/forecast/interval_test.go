package forecast

import (
	"math"
	"testing"
)

func TestLogitLogisticRoundTrip(t *testing.T) {
	for _, x := range []float64{-8, -3, -0.5, 0, 0.5, 3, 8} {
		got := Logit(Logistic(x))
		if math.Abs(got-x) > 1e-9 {
			t.Errorf("Logit(Logistic(%v)) = %v", x, got)
		}
	}
}

func TestLogisticBounds(t *testing.T) {
	for _, x := range []float64{-50, -1, 0, 1, 50} {
		p := Logistic(x)
		if p < 0 || p > 1 {
			t.Errorf("Logistic(%v) = %v, outside [0,1]", x, p)
		}
	}
	if got := Logistic(0); got != 0.5 {
		t.Errorf("Logistic(0) = %v, want 0.5", got)
	}
}

func TestResponseScale(t *testing.T) {
	tests := []struct {
		name  string
		logit float64
		se    float64
	}{
		{"centered", 0, 1},
		{"positive logit", 2.5, 0.3},
		{"negative logit", -4, 2},
		{"large se", 0.1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prob, lower, upper := ResponseScale(tt.logit, tt.se)
			if lower > prob || prob > upper {
				t.Errorf("ordering violated: %v <= %v <= %v", lower, prob, upper)
			}
			for _, v := range []float64{prob, lower, upper} {
				if v < 0 || v > 1 {
					t.Errorf("value %v outside [0,1]", v)
				}
			}
			// Bounds are the back-transformed logit-scale interval.
			wantLower := Logistic(tt.logit - 1.96*tt.se)
			wantUpper := Logistic(tt.logit + 1.96*tt.se)
			if math.Abs(lower-wantLower) > 1e-12 || math.Abs(upper-wantUpper) > 1e-12 {
				t.Errorf("bounds = (%v, %v), want (%v, %v)", lower, upper, wantLower, wantUpper)
			}
		})
	}
}

func TestResponseScaleZeroSE(t *testing.T) {
	prob, lower, upper := ResponseScale(1.2, 0)
	if lower != prob || upper != prob {
		t.Errorf("zero SE should collapse the interval: %v %v %v", lower, prob, upper)
	}
}
