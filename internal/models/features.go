package models

import "math"

const (
	dayCenter = 120
	dayScale  = 10
)

// DeriveFeatures computes the cyclical hour terms and the centered/scaled
// day-of-year polynomial used by both model formulas.
//
// The three sine/cosine pairs have periods of 24, 12 and 8 hours:
// sin(pi*h/12), cos(pi*h/12), sin(pi*h/6), cos(pi*h/6), sin(pi*h/4),
// cos(pi*h/4). The third pair uses the consistent cosine definition.
func DeriveFeatures(yday, hour int) Features {
	h := float64(hour)
	d := (float64(yday) - dayCenter) / dayScale
	return Features{
		Sin1: math.Sin(math.Pi * h / 12),
		Cos1: math.Cos(math.Pi * h / 12),
		Sin2: math.Sin(math.Pi * h / 6),
		Cos2: math.Cos(math.Pi * h / 6),
		Sin3: math.Sin(math.Pi * h / 4),
		Cos3: math.Cos(math.Pi * h / 4),
		Day:  d,
		Day2: d * d,
		Day3: d * d * d,
		Day4: d * d * d * d,
	}
}
