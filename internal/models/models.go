package models

import (
	"fmt"
	"time"
)

// AgeSex is the age/sex category assigned to a tagged subject.
type AgeSex string

const (
	AgeSexAdultFemale AgeSex = "adult_female"
	AgeSexAdultMale   AgeSex = "adult_male"
	AgeSexSubadult    AgeSex = "subadult"
	AgeSexYoungOfYear AgeSex = "young_of_year"
)

// CanonicalAgeSexOrder returns category levels in the fixed order used for
// grid assembly and report facets.
func CanonicalAgeSexOrder() []AgeSex {
	return []AgeSex{AgeSexAdultFemale, AgeSexAdultMale, AgeSexSubadult, AgeSexYoungOfYear}
}

func ParseAgeSex(s string) (AgeSex, error) {
	switch AgeSex(s) {
	case AgeSexAdultFemale, AgeSexAdultMale, AgeSexSubadult, AgeSexYoungOfYear:
		return AgeSex(s), nil
	}
	return "", fmt.Errorf("unknown age/sex category %q", s)
}

// Observation is one subject-hour of telemetry: the dry/wet indicator plus
// the environmental covariates recorded for that hour.
type Observation struct {
	ID           int64
	SubjectID    string
	BlockID      string
	StartOfBlock bool // first row of a contiguous AR block for this subject
	AgeSex       AgeSex
	Dry          int // 1 = dry (hauled out), 0 = wet
	Yday         int // day of year, 1-366
	SolarHour    int // solar hour, 0-23
	Temp         float64
	Wind         float64
	Pressure     float64
	Precip       float64
	WindTemp     float64 // wind x temp interaction
	CreatedAt    time.Time
}

// Features holds the derived cyclical and polynomial day terms shared by
// both model formulas.
type Features struct {
	Sin1, Cos1 float64 // 24h period
	Sin2, Cos2 float64 // 12h period
	Sin3, Cos3 float64 // 8h period
	Day        float64 // (yday - 120) / 10
	Day2       float64
	Day3       float64
	Day4       float64
}

// GridRow is one synthetic prediction scenario: a (category, yday, hour)
// combination carrying smoothed covariates and derived features.
type GridRow struct {
	AgeSex   AgeSex
	Yday     int
	Hour     int
	Temp     float64
	Wind     float64
	Pressure float64
	Precip   float64
	WindTemp float64
	Features
}

// Coefficient is one fixed-effect term from a fitted model. Aliased terms
// (structurally redundant parameterization) carry no standard error.
type Coefficient struct {
	Term     string
	Estimate float64
	SE       float64
	HasSE    bool
}

// Prediction is one grid row pushed through a forecasting path, on both the
// linear-predictor and response scales.
type Prediction struct {
	Path     string // "glmm" or "gam"
	RowIndex int    // index into the prediction grid
	Logit    float64
	SE       float64
	Prob     float64
	Lower95  float64
	Upper95  float64
}

// ModelRun records one pipeline execution.
type ModelRun struct {
	ID          int64
	StartedAt   time.Time
	DatasetRows int
	GridRows    int
	Note        string
}
