// Package compare aligns the two models' coefficient tables and prepares
// the like-for-like summaries the report renders.
package compare

import (
	"math"
	"sort"

	"github.com/ewhitmore/haulfit/internal/models"
)

const zCrit = 1.96 // must match the forecasting paths

// CoefRow is one term compared across models. A term missing from one
// model (the GAM's spline replaces the day polynomial, for instance)
// appears with the present side only.
type CoefRow struct {
	Term string

	GLMMEstimate float64
	GLMMSE       float64
	GLMMLower    float64
	GLMMUpper    float64
	InGLMM       bool

	GAMEstimate float64
	GAMSE       float64
	GAMLower    float64
	GAMUpper    float64
	InGAM       bool

	SignDisagrees bool // both present, point estimates of opposite sign
	CIDisjoint    bool // both present, 95% intervals do not overlap
}

// Coefficients builds the comparison table for the shared and
// model-specific fixed-effect terms. Aliased GLMM entries (no SE) are
// skipped: they carry no interval and correspond to redundant
// parameterization, not substance.
func Coefficients(glmm, gam []models.Coefficient) []CoefRow {
	byTerm := map[string]*CoefRow{}
	var order []string

	for _, c := range glmm {
		if !c.HasSE {
			continue
		}
		row := &CoefRow{
			Term:         c.Term,
			GLMMEstimate: c.Estimate,
			GLMMSE:       c.SE,
			GLMMLower:    c.Estimate - zCrit*c.SE,
			GLMMUpper:    c.Estimate + zCrit*c.SE,
			InGLMM:       true,
		}
		byTerm[c.Term] = row
		order = append(order, c.Term)
	}

	for _, c := range gam {
		row, ok := byTerm[c.Term]
		if !ok {
			row = &CoefRow{Term: c.Term}
			byTerm[c.Term] = row
			order = append(order, c.Term)
		}
		row.GAMEstimate = c.Estimate
		row.GAMSE = c.SE
		row.GAMLower = c.Estimate - zCrit*c.SE
		row.GAMUpper = c.Estimate + zCrit*c.SE
		row.InGAM = true
	}

	out := make([]CoefRow, 0, len(order))
	for _, term := range order {
		row := byTerm[term]
		if row.InGLMM && row.InGAM {
			row.SignDisagrees = row.GLMMEstimate*row.GAMEstimate < 0
			row.CIDisjoint = row.GLMMUpper < row.GAMLower || row.GAMUpper < row.GLMMLower
		}
		out = append(out, *row)
	}
	return out
}

// AICRow is one fitted GAM variant in the model-selection table.
type AICRow struct {
	Name  string
	AIC   float64
	EDF   float64
	Delta float64 // AIC difference to the best variant
}

// AICTable ranks variants by AIC ascending and fills in deltas.
func AICTable(rows []AICRow) []AICRow {
	out := make([]AICRow, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].AIC < out[j].AIC })
	if len(out) > 0 {
		best := out[0].AIC
		for i := range out {
			out[i].Delta = out[i].AIC - best
		}
	}
	return out
}

// IntervalWidths summarizes response-scale interval width per path over
// matching prediction rows.
type IntervalWidths struct {
	MeanGLMM float64
	MeanGAM  float64
	MaxGLMM  float64
	MaxGAM   float64
	Rows     int
}

func Widths(glmm, gam []models.Prediction) IntervalWidths {
	n := len(glmm)
	if len(gam) < n {
		n = len(gam)
	}
	var w IntervalWidths
	w.Rows = n
	for i := 0; i < n; i++ {
		gw := glmm[i].Upper95 - glmm[i].Lower95
		aw := gam[i].Upper95 - gam[i].Lower95
		w.MeanGLMM += gw
		w.MeanGAM += aw
		w.MaxGLMM = math.Max(w.MaxGLMM, gw)
		w.MaxGAM = math.Max(w.MaxGAM, aw)
	}
	if n > 0 {
		w.MeanGLMM /= float64(n)
		w.MeanGAM /= float64(n)
	}
	return w
}
