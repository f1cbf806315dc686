package report

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/ewhitmore/haulfit/internal/compare"
	"github.com/ewhitmore/haulfit/internal/models"
)

// WritePredictionsCSV exports one path's grid predictions alongside the
// grid scenario columns.
func WritePredictionsCSV(path string, grid []models.GridRow, preds []models.Prediction) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{"agesex", "yday", "hour", "temp", "wind", "pressure", "precip", "logit", "se", "prob", "lower95", "upper95"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, p := range preds {
		if p.RowIndex < 0 || p.RowIndex >= len(grid) {
			return fmt.Errorf("prediction row index %d outside grid of %d rows", p.RowIndex, len(grid))
		}
		g := grid[p.RowIndex]
		rec := []string{
			string(g.AgeSex),
			fmt.Sprintf("%d", g.Yday),
			fmt.Sprintf("%d", g.Hour),
			fmt.Sprintf("%.4f", g.Temp),
			fmt.Sprintf("%.4f", g.Wind),
			fmt.Sprintf("%.4f", g.Pressure),
			fmt.Sprintf("%.4f", g.Precip),
			fmt.Sprintf("%.6f", p.Logit),
			fmt.Sprintf("%.6f", p.SE),
			fmt.Sprintf("%.6f", p.Prob),
			fmt.Sprintf("%.6f", p.Lower95),
			fmt.Sprintf("%.6f", p.Upper95),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteCoefficientsCSV exports the aligned coefficient comparison.
func WriteCoefficientsCSV(path string, rows []compare.CoefRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{"term", "glmm_estimate", "glmm_se", "glmm_lower95", "glmm_upper95", "gam_estimate", "gam_se", "gam_lower95", "gam_upper95", "sign_disagrees", "ci_disjoint"}
	if err := w.Write(header); err != nil {
		return err
	}
	blankIf := func(present bool, v float64) string {
		if !present {
			return ""
		}
		return fmt.Sprintf("%.6f", v)
	}
	for _, r := range rows {
		rec := []string{
			r.Term,
			blankIf(r.InGLMM, r.GLMMEstimate),
			blankIf(r.InGLMM, r.GLMMSE),
			blankIf(r.InGLMM, r.GLMMLower),
			blankIf(r.InGLMM, r.GLMMUpper),
			blankIf(r.InGAM, r.GAMEstimate),
			blankIf(r.InGAM, r.GAMSE),
			blankIf(r.InGAM, r.GAMLower),
			blankIf(r.InGAM, r.GAMUpper),
			fmt.Sprintf("%t", r.SignDisagrees),
			fmt.Sprintf("%t", r.CIDisjoint),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteAICCSV exports the GAM variant selection table.
func WriteAICCSV(path string, rows []compare.AICRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"model", "aic", "edf", "delta_aic"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Name,
			fmt.Sprintf("%.3f", r.AIC),
			fmt.Sprintf("%.3f", r.EDF),
			fmt.Sprintf("%.3f", r.Delta),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
