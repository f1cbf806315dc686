// Package report assembles the Markdown comparison report and its CSV
// table exports from the computed prediction and coefficient tables.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/ewhitmore/haulfit/internal/compare"
	"github.com/ewhitmore/haulfit/internal/models"
)

// Input carries everything the report renders.
type Input struct {
	RunID        int64
	GeneratedAt  time.Time
	DatasetRows  int
	GridRowCount int
	Categories   []models.AgeSex
	Rho          float64

	Coefficients []compare.CoefRow
	AIC          []compare.AICRow
	Widths       compare.IntervalWidths
	PlotFiles    []string
	Narrative    string // optional, empty when no API key configured
}

const reportTemplate = `# Haul-out model comparison

Run {{.RunID}}, generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}.
Dataset: {{.DatasetRows}} subject-hours. Prediction grid: {{.GridRowCount}} rows
across {{len .Categories}} categories ({{joinCats .Categories}}).
AR1 working correlation rho = {{printf "%.3f" .Rho}}.

Both forecasting paths use a 1.96 normal multiplier on the logit scale and
the logistic back-transform, so interval widths compare like for like.
{{if .Narrative}}
## Summary

{{.Narrative}}
{{end}}
## GAM variant selection

| model | AIC | EDF | dAIC |
|---|---|---|---|
{{range .AIC}}| {{.Name}} | {{printf "%.2f" .AIC}} | {{printf "%.2f" .EDF}} | {{printf "%.2f" .Delta}} |
{{end}}
## Coefficient comparison

| term | GLMM est (95% CI) | GAM est (95% CI) | flags |
|---|---|---|---|
{{range .Coefficients}}| {{.Term}} | {{glmmCell .}} | {{gamCell .}} | {{flags .}} |
{{end}}
## Interval widths (response scale)

Over {{.Widths.Rows}} matched grid rows: mean width GLMM {{printf "%.4f" .Widths.MeanGLMM}},
GAM {{printf "%.4f" .Widths.MeanGAM}}; max width GLMM {{printf "%.4f" .Widths.MaxGLMM}},
GAM {{printf "%.4f" .Widths.MaxGAM}}.
{{if .PlotFiles}}
## Plots
{{range .PlotFiles}}
![prediction curves]({{.}})
{{end}}{{end}}
## Files

- predictions_glmm.csv, predictions_gam.csv: per-row grid predictions
- coefficients.csv: aligned coefficient tables
- aic.csv: GAM variant selection
`

func funcs() template.FuncMap {
	cell := func(present bool, est, lo, hi float64) string {
		if !present {
			return "-"
		}
		return fmt.Sprintf("%.3f (%.3f, %.3f)", est, lo, hi)
	}
	return template.FuncMap{
		"joinCats": func(cats []models.AgeSex) string {
			out := make([]string, len(cats))
			for i, c := range cats {
				out[i] = string(c)
			}
			return strings.Join(out, ", ")
		},
		"glmmCell": func(r compare.CoefRow) string {
			return cell(r.InGLMM, r.GLMMEstimate, r.GLMMLower, r.GLMMUpper)
		},
		"gamCell": func(r compare.CoefRow) string {
			return cell(r.InGAM, r.GAMEstimate, r.GAMLower, r.GAMUpper)
		},
		"flags": func(r compare.CoefRow) string {
			var f []string
			if r.SignDisagrees {
				f = append(f, "sign")
			}
			if r.CIDisjoint {
				f = append(f, "ci-disjoint")
			}
			if len(f) == 0 {
				return ""
			}
			return strings.Join(f, ", ")
		},
	}
}

// Render writes the Markdown report to outDir/report.md.
func Render(outDir string, in Input) (string, error) {
	tmpl, err := template.New("report").Funcs(funcs()).Parse(reportTemplate)
	if err != nil {
		return "", fmt.Errorf("report: parse template: %w", err)
	}

	path := filepath.Join(outDir, "report.md")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create %s: %w", path, err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, in); err != nil {
		return "", fmt.Errorf("report: render: %w", err)
	}
	return path, nil
}
