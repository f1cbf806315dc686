package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ewhitmore/haulfit/internal/artifact"
	"github.com/ewhitmore/haulfit/internal/compare"
	"github.com/ewhitmore/haulfit/internal/forecast"
	"github.com/ewhitmore/haulfit/internal/formula"
	"github.com/ewhitmore/haulfit/internal/gam"
	"github.com/ewhitmore/haulfit/internal/grid"
	"github.com/ewhitmore/haulfit/internal/ingest"
	"github.com/ewhitmore/haulfit/internal/metrics"
	"github.com/ewhitmore/haulfit/internal/models"
	"github.com/ewhitmore/haulfit/internal/plot"
	"github.com/ewhitmore/haulfit/internal/report"
)

// placeholderSubject fills the grouping column on prediction frames. The
// subject smooth is excluded at prediction time, so the value never
// influences output.
const placeholderSubject = "population"

func observeStage(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

type ingestCmd struct {
	Source string `arg:"" help:"Dataset source: local CSV path, http(s) URL, or ftp://host/path."`
}

func (c *ingestCmd) Run(app *appContext) error {
	defer observeStage("ingest", time.Now())

	var obs []models.Observation
	if _, err := os.Stat(c.Source); err == nil {
		f, err := os.Open(c.Source)
		if err != nil {
			return fmt.Errorf("ingest: open %s: %w", c.Source, err)
		}
		defer f.Close()
		obs, err = ingest.ParseObservations(f)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
	} else {
		var err error
		obs, err = ingest.Fetch(c.Source)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
	}

	if err := ingest.Validate(obs); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := app.store.ReplaceObservations(obs); err != nil {
		return fmt.Errorf("ingest: persist: %w", err)
	}
	metrics.ObservationsIngested.Add(float64(len(obs)))
	log.Printf("ingest: stored %d observations", len(obs))
	return nil
}

type gridCmd struct {
	Categories []string `help:"Age/sex categories to include (default: all present in the data)."`
}

func (c *gridCmd) Run(app *appContext) error {
	defer observeStage("grid", time.Now())

	obs, err := app.store.GetObservations()
	if err != nil {
		return fmt.Errorf("grid construction: load observations: %w", err)
	}
	if len(obs) == 0 {
		return fmt.Errorf("grid construction: no observations ingested")
	}

	cats, err := resolveCategories(c.Categories, obs)
	if err != nil {
		return fmt.Errorf("grid construction: %w", err)
	}

	rows, err := grid.Build(obs, cats)
	if err != nil {
		return fmt.Errorf("grid construction: %w", err)
	}

	runID, err := app.store.CreateRun("grid build")
	if err != nil {
		return fmt.Errorf("grid construction: create run: %w", err)
	}
	if err := app.store.ReplaceGridRows(runID, rows); err != nil {
		return fmt.Errorf("grid construction: persist: %w", err)
	}
	if err := app.store.UpdateRunCounts(runID, len(obs), len(rows)); err != nil {
		return fmt.Errorf("grid construction: update run: %w", err)
	}
	metrics.GridRowsBuilt.Add(float64(len(rows)))
	log.Printf("grid: run %d, %d rows across %d categories", runID, len(rows), len(cats))
	return nil
}

// resolveCategories validates requested categories, or infers the set
// present in the data, in canonical order either way.
func resolveCategories(requested []string, obs []models.Observation) ([]models.AgeSex, error) {
	if len(requested) > 0 {
		out := make([]models.AgeSex, 0, len(requested))
		for _, s := range requested {
			c, err := models.ParseAgeSex(s)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	}
	present := map[models.AgeSex]bool{}
	for _, o := range obs {
		present[o.AgeSex] = true
	}
	var out []models.AgeSex
	for _, c := range models.CanonicalAgeSexOrder() {
		if present[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

// gamSpec is the model specification shared by every GAM fit: the same
// fixed-effect structure as the GLMM, with the day polynomial replaced by
// a penalized smooth of day of year and a per-subject random-effect term.
func gamSpec() gam.Spec {
	return gam.Spec{
		Response: "dry",
		Parametric: []string{
			"sin1", "cos1", "sin2", "cos2", "sin3", "cos3",
			"temp", "wind", "windtemp", "pressure", "precip",
		},
		Factor:     "agesex",
		SmoothVar:  "yday",
		SubjectVar: "subject",
	}
}

type predictCmd struct {
	Artifact string `required:"" help:"Path to the persisted GLMM artifact (JSON)." env:"HAULFIT_ARTIFACT"`
}

func (c *predictCmd) Run(app *appContext) error {
	run, err := app.store.LatestRun()
	if err != nil {
		return fmt.Errorf("predict: load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("predict: no grid built yet")
	}

	obs, err := app.store.GetObservations()
	if err != nil {
		return fmt.Errorf("predict: load observations: %w", err)
	}
	gridRows, err := app.store.GetGridRows(run.ID)
	if err != nil {
		return fmt.Errorf("predict: load grid: %w", err)
	}

	gridFrame, err := formula.FrameFromGrid(gridRows, placeholderSubject)
	if err != nil {
		return fmt.Errorf("predict: build grid frame: %w", err)
	}

	// GLMM path.
	start := time.Now()
	glmmModel, err := artifact.Load(c.Artifact)
	if err != nil {
		return fmt.Errorf("glmm prediction: %w", err)
	}
	glmmRes, err := forecast.PredictGLMM(glmmModel, gridFrame)
	if err != nil {
		return fmt.Errorf("glmm prediction: %w", err)
	}
	if err := app.store.UpsertPredictions(run.ID, toPredictions("glmm", glmmRes)); err != nil {
		return fmt.Errorf("glmm prediction: persist: %w", err)
	}
	if err := app.store.UpsertCoefficients(run.ID, "glmm", glmmModel.Coefficients); err != nil {
		return fmt.Errorf("glmm prediction: persist coefficients: %w", err)
	}
	metrics.PredictionsComputed.WithLabelValues("glmm").Add(float64(glmmRes.Len()))
	observeStage("predict_glmm", start)
	log.Printf("predict: glmm path, %d rows", glmmRes.Len())

	// GAM path.
	start = time.Now()
	trainFrame, err := formula.FrameFromObservations(obs)
	if err != nil {
		return fmt.Errorf("gam prediction: build training frame: %w", err)
	}
	cfg := gam.DefaultConfig()
	cfg.Rho = app.cli.Rho
	fit, err := gam.Fit(gamSpec(), trainFrame, cfg)
	if err != nil {
		return fmt.Errorf("gam prediction: fit: %w", err)
	}
	gamRes, err := forecast.PredictGAM(fit, gridFrame)
	if err != nil {
		return fmt.Errorf("gam prediction: %w", err)
	}
	if err := app.store.UpsertPredictions(run.ID, toPredictions("gam", gamRes)); err != nil {
		return fmt.Errorf("gam prediction: persist: %w", err)
	}
	if err := app.store.UpsertCoefficients(run.ID, "gam", fit.Coefficients()); err != nil {
		return fmt.Errorf("gam prediction: persist coefficients: %w", err)
	}
	metrics.PredictionsComputed.WithLabelValues("gam").Add(float64(gamRes.Len()))
	observeStage("predict_gam", start)
	log.Printf("predict: gam path, %d rows (edf %.1f, %d iterations)", gamRes.Len(), fit.EDF(), fit.Iterations())
	return nil
}

func toPredictions(path string, res *forecast.Result) []models.Prediction {
	out := make([]models.Prediction, res.Len())
	for i := range out {
		out[i] = models.Prediction{
			Path:     path,
			RowIndex: i,
			Logit:    res.Logit[i],
			SE:       res.SE[i],
			Prob:     res.Prob[i],
			Lower95:  res.Lower95[i],
			Upper95:  res.Upper95[i],
		}
	}
	return out
}

type reportCmd struct {
	SkipNarrative bool `help:"Skip the LLM-generated summary even if OPENAI_API_KEY is set."`
}

func (c *reportCmd) Run(app *appContext) error {
	defer observeStage("report", time.Now())

	run, err := app.store.LatestRun()
	if err != nil {
		return fmt.Errorf("report: load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("report: no run found")
	}

	gridRows, err := app.store.GetGridRows(run.ID)
	if err != nil {
		return fmt.Errorf("report: load grid: %w", err)
	}
	glmmPreds, err := app.store.GetPredictions(run.ID, "glmm")
	if err != nil {
		return fmt.Errorf("report: load glmm predictions: %w", err)
	}
	gamPreds, err := app.store.GetPredictions(run.ID, "gam")
	if err != nil {
		return fmt.Errorf("report: load gam predictions: %w", err)
	}
	if len(glmmPreds) == 0 || len(gamPreds) == 0 {
		return fmt.Errorf("report: predictions missing; run predict first")
	}
	glmmCoefs, err := app.store.GetCoefficients(run.ID, "glmm")
	if err != nil {
		return fmt.Errorf("report: load glmm coefficients: %w", err)
	}
	gamCoefs, err := app.store.GetCoefficients(run.ID, "gam")
	if err != nil {
		return fmt.Errorf("report: load gam coefficients: %w", err)
	}

	// Fit the GAM variants for the selection table: independence working
	// model vs AR1 within blocks.
	obs, err := app.store.GetObservations()
	if err != nil {
		return fmt.Errorf("report: load observations: %w", err)
	}
	trainFrame, err := formula.FrameFromObservations(obs)
	if err != nil {
		return fmt.Errorf("report: build training frame: %w", err)
	}
	var aicRows []compare.AICRow
	for _, variant := range []struct {
		name string
		rho  float64
	}{
		{"gam_independence", 0},
		{"gam_ar1", app.cli.Rho},
	} {
		cfg := gam.DefaultConfig()
		cfg.Rho = variant.rho
		fit, err := gam.Fit(gamSpec(), trainFrame, cfg)
		if err != nil {
			return fmt.Errorf("report: fit %s: %w", variant.name, err)
		}
		aicRows = append(aicRows, compare.AICRow{Name: variant.name, AIC: fit.AIC(), EDF: fit.EDF()})
	}

	coefRows := compare.Coefficients(glmmCoefs, gamCoefs)
	widths := compare.Widths(glmmPreds, gamPreds)
	cats := categoriesOf(gridRows)

	plotFiles, err := renderPlots(app.cli.OutDir, gridRows, glmmPreds, gamPreds, cats)
	if err != nil {
		return fmt.Errorf("report: plots: %w", err)
	}

	in := report.Input{
		RunID:        run.ID,
		GeneratedAt:  time.Now(),
		DatasetRows:  len(obs),
		GridRowCount: len(gridRows),
		Categories:   cats,
		Rho:          app.cli.Rho,
		Coefficients: coefRows,
		AIC:          compare.AICTable(aicRows),
		Widths:       widths,
		PlotFiles:    plotFiles,
	}

	if !c.SkipNarrative {
		if gen, err := report.NewNarrativeGenerator(); err != nil {
			log.Printf("report: narrative skipped: %v", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			narrative, err := gen.Generate(ctx, in)
			cancel()
			if err != nil {
				log.Printf("report: narrative skipped: %v", err)
			} else {
				in.Narrative = narrative
			}
		}
	}

	out := app.cli.OutDir
	if err := report.WritePredictionsCSV(filepath.Join(out, "predictions_glmm.csv"), gridRows, glmmPreds); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := report.WritePredictionsCSV(filepath.Join(out, "predictions_gam.csv"), gridRows, gamPreds); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := report.WriteCoefficientsCSV(filepath.Join(out, "coefficients.csv"), coefRows); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := report.WriteAICCSV(filepath.Join(out, "aic.csv"), in.AIC); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	path, err := report.Render(out, in)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	log.Printf("report: written to %s", path)
	return nil
}

func categoriesOf(rows []models.GridRow) []models.AgeSex {
	seen := map[models.AgeSex]bool{}
	var out []models.AgeSex
	for _, r := range rows {
		if !seen[r.AgeSex] {
			seen[r.AgeSex] = true
			out = append(out, r.AgeSex)
		}
	}
	return out
}

// renderPlots draws one hour-profile plot per category at the midpoint of
// that category's day-of-year range.
func renderPlots(outDir string, gridRows []models.GridRow, glmmPreds, gamPreds []models.Prediction, cats []models.AgeSex) ([]string, error) {
	glmmByRow := map[int]models.Prediction{}
	for _, p := range glmmPreds {
		glmmByRow[p.RowIndex] = p
	}
	gamByRow := map[int]models.Prediction{}
	for _, p := range gamPreds {
		gamByRow[p.RowIndex] = p
	}

	var files []string
	for _, cat := range cats {
		minY, maxY := 0, 0
		first := true
		for _, r := range gridRows {
			if r.AgeSex != cat {
				continue
			}
			if first || r.Yday < minY {
				minY = r.Yday
			}
			if first || r.Yday > maxY {
				maxY = r.Yday
			}
			first = false
		}
		if first {
			continue
		}
		midYday := (minY + maxY) / 2

		var hours []int
		series := []plot.Series{
			{Label: "GLMM", Color: plot.PathColor("glmm")},
			{Label: "GAM", Color: plot.PathColor("gam")},
		}
		for i, r := range gridRows {
			if r.AgeSex != cat || r.Yday != midYday {
				continue
			}
			gp, ok1 := glmmByRow[i]
			ap, ok2 := gamByRow[i]
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("missing prediction for grid row %d", i)
			}
			hours = append(hours, r.Hour)
			series[0].Prob = append(series[0].Prob, gp.Prob)
			series[0].Lower = append(series[0].Lower, gp.Lower95)
			series[0].Upper = append(series[0].Upper, gp.Upper95)
			series[1].Prob = append(series[1].Prob, ap.Prob)
			series[1].Lower = append(series[1].Lower, ap.Lower95)
			series[1].Upper = append(series[1].Upper, ap.Upper95)
		}

		name := fmt.Sprintf("curves_%s_day%d.png", cat, midYday)
		title := fmt.Sprintf("%s, day %d: haul-out probability by hour", cat, midYday)
		if err := plot.RenderHourProfile(filepath.Join(outDir, name), title, hours, series); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	return files, nil
}

type runCmd struct {
	Source   string `arg:"" help:"Dataset source: local CSV path, http(s) URL, or ftp://host/path."`
	Artifact string `required:"" help:"Path to the persisted GLMM artifact (JSON)." env:"HAULFIT_ARTIFACT"`

	Categories    []string `help:"Age/sex categories to include (default: all present in the data)."`
	SkipNarrative bool     `help:"Skip the LLM-generated summary even if OPENAI_API_KEY is set."`
}

func (c *runCmd) Run(app *appContext) error {
	steps := []struct {
		name string
		cmd  interface{ Run(*appContext) error }
	}{
		{"ingest", &ingestCmd{Source: c.Source}},
		{"grid", &gridCmd{Categories: c.Categories}},
		{"predict", &predictCmd{Artifact: c.Artifact}},
		{"report", &reportCmd{SkipNarrative: c.SkipNarrative}},
	}
	for _, s := range steps {
		if err := s.cmd.Run(app); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
