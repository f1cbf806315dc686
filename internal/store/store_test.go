package store

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/ewhitmore/haulfit/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestCreateAndGetRun(t *testing.T) {
	store := setupTestStore(t)

	id, err := store.CreateRun("test run")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.UpdateRunCounts(id, 100, 2400); err != nil {
		t.Fatalf("UpdateRunCounts: %v", err)
	}

	run, err := store.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run == nil {
		t.Fatal("GetRun returned nil")
	}
	if run.DatasetRows != 100 || run.GridRows != 2400 {
		t.Errorf("counts = %d, %d, want 100, 2400", run.DatasetRows, run.GridRows)
	}
	if run.Note != "test run" {
		t.Errorf("Note = %q", run.Note)
	}

	missing, err := store.GetRun(id + 99)
	if err != nil {
		t.Fatalf("GetRun missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing run")
	}
}

func TestLatestRun(t *testing.T) {
	store := setupTestStore(t)

	none, err := store.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun empty: %v", err)
	}
	if none != nil {
		t.Error("expected nil with no runs")
	}

	if _, err := store.CreateRun("first"); err != nil {
		t.Fatal(err)
	}
	second, err := store.CreateRun("second")
	if err != nil {
		t.Fatal(err)
	}

	latest, err := store.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest == nil || latest.ID != second {
		t.Errorf("latest = %+v, want id %d", latest, second)
	}
}

func TestReplaceAndGetObservations(t *testing.T) {
	store := setupTestStore(t)

	obs := []models.Observation{
		{
			SubjectID: "s1", BlockID: "b1", StartOfBlock: true,
			AgeSex: models.AgeSexAdultFemale, Dry: 1, Yday: 120, SolarHour: 3,
			Temp: 4.5, Wind: 3.0, Pressure: 1012, Precip: 0.1, WindTemp: 13.5,
		},
		{
			SubjectID: "s1", BlockID: "b1",
			AgeSex: models.AgeSexAdultFemale, Dry: 0, Yday: 120, SolarHour: 4,
			Temp: 4.0, Wind: 3.5, Pressure: 1012, Precip: 0, WindTemp: 14,
		},
	}
	if err := store.ReplaceObservations(obs); err != nil {
		t.Fatalf("ReplaceObservations: %v", err)
	}

	got, err := store.GetObservations()
	if err != nil {
		t.Fatalf("GetObservations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].SubjectID != "s1" || !got[0].StartOfBlock || got[0].Dry != 1 {
		t.Errorf("first row = %+v", got[0])
	}
	if got[1].StartOfBlock {
		t.Error("second row should not be a block start")
	}
	if got[0].AgeSex != models.AgeSexAdultFemale {
		t.Errorf("AgeSex = %q", got[0].AgeSex)
	}

	// Replace drops the previous dataset.
	if err := store.ReplaceObservations(obs[:1]); err != nil {
		t.Fatalf("ReplaceObservations again: %v", err)
	}
	got, err = store.GetObservations()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("len after replace = %d, want 1", len(got))
	}
}

func TestReplaceAndGetGridRows(t *testing.T) {
	store := setupTestStore(t)
	runID, err := store.CreateRun("grid")
	if err != nil {
		t.Fatal(err)
	}

	grid := []models.GridRow{
		{AgeSex: models.AgeSexSubadult, Yday: 130, Hour: 0, Temp: 5, Wind: 2, Pressure: 1010, Precip: 0, WindTemp: 10},
		{AgeSex: models.AgeSexSubadult, Yday: 130, Hour: 1, Temp: 5.1, Wind: 2.1, Pressure: 1010, Precip: 0, WindTemp: 10.71},
	}
	if err := store.ReplaceGridRows(runID, grid); err != nil {
		t.Fatalf("ReplaceGridRows: %v", err)
	}

	got, err := store.GetGridRows(runID)
	if err != nil {
		t.Fatalf("GetGridRows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].Hour != 1 || got[1].Temp != 5.1 {
		t.Errorf("row 1 = %+v", got[1])
	}
	// Features are re-derived on load, not stored.
	want := models.DeriveFeatures(130, 1)
	if got[1].Features != want {
		t.Error("features not re-derived from (yday, hour)")
	}
}

func TestUpsertPredictionsAndCoefficients(t *testing.T) {
	store := setupTestStore(t)
	runID, err := store.CreateRun("predict")
	if err != nil {
		t.Fatal(err)
	}

	preds := []models.Prediction{
		{Path: "glmm", RowIndex: 0, Logit: -0.5, SE: 0.2, Prob: 0.378, Lower95: 0.3, Upper95: 0.46},
	}
	if err := store.UpsertPredictions(runID, preds); err != nil {
		t.Fatalf("UpsertPredictions: %v", err)
	}

	// Upsert overwrites in place.
	preds[0].Logit = -0.4
	if err := store.UpsertPredictions(runID, preds); err != nil {
		t.Fatalf("UpsertPredictions update: %v", err)
	}

	got, err := store.GetPredictions(runID, "glmm")
	if err != nil {
		t.Fatalf("GetPredictions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Logit != -0.4 {
		t.Errorf("Logit = %v, want -0.4 after upsert", got[0].Logit)
	}

	coefs := []models.Coefficient{
		{Term: "(Intercept)", Estimate: -1.2, SE: 0.4, HasSE: true},
		{Term: "aliased", Estimate: 3.0},
	}
	if err := store.UpsertCoefficients(runID, "glmm", coefs); err != nil {
		t.Fatalf("UpsertCoefficients: %v", err)
	}
	gotCoefs, err := store.GetCoefficients(runID, "glmm")
	if err != nil {
		t.Fatalf("GetCoefficients: %v", err)
	}
	if len(gotCoefs) != 2 {
		t.Fatalf("len = %d, want 2", len(gotCoefs))
	}
	byTerm := map[string]models.Coefficient{}
	for _, c := range gotCoefs {
		byTerm[c.Term] = c
	}
	if c := byTerm["(Intercept)"]; !c.HasSE || c.SE != 0.4 {
		t.Errorf("intercept = %+v", c)
	}
	if c := byTerm["aliased"]; c.HasSE {
		t.Error("aliased coefficient should round-trip without SE")
	}
}
