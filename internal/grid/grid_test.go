package grid

import (
	"errors"
	"math"
	"testing"

	"github.com/ewhitmore/haulfit/internal/models"
)

// syntheticObs builds deterministic observations for one category over a
// day range with full diurnal coverage.
func syntheticObs(cat models.AgeSex, minYday, maxYday int) []models.Observation {
	var obs []models.Observation
	for d := minYday; d <= maxYday; d++ {
		for h := 0; h < 24; h += 4 {
			obs = append(obs, models.Observation{
				SubjectID: "s-" + string(cat),
				BlockID:   "b1",
				AgeSex:    cat,
				Dry:       (d + h) % 2,
				Yday:      d,
				SolarHour: h,
				Temp:      10 + 5*math.Sin(2*math.Pi*float64(h)/24) + 0.1*float64(d-minYday),
				Wind:      5 + 2*math.Cos(2*math.Pi*float64(h)/24),
				Pressure:  1013 - 0.05*float64(d-minYday),
				Precip:    0.2,
			})
		}
	}
	return obs
}

func TestBuildCoversObservedRange(t *testing.T) {
	obs := syntheticObs(models.AgeSexAdultFemale, 130, 140)
	rows, err := Build(obs, []models.AgeSex{models.AgeSexAdultFemale})
	if err != nil {
		t.Fatal(err)
	}

	wantRows := (140 - 130 + 1) * 24
	if len(rows) != wantRows {
		t.Fatalf("len(rows) = %d, want %d", len(rows), wantRows)
	}

	minY, maxY := rows[0].Yday, rows[0].Yday
	hours := map[int]bool{}
	for _, r := range rows {
		if r.Yday < minY {
			minY = r.Yday
		}
		if r.Yday > maxY {
			maxY = r.Yday
		}
		hours[r.Hour] = true
	}
	if minY != 130 || maxY != 140 {
		t.Errorf("yday range = [%d, %d], want [130, 140]", minY, maxY)
	}
	if len(hours) != 24 {
		t.Errorf("distinct hours = %d, want 24", len(hours))
	}
}

func TestBuildDerivedColumns(t *testing.T) {
	obs := syntheticObs(models.AgeSexSubadult, 130, 135)
	rows, err := Build(obs, []models.AgeSex{models.AgeSexSubadult})
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range rows {
		if got, want := r.WindTemp, r.Wind*r.Temp; math.Abs(got-want) > 1e-12 {
			t.Errorf("row %d: WindTemp = %v, want wind*temp = %v", i, got, want)
		}
		want := models.DeriveFeatures(r.Yday, r.Hour)
		if r.Features != want {
			t.Errorf("row %d: features not derived from (yday, hour)", i)
		}
	}
}

func TestBuildCanonicalCategoryOrder(t *testing.T) {
	obs := append(
		syntheticObs(models.AgeSexYoungOfYear, 130, 132),
		syntheticObs(models.AgeSexAdultFemale, 140, 142)...,
	)
	// Request in reverse order; output must still be canonical.
	rows, err := Build(obs, []models.AgeSex{models.AgeSexYoungOfYear, models.AgeSexAdultFemale})
	if err != nil {
		t.Fatal(err)
	}

	if rows[0].AgeSex != models.AgeSexAdultFemale {
		t.Errorf("first category = %s, want adult_female", rows[0].AgeSex)
	}
	if rows[len(rows)-1].AgeSex != models.AgeSexYoungOfYear {
		t.Errorf("last category = %s, want young_of_year", rows[len(rows)-1].AgeSex)
	}

	// Per-category day ranges are independent.
	for _, r := range rows {
		switch r.AgeSex {
		case models.AgeSexAdultFemale:
			if r.Yday < 140 || r.Yday > 142 {
				t.Errorf("adult_female yday %d outside [140, 142]", r.Yday)
			}
		case models.AgeSexYoungOfYear:
			if r.Yday < 130 || r.Yday > 132 {
				t.Errorf("young_of_year yday %d outside [130, 132]", r.Yday)
			}
		}
	}
}

func TestBuildMissingCategory(t *testing.T) {
	obs := syntheticObs(models.AgeSexAdultFemale, 130, 135)
	_, err := Build(obs, []models.AgeSex{models.AgeSexAdultMale})
	if !errors.Is(err, ErrCategoryMissing) {
		t.Fatalf("err = %v, want ErrCategoryMissing", err)
	}
}

func TestBuildDeterministic(t *testing.T) {
	obs := syntheticObs(models.AgeSexAdultMale, 130, 138)
	a, err := Build(obs, []models.AgeSex{models.AgeSexAdultMale})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(obs, []models.AgeSex{models.AgeSexAdultMale})
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs between rebuilds", i)
		}
	}
}
