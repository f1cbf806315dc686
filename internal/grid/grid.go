// Package grid builds the synthetic prediction grid: one row per
// (age/sex category, day of year, hour) combination, with weather
// covariates replaced by smoothed expected surfaces fitted per category.
package grid

import (
	"errors"
	"fmt"

	"github.com/ewhitmore/haulfit/internal/models"
	"github.com/ewhitmore/haulfit/internal/smooth"
)

// ErrCategoryMissing is returned when a requested category has no training
// rows.
var ErrCategoryMissing = errors.New("grid: category not present in training data")

// Build constructs the grid for the requested categories. Day of year
// spans the observed [min, max] per category; hours run 0-23. Categories
// appear in canonical order regardless of request order, because report
// facets depend on it.
//
// Per-covariate smoothing is deliberately independent: pressure and
// precipitation are smoothed on day of year, temperature and wind on day
// of year and hour. No cross-covariate correlation is preserved.
func Build(obs []models.Observation, categories []models.AgeSex) ([]models.GridRow, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("grid: no training observations")
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("grid: no categories requested")
	}

	byCat := make(map[models.AgeSex][]models.Observation)
	for _, o := range obs {
		byCat[o.AgeSex] = append(byCat[o.AgeSex], o)
	}

	requested := make(map[models.AgeSex]bool, len(categories))
	for _, c := range categories {
		if _, ok := byCat[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrCategoryMissing, c)
		}
		requested[c] = true
	}

	var rows []models.GridRow
	for _, cat := range models.CanonicalAgeSexOrder() {
		if !requested[cat] {
			continue
		}
		catRows, err := buildCategory(cat, byCat[cat])
		if err != nil {
			return nil, fmt.Errorf("grid: category %s: %w", cat, err)
		}
		rows = append(rows, catRows...)
	}
	return rows, nil
}

func buildCategory(cat models.AgeSex, obs []models.Observation) ([]models.GridRow, error) {
	n := len(obs)
	yday := make([]float64, n)
	hour := make([]float64, n)
	temp := make([]float64, n)
	wind := make([]float64, n)
	pressure := make([]float64, n)
	precip := make([]float64, n)

	minYday, maxYday := obs[0].Yday, obs[0].Yday
	for i, o := range obs {
		yday[i] = float64(o.Yday)
		hour[i] = float64(o.SolarHour)
		temp[i] = o.Temp
		wind[i] = o.Wind
		pressure[i] = o.Pressure
		precip[i] = o.Precip
		if o.Yday < minYday {
			minYday = o.Yday
		}
		if o.Yday > maxYday {
			maxYday = o.Yday
		}
	}

	pressureS, err := smooth.FitYday(yday, pressure)
	if err != nil {
		return nil, fmt.Errorf("smooth pressure: %w", err)
	}
	precipS, err := smooth.FitYday(yday, precip)
	if err != nil {
		return nil, fmt.Errorf("smooth precip: %w", err)
	}
	tempS, err := smooth.FitYdayHour(yday, hour, temp)
	if err != nil {
		return nil, fmt.Errorf("smooth temp: %w", err)
	}
	windS, err := smooth.FitYdayHour(yday, hour, wind)
	if err != nil {
		return nil, fmt.Errorf("smooth wind: %w", err)
	}

	rows := make([]models.GridRow, 0, (maxYday-minYday+1)*24)
	for d := minYday; d <= maxYday; d++ {
		for h := 0; h < 24; h++ {
			fd, fh := float64(d), float64(h)
			t := tempS.At(fd, fh)
			w := windS.At(fd, fh)
			rows = append(rows, models.GridRow{
				AgeSex:   cat,
				Yday:     d,
				Hour:     h,
				Temp:     t,
				Wind:     w,
				Pressure: pressureS.At(fd, fh),
				Precip:   precipS.At(fd, fh),
				WindTemp: w * t,
				Features: models.DeriveFeatures(d, h),
			})
		}
	}
	return rows, nil
}
