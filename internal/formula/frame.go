package formula

import (
	"fmt"

	"github.com/ewhitmore/haulfit/internal/models"
)

// Frame is a column-oriented table of numeric and factor columns, the input
// to design-matrix construction and to the GAM fitter.
type Frame struct {
	n       int
	numeric map[string][]float64
	factors map[string][]string
	levels  map[string][]string
	order   []string
}

func NewFrame(n int) *Frame {
	return &Frame{
		n:       n,
		numeric: make(map[string][]float64),
		factors: make(map[string][]string),
		levels:  make(map[string][]string),
	}
}

func (f *Frame) Len() int { return f.n }

func (f *Frame) AddNumeric(name string, vals []float64) error {
	if len(vals) != f.n {
		return fmt.Errorf("column %s: %d values for frame of %d rows", name, len(vals), f.n)
	}
	if _, ok := f.numeric[name]; ok {
		return fmt.Errorf("column %s already present", name)
	}
	if _, ok := f.factors[name]; ok {
		return fmt.Errorf("column %s already present as factor", name)
	}
	f.numeric[name] = vals
	f.order = append(f.order, name)
	return nil
}

// AddFactor adds a categorical column. The levels slice fixes dummy-coding
// order; the first level is the reference.
func (f *Frame) AddFactor(name string, vals []string, levels []string) error {
	if len(vals) != f.n {
		return fmt.Errorf("column %s: %d values for frame of %d rows", name, len(vals), f.n)
	}
	if len(levels) == 0 {
		return fmt.Errorf("column %s: no levels declared", name)
	}
	if _, ok := f.factors[name]; ok {
		return fmt.Errorf("column %s already present", name)
	}
	if _, ok := f.numeric[name]; ok {
		return fmt.Errorf("column %s already present as numeric", name)
	}
	f.factors[name] = vals
	f.levels[name] = levels
	f.order = append(f.order, name)
	return nil
}

func (f *Frame) Numeric(name string) ([]float64, bool) {
	v, ok := f.numeric[name]
	return v, ok
}

func (f *Frame) Factor(name string) (vals []string, levels []string, ok bool) {
	v, found := f.factors[name]
	if !found {
		return nil, nil, false
	}
	return v, f.levels[name], true
}

func (f *Frame) HasColumn(name string) bool {
	if _, ok := f.numeric[name]; ok {
		return true
	}
	_, ok := f.factors[name]
	return ok
}

func ageSexLevels() []string {
	canonical := models.CanonicalAgeSexOrder()
	levels := make([]string, len(canonical))
	for i, c := range canonical {
		levels[i] = string(c)
	}
	return levels
}

// FrameFromObservations builds the training frame consumed by the GAM
// fitter, including the response and grouping columns.
func FrameFromObservations(obs []models.Observation) (*Frame, error) {
	n := len(obs)
	fr := NewFrame(n)

	dry := make([]float64, n)
	yday := make([]float64, n)
	hour := make([]float64, n)
	temp := make([]float64, n)
	wind := make([]float64, n)
	pressure := make([]float64, n)
	precip := make([]float64, n)
	windtemp := make([]float64, n)
	start := make([]float64, n)
	agesex := make([]string, n)
	subject := make([]string, n)

	feat := map[string][]float64{
		"sin1": make([]float64, n), "cos1": make([]float64, n),
		"sin2": make([]float64, n), "cos2": make([]float64, n),
		"sin3": make([]float64, n), "cos3": make([]float64, n),
		"day": make([]float64, n), "day2": make([]float64, n),
		"day3": make([]float64, n), "day4": make([]float64, n),
	}

	subjectLevels := []string{}
	seenSubject := map[string]bool{}

	for i, o := range obs {
		dry[i] = float64(o.Dry)
		yday[i] = float64(o.Yday)
		hour[i] = float64(o.SolarHour)
		temp[i] = o.Temp
		wind[i] = o.Wind
		pressure[i] = o.Pressure
		precip[i] = o.Precip
		windtemp[i] = o.WindTemp
		if o.StartOfBlock {
			start[i] = 1
		}
		agesex[i] = string(o.AgeSex)
		subject[i] = o.SubjectID
		if !seenSubject[o.SubjectID] {
			seenSubject[o.SubjectID] = true
			subjectLevels = append(subjectLevels, o.SubjectID)
		}

		ft := models.DeriveFeatures(o.Yday, o.SolarHour)
		feat["sin1"][i], feat["cos1"][i] = ft.Sin1, ft.Cos1
		feat["sin2"][i], feat["cos2"][i] = ft.Sin2, ft.Cos2
		feat["sin3"][i], feat["cos3"][i] = ft.Sin3, ft.Cos3
		feat["day"][i], feat["day2"][i] = ft.Day, ft.Day2
		feat["day3"][i], feat["day4"][i] = ft.Day3, ft.Day4
	}

	cols := []struct {
		name string
		vals []float64
	}{
		{"dry", dry}, {"yday", yday}, {"solar_hour", hour},
		{"temp", temp}, {"wind", wind}, {"pressure", pressure},
		{"precip", precip}, {"windtemp", windtemp}, {"start_of_block", start},
		{"sin1", feat["sin1"]}, {"cos1", feat["cos1"]},
		{"sin2", feat["sin2"]}, {"cos2", feat["cos2"]},
		{"sin3", feat["sin3"]}, {"cos3", feat["cos3"]},
		{"day", feat["day"]}, {"day2", feat["day2"]},
		{"day3", feat["day3"]}, {"day4", feat["day4"]},
	}
	for _, c := range cols {
		if err := fr.AddNumeric(c.name, c.vals); err != nil {
			return nil, err
		}
	}
	if err := fr.AddFactor("agesex", agesex, ageSexLevels()); err != nil {
		return nil, err
	}
	if err := fr.AddFactor("subject", subject, subjectLevels); err != nil {
		return nil, err
	}
	return fr, nil
}

// FrameFromGrid builds the prediction frame for the synthetic grid. The
// placeholder subject satisfies prediction interfaces that require the
// grouping column to exist even when its term is excluded.
func FrameFromGrid(rows []models.GridRow, placeholderSubject string) (*Frame, error) {
	n := len(rows)
	fr := NewFrame(n)

	yday := make([]float64, n)
	hour := make([]float64, n)
	temp := make([]float64, n)
	wind := make([]float64, n)
	pressure := make([]float64, n)
	precip := make([]float64, n)
	windtemp := make([]float64, n)
	agesex := make([]string, n)
	subject := make([]string, n)

	feat := map[string][]float64{
		"sin1": make([]float64, n), "cos1": make([]float64, n),
		"sin2": make([]float64, n), "cos2": make([]float64, n),
		"sin3": make([]float64, n), "cos3": make([]float64, n),
		"day": make([]float64, n), "day2": make([]float64, n),
		"day3": make([]float64, n), "day4": make([]float64, n),
	}

	for i, r := range rows {
		yday[i] = float64(r.Yday)
		hour[i] = float64(r.Hour)
		temp[i] = r.Temp
		wind[i] = r.Wind
		pressure[i] = r.Pressure
		precip[i] = r.Precip
		windtemp[i] = r.WindTemp
		agesex[i] = string(r.AgeSex)
		subject[i] = placeholderSubject

		feat["sin1"][i], feat["cos1"][i] = r.Sin1, r.Cos1
		feat["sin2"][i], feat["cos2"][i] = r.Sin2, r.Cos2
		feat["sin3"][i], feat["cos3"][i] = r.Sin3, r.Cos3
		feat["day"][i], feat["day2"][i] = r.Day, r.Day2
		feat["day3"][i], feat["day4"][i] = r.Day3, r.Day4
	}

	cols := []struct {
		name string
		vals []float64
	}{
		{"yday", yday}, {"solar_hour", hour},
		{"temp", temp}, {"wind", wind}, {"pressure", pressure},
		{"precip", precip}, {"windtemp", windtemp},
		{"sin1", feat["sin1"]}, {"cos1", feat["cos1"]},
		{"sin2", feat["sin2"]}, {"cos2", feat["cos2"]},
		{"sin3", feat["sin3"]}, {"cos3", feat["cos3"]},
		{"day", feat["day"]}, {"day2", feat["day2"]},
		{"day3", feat["day3"]}, {"day4", feat["day4"]},
	}
	for _, c := range cols {
		if err := fr.AddNumeric(c.name, c.vals); err != nil {
			return nil, err
		}
	}
	if err := fr.AddFactor("agesex", agesex, ageSexLevels()); err != nil {
		return nil, err
	}
	if err := fr.AddFactor("subject", subject, []string{placeholderSubject}); err != nil {
		return nil, err
	}
	return fr, nil
}
