package ingest

import (
	"strings"
	"testing"

	"github.com/ewhitmore/haulfit/internal/models"
)

const sampleCSV = `subject_id,block_id,dry,agesex,yday,solar_hour,temp,wind,pressure,precip
s1,b1,1,adult_female,120,0,4.5,3.0,1012,0
s1,b1,0,adult_female,120,1,4.0,3.5,1012,0
s1,b2,1,adult_female,121,0,5.0,2.0,1011,0.2
s2,b1,0,adult_male,120,0,4.5,3.0,1012,0
`

func TestParseObservations(t *testing.T) {
	obs, err := ParseObservations(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 4 {
		t.Fatalf("len(obs) = %d, want 4", len(obs))
	}

	first := obs[0]
	if first.SubjectID != "s1" || first.BlockID != "b1" || first.Dry != 1 {
		t.Errorf("first row = %+v", first)
	}
	if first.AgeSex != models.AgeSexAdultFemale {
		t.Errorf("AgeSex = %q", first.AgeSex)
	}
	if first.WindTemp != 4.5*3.0 {
		t.Errorf("WindTemp = %v, want derived wind*temp", first.WindTemp)
	}

	// Block starts: row 0 (first), row 2 (new block), row 3 (new subject).
	wantStarts := []bool{true, false, true, true}
	for i, want := range wantStarts {
		if obs[i].StartOfBlock != want {
			t.Errorf("row %d: StartOfBlock = %v, want %v", i, obs[i].StartOfBlock, want)
		}
	}
}

func TestParseObservationsExplicitWindTemp(t *testing.T) {
	csv := `subject_id,block_id,dry,agesex,yday,solar_hour,temp,wind,pressure,precip,windtemp
s1,b1,1,subadult,100,5,10,2,1000,0,99.5
`
	obs, err := ParseObservations(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if obs[0].WindTemp != 99.5 {
		t.Errorf("WindTemp = %v, want explicit 99.5", obs[0].WindTemp)
	}
}

func TestParseObservationsErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{
			name: "missing column",
			csv:  "subject_id,block_id,dry,agesex,yday,solar_hour,temp,wind,pressure\ns1,b1,1,subadult,100,5,10,2,1000\n",
		},
		{
			name: "bad category",
			csv:  "subject_id,block_id,dry,agesex,yday,solar_hour,temp,wind,pressure,precip\ns1,b1,1,pup,100,5,10,2,1000,0\n",
		},
		{
			name: "non-numeric value",
			csv:  "subject_id,block_id,dry,agesex,yday,solar_hour,temp,wind,pressure,precip\ns1,b1,1,subadult,100,5,cold,2,1000,0\n",
		},
		{
			name: "no data rows",
			csv:  "subject_id,block_id,dry,agesex,yday,solar_hour,temp,wind,pressure,precip\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseObservations(strings.NewReader(tt.csv)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func validObs() []models.Observation {
	return []models.Observation{
		{SubjectID: "s1", BlockID: "b1", StartOfBlock: true, Dry: 1, Yday: 120, SolarHour: 0},
		{SubjectID: "s1", BlockID: "b1", Dry: 0, Yday: 120, SolarHour: 1},
		{SubjectID: "s1", BlockID: "b2", StartOfBlock: true, Dry: 1, Yday: 121, SolarHour: 0},
		{SubjectID: "s2", BlockID: "b1", StartOfBlock: true, Dry: 0, Yday: 120, SolarHour: 0},
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validObs()); err != nil {
		t.Fatalf("valid dataset rejected: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]models.Observation) []models.Observation
	}{
		{
			name:   "empty",
			mutate: func([]models.Observation) []models.Observation { return nil },
		},
		{
			name: "dry out of domain",
			mutate: func(o []models.Observation) []models.Observation {
				o[1].Dry = 2
				return o
			},
		},
		{
			name: "yday out of range",
			mutate: func(o []models.Observation) []models.Observation {
				o[0].Yday = 367
				return o
			},
		},
		{
			name: "hour out of range",
			mutate: func(o []models.Observation) []models.Observation {
				o[0].SolarHour = 24
				return o
			},
		},
		{
			name: "missing block id",
			mutate: func(o []models.Observation) []models.Observation {
				o[2].BlockID = ""
				return o
			},
		},
		{
			name: "block reappears after ending",
			mutate: func(o []models.Observation) []models.Observation {
				return append(o, models.Observation{
					SubjectID: "s1", BlockID: "b1", StartOfBlock: true, Dry: 1, Yday: 122, SolarHour: 0,
				})
			},
		},
		{
			name: "first row of block not marked",
			mutate: func(o []models.Observation) []models.Observation {
				o[2].StartOfBlock = false
				return o
			},
		},
		{
			name: "start flag inside block",
			mutate: func(o []models.Observation) []models.Observation {
				o[1].StartOfBlock = true
				return o
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.mutate(validObs())); err == nil {
				t.Error("expected error")
			}
		})
	}
}
