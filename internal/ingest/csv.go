// Package ingest acquires and validates the telemetry training dataset:
// local CSV files, HTTPS downloads with retry, and institutional FTP
// archives.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ewhitmore/haulfit/internal/models"
)

var requiredColumns = []string{
	"subject_id", "block_id", "dry", "agesex", "yday", "solar_hour",
	"temp", "wind", "pressure", "precip",
}

// ParseObservations reads the subject-hour dataset from CSV. Columns are
// matched by header name; the wind x temp interaction is derived when the
// windtemp column is absent. Rows must be ordered chronologically within
// subject so block starts can be derived.
func ParseObservations(r io.Reader) ([]models.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
	}
	_, hasWindTemp := col["windtemp"]

	var obs []models.Observation
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+2, err)
		}
		if len(record) == 1 && record[0] == "" {
			continue
		}

		num := func(name string) (float64, error) {
			s := record[col[name]]
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("row %d: parse %s (%q): %w", row+2, name, s, err)
			}
			return v, nil
		}

		agesex, err := models.ParseAgeSex(record[col["agesex"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+2, err)
		}
		dry, err := num("dry")
		if err != nil {
			return nil, err
		}
		yday, err := num("yday")
		if err != nil {
			return nil, err
		}
		hour, err := num("solar_hour")
		if err != nil {
			return nil, err
		}
		temp, err := num("temp")
		if err != nil {
			return nil, err
		}
		wind, err := num("wind")
		if err != nil {
			return nil, err
		}
		pressure, err := num("pressure")
		if err != nil {
			return nil, err
		}
		precip, err := num("precip")
		if err != nil {
			return nil, err
		}

		o := models.Observation{
			SubjectID: record[col["subject_id"]],
			BlockID:   record[col["block_id"]],
			AgeSex:    agesex,
			Dry:       int(dry),
			Yday:      int(yday),
			SolarHour: int(hour),
			Temp:      temp,
			Wind:      wind,
			Pressure:  pressure,
			Precip:    precip,
			WindTemp:  wind * temp,
		}
		if hasWindTemp {
			wt, err := num("windtemp")
			if err != nil {
				return nil, err
			}
			o.WindTemp = wt
		}
		obs = append(obs, o)
		row++
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	markBlockStarts(obs)
	return obs, nil
}

// markBlockStarts sets StartOfBlock on the first row of each contiguous
// (subject, block) run. Autoregressive dependency is modeled within a
// block, never across a boundary.
func markBlockStarts(obs []models.Observation) {
	for i := range obs {
		if i == 0 ||
			obs[i].SubjectID != obs[i-1].SubjectID ||
			obs[i].BlockID != obs[i-1].BlockID {
			obs[i].StartOfBlock = true
		}
	}
}
