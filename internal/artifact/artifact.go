// Package artifact loads the persisted GLMM fit produced upstream by the
// mixed-model fitting routine: the fixed-effect coefficient table, its
// covariance matrix, and the formula needed to rebuild the design matrix
// at prediction time.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/ewhitmore/haulfit/internal/formula"
	"github.com/ewhitmore/haulfit/internal/forecast"
	"github.com/ewhitmore/haulfit/internal/models"
)

type coefficientJSON struct {
	Term     string   `json:"term"`
	Estimate float64  `json:"estimate"`
	SE       *float64 `json:"se"` // null for aliased terms
}

type glmmJSON struct {
	Formula      string            `json:"formula"`
	Coefficients []coefficientJSON `json:"coefficients"`
	Covariance   [][]float64       `json:"covariance"`
}

// Load reads and validates a GLMM artifact file.
func Load(path string) (*forecast.GLMMModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a GLMM artifact from JSON bytes.
func Parse(raw []byte) (*forecast.GLMMModel, error) {
	var doc glmmJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("artifact: unmarshal: %w", err)
	}
	if len(doc.Coefficients) == 0 {
		return nil, fmt.Errorf("artifact: no coefficients")
	}

	f, err := formula.Parse(doc.Formula)
	if err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}

	coefs := make([]models.Coefficient, len(doc.Coefficients))
	for i, c := range doc.Coefficients {
		coefs[i] = models.Coefficient{Term: c.Term, Estimate: c.Estimate}
		if c.SE != nil {
			coefs[i].SE = *c.SE
			coefs[i].HasSE = true
		}
	}

	n := len(coefs)
	if len(doc.Covariance) != n {
		return nil, fmt.Errorf("artifact: covariance has %d rows for %d coefficients", len(doc.Covariance), n)
	}
	cov := mat.NewSymDense(n, nil)
	for i, row := range doc.Covariance {
		if len(row) != n {
			return nil, fmt.Errorf("artifact: covariance row %d has %d entries, want %d", i, len(row), n)
		}
		for j := i; j < n; j++ {
			if diff := row[j] - doc.Covariance[j][i]; diff > 1e-9 || diff < -1e-9 {
				return nil, fmt.Errorf("artifact: covariance not symmetric at (%d,%d)", i, j)
			}
			cov.SetSym(i, j, row[j])
		}
	}

	return &forecast.GLMMModel{
		Formula:      f,
		Coefficients: coefs,
		Covariance:   cov,
	}, nil
}
