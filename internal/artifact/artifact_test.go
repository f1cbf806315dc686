package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

const validArtifact = `{
	"formula": "dry ~ temp + wind",
	"coefficients": [
		{"term": "(Intercept)", "estimate": -1.2, "se": 0.4},
		{"term": "temp", "estimate": 0.05, "se": 0.01},
		{"term": "wind", "estimate": -0.02, "se": null}
	],
	"covariance": [
		[0.16, 0.001, 0],
		[0.001, 0.0001, 0],
		[0, 0, 0]
	]
}`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(validArtifact))
	if err != nil {
		t.Fatal(err)
	}

	if m.Formula.Response != "dry" {
		t.Errorf("Response = %q", m.Formula.Response)
	}
	if len(m.Coefficients) != 3 {
		t.Fatalf("len(Coefficients) = %d, want 3", len(m.Coefficients))
	}
	if !m.Coefficients[0].HasSE || m.Coefficients[0].SE != 0.4 {
		t.Errorf("intercept SE = %v, HasSE = %v", m.Coefficients[0].SE, m.Coefficients[0].HasSE)
	}
	if m.Coefficients[2].HasSE {
		t.Error("null se should mark the coefficient aliased")
	}
	if d := m.Covariance.SymmetricDim(); d != 3 {
		t.Errorf("covariance dim = %d, want 3", d)
	}
	if m.Covariance.At(0, 1) != 0.001 {
		t.Errorf("cov(0,1) = %v", m.Covariance.At(0, 1))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"invalid json", `{`},
		{"no coefficients", `{"formula": "dry ~ temp", "coefficients": [], "covariance": []}`},
		{"bad formula", `{"formula": "dry + temp", "coefficients": [{"term": "a", "estimate": 1}], "covariance": [[1]]}`},
		{
			"covariance row count",
			`{"formula": "dry ~ temp", "coefficients": [{"term": "a", "estimate": 1}], "covariance": [[1], [2]]}`,
		},
		{
			"ragged covariance",
			`{"formula": "dry ~ temp", "coefficients": [{"term": "a", "estimate": 1}, {"term": "b", "estimate": 2}], "covariance": [[1, 0], [0]]}`,
		},
		{
			"asymmetric covariance",
			`{"formula": "dry ~ temp", "coefficients": [{"term": "a", "estimate": 1}, {"term": "b", "estimate": 2}], "covariance": [[1, 0.5], [0.1, 1]]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.json)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glmm.json")
	if err := os.WriteFile(path, []byte(validArtifact), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Coefficients) != 3 {
		t.Errorf("len(Coefficients) = %d, want 3", len(m.Coefficients))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
