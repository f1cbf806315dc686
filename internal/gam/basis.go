package gam

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ewhitmore/haulfit/internal/formula"
)

// resolveBases inspects the training frame and fixes the basis layout:
// factor levels, spline knots over the observed smooth-variable range, and
// the subject level set. Prediction reuses the same layout so design
// columns always line up with coefficients.
func (f *Fitted) resolveBases(fr *formula.Frame) error {
	spec := f.spec

	if spec.Factor != "" {
		_, levels, ok := fr.Factor(spec.Factor)
		if !ok {
			return fmt.Errorf("gam: factor %s not in frame", spec.Factor)
		}
		f.factorLevels = levels
	}
	for _, v := range spec.Parametric {
		if _, ok := fr.Numeric(v); !ok {
			return fmt.Errorf("gam: parametric term %s not in frame", v)
		}
	}

	if spec.SmoothVar != "" {
		vals, ok := fr.Numeric(spec.SmoothVar)
		if !ok {
			return fmt.Errorf("gam: smooth variable %s not in frame", spec.SmoothVar)
		}
		min, max := vals[0], vals[0]
		distinct := map[float64]bool{}
		for _, v := range vals {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			distinct[v] = true
		}
		if len(distinct) < 2 {
			return fmt.Errorf("gam: smooth variable %s has fewer than 2 distinct values", spec.SmoothVar)
		}
		f.smoothMin, f.smoothMax = min, max

		nk := interiorKnots
		if f.cfg.Discrete {
			nk = interiorKnotsDiscrete
		}
		f.knots = make([]float64, nk)
		for j := 0; j < nk; j++ {
			f.knots[j] = float64(j+1) / float64(nk+1) // on the scaled [0,1] axis
		}
	}

	if spec.SubjectVar != "" {
		_, levels, ok := fr.Factor(spec.SubjectVar)
		if !ok {
			return fmt.Errorf("gam: subject variable %s not in frame", spec.SubjectVar)
		}
		f.subjectLevels = levels
	}

	// Fix term layout and column names.
	f.terms = nil
	f.names = nil
	col := 0
	add := func(name string, width int, labels []string) {
		f.terms = append(f.terms, term{name: name, start: col, end: col + width})
		f.names = append(f.names, labels...)
		col += width
	}

	add("(Intercept)", 1, []string{"(Intercept)"})
	if spec.Factor != "" {
		labels := make([]string, 0, len(f.factorLevels)-1)
		for _, level := range f.factorLevels[1:] {
			labels = append(labels, spec.Factor+level)
		}
		add(spec.Factor, len(labels), labels)
	}
	for _, v := range spec.Parametric {
		add(v, 1, []string{v})
	}
	if spec.SmoothVar != "" {
		width := 3 + len(f.knots)
		labels := make([]string, width)
		for j := range labels {
			labels[j] = fmt.Sprintf("s(%s).%d", spec.SmoothVar, j+1)
		}
		add("s("+spec.SmoothVar+")", width, labels)
	}
	if spec.SubjectVar != "" {
		labels := make([]string, len(f.subjectLevels))
		for j, level := range f.subjectLevels {
			labels[j] = fmt.Sprintf("s(%s).%s", spec.SubjectVar, level)
		}
		add("s("+spec.SubjectVar+")", len(labels), labels)
	}
	return nil
}

// design builds the model matrix for fr using the resolved basis layout.
// Subject levels unseen at fit time contribute zero columns, which is what
// a population-level prediction needs.
func (f *Fitted) design(fr *formula.Frame) (*mat.Dense, error) {
	n := fr.Len()
	p := f.terms[len(f.terms)-1].end
	x := mat.NewDense(n, p, nil)

	for _, t := range f.terms {
		switch {
		case t.name == "(Intercept)":
			for i := 0; i < n; i++ {
				x.Set(i, t.start, 1)
			}

		case t.name == f.spec.Factor && f.spec.Factor != "":
			vals, _, ok := fr.Factor(f.spec.Factor)
			if !ok {
				return nil, fmt.Errorf("gam: factor %s not in frame", f.spec.Factor)
			}
			index := map[string]int{}
			for j, level := range f.factorLevels[1:] {
				index[level] = t.start + j
			}
			for i, v := range vals {
				if j, ok := index[v]; ok {
					x.Set(i, j, 1)
				}
			}

		case t.name == "s("+f.spec.SmoothVar+")" && f.spec.SmoothVar != "":
			vals, ok := fr.Numeric(f.spec.SmoothVar)
			if !ok {
				return nil, fmt.Errorf("gam: smooth variable %s not in frame", f.spec.SmoothVar)
			}
			for i, v := range vals {
				row := f.splineBasis(v)
				for j, b := range row {
					x.Set(i, t.start+j, b)
				}
			}

		case t.name == "s("+f.spec.SubjectVar+")" && f.spec.SubjectVar != "":
			vals, _, ok := fr.Factor(f.spec.SubjectVar)
			if !ok {
				return nil, fmt.Errorf("gam: subject variable %s not in frame", f.spec.SubjectVar)
			}
			index := map[string]int{}
			for j, level := range f.subjectLevels {
				index[level] = t.start + j
			}
			for i, v := range vals {
				if j, ok := index[v]; ok {
					x.Set(i, j, 1)
				}
			}

		default: // parametric numeric
			vals, ok := fr.Numeric(t.name)
			if !ok {
				return nil, fmt.Errorf("gam: parametric term %s not in frame", t.name)
			}
			for i, v := range vals {
				x.Set(i, t.start, v)
			}
		}
	}
	return x, nil
}

// splineBasis evaluates the truncated-power cubic basis at v: u, u^2, u^3
// on the scaled axis, then (u-k)^3_+ per interior knot. Values outside the
// training range are clamped to it, so grid edges cannot extrapolate the
// spline wildly.
func (f *Fitted) splineBasis(v float64) []float64 {
	span := f.smoothMax - f.smoothMin
	u := (v - f.smoothMin) / span
	if u < 0 {
		u = 0
	}
	if u > 1 {
		u = 1
	}
	out := make([]float64, 3+len(f.knots))
	out[0] = u
	out[1] = u * u
	out[2] = u * u * u
	for j, k := range f.knots {
		if d := u - k; d > 0 {
			out[3+j] = d * d * d
		}
	}
	return out
}

// penaltyDiag returns the diagonal penalty: zero on unpenalized columns,
// the smooth penalty on spline knot columns, and the ridge penalty on
// subject columns.
func (f *Fitted) penaltyDiag(p int) []float64 {
	pen := make([]float64, p)
	for _, t := range f.terms {
		switch t.name {
		case "s(" + f.spec.SmoothVar + ")":
			if f.spec.SmoothVar == "" {
				continue
			}
			// First three columns are the unpenalized polynomial part.
			for j := t.start + 3; j < t.end; j++ {
				pen[j] = f.cfg.SmoothPenalty
			}
		case "s(" + f.spec.SubjectVar + ")":
			if f.spec.SubjectVar == "" {
				continue
			}
			for j := t.start; j < t.end; j++ {
				pen[j] = f.cfg.SubjectPenalty
			}
		}
	}
	return pen
}
