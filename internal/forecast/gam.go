package forecast

import (
	"fmt"

	"github.com/ewhitmore/haulfit/internal/formula"
	"github.com/ewhitmore/haulfit/internal/gam"
)

// PredictGAM computes population-level predictions for new covariate rows
// by delegating to the fitted GAM's prediction capability with the subject
// random-effect smooth excluded. The frame must carry a placeholder
// subject column; its value does not influence the output.
//
// Back-transformation uses the same 1.96 multiplier and logistic transform
// as the GLMM path so interval widths compare like for like.
func PredictGAM(fit *gam.Fitted, fr *formula.Frame) (*Result, error) {
	subjectTerm := fit.SubjectTerm()
	if subjectTerm == "" {
		return nil, fmt.Errorf("gam predict: fit has no subject random-effect term")
	}

	pr, err := fit.Predict(fr, subjectTerm)
	if err != nil {
		return nil, fmt.Errorf("gam predict: %w", err)
	}

	res := newResult(len(pr.Fit))
	for i := range pr.Fit {
		res.Logit[i] = pr.Fit[i]
		res.SE[i] = pr.SE[i]
		res.Prob[i], res.Lower95[i], res.Upper95[i] = ResponseScale(pr.Fit[i], pr.SE[i])
	}
	return res, nil
}
