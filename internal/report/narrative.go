package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// NarrativeGenerator produces an optional plain-language summary of the
// model comparison for the report header.
type NarrativeGenerator struct {
	client openai.Client
	model  string
}

// NewNarrativeGenerator reads OPENAI_API_KEY; callers should treat the
// error as a signal to skip the narrative, not to fail the report.
func NewNarrativeGenerator() (*NarrativeGenerator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &NarrativeGenerator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Generate asks for a two-paragraph summary of the comparison tables.
func (g *NarrativeGenerator) Generate(ctx context.Context, in Input) (string, error) {
	prompt := buildPrompt(in)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You summarize statistical model comparisons for an ecology audience. Two short paragraphs, plain language, no bullet points."),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("narrative: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("narrative: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A quasi-likelihood GLMM and a penalized GAM were fitted to the same haul-out dataset (%d subject-hours).\n", in.DatasetRows)
	fmt.Fprintf(&b, "Mean 95%% interval width on the probability scale: GLMM %.4f, GAM %.4f over %d grid rows.\n",
		in.Widths.MeanGLMM, in.Widths.MeanGAM, in.Widths.Rows)

	var disagreements []string
	for _, r := range in.Coefficients {
		if r.SignDisagrees || r.CIDisjoint {
			disagreements = append(disagreements, r.Term)
		}
	}
	if len(disagreements) > 0 {
		fmt.Fprintf(&b, "Terms with sign or interval disagreement: %s.\n", strings.Join(disagreements, ", "))
	} else {
		b.WriteString("No coefficient sign or interval disagreements between the models.\n")
	}
	if len(in.AIC) > 0 {
		fmt.Fprintf(&b, "Best GAM variant by AIC: %s (AIC %.1f).\n", in.AIC[0].Name, in.AIC[0].AIC)
	}
	b.WriteString("Summarize what these results mean for choosing between the two modeling approaches.")
	return b.String()
}
