// Package judge implements the LLM-as-judge scoring protocol: structured
// rubric prompts sent to an external oracle, tolerant parsing of its
// near-JSON output, and sentinel verdicts when parsing fails.
package judge

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rag-eval/internal/model"
	"github.com/sells-group/rag-eval/pkg/anthropic"
)

// judgeTemperature pins the oracle to its most deterministic setting so
// verdicts are as reproducible as the model allows.
var judgeTemperature = 0.0

// Judge scores RAG answers against the rubric via an external oracle.
type Judge struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Judge bound to one oracle model.
func New(client anthropic.Client, model string, maxTokens int64) *Judge {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Judge{client: client, model: model, maxTokens: maxTokens}
}

// Model returns the judge model identifier stamped on every verdict.
func (j *Judge) Model() string {
	return j.model
}

// ScoreQuality issues the groundedness + citation-correctness judgment.
// The passages must be exactly what the generator saw. The only error
// path is the oracle call itself failing; unparseable output comes back
// as a sentinel verdict, never an error.
func (j *Judge) ScoreQuality(ctx context.Context, query, answer string, passages []model.Passage) (model.QualityVerdict, error) {
	prompt := fmt.Sprintf(qualityPromptTemplate, query, formatEvidence(passages), answer)

	resp, err := j.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       j.model,
		MaxTokens:   j.maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &judgeTemperature,
	})
	if err != nil {
		return model.QualityVerdict{}, eris.Wrap(err, "judge: quality call")
	}

	verdict := parseQualityVerdict(resp.Text())
	if verdict.IsParseFailure() {
		zap.L().Warn("judge: quality verdict parse failure",
			zap.String("model", j.model),
			zap.String("raw_prefix", model.Truncate(resp.Text(), 80)),
		)
	}

	verdict.JudgeModel = j.model
	verdict.JudgeTokens = model.JudgeTokens{
		Input:  resp.Usage.InputTokens,
		Output: resp.Usage.OutputTokens,
	}
	return verdict, nil
}

// ScoreCompleteness issues the second, independent judgment from a
// persisted record's chunk previews.
func (j *Judge) ScoreCompleteness(ctx context.Context, query, answer string, sent []model.NormalizedPassage) (model.CompletenessVerdict, error) {
	prompt := fmt.Sprintf(completenessPromptTemplate, query, len(sent), formatNormalizedEvidence(sent), answer)

	resp, err := j.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     j.model,
		MaxTokens: j.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return model.CompletenessVerdict{}, eris.Wrap(err, "judge: completeness call")
	}

	verdict := parseCompletenessVerdict(resp.Text())
	if verdict.IsParseFailure() {
		zap.L().Warn("judge: completeness verdict parse failure",
			zap.String("model", j.model),
			zap.String("raw_prefix", model.Truncate(resp.Text(), 80)),
		)
	}

	verdict.JudgeModel = j.model
	verdict.JudgeTokens = model.JudgeTokens{
		Input:  resp.Usage.InputTokens,
		Output: resp.Usage.OutputTokens,
	}
	return verdict, nil
}
