package judge

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/rag-eval/internal/model"
)

// parseErrorPreviewLimit caps how much of the failing raw text is carried
// into a sentinel rationale for debugging prompt drift.
const parseErrorPreviewLimit = 200

// cleanJSON strips markdown code fences the judge sometimes wraps its
// output in, despite instructions not to.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	return strings.TrimSpace(text)
}

// parseQualityVerdict parses the oracle's raw text into a quality verdict.
// Parse failure is not an error: a sentinel verdict is synthesized so that
// every requested judgment yields exactly one record and the batch never
// aborts on judge flakiness.
func parseQualityVerdict(raw string) model.QualityVerdict {
	var v model.QualityVerdict
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &v); err != nil {
		return model.QualityVerdict{
			GroundednessScore:     model.ParseFailureScore,
			GroundednessRationale: "PARSE_ERROR: " + model.Truncate(raw, parseErrorPreviewLimit),
			CitationScore:         model.ParseFailureScore,
			CitationRationale:     "PARSE_ERROR",
			FailureTags:           []string{model.TagJudgeParseError},
		}
	}
	tags := make([]string, 0, len(v.FailureTags))
	for _, tag := range v.FailureTags {
		if model.ValidFailureTag(tag) {
			tags = append(tags, tag)
		}
	}
	v.FailureTags = tags
	return v
}

// parseCompletenessVerdict parses the oracle's raw text into a
// completeness verdict, with the same sentinel-on-failure policy.
func parseCompletenessVerdict(raw string) model.CompletenessVerdict {
	var v model.CompletenessVerdict
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &v); err != nil {
		return model.CompletenessVerdict{
			CompletenessScore:     model.ParseFailureScore,
			CompletenessRationale: "PARSE_ERROR: " + model.Truncate(raw, parseErrorPreviewLimit),
		}
	}
	return v
}
