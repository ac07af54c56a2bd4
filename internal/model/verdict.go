package model

// Failure tags the quality judge may assign. The set is closed: anything
// outside it (plus the reserved parse-error tag) is dropped at parse time.
const (
	TagHallucinatedClaim  = "HALLUCINATED_CLAIM"
	TagFabricatedCitation = "FABRICATED_CITATION"
	TagMissingCitation    = "MISSING_CITATION"
	TagWrongFormat        = "WRONG_FORMAT"
	TagMissedEvidence     = "MISSED_EVIDENCE"
	TagFalseRefusal       = "FALSE_REFUSAL"
	TagOverExtrapolation  = "OVER_EXTRAPOLATION"
	TagContradictsSource  = "CONTRADICTS_SOURCE"

	// TagJudgeParseError is reserved for sentinel verdicts synthesized when
	// the judge's output could not be parsed.
	TagJudgeParseError = "JUDGE_PARSE_ERROR"
)

// AllowedFailureTags is the set the quality rubric presents to the judge.
var AllowedFailureTags = []string{
	TagHallucinatedClaim,
	TagFabricatedCitation,
	TagMissingCitation,
	TagWrongFormat,
	TagMissedEvidence,
	TagFalseRefusal,
	TagOverExtrapolation,
	TagContradictsSource,
}

// ValidFailureTag reports whether tag belongs to the closed tag set.
func ValidFailureTag(tag string) bool {
	if tag == TagJudgeParseError {
		return true
	}
	for _, t := range AllowedFailureTags {
		if t == tag {
			return true
		}
	}
	return false
}

// ParseFailureScore is the sentinel score meaning "judge output could not
// be parsed". It is persisted, surfaced, and excluded from every mean.
const ParseFailureScore = 0

// JudgeTokens counts the judge oracle's reported token usage for cost
// accounting.
type JudgeTokens struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
}

// QualityVerdict is the structured output of one quality judgment:
// groundedness and citation correctness, each 1-4, plus failure tags.
type QualityVerdict struct {
	GroundednessScore     int         `json:"groundedness_score"`
	GroundednessRationale string      `json:"groundedness_rationale"`
	CitationScore         int         `json:"citation_score"`
	CitationRationale     string      `json:"citation_rationale"`
	FailureTags           []string    `json:"failure_tags"`
	JudgeModel            string      `json:"judge_model"`
	JudgeTokens           JudgeTokens `json:"judge_tokens"`
}

// IsParseFailure reports whether this verdict is a synthesized sentinel.
func (v QualityVerdict) IsParseFailure() bool {
	return v.GroundednessScore == ParseFailureScore
}

// CompletenessVerdict is the structured output of the second, independent
// judgment measuring coverage breadth against the sent evidence.
type CompletenessVerdict struct {
	CompletenessScore     int         `json:"completeness_score"`
	CompletenessRationale string      `json:"completeness_rationale"`
	JudgeModel            string      `json:"judge_model"`
	JudgeTokens           JudgeTokens `json:"judge_tokens"`
}

// IsParseFailure reports whether this verdict is a synthesized sentinel.
func (v CompletenessVerdict) IsParseFailure() bool {
	return v.CompletenessScore == ParseFailureScore
}

// ValidScore reports whether s is a real rubric score (1-4) or the
// sentinel. Anything else indicates a judge protocol violation.
func ValidScore(s int) bool {
	return s >= ParseFailureScore && s <= 4
}
