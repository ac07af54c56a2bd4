package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rag-eval/internal/model"
)

func intPtr(v int) *int { return &v }

func f64Ptr(v float64) *float64 { return &v }

func scoredRecord(id string, useReranker bool, cat model.Category, g, c int, tags ...string) model.EvaluationRecord {
	return model.EvaluationRecord{
		QueryID:           id,
		Category:          cat,
		Query:             "query " + id,
		UseReranker:       useReranker,
		GroundednessScore: intPtr(g),
		CitationScore:     intPtr(c),
		FailureTags:       tags,
	}
}

func TestSummarize_ModeAndCategorySplit(t *testing.T) {
	records := []model.EvaluationRecord{
		scoredRecord("D-01", true, model.CategoryDirect, 4, 4),
		scoredRecord("D-02", true, model.CategoryDirect, 2, 2),
		scoredRecord("S-01", true, model.CategorySynthesis, 3, 4),
		scoredRecord("D-01", false, model.CategoryDirect, 3, 2),
	}

	s := Summarize(records, 0, 0)

	rerank := s.Modes[model.ModeRerank]
	require.NotNil(t, rerank)
	assert.Equal(t, 3, rerank.Total)
	assert.Equal(t, 3, rerank.Scored)
	assert.Equal(t, 3.0, rerank.Overall.AvgGroundedness)
	assert.Equal(t, round2(10.0/3), rerank.Overall.AvgCitation)

	direct := rerank.ByCategory[model.CategoryDirect]
	require.NotNil(t, direct)
	assert.Equal(t, 2, direct.N)
	assert.Equal(t, 3.0, direct.AvgGroundedness)

	baseline := s.Modes[model.ModeBaseline]
	require.NotNil(t, baseline)
	assert.Equal(t, 1, baseline.Total)
	assert.Equal(t, 3.0, baseline.Overall.AvgGroundedness)
}

func TestSummarize_SentinelExcludedFromMeans(t *testing.T) {
	records := []model.EvaluationRecord{
		scoredRecord("D-01", true, model.CategoryDirect, 4, 4),
		// Parse-failure sentinel: present in totals, absent from means.
		scoredRecord("D-02", true, model.CategoryDirect, 0, 0, model.TagJudgeParseError),
		// Unscored run.
		{QueryID: "D-03", Category: model.CategoryDirect, UseReranker: true},
	}

	s := Summarize(records, 0, 0)
	rerank := s.Modes[model.ModeRerank]

	assert.Equal(t, 3, rerank.Total)
	assert.Equal(t, 1, rerank.Scored)
	assert.Equal(t, 4.0, rerank.Overall.AvgGroundedness,
		"sentinel 0 must not drag the mean down")
}

func TestSummarize_PartialRecordTreatedAsUnscored(t *testing.T) {
	partial := model.EvaluationRecord{
		QueryID:           "D-02",
		Category:          model.CategoryDirect,
		Query:             "query D-02",
		UseReranker:       true,
		GroundednessScore: intPtr(3),
		CitationScore:     nil,
		FailureTags:       []string{model.TagMissingCitation},
	}
	records := []model.EvaluationRecord{
		scoredRecord("D-01", true, model.CategoryDirect, 4, 4),
		partial,
	}

	s := Summarize(records, 0, DefaultWorstN)

	rerank := s.Modes[model.ModeRerank]
	require.NotNil(t, rerank)
	assert.Equal(t, 2, rerank.Total)
	assert.Equal(t, 1, rerank.Scored)
	assert.Equal(t, 4.0, rerank.Overall.AvgGroundedness)
	assert.Equal(t, 4.0, rerank.Overall.AvgCitation)
	assert.Empty(t, rerank.TagCounts)

	require.Len(t, s.Worst, 1)
	assert.Equal(t, "D-01", s.Worst[0].QueryID)
}

func TestSummarize_NullMetricExclusion(t *testing.T) {
	a := scoredRecord("D-01", true, model.CategoryDirect, 4, 4)
	a.RetrievalRecall = f64Ptr(1.0)
	a.ContextUtilization = f64Ptr(0.5)

	b := scoredRecord("E-01", true, model.CategoryEdgeCase, 4, 4)
	// No expected sources: recall is nil, not zero.

	c := scoredRecord("D-02", true, model.CategoryDirect, 4, 4)
	c.RetrievalRecall = f64Ptr(0.0)

	s := Summarize([]model.EvaluationRecord{a, b, c}, 0, 0)
	overall := s.Modes[model.ModeRerank].Overall

	require.NotNil(t, overall.AvgRetrievalRecall)
	assert.Equal(t, 0.5, *overall.AvgRetrievalRecall, "nil excluded, explicit 0.0 included")
	assert.Equal(t, 2, overall.NRetrievalRecall)

	require.NotNil(t, overall.AvgContextUtilization)
	assert.Equal(t, 0.5, *overall.AvgContextUtilization)
}

func TestSummarize_CompletenessSentinelExcluded(t *testing.T) {
	a := scoredRecord("D-01", true, model.CategoryDirect, 4, 4)
	a.CompletenessScore = intPtr(4)
	b := scoredRecord("D-02", true, model.CategoryDirect, 4, 4)
	b.CompletenessScore = intPtr(0)
	c := scoredRecord("D-03", true, model.CategoryDirect, 4, 4)

	s := Summarize([]model.EvaluationRecord{a, b, c}, 0, 0)
	overall := s.Modes[model.ModeRerank].Overall

	require.NotNil(t, overall.AvgCompleteness)
	assert.Equal(t, 4.0, *overall.AvgCompleteness)
}

func TestSummarize_TagHistogramSortedDescending(t *testing.T) {
	records := []model.EvaluationRecord{
		scoredRecord("a", true, model.CategoryDirect, 2, 2, model.TagMissingCitation, model.TagHallucinatedClaim),
		scoredRecord("b", true, model.CategoryDirect, 2, 2, model.TagMissingCitation),
		scoredRecord("c", true, model.CategoryDirect, 2, 2, model.TagMissingCitation, model.TagFalseRefusal),
	}

	s := Summarize(records, 0, 0)
	tags := s.Modes[model.ModeRerank].TagCounts

	require.Len(t, tags, 3)
	assert.Equal(t, TagCount{Tag: model.TagMissingCitation, Count: 3}, tags[0])
	// Ties break alphabetically for stable output.
	assert.Equal(t, TagCount{Tag: model.TagFalseRefusal, Count: 1}, tags[1])
	assert.Equal(t, TagCount{Tag: model.TagHallucinatedClaim, Count: 1}, tags[2])
}

func TestSummarize_RerankImpact(t *testing.T) {
	records := []model.EvaluationRecord{
		scoredRecord("D-01", true, model.CategoryDirect, 4, 4),
		scoredRecord("D-02", true, model.CategoryDirect, 3, 3),
		scoredRecord("D-01", false, model.CategoryDirect, 3, 2),
		scoredRecord("D-02", false, model.CategoryDirect, 2, 3),
	}

	s := Summarize(records, 0, 0)
	require.NotNil(t, s.Impact)

	assert.Equal(t, 3.5, s.Impact.RerankGroundedness)
	assert.Equal(t, 2.5, s.Impact.BaselineGroundedness)
	assert.Equal(t, 1.0, s.Impact.GroundednessDelta)
	assert.Equal(t, 1.0, s.Impact.CitationDelta)
}

func TestSummarize_NoImpactWithSingleMode(t *testing.T) {
	records := []model.EvaluationRecord{
		scoredRecord("D-01", true, model.CategoryDirect, 4, 4),
	}
	s := Summarize(records, 0, 0)
	assert.Nil(t, s.Impact)
}

func TestSummarize_WorstCases(t *testing.T) {
	records := []model.EvaluationRecord{
		scoredRecord("good", true, model.CategoryDirect, 4, 4),
		scoredRecord("bad", true, model.CategoryDirect, 1, 1, model.TagHallucinatedClaim),
		scoredRecord("mid", false, model.CategoryDirect, 3, 2),
		// Sentinel never enters the shortlist.
		scoredRecord("sentinel", true, model.CategoryDirect, 0, 0, model.TagJudgeParseError),
	}

	s := Summarize(records, 0, 2)
	require.Len(t, s.Worst, 2)

	assert.Equal(t, "bad", s.Worst[0].QueryID)
	assert.Equal(t, model.ModeRerank, s.Worst[0].Mode)
	assert.Equal(t, []string{model.TagHallucinatedClaim}, s.Worst[0].FailureTags)
	assert.Equal(t, "mid", s.Worst[1].QueryID)
	assert.Equal(t, model.ModeBaseline, s.Worst[1].Mode)
}

func TestSummarize_DuplicationInvariance(t *testing.T) {
	base := []model.EvaluationRecord{
		scoredRecord("D-01", true, model.CategoryDirect, 4, 3),
		scoredRecord("D-02", true, model.CategoryDirect, 2, 2),
	}
	doubled := append(append([]model.EvaluationRecord{}, base...), base...)

	s1 := Summarize(base, 0, 0)
	s2 := Summarize(doubled, 0, 0)

	// Means are invariant under duplicating the record set; counts double.
	assert.Equal(t, s1.Modes[model.ModeRerank].Overall.AvgGroundedness,
		s2.Modes[model.ModeRerank].Overall.AvgGroundedness)
	assert.Equal(t, s1.Modes[model.ModeRerank].Overall.AvgCitation,
		s2.Modes[model.ModeRerank].Overall.AvgCitation)
	assert.Equal(t, 2*s1.Modes[model.ModeRerank].Total, s2.Modes[model.ModeRerank].Total)
}

func TestSummarize_ErrorsCountedInTotals(t *testing.T) {
	records := []model.EvaluationRecord{
		scoredRecord("D-01", true, model.CategoryDirect, 4, 4),
	}
	s := Summarize(records, 3, 0)
	assert.Equal(t, 4, s.TotalRuns)
	assert.Equal(t, 3, s.Errors)
}
