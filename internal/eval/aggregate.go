// Package eval runs evaluation batches over the RAG pipeline and derives
// aggregate statistics from their persisted records.
package eval

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/rag-eval/internal/model"
)

// DefaultWorstN is how many lowest-scoring records the failure-case
// shortlist holds.
const DefaultWorstN = 5

// Summary is the derived statistics for one batch of evaluation records.
// Purely computed; recomputed on demand and persisted only as a reporting
// snapshot next to the log.
type Summary struct {
	RunDate   time.Time `json:"run_date"`
	TotalRuns int       `json:"total_runs"`
	Errors    int       `json:"errors"`

	Modes  map[model.Mode]*ModeStats `json:"modes"`
	Impact *RerankImpact             `json:"rerank_impact,omitempty"`
	Worst  []FailureCase             `json:"worst,omitempty"`

	// Enrichment provenance, set only on enriched summaries.
	SourceFile              string             `json:"source_file,omitempty"`
	JudgeModel              string             `json:"judge_model,omitempty"`
	CompletenessJudgeTokens *model.JudgeTokens `json:"completeness_judge_tokens,omitempty"`
}

// ModeStats aggregates one pipeline configuration.
type ModeStats struct {
	Total      int                               `json:"total"`
	Scored     int                               `json:"scored"`
	Overall    CategoryStats                     `json:"overall"`
	ByCategory map[model.Category]*CategoryStats `json:"by_category"`
	TagCounts  []TagCount                        `json:"failure_tags"`
}

// CategoryStats holds the metric means for one slice of records. Judge
// means cover scored records only; mechanical means cover records where
// the metric produced a signal, never treating null as zero.
type CategoryStats struct {
	N                     int      `json:"n"`
	AvgGroundedness       float64  `json:"avg_groundedness"`
	AvgCitation           float64  `json:"avg_citation"`
	AvgCompleteness       *float64 `json:"avg_completeness,omitempty"`
	AvgRetrievalRecall    *float64 `json:"avg_retrieval_recall,omitempty"`
	NRetrievalRecall      int      `json:"n_retrieval_recall,omitempty"`
	AvgContextUtilization *float64 `json:"avg_context_utilization,omitempty"`
}

// TagCount is one failure tag's frequency.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// RerankImpact is the primary regression signal: signed deltas of the
// reranked means over the baseline means.
type RerankImpact struct {
	BaselineGroundedness float64 `json:"baseline_groundedness"`
	RerankGroundedness   float64 `json:"rerank_groundedness"`
	GroundednessDelta    float64 `json:"groundedness_delta"`
	BaselineCitation     float64 `json:"baseline_citation"`
	RerankCitation       float64 `json:"rerank_citation"`
	CitationDelta        float64 `json:"citation_delta"`
}

// FailureCase is one entry in the worst-scoring shortlist kept for manual
// failure analysis.
type FailureCase struct {
	QueryID      string     `json:"query_id"`
	Mode         model.Mode `json:"mode"`
	Groundedness int        `json:"groundedness_score"`
	Citation     int        `json:"citation_score"`
	FailureTags  []string   `json:"failure_tags"`
	Query        string     `json:"query"`
}

// Summarize derives batch statistics from a record set. Records without a
// positive groundedness score (unscored runs, parse-failure sentinels)
// are excluded from every judge-score mean but still counted in totals.
func Summarize(records []model.EvaluationRecord, errors int, worstN int) *Summary {
	s := &Summary{
		RunDate:   time.Now().UTC(),
		TotalRuns: len(records) + errors,
		Errors:    errors,
		Modes:     make(map[model.Mode]*ModeStats),
	}

	for _, mode := range []model.Mode{model.ModeRerank, model.ModeBaseline} {
		var subset []model.EvaluationRecord
		for _, r := range records {
			if r.Mode() == mode {
				subset = append(subset, r)
			}
		}
		if len(subset) == 0 {
			continue
		}
		s.Modes[mode] = summarizeMode(subset)
	}

	rerank, hasRerank := s.Modes[model.ModeRerank]
	baseline, hasBaseline := s.Modes[model.ModeBaseline]
	if hasRerank && hasBaseline && rerank.Scored > 0 && baseline.Scored > 0 {
		s.Impact = &RerankImpact{
			BaselineGroundedness: baseline.Overall.AvgGroundedness,
			RerankGroundedness:   rerank.Overall.AvgGroundedness,
			GroundednessDelta:    round2(rerank.Overall.AvgGroundedness - baseline.Overall.AvgGroundedness),
			BaselineCitation:     baseline.Overall.AvgCitation,
			RerankCitation:       rerank.Overall.AvgCitation,
			CitationDelta:        round2(rerank.Overall.AvgCitation - baseline.Overall.AvgCitation),
		}
	}

	if worstN > 0 {
		s.Worst = worstCases(records, worstN)
	}

	return s
}

func summarizeMode(subset []model.EvaluationRecord) *ModeStats {
	stats := &ModeStats{
		Total:      len(subset),
		ByCategory: make(map[model.Category]*CategoryStats),
	}

	for _, r := range subset {
		if r.Scored() {
			stats.Scored++
		}
	}

	stats.Overall = *summarizeSlice(subset)

	byCat := make(map[model.Category][]model.EvaluationRecord)
	for _, r := range subset {
		byCat[r.Category] = append(byCat[r.Category], r)
	}
	for cat, recs := range byCat {
		stats.ByCategory[cat] = summarizeSlice(recs)
	}

	stats.TagCounts = countTags(subset)
	return stats
}

func summarizeSlice(records []model.EvaluationRecord) *CategoryStats {
	stats := &CategoryStats{N: len(records)}

	var gSum, cSum float64
	var scored int
	for _, r := range records {
		if !r.Scored() {
			continue
		}
		scored++
		gSum += float64(*r.GroundednessScore)
		cSum += float64(*r.CitationScore)
	}
	if scored > 0 {
		stats.AvgGroundedness = round2(gSum / float64(scored))
		stats.AvgCitation = round2(cSum / float64(scored))
	}

	var compSum float64
	var compN int
	for _, r := range records {
		if r.CompletenessScore != nil && *r.CompletenessScore > 0 {
			compSum += float64(*r.CompletenessScore)
			compN++
		}
	}
	if compN > 0 {
		avg := round2(compSum / float64(compN))
		stats.AvgCompleteness = &avg
	}

	var rrSum float64
	for _, r := range records {
		if r.RetrievalRecall != nil {
			rrSum += *r.RetrievalRecall
			stats.NRetrievalRecall++
		}
	}
	if stats.NRetrievalRecall > 0 {
		avg := round2(rrSum / float64(stats.NRetrievalRecall))
		stats.AvgRetrievalRecall = &avg
	}

	var cuSum float64
	var cuN int
	for _, r := range records {
		if r.ContextUtilization != nil {
			cuSum += *r.ContextUtilization
			cuN++
		}
	}
	if cuN > 0 {
		avg := round2(cuSum / float64(cuN))
		stats.AvgContextUtilization = &avg
	}

	return stats
}

// countTags builds the failure-tag histogram over scored records, sorted
// by count descending, ties alphabetical for stable output.
func countTags(records []model.EvaluationRecord) []TagCount {
	counts := make(map[string]int)
	for _, r := range records {
		if !r.Scored() {
			continue
		}
		for _, tag := range r.FailureTags {
			counts[tag]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// worstCases selects the n lowest-scoring records across all modes by
// groundedness + citation sum.
func worstCases(records []model.EvaluationRecord, n int) []FailureCase {
	var scored []model.EvaluationRecord
	for _, r := range records {
		if r.Scored() {
			scored = append(scored, r)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].GroundednessScore+*scored[i].CitationScore <
			*scored[j].GroundednessScore+*scored[j].CitationScore
	})

	if len(scored) > n {
		scored = scored[:n]
	}

	out := make([]FailureCase, 0, len(scored))
	for _, r := range scored {
		out = append(out, FailureCase{
			QueryID:      r.QueryID,
			Mode:         r.Mode(),
			Groundedness: *r.GroundednessScore,
			Citation:     *r.CitationScore,
			FailureTags:  r.FailureTags,
			Query:        r.Query,
		})
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
