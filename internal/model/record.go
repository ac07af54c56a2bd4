package model

import "time"

// TokenUsage tracks generation-side token consumption.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Add accumulates another usage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// PipelineResult is the ephemeral output of one (query, mode) pipeline run.
// It is never persisted directly; it is always folded into an
// EvaluationRecord.
type PipelineResult struct {
	Answer            string
	RetrievedPassages []Passage
	UsedPassages      []Passage
	Model             string
	PromptVersion     string
	Usage             TokenUsage
	ElapsedSeconds    float64
	UseReranker       bool
}

// EvaluationRecord is the unit of persistence: query metadata, pipeline
// configuration and output, judge verdicts when scored, and mechanical
// metrics when enriched. Appended exactly once to the durable log and
// never mutated thereafter.
type EvaluationRecord struct {
	Timestamp time.Time `json:"timestamp"`

	// Query metadata.
	QueryID         string   `json:"query_id"`
	Category        Category `json:"category"`
	SubQuestion     string   `json:"sub_question"`
	Query           string   `json:"query"`
	ExpectedSources []string `json:"expected_sources"`
	Notes           string   `json:"notes"`

	// Pipeline configuration.
	UseReranker   bool   `json:"use_reranker"`
	Model         string `json:"model"`
	PromptVersion string `json:"prompt_version"`

	// Pipeline output.
	Answer          string              `json:"answer"`
	RetrievedChunks []NormalizedPassage `json:"retrieved_chunks"`
	RerankedChunks  []NormalizedPassage `json:"reranked_chunks"`

	GenerationTokens TokenUsage `json:"generation_tokens"`
	ElapsedSeconds   float64    `json:"elapsed_seconds"`

	// Quality verdict. Pointers distinguish "not scored" (absent) from the
	// persisted parse-failure sentinel (explicit 0).
	GroundednessScore     *int         `json:"groundedness_score,omitempty"`
	GroundednessRationale string       `json:"groundedness_rationale,omitempty"`
	CitationScore         *int         `json:"citation_score,omitempty"`
	CitationRationale     string       `json:"citation_rationale,omitempty"`
	FailureTags           []string     `json:"failure_tags,omitempty"`
	JudgeModel            string       `json:"judge_model,omitempty"`
	JudgeTokens           *JudgeTokens `json:"judge_tokens,omitempty"`

	// Enrichment pass: completeness verdict and mechanical metrics. Nil
	// means "no signal", which aggregation excludes from means rather than
	// averaging in as zero.
	CompletenessScore     *int     `json:"completeness_score,omitempty"`
	CompletenessRationale string   `json:"completeness_rationale,omitempty"`
	RetrievalRecall       *float64 `json:"retrieval_recall,omitempty"`
	ContextUtilization    *float64 `json:"context_utilization,omitempty"`
}

// Scored reports whether the record carries a meaningful quality score.
// Parse-failure sentinels and unscored runs both return false, as do
// partial records (e.g. hand-edited log lines) missing either dimension.
func (r *EvaluationRecord) Scored() bool {
	return r.GroundednessScore != nil && *r.GroundednessScore > 0 && r.CitationScore != nil
}

// Mode returns the pipeline configuration this record ran under.
func (r *EvaluationRecord) Mode() Mode {
	return ModeFor(r.UseReranker)
}

// SentChunks returns the normalized passages that were actually shown to
// the generator: the reranked set when reranking was used and produced
// output, otherwise the first ten retrieved.
func (r *EvaluationRecord) SentChunks() []NormalizedPassage {
	if r.UseReranker && len(r.RerankedChunks) > 0 {
		if len(r.RerankedChunks) > 10 {
			return r.RerankedChunks[:10]
		}
		return r.RerankedChunks
	}
	if len(r.RetrievedChunks) > 10 {
		return r.RetrievedChunks[:10]
	}
	return r.RetrievedChunks
}

// ApplyQuality merges a quality verdict into the record.
func (r *EvaluationRecord) ApplyQuality(v QualityVerdict) {
	g, c := v.GroundednessScore, v.CitationScore
	r.GroundednessScore = &g
	r.GroundednessRationale = v.GroundednessRationale
	r.CitationScore = &c
	r.CitationRationale = v.CitationRationale
	r.FailureTags = v.FailureTags
	r.JudgeModel = v.JudgeModel
	jt := v.JudgeTokens
	r.JudgeTokens = &jt
}

// ApplyCompleteness merges a completeness verdict into the record.
func (r *EvaluationRecord) ApplyCompleteness(v CompletenessVerdict) {
	s := v.CompletenessScore
	r.CompletenessScore = &s
	r.CompletenessRationale = v.CompletenessRationale
}

// ErrorRecord is persisted in place of a full record when any pipeline
// stage or collaborator call fails. The batch continues past it.
type ErrorRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryID     string    `json:"query_id"`
	Query       string    `json:"query"`
	UseReranker bool      `json:"use_reranker"`
	Error       string    `json:"error"`
	Category    Category  `json:"category"`
}
