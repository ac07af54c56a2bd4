package model

// Category classifies an evaluation query by the kind of reasoning it
// exercises.
type Category string

const (
	CategoryDirect    Category = "direct"
	CategorySynthesis Category = "synthesis"
	CategoryEdgeCase  Category = "edge_case"
)

// EvaluationQuery is one fixed test case, loaded once per run from the
// query registry and immutable thereafter.
type EvaluationQuery struct {
	ID              string   `json:"id" yaml:"id"`
	Category        Category `json:"category" yaml:"category"`
	SubQuestion     string   `json:"sub_question" yaml:"sub_question"`
	Query           string   `json:"query" yaml:"query"`
	ExpectedSources []string `json:"expected_sources" yaml:"expected_sources"`
	Notes           string   `json:"notes" yaml:"notes"`
}

// Mode is one of the two pipeline configurations under comparison.
type Mode string

const (
	ModeRerank   Mode = "rerank"
	ModeBaseline Mode = "baseline"
)

// UseReranker reports whether this mode runs the reranking stage.
func (m Mode) UseReranker() bool {
	return m == ModeRerank
}

// ModeFor maps the persisted use_reranker flag back to a Mode.
func ModeFor(useReranker bool) Mode {
	if useReranker {
		return ModeRerank
	}
	return ModeBaseline
}
