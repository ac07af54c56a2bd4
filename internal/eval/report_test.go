package eval

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/rag-eval/internal/model"
)

func TestPrintSummary(t *testing.T) {
	records := []model.EvaluationRecord{
		scoredRecord("D-01", true, model.CategoryDirect, 4, 4),
		scoredRecord("S-01", true, model.CategorySynthesis, 2, 1, model.TagMissingCitation),
		scoredRecord("D-01", false, model.CategoryDirect, 3, 3),
		scoredRecord("S-01", false, model.CategorySynthesis, 2, 2),
	}
	s := Summarize(records, 1, 2)

	var buf bytes.Buffer
	PrintSummary(&buf, s)
	out := buf.String()

	assert.Contains(t, out, "EVALUATION SUMMARY")
	assert.Contains(t, out, "Total runs: 5   Errors: 1")
	assert.Contains(t, out, "WITH RERANKING (n=2, scored=2):")
	assert.Contains(t, out, "BASELINE (NO RERANKING) (n=2, scored=2):")
	assert.Contains(t, out, "direct")
	assert.Contains(t, out, "synthesis")
	assert.Contains(t, out, "OVERALL")
	assert.Contains(t, out, "MISSING_CITATION: 1")
	assert.Contains(t, out, "--- Reranking Impact ---")
	assert.Contains(t, out, "--- Lowest-Scoring Queries")
	assert.Contains(t, out, "S-01 (rerank): G=2 C=1 | MISSING_CITATION")
}

func TestPrintSummary_NoTags(t *testing.T) {
	s := Summarize([]model.EvaluationRecord{
		scoredRecord("D-01", true, model.CategoryDirect, 4, 4),
	}, 0, 0)

	var buf bytes.Buffer
	PrintSummary(&buf, s)
	assert.Contains(t, buf.String(), "Failure tags: none")
}
