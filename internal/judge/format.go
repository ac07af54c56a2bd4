package judge

import (
	"fmt"
	"strings"

	"github.com/sells-group/rag-eval/internal/model"
)

// formatEvidence renders the passages the generator saw into the block the
// quality judge reads. Explicit (source_id, chunk_id) headers let the judge
// validate citation format against real identities.
func formatEvidence(passages []model.Passage) string {
	parts := make([]string, 0, len(passages))
	for i, p := range passages {
		header := fmt.Sprintf("[Chunk %d] (%s, %s)", i+1, p.SourceID, p.ChunkID)
		if p.SectionTitle != "" {
			header += " - " + p.SectionTitle
		}
		parts = append(parts, header+"\n"+p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// formatNormalizedEvidence renders logged chunk previews for the
// completeness judge, which runs from persisted records where full text is
// no longer available. Previews are capped at the judge-facing limit.
func formatNormalizedEvidence(chunks []model.NormalizedPassage) string {
	parts := make([]string, 0, len(chunks))
	for i, ch := range chunks {
		parts = append(parts, fmt.Sprintf("[%d] (%s, %s) | Section: %s\n%s",
			i+1, ch.SourceID, ch.ChunkID, ch.SectionTitle,
			model.Truncate(ch.TextPreview, model.JudgePreviewLimit)))
	}
	return strings.Join(parts, "\n\n")
}
