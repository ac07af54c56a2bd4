package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/rag-eval/internal/model"
)

// PromptVersion is stamped on every generation result and persisted with
// each record, so answers stay attributable to the prompt that produced
// them across prompt revisions.
const PromptVersion = "v1.0"

// SystemPrompt enforces grounded, citation-backed answering. Claims must
// cite provided evidence in (source_id, chunk_id) format, insufficiency
// must be stated rather than papered over, and conflicting sources must
// both be cited.
const SystemPrompt = `You are a research assistant for a domain expert studying ML failure modes in space debris tracking and collision avoidance. Your role is to answer questions using ONLY the provided evidence chunks.

RULES:
1. Every factual claim MUST include an inline citation in the format (source_id, chunk_id), e.g. (acciarini2021, sec2.1_p3).
2. Only cite chunks that are provided in the EVIDENCE section below. Do NOT invent or fabricate citations.
3. If the evidence is insufficient to answer the question, say so explicitly. State what information is missing and what sources might help.
4. If evidence from different sources conflicts, note the disagreement and cite both sides.
5. Do not speculate beyond what the evidence supports.
6. End your response with a REFERENCES section listing each cited source once, formatted as: source_id - Title (Year).`

// buildGenerationPrompt renders the user message: numbered evidence block
// followed by the question and the citation instruction.
func buildGenerationPrompt(query string, passages []model.Passage) string {
	parts := make([]string, 0, len(passages))
	for i, p := range passages {
		section := p.SectionTitle
		if section == "" {
			section = "N/A"
		}
		year := "N/A"
		if p.Year != 0 {
			year = fmt.Sprintf("%d", p.Year)
		}
		authors := p.Authors
		if authors == "" {
			authors = "N/A"
		}
		parts = append(parts, fmt.Sprintf("[%d] (%s, %s) | Section: %s | Year: %s | Authors: %s\n%s",
			i+1, p.SourceID, p.ChunkID, section, year, authors, p.Text))
	}

	return fmt.Sprintf(`EVIDENCE:
%s

QUESTION:
%s

Answer the question using the evidence above. Cite every claim using (source_id, chunk_id) format. If the evidence is insufficient, say so.`,
		strings.Join(parts, "\n\n"), query)
}
