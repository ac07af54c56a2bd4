package model

import "unicode/utf8"

// Preview caps for passage text. Records log a short preview so the JSONL
// file stays manageable; the judge sees a longer one.
const (
	RecordPreviewLimit = 200
	JudgePreviewLimit  = 500
)

// Passage is a retrievable unit of evidence text. Its (SourceID, ChunkID)
// identity is stable across pipeline stages; only scores and ordering change.
type Passage struct {
	ID           string   `json:"id,omitempty"`
	SourceID     string   `json:"source_id"`
	ChunkID      string   `json:"chunk_id"`
	SectionID    string   `json:"section_id,omitempty"`
	SectionTitle string   `json:"section_title"`
	Text         string   `json:"text"`
	Distance     *float64 `json:"distance"`
	RerankScore  *float64 `json:"rerank_score"`
	Year         int      `json:"year,omitempty"`
	DocType      string   `json:"doc_type,omitempty"`
	Venue        string   `json:"venue,omitempty"`
	Authors      string   `json:"authors,omitempty"`
}

// NormalizedPassage is the reduced, serializable form of a Passage used in
// evaluation records. Full text is replaced by a truncated preview.
type NormalizedPassage struct {
	SourceID     string   `json:"source_id"`
	ChunkID      string   `json:"chunk_id"`
	SectionTitle string   `json:"section_title"`
	TextPreview  string   `json:"text_preview"`
	Distance     *float64 `json:"distance"`
	RerankScore  *float64 `json:"rerank_score"`
}

// Normalize reduces a Passage to its loggable form. Pure and deterministic.
func (p Passage) Normalize() NormalizedPassage {
	return NormalizedPassage{
		SourceID:     p.SourceID,
		ChunkID:      p.ChunkID,
		SectionTitle: p.SectionTitle,
		TextPreview:  Truncate(p.Text, RecordPreviewLimit),
		Distance:     p.Distance,
		RerankScore:  p.RerankScore,
	}
}

// Normalize on an already-normalized passage is the identity, so
// normalization is idempotent regardless of how records are re-read.
func (n NormalizedPassage) Normalize() NormalizedPassage {
	return n
}

// NormalizeAll maps Normalize over a slice, preserving order. A nil input
// yields an empty (non-nil) slice so records always serialize an array.
func NormalizeAll(passages []Passage) []NormalizedPassage {
	out := make([]NormalizedPassage, 0, len(passages))
	for _, p := range passages {
		out = append(out, p.Normalize())
	}
	return out
}

// Truncate caps s at limit runes, appending an ellipsis marker only when
// something was actually cut. Cutting on rune boundaries keeps previews
// valid UTF-8.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
