package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rag-eval/internal/model"
)

// QueryLogEntry is the full per-query record written to the ad-hoc query
// log: retrieval summaries, the exact evidence the generator saw (with
// full text), and the generation output.
type QueryLogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Query      string         `json:"query"`
	Retrieval  RetrievalLog   `json:"retrieval"`
	Reranking  RerankingLog   `json:"reranking"`
	Generation GenerationLog  `json:"generation"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RetrievalLog summarizes the raw retrieval stage. Chunks are slimmed so
// the log does not duplicate full text twenty times per query.
type RetrievalLog struct {
	NRetrieved int         `json:"n_retrieved"`
	Chunks     []SlimChunk `json:"chunks"`
}

// RerankingLog holds the passages actually sent to the generator, text
// included.
type RerankingLog struct {
	NReranked int         `json:"n_reranked"`
	Chunks    []FullChunk `json:"chunks"`
}

// GenerationLog is the answer plus its provenance.
type GenerationLog struct {
	Answer        string           `json:"answer"`
	Model         string           `json:"model"`
	PromptVersion string           `json:"prompt_version"`
	Usage         model.TokenUsage `json:"usage"`
}

// SlimChunk is a retrieval summary: identity and scores, no text.
type SlimChunk struct {
	ID           string   `json:"id"`
	SourceID     string   `json:"source_id"`
	ChunkID      string   `json:"chunk_id"`
	SectionTitle string   `json:"section_title"`
	Distance     *float64 `json:"distance"`
	RerankScore  *float64 `json:"rerank_score"`
}

// FullChunk keeps the text for chunks the generator saw.
type FullChunk struct {
	ID           string   `json:"id"`
	SourceID     string   `json:"source_id"`
	ChunkID      string   `json:"chunk_id"`
	SectionTitle string   `json:"section_title"`
	Year         int      `json:"year"`
	Authors      string   `json:"authors"`
	Distance     *float64 `json:"distance"`
	RerankScore  *float64 `json:"rerank_score"`
	Text         string   `json:"text"`
}

// BuildLogEntry folds a pipeline result into a query log entry.
func BuildLogEntry(query string, result model.PipelineResult, metadata map[string]any) QueryLogEntry {
	slim := make([]SlimChunk, 0, len(result.RetrievedPassages))
	for _, p := range result.RetrievedPassages {
		slim = append(slim, SlimChunk{
			ID:           p.ID,
			SourceID:     p.SourceID,
			ChunkID:      p.ChunkID,
			SectionTitle: p.SectionTitle,
			Distance:     p.Distance,
			RerankScore:  p.RerankScore,
		})
	}

	full := make([]FullChunk, 0, len(result.UsedPassages))
	for _, p := range result.UsedPassages {
		full = append(full, FullChunk{
			ID:           p.ID,
			SourceID:     p.SourceID,
			ChunkID:      p.ChunkID,
			SectionTitle: p.SectionTitle,
			Year:         p.Year,
			Authors:      p.Authors,
			Distance:     p.Distance,
			RerankScore:  p.RerankScore,
			Text:         p.Text,
		})
	}

	return QueryLogEntry{
		Timestamp: time.Now().UTC(),
		Query:     query,
		Retrieval: RetrievalLog{NRetrieved: len(slim), Chunks: slim},
		Reranking: RerankingLog{NReranked: len(full), Chunks: full},
		Generation: GenerationLog{
			Answer:        result.Answer,
			Model:         result.Model,
			PromptVersion: result.PromptVersion,
			Usage:         result.Usage,
		},
		Metadata: metadata,
	}
}

// LogQuery appends one entry to the JSONL query log, creating parent
// directories as needed. Open-per-write in append mode keeps partially
// completed batches durable.
func LogQuery(path string, entry QueryLogEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "pipeline: create log dir")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "pipeline: open query log")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return eris.Wrap(err, "pipeline: write query log")
	}
	return nil
}
