// Package pipeline orchestrates one end-to-end RAG run: retrieve from the
// similarity-search service, rerank with the cross-encoder (or pass
// through), generate a citation-backed answer, and hand back everything a
// caller needs to log or evaluate the run.
package pipeline

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rag-eval/internal/model"
	"github.com/sells-group/rag-eval/pkg/anthropic"
	"github.com/sells-group/rag-eval/pkg/rerank"
	"github.com/sells-group/rag-eval/pkg/search"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 2048
	defaultNRetrieve = 20
	defaultTopK      = 10
)

// Options configures a Pipeline. Zero values fall back to defaults.
type Options struct {
	Model     string
	MaxTokens int64
	NRetrieve int
	TopK      int
}

// Pipeline runs queries through retrieve, rerank, and generate stages.
type Pipeline struct {
	search search.Client
	rerank rerank.Client
	llm    anthropic.Client
	opts   Options
}

// New creates a Pipeline over the three collaborator clients.
func New(searchClient search.Client, rerankClient rerank.Client, llm anthropic.Client, opts Options) *Pipeline {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.NRetrieve <= 0 {
		opts.NRetrieve = defaultNRetrieve
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	return &Pipeline{search: searchClient, rerank: rerankClient, llm: llm, opts: opts}
}

// Run executes the full pipeline for one query in one mode. The returned
// result carries both the raw retrieval and the passages actually shown to
// the generator; elapsed time covers the generation call only.
func (p *Pipeline) Run(ctx context.Context, query string, useReranker bool, where map[string]any) (model.PipelineResult, error) {
	retrieved, err := p.retrieve(ctx, query, where)
	if err != nil {
		return model.PipelineResult{}, err
	}
	zap.L().Debug("pipeline: retrieved", zap.Int("n", len(retrieved)))

	var used []model.Passage
	if useReranker {
		used, err = p.rerankPassages(ctx, query, retrieved)
		if err != nil {
			return model.PipelineResult{}, err
		}
		zap.L().Debug("pipeline: reranked", zap.Int("n", len(used)))
	} else {
		used = passthrough(retrieved, p.opts.TopK)
		zap.L().Debug("pipeline: rerank skipped", zap.Int("n", len(used)))
	}

	start := time.Now()
	resp, err := p.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.opts.Model,
		MaxTokens: p.opts.MaxTokens,
		System:    SystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: buildGenerationPrompt(query, used)}},
	})
	if err != nil {
		return model.PipelineResult{}, eris.Wrap(err, "pipeline: generate")
	}
	elapsed := time.Since(start).Seconds()

	usage := model.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	resp.Usage.LogCost(p.opts.Model, "generation")

	return model.PipelineResult{
		Answer:            resp.Text(),
		RetrievedPassages: retrieved,
		UsedPassages:      used,
		Model:             p.opts.Model,
		PromptVersion:     PromptVersion,
		Usage:             usage,
		ElapsedSeconds:    round2(elapsed),
		UseReranker:       useReranker,
	}, nil
}

func (p *Pipeline) retrieve(ctx context.Context, query string, where map[string]any) ([]model.Passage, error) {
	resp, err := p.search.Query(ctx, search.QueryRequest{
		Query:    query,
		NResults: p.opts.NRetrieve,
		Where:    where,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: retrieve")
	}

	passages := make([]model.Passage, 0, len(resp.Results))
	for _, r := range resp.Results {
		d := r.Distance
		passages = append(passages, model.Passage{
			ID:           r.ID,
			SourceID:     r.SourceID,
			ChunkID:      r.ChunkID,
			SectionID:    r.SectionID,
			SectionTitle: r.SectionTitle,
			Text:         r.Text,
			Distance:     &d,
			Year:         r.Year,
			DocType:      r.DocType,
			Venue:        r.Venue,
			Authors:      r.Authors,
		})
	}
	return passages, nil
}

// rerankPassages scores every retrieved passage against the query with the
// cross-encoder, then keeps the top K by score descending.
func (p *Pipeline) rerankPassages(ctx context.Context, query string, retrieved []model.Passage) ([]model.Passage, error) {
	if len(retrieved) == 0 {
		return []model.Passage{}, nil
	}

	docs := make([]rerank.Document, len(retrieved))
	for i, passage := range retrieved {
		docs[i] = rerank.Document{ID: passage.ID, Text: passage.Text}
	}

	resp, err := p.rerank.Rerank(ctx, rerank.RerankRequest{
		Query:     query,
		Documents: docs,
		TopK:      len(docs),
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: rerank")
	}

	scores := make(map[string]float64, len(resp.Results))
	for _, r := range resp.Results {
		scores[r.ID] = r.Score
	}

	ranked := make([]model.Passage, len(retrieved))
	copy(ranked, retrieved)
	for i := range ranked {
		if s, ok := scores[ranked[i].ID]; ok {
			score := s
			ranked[i].RerankScore = &score
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return derefScore(ranked[i].RerankScore) > derefScore(ranked[j].RerankScore)
	})

	if len(ranked) > p.opts.TopK {
		ranked = ranked[:p.opts.TopK]
	}
	return ranked, nil
}

// passthrough is the baseline mode: the first topK passages in embedding
// order, with rerank scores explicitly absent.
func passthrough(retrieved []model.Passage, topK int) []model.Passage {
	n := len(retrieved)
	if n > topK {
		n = topK
	}
	out := make([]model.Passage, n)
	copy(out, retrieved[:n])
	for i := range out {
		out[i].RerankScore = nil
	}
	return out
}

func derefScore(s *float64) float64 {
	if s == nil {
		return 0
	}
	return *s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
