package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rag-eval/internal/judge"
	"github.com/sells-group/rag-eval/internal/pipeline"
	"github.com/sells-group/rag-eval/internal/store"
	"github.com/sells-group/rag-eval/pkg/anthropic"
	"github.com/sells-group/rag-eval/pkg/rerank"
	"github.com/sells-group/rag-eval/pkg/search"
)

// newPipeline wires the three service clients into a pipeline from the
// loaded configuration. generationModel overrides the configured model
// when non-empty.
func newPipeline(generationModel string) *pipeline.Pipeline {
	searchClient := search.NewClient(cfg.Search.Collection, search.WithBaseURL(cfg.Search.BaseURL))
	rerankClient := rerank.NewClient(rerank.WithBaseURL(cfg.Rerank.BaseURL), rerank.WithModel(cfg.Rerank.Model))
	llm := anthropic.NewClient(cfg.Anthropic.Key)

	if generationModel == "" {
		generationModel = cfg.Anthropic.Model
	}
	return pipeline.New(searchClient, rerankClient, llm, pipeline.Options{
		Model:     generationModel,
		MaxTokens: cfg.Anthropic.MaxTokens,
		NRetrieve: cfg.Pipeline.NRetrieve,
		TopK:      cfg.Pipeline.TopK,
	})
}

// newJudge builds the scoring judge. judgeModel overrides the configured
// model when non-empty.
func newJudge(judgeModel string) *judge.Judge {
	if judgeModel == "" {
		judgeModel = cfg.Anthropic.JudgeModel
	}
	return judge.New(anthropic.NewClient(cfg.Anthropic.Key), judgeModel, cfg.Anthropic.JudgeMaxTokens)
}

// initStore opens the configured run store. A nil store with nil error
// means no driver is configured and the run mirror is disabled.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "":
		return nil, nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "rag-eval.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// requireStore is initStore for commands that cannot work without one.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("no store driver configured (set store.driver or RAGEVAL_STORE_DRIVER to sqlite or postgres)")
	}
	return st, nil
}
