// Package store mirrors evaluation runs into a relational database so past
// runs can be listed and compared without re-parsing log files. The JSONL
// log remains the durability mechanism; the store is a queryable index
// over it. Two drivers: embedded SQLite for local use, Postgres for a
// shared instance.
package store

import (
	"context"
	"encoding/json"

	"github.com/sells-group/rag-eval/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the eval-run mirror.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, queriesRef string, modes []model.Mode, judgeModel string) (*model.EvalRun, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, records, errors int, summary any) error
	GetRun(ctx context.Context, runID string) (*model.EvalRun, error)
	GetRunSummary(ctx context.Context, runID string) (json.RawMessage, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.EvalRun, error)

	// Per-query record mirror
	AddRecord(ctx context.Context, runID string, rec *model.EvaluationRecord) error
	ListRecords(ctx context.Context, runID string) ([]model.EvaluationRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
