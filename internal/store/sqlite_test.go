package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rag-eval/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func intPtr(v int) *int { return &v }

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "src/eval/queries.json", []model.Mode{model.ModeRerank, model.ModeBaseline}, "claude-opus-4-6")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, "src/eval/queries.json", got.QueriesRef)
	assert.Equal(t, []model.Mode{model.ModeRerank, model.ModeBaseline}, got.Modes)
	assert.Equal(t, "claude-opus-4-6", got.JudgeModel)

	summary := map[string]any{"total_runs": 40, "errors": 1}
	require.NoError(t, s.CompleteRun(ctx, run.ID, 39, 1, summary))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, 39, got.Records)
	assert.Equal(t, 1, got.Errors)

	raw, err := s.GetRunSummary(ctx, run.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_runs": 40, "errors": 1}`, string(raw))
}

func TestSQLiteStore_RunNotFound(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	err := s.UpdateRunStatus(ctx, "missing", model.RunStatusRunning)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	_, err = s.GetRun(ctx, "missing")
	require.Error(t, err)

	_, err = s.GetRunSummary(ctx, "missing")
	require.Error(t, err)
}

func TestSQLiteStore_SummaryNullBeforeComplete(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "queries.json", []model.Mode{model.ModeRerank}, "")
	require.NoError(t, err)

	raw, err := s.GetRunSummary(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	a, err := s.CreateRun(ctx, "a.json", []model.Mode{model.ModeRerank}, "")
	require.NoError(t, err)
	b, err := s.CreateRun(ctx, "b.json", []model.Mode{model.ModeBaseline}, "")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, b.ID, 10, 0, map[string]any{}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, b.ID, complete[0].ID)

	queued, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusQueued})
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, a.ID, queued[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_Records(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "queries.json", []model.Mode{model.ModeRerank}, "claude-opus-4-6")
	require.NoError(t, err)

	scored := &model.EvaluationRecord{
		QueryID:           "D-01",
		Category:          model.CategoryDirect,
		Query:             "what limits detection?",
		UseReranker:       true,
		Answer:            "sensors (smith2024, sec1_0)",
		GroundednessScore: intPtr(4),
		CitationScore:     intPtr(3),
	}
	require.NoError(t, s.AddRecord(ctx, run.ID, scored))

	unscored := &model.EvaluationRecord{
		QueryID:     "D-02",
		Category:    model.CategoryDirect,
		Query:       "second",
		UseReranker: true,
	}
	require.NoError(t, s.AddRecord(ctx, run.ID, unscored))

	records, err := s.ListRecords(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "D-01", records[0].QueryID)
	require.NotNil(t, records[0].GroundednessScore)
	assert.Equal(t, 4, *records[0].GroundednessScore)
	assert.True(t, records[0].Scored())

	assert.Equal(t, "D-02", records[1].QueryID)
	assert.Nil(t, records[1].GroundednessScore)

	empty, err := s.ListRecords(ctx, "other-run")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
