package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/rag-eval/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS eval_runs (
	id          TEXT PRIMARY KEY,
	queries_ref TEXT NOT NULL,
	modes       TEXT NOT NULL,
	judge_model TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'queued',
	records     INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	summary     TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS eval_records (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES eval_runs(id),
	query_id     TEXT NOT NULL,
	mode         TEXT NOT NULL,
	groundedness INTEGER,
	citation     INTEGER,
	record       TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_eval_runs_status ON eval_runs(status);
CREATE INDEX IF NOT EXISTS idx_eval_records_run_id ON eval_records(run_id);
CREATE INDEX IF NOT EXISTS idx_eval_records_query_id ON eval_records(query_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, queriesRef string, modes []model.Mode, judgeModel string) (*model.EvalRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	modesJSON, err := json.Marshal(modes)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal modes")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO eval_runs (id, queries_ref, modes, judge_model, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, queriesRef, string(modesJSON), judgeModel, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.EvalRun{
		ID:         id,
		QueriesRef: queriesRef,
		Modes:      modes,
		JudgeModel: judgeModel,
		Status:     model.RunStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE eval_runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, records, errors int, summary any) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE eval_runs SET status = ?, records = ?, errors = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), records, errors, string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.EvalRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, queries_ref, modes, judge_model, status, records, errors, created_at, updated_at FROM eval_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) GetRunSummary(ctx context.Context, runID string) (json.RawMessage, error) {
	var summary sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT summary FROM eval_runs WHERE id = ?`, runID,
	).Scan(&summary)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run summary %s", runID)
	}
	if !summary.Valid {
		return nil, nil
	}
	return json.RawMessage(summary.String), nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.EvalRun, error) {
	query := `SELECT id, queries_ref, modes, judge_model, status, records, errors, created_at, updated_at FROM eval_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.EvalRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) AddRecord(ctx context.Context, runID string, rec *model.EvaluationRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO eval_records (id, run_id, query_id, mode, groundedness, citation, record, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), runID, rec.QueryID, string(rec.Mode()),
		nullableInt(rec.GroundednessScore), nullableInt(rec.CitationScore),
		string(recordJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert record for run %s", runID)
}

func (s *SQLiteStore) ListRecords(ctx context.Context, runID string) ([]model.EvaluationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM eval_records WHERE run_id = ? ORDER BY created_at, query_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list records for run %s", runID)
	}
	defer rows.Close()

	var records []model.EvaluationRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		var rec model.EvaluationRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.EvalRun, error) {
	var r model.EvalRun
	var modesJSON string

	err := row.Scan(&r.ID, &r.QueriesRef, &modesJSON, &r.JudgeModel, &r.Status, &r.Records, &r.Errors, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(modesJSON), &r.Modes); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal modes")
	}
	return &r, nil
}
