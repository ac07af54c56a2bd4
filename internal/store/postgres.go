package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rag-eval/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO eval_runs (id, queries_ref, modes, judge_model, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"update_run_status": `UPDATE eval_runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"complete_run":      `UPDATE eval_runs SET status = $1, records = $2, errors = $3, summary = $4, updated_at = $5 WHERE id = $6`,
	"get_run":           `SELECT id, queries_ref, modes, judge_model, status, records, errors, created_at, updated_at FROM eval_runs WHERE id = $1`,
	"insert_record":     `INSERT INTO eval_records (id, run_id, query_id, mode, groundedness, citation, record, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS eval_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	queries_ref TEXT NOT NULL,
	modes       JSONB NOT NULL,
	judge_model TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'queued',
	records     INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	summary     JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS eval_records (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id       TEXT NOT NULL REFERENCES eval_runs(id),
	query_id     TEXT NOT NULL,
	mode         TEXT NOT NULL,
	groundedness INTEGER,
	citation     INTEGER,
	record       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_eval_runs_status ON eval_runs(status);
CREATE INDEX IF NOT EXISTS idx_eval_records_run_id ON eval_records(run_id);
CREATE INDEX IF NOT EXISTS idx_eval_records_query_id ON eval_records(query_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, queriesRef string, modes []model.Mode, judgeModel string) (*model.EvalRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	modesJSON, err := json.Marshal(modes)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal modes")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO eval_runs (id, queries_ref, modes, judge_model, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, queriesRef, modesJSON, judgeModel, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE eval_runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, records, errors int, summary any) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE eval_runs SET status = $1, records = $2, errors = $3, summary = $4, updated_at = $5 WHERE id = $6`,
		string(model.RunStatusComplete), records, errors, summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.EvalRun, error) {
	var r model.EvalRun
	var modesJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, queries_ref, modes, judge_model, status, records, errors, created_at, updated_at FROM eval_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.QueriesRef, &modesJSON, &r.JudgeModel, &r.Status, &r.Records, &r.Errors, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if err := json.Unmarshal(modesJSON, &r.Modes); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal modes")
	}
	return &r, nil
}

func (s *PostgresStore) GetRunSummary(ctx context.Context, runID string) (json.RawMessage, error) {
	var summary []byte
	err := s.pool.QueryRow(ctx,
		`SELECT summary FROM eval_runs WHERE id = $1`, runID,
	).Scan(&summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run summary %s", runID)
	}
	return json.RawMessage(summary), nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.EvalRun, error) {
	query := `SELECT id, queries_ref, modes, judge_model, status, records, errors, created_at, updated_at FROM eval_runs WHERE 1=1`
	var args []any
	arg := 1

	if filter.Status != "" {
		query += ` AND status = $1`
		args = append(args, string(filter.Status))
		arg++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT $` + strconv.Itoa(arg)
	args = append(args, limit)
	arg++

	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(arg)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.EvalRun
	for rows.Next() {
		var r model.EvalRun
		var modesJSON []byte
		if err := rows.Scan(&r.ID, &r.QueriesRef, &modesJSON, &r.JudgeModel, &r.Status, &r.Records, &r.Errors, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(modesJSON, &r.Modes); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal modes")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) AddRecord(ctx context.Context, runID string, rec *model.EvaluationRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO eval_records (id, run_id, query_id, mode, groundedness, citation, record, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), runID, rec.QueryID, string(rec.Mode()),
		rec.GroundednessScore, rec.CitationScore, recordJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert record for run %s", runID)
}

func (s *PostgresStore) ListRecords(ctx context.Context, runID string) ([]model.EvaluationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM eval_records WHERE run_id = $1 ORDER BY created_at, query_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list records for run %s", runID)
	}
	defer rows.Close()

	var records []model.EvaluationRecord
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		var rec model.EvaluationRecord
		if err := json.Unmarshal(recordJSON, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

