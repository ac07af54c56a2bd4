package model

import "time"

// RunStatus tracks an evaluation run through its lifecycle in the store.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// EvalRun is one invocation of the evaluation suite, as mirrored into the
// store. The JSONL log remains the durability mechanism; the store exists
// so past runs can be listed and compared without re-parsing log files.
type EvalRun struct {
	ID         string    `json:"id"`
	QueriesRef string    `json:"queries_ref"`
	Modes      []Mode    `json:"modes"`
	JudgeModel string    `json:"judge_model"`
	Status     RunStatus `json:"status"`
	Records    int       `json:"records"`
	Errors     int       `json:"errors"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
