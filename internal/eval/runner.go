package eval

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/rag-eval/internal/evallog"
	"github.com/sells-group/rag-eval/internal/model"
)

// pipelineRunner is the slice of the pipeline the runner needs.
type pipelineRunner interface {
	Run(ctx context.Context, query string, useReranker bool, where map[string]any) (model.PipelineResult, error)
}

// qualityScorer is the slice of the judge the runner needs.
type qualityScorer interface {
	ScoreQuality(ctx context.Context, query, answer string, passages []model.Passage) (model.QualityVerdict, error)
	Model() string
}

// RunnerOptions configures an evaluation batch.
type RunnerOptions struct {
	OutputPath string
	Modes      []model.Mode
	NoScore    bool
	WorstN     int
	Where      map[string]any

	// Mirror, when set, receives each record after it has been persisted to
	// the log, e.g. to copy it into a run store. Mirror failures are logged
	// and never interrupt the batch; the log already holds the data.
	Mirror func(ctx context.Context, rec *model.EvaluationRecord) error

	// Out receives human-readable progress lines. Defaults to stdout.
	Out io.Writer
}

// Runner drives one evaluation batch: every query through every mode,
// sequentially, each result judged and persisted before the next run
// starts. Serial execution is deliberate: generation and judge calls are
// metered external calls, and serializing them keeps cost accounting
// exact and avoids burst-rate errors.
type Runner struct {
	pipeline pipelineRunner
	judge    qualityScorer
	opts     RunnerOptions
}

// NewRunner creates a Runner. judge may be nil only when NoScore is set.
func NewRunner(p pipelineRunner, j qualityScorer, opts RunnerOptions) *Runner {
	if len(opts.Modes) == 0 {
		opts.Modes = []model.Mode{model.ModeRerank, model.ModeBaseline}
	}
	if opts.WorstN <= 0 {
		opts.WorstN = DefaultWorstN
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Runner{pipeline: p, judge: j, opts: opts}
}

// Run executes the batch and returns its summary. Per-query failures
// become persisted error records, never batch aborts; the only error
// paths here are I/O on the log itself.
func (r *Runner) Run(ctx context.Context, queries []model.EvaluationQuery) (*Summary, error) {
	total := len(queries) * len(r.opts.Modes)
	fmt.Fprintf(r.opts.Out, "Planned: %d queries x %d mode(s) = %d total runs\n", len(queries), len(r.opts.Modes), total)
	if !r.opts.NoScore && r.judge != nil {
		fmt.Fprintf(r.opts.Out, "Judge model: %s\n", r.judge.Model())
	}

	var records []model.EvaluationRecord
	errorCount := 0
	runIdx := 0

	for _, mode := range r.opts.Modes {
		useReranker := mode.UseReranker()
		label := "WITHOUT reranking (baseline)"
		if useReranker {
			label = "WITH reranking"
		}
		fmt.Fprintf(r.opts.Out, "\nRunning %d queries %s\n\n", len(queries), label)

		for _, q := range queries {
			runIdx++
			fmt.Fprintf(r.opts.Out, "  [%d/%d] %s (%s): running...\n", runIdx, total, q.ID, mode)

			record, err := r.runOne(ctx, q, useReranker)
			if err != nil {
				fmt.Fprintf(r.opts.Out, "  [%d/%d] %s (%s): ERROR - %v\n", runIdx, total, q.ID, mode, err)
				zap.L().Error("eval: query run failed",
					zap.String("query_id", q.ID),
					zap.String("mode", string(mode)),
					zap.Error(err),
				)
				errorCount++
				errRec := model.ErrorRecord{
					Timestamp:   time.Now().UTC(),
					QueryID:     q.ID,
					Query:       q.Query,
					UseReranker: useReranker,
					Error:       err.Error(),
					Category:    q.Category,
				}
				if appendErr := evallog.Append(r.opts.OutputPath, errRec); appendErr != nil {
					return nil, appendErr
				}
				continue
			}

			if record.Scored() || record.GroundednessScore != nil {
				fmt.Fprintf(r.opts.Out, "  [%d/%d] %s (%s): %s\n", runIdx, total, q.ID, mode, scoreLine(record))
			}

			if err := evallog.Append(r.opts.OutputPath, record); err != nil {
				return nil, err
			}
			if r.opts.Mirror != nil {
				if err := r.opts.Mirror(ctx, record); err != nil {
					zap.L().Warn("eval: record mirror failed",
						zap.String("query_id", q.ID),
						zap.Error(err),
					)
				}
			}
			records = append(records, *record)
		}
	}

	summary := Summarize(records, errorCount, r.opts.WorstN)

	if summaryPath, err := evallog.WriteSummary(r.opts.OutputPath, summary); err != nil {
		zap.L().Warn("eval: summary write failed", zap.Error(err))
	} else {
		fmt.Fprintf(r.opts.Out, "\nResults saved to: %s\n", r.opts.OutputPath)
		fmt.Fprintf(r.opts.Out, "Summary saved to: %s\n", summaryPath)
	}

	return summary, nil
}

// runOne processes a single (query, mode) pair: pipeline, then judge
// unless scoring is disabled.
func (r *Runner) runOne(ctx context.Context, q model.EvaluationQuery, useReranker bool) (*model.EvaluationRecord, error) {
	result, err := r.pipeline.Run(ctx, q.Query, useReranker, r.opts.Where)
	if err != nil {
		return nil, err
	}

	record := buildRecord(q, result)

	if !r.opts.NoScore && r.judge != nil {
		verdict, err := r.judge.ScoreQuality(ctx, q.Query, result.Answer, result.UsedPassages)
		if err != nil {
			return nil, err
		}
		record.ApplyQuality(verdict)
	}

	return record, nil
}

// buildRecord folds query metadata and a pipeline result into one
// persistent record.
func buildRecord(q model.EvaluationQuery, result model.PipelineResult) *model.EvaluationRecord {
	return &model.EvaluationRecord{
		Timestamp:        time.Now().UTC(),
		QueryID:          q.ID,
		Category:         q.Category,
		SubQuestion:      q.SubQuestion,
		Query:            q.Query,
		ExpectedSources:  q.ExpectedSources,
		Notes:            q.Notes,
		UseReranker:      result.UseReranker,
		Model:            result.Model,
		PromptVersion:    result.PromptVersion,
		Answer:           result.Answer,
		RetrievedChunks:  model.NormalizeAll(result.RetrievedPassages),
		RerankedChunks:   model.NormalizeAll(result.UsedPassages),
		GenerationTokens: result.Usage,
		ElapsedSeconds:   result.ElapsedSeconds,
	}
}

func scoreLine(record *model.EvaluationRecord) string {
	g, c := "?", "?"
	if record.GroundednessScore != nil {
		g = fmt.Sprintf("%d", *record.GroundednessScore)
	}
	if record.CitationScore != nil {
		c = fmt.Sprintf("%d", *record.CitationScore)
	}
	line := fmt.Sprintf("G=%s C=%s", g, c)
	if len(record.FailureTags) > 0 {
		line += " | tags: " + strings.Join(record.FailureTags, ", ")
	}
	return line
}
