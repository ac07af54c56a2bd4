package eval

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/rag-eval/internal/evallog"
	"github.com/sells-group/rag-eval/internal/metrics"
	"github.com/sells-group/rag-eval/internal/model"
)

// completenessScorer is the slice of the judge the enricher needs.
type completenessScorer interface {
	ScoreCompleteness(ctx context.Context, query, answer string, sent []model.NormalizedPassage) (model.CompletenessVerdict, error)
	Model() string
}

// DefaultJudgeDelay paces completeness calls to the judge oracle.
const DefaultJudgeDelay = 500 * time.Millisecond

// EnrichOptions configures an enrichment pass.
type EnrichOptions struct {
	Input  string
	Output string

	// DryRun computes mechanical metrics only, skipping judge calls.
	DryRun bool

	// JudgeDelay is the minimum spacing between judge calls.
	JudgeDelay time.Duration

	Out io.Writer
}

// Enricher adds the second-wave metrics to a finished evaluation log:
// retrieval recall and context utilization from the persisted data alone,
// and a completeness verdict from the judge oracle. Output goes to a new
// stream; the input log is never mutated.
type Enricher struct {
	judge   completenessScorer
	calc    *metrics.Calculator
	limiter *rate.Limiter
	opts    EnrichOptions
}

// NewEnricher creates an Enricher. judge may be nil only for dry runs.
func NewEnricher(j completenessScorer, calc *metrics.Calculator, opts EnrichOptions) *Enricher {
	if calc == nil {
		calc = metrics.Default()
	}
	if opts.JudgeDelay <= 0 {
		opts.JudgeDelay = DefaultJudgeDelay
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Enricher{
		judge:   j,
		calc:    calc,
		limiter: rate.NewLimiter(rate.Every(opts.JudgeDelay), 1),
		opts:    opts,
	}
}

// Enrich reads the input log, computes metrics per record, and writes the
// enriched stream plus its summary snapshot. Judge call failures degrade
// to an unscored completeness field on that record; the pass continues.
func (e *Enricher) Enrich(ctx context.Context) (*Summary, error) {
	parsed, err := evallog.Read(e.opts.Input)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(e.opts.Out, "Loaded %d records from %s\n", len(parsed.Records), e.opts.Input)

	totalTokens := model.JudgeTokens{}
	enriched := make([]model.EvaluationRecord, 0, len(parsed.Records))

	for i, record := range parsed.Records {
		record.RetrievalRecall = e.calc.RetrievalRecall(&record)
		record.ContextUtilization = e.calc.ContextUtilization(&record)

		if e.opts.DryRun || e.judge == nil {
			fmt.Fprintf(e.opts.Out, "  [%d/%d] %s %s: ret_recall=%s ctx_util=%s (dry-run, skipping completeness)\n",
				i+1, len(parsed.Records), record.QueryID, record.Mode(),
				fmtMetric(record.RetrievalRecall), fmtMetric(record.ContextUtilization))
			enriched = append(enriched, record)
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		verdict, err := e.judge.ScoreCompleteness(ctx, record.Query, record.Answer, record.SentChunks())
		if err != nil {
			fmt.Fprintf(e.opts.Out, "  [%d/%d] %s %s: ERROR - %v\n",
				i+1, len(parsed.Records), record.QueryID, record.Mode(), err)
			record.CompletenessScore = nil
			record.CompletenessRationale = fmt.Sprintf("Scoring error: %v", err)
			enriched = append(enriched, record)
			continue
		}

		record.ApplyCompleteness(verdict)
		totalTokens.Input += verdict.JudgeTokens.Input
		totalTokens.Output += verdict.JudgeTokens.Output

		fmt.Fprintf(e.opts.Out, "  [%d/%d] %s %s: completeness=%d ret_recall=%s ctx_util=%s\n",
			i+1, len(parsed.Records), record.QueryID, record.Mode(),
			verdict.CompletenessScore,
			fmtMetric(record.RetrievalRecall), fmtMetric(record.ContextUtilization))
		enriched = append(enriched, record)
	}

	// New stream: enriched records first, original error records preserved.
	lines := make([]any, 0, len(enriched)+len(parsed.Errors))
	for i := range enriched {
		lines = append(lines, &enriched[i])
	}
	for i := range parsed.Errors {
		lines = append(lines, &parsed.Errors[i])
	}
	if err := evallog.WriteAll(e.opts.Output, lines); err != nil {
		return nil, err
	}
	fmt.Fprintf(e.opts.Out, "\nWrote %d enriched records to %s\n", len(enriched), e.opts.Output)

	summary := Summarize(enriched, len(parsed.Errors), 0)
	summary.SourceFile = e.opts.Input
	if e.judge != nil {
		summary.JudgeModel = e.judge.Model()
	}
	if !e.opts.DryRun {
		summary.CompletenessJudgeTokens = &totalTokens
	}

	summaryPath, err := evallog.WriteSummary(e.opts.Output, summary)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(e.opts.Out, "Wrote summary to %s\n", summaryPath)

	return summary, nil
}

func fmtMetric(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
