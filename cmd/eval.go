package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rag-eval/internal/eval"
	"github.com/sells-group/rag-eval/internal/judge"
	"github.com/sells-group/rag-eval/internal/model"
	"github.com/sells-group/rag-eval/internal/registry"
)

var (
	evalQueriesPath  string
	evalOutputPath   string
	evalRerankOnly   bool
	evalBaselineOnly bool
	evalFilter       string
	evalNoScore      bool
	evalJudgeModel   string
	evalModel        string
	evalWorstN       int
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run the evaluation suite",
	Long:  "Runs every query in the set through the pipeline, reranked mode before baseline, judges each answer, and appends records to a crash-safe JSONL log.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if evalRerankOnly && evalBaselineOnly {
			return eris.New("--rerank-only and --baseline-only are mutually exclusive")
		}

		queriesPath := evalQueriesPath
		if queriesPath == "" {
			queriesPath = cfg.Eval.QueriesPath
		}
		outputPath := evalOutputPath
		if outputPath == "" {
			outputPath = cfg.Eval.OutputPath
		}
		worstN := evalWorstN
		if worstN <= 0 {
			worstN = cfg.Eval.WorstN
		}

		queries, err := registry.LoadQueries(queriesPath)
		if err != nil {
			return err
		}
		if evalFilter != "" {
			queries = registry.FilterByPrefix(queries, evalFilter)
			if len(queries) == 0 {
				return eris.Errorf("no queries match prefix %q", evalFilter)
			}
		}

		modes := []model.Mode{model.ModeRerank, model.ModeBaseline}
		switch {
		case evalRerankOnly:
			modes = []model.Mode{model.ModeRerank}
		case evalBaselineOnly:
			modes = []model.Mode{model.ModeBaseline}
		}

		var j *judge.Judge
		judgeModelName := ""
		if !evalNoScore {
			j = newJudge(evalJudgeModel)
			judgeModelName = j.Model()
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		var run *model.EvalRun
		opts := eval.RunnerOptions{
			OutputPath: outputPath,
			Modes:      modes,
			NoScore:    evalNoScore,
			WorstN:     worstN,
			Out:        out,
		}
		if st != nil {
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
			run, err = st.CreateRun(ctx, queriesPath, modes, judgeModelName)
			if err != nil {
				return eris.Wrap(err, "create run")
			}
			if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
				return eris.Wrap(err, "mark run running")
			}
			opts.Mirror = func(ctx context.Context, rec *model.EvaluationRecord) error {
				return st.AddRecord(ctx, run.ID, rec)
			}
		}

		runner := eval.NewRunner(newPipeline(evalModel), j, opts)
		summary, err := runner.Run(ctx, queries)
		if err != nil {
			if st != nil && run != nil {
				if stErr := st.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed); stErr != nil {
					zap.L().Warn("eval: mark run failed", zap.Error(stErr))
				}
			}
			return eris.Wrap(err, "eval run")
		}

		if st != nil && run != nil {
			records := summary.TotalRuns - summary.Errors
			if err := st.CompleteRun(ctx, run.ID, records, summary.Errors, summary); err != nil {
				zap.L().Warn("eval: complete run", zap.Error(err))
			} else {
				fmt.Fprintf(out, "Run mirrored to store: %s\n", run.ID)
			}
		}

		fmt.Fprintln(out)
		eval.PrintSummary(out, summary)
		return nil
	},
}

func init() {
	evalCmd.Flags().StringVar(&evalQueriesPath, "queries", "", "query set file (json or yaml)")
	evalCmd.Flags().StringVar(&evalOutputPath, "output", "", "results JSONL path")
	evalCmd.Flags().BoolVar(&evalRerankOnly, "rerank-only", false, "run only the reranked mode")
	evalCmd.Flags().BoolVar(&evalBaselineOnly, "baseline-only", false, "run only the baseline mode")
	evalCmd.Flags().StringVar(&evalFilter, "filter", "", "run only queries whose ID starts with this prefix")
	evalCmd.Flags().BoolVar(&evalNoScore, "no-score", false, "skip judge scoring (pipeline output only)")
	evalCmd.Flags().StringVar(&evalJudgeModel, "judge-model", "", "judge model override")
	evalCmd.Flags().StringVar(&evalModel, "model", "", "generation model override")
	evalCmd.Flags().IntVar(&evalWorstN, "worst", 0, "number of lowest-scoring queries to list in the summary")
	rootCmd.AddCommand(evalCmd)
}
