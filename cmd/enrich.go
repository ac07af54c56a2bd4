package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rag-eval/internal/eval"
	"github.com/sells-group/rag-eval/internal/judge"
	"github.com/sells-group/rag-eval/internal/metrics"
)

var (
	enrichInput      string
	enrichOutput     string
	enrichDryRun     bool
	enrichJudgeModel string
	enrichDelay      time.Duration
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Add completeness and mechanical metrics to a finished eval log",
	Long:  "Reads an existing results JSONL, computes retrieval recall and context utilization from the persisted data, asks the judge for a completeness verdict per record, and writes a new enriched stream. The input log is never mutated.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		input := enrichInput
		if input == "" {
			input = cfg.Eval.OutputPath
		}
		output := enrichOutput
		if output == "" {
			output = strings.TrimSuffix(input, ".jsonl") + "_scored.jsonl"
		}
		if output == input {
			return eris.New("enrich output must differ from input")
		}
		delay := enrichDelay
		if delay <= 0 {
			delay = time.Duration(cfg.Eval.JudgeDelayMS) * time.Millisecond
		}

		calc, err := metrics.NewCalculator(cfg.Eval.CitationPattern)
		if err != nil {
			return err
		}

		var j *judge.Judge
		if !enrichDryRun {
			j = newJudge(enrichJudgeModel)
			fmt.Fprintf(out, "Judge model: %s\n", j.Model())
		}

		enricher := eval.NewEnricher(j, calc, eval.EnrichOptions{
			Input:      input,
			Output:     output,
			DryRun:     enrichDryRun,
			JudgeDelay: delay,
			Out:        out,
		})
		summary, err := enricher.Enrich(ctx)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		fmt.Fprintln(out)
		eval.PrintSummary(out, summary)
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "results JSONL to enrich")
	enrichCmd.Flags().StringVar(&enrichOutput, "output", "", "enriched JSONL path (default <input>_scored.jsonl)")
	enrichCmd.Flags().BoolVar(&enrichDryRun, "dry-run", false, "compute mechanical metrics only, no judge calls")
	enrichCmd.Flags().StringVar(&enrichJudgeModel, "judge-model", "", "judge model override")
	enrichCmd.Flags().DurationVar(&enrichDelay, "delay", 0, "minimum spacing between judge calls")
	rootCmd.AddCommand(enrichCmd)
}
