package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rag-eval/internal/eval"
	"github.com/sells-group/rag-eval/internal/evallog"
)

var reportWorstN int

var reportCmd = &cobra.Command{
	Use:   "report [log-file]",
	Short: "Summarize an evaluation log without any API calls",
	Long:  "Re-aggregates an existing results JSONL and prints the summary table. Separated from eval so reports can be re-run for free.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Eval.OutputPath
		if len(args) == 1 {
			path = args[0]
		}
		worstN := reportWorstN
		if worstN <= 0 {
			worstN = cfg.Eval.WorstN
		}

		parsed, err := evallog.Read(path)
		if err != nil {
			return err
		}
		if len(parsed.Records) == 0 && len(parsed.Errors) == 0 {
			return eris.Errorf("no records in %s", path)
		}

		summary := eval.Summarize(parsed.Records, len(parsed.Errors), worstN)
		summary.SourceFile = path
		eval.PrintSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportWorstN, "worst", 0, "number of lowest-scoring queries to list")
	rootCmd.AddCommand(reportCmd)
}
