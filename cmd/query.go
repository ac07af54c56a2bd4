package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rag-eval/internal/pipeline"
)

var (
	queryNoRerank bool
	queryModel    string
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a single question through the RAG pipeline",
	Long:  "Retrieves evidence, reranks it (unless --no-rerank), generates a citation-backed answer, and appends the run to the pipeline query log.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		question := args[0]
		out := cmd.OutOrStdout()

		p := newPipeline(queryModel)
		result, err := p.Run(ctx, question, !queryNoRerank, nil)
		if err != nil {
			return eris.Wrap(err, "query")
		}

		fmt.Fprintln(out, result.Answer)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Sources (%d passages, model=%s, %.2fs):\n", len(result.UsedPassages), result.Model, result.ElapsedSeconds)
		for i, passage := range result.UsedPassages {
			line := fmt.Sprintf("  [%d] (%s, %s) %s", i+1, passage.SourceID, passage.ChunkID, passage.SectionTitle)
			if passage.RerankScore != nil {
				line += fmt.Sprintf(" [score=%.4f]", *passage.RerankScore)
			}
			fmt.Fprintln(out, line)
		}

		entry := pipeline.BuildLogEntry(question, result, nil)
		if err := pipeline.LogQuery(cfg.Pipeline.LogPath, entry); err != nil {
			zap.L().Warn("query: log write failed", zap.Error(err))
		}

		return nil
	},
}

func init() {
	queryCmd.Flags().BoolVar(&queryNoRerank, "no-rerank", false, "skip the reranking stage (raw embedding order)")
	queryCmd.Flags().StringVar(&queryModel, "model", "", "generation model override")
	rootCmd.AddCommand(queryCmd)
}
