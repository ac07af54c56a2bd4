package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rag-eval/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rag-eval",
	Short: "RAG pipeline evaluation harness",
	Long:  "Runs retrieval-augmented generation queries over the document corpus, scores answers with an LLM judge, and quantifies what reranking buys over raw embedding order.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
