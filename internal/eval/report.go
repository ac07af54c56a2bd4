package eval

import (
	"fmt"
	"io"
	"strings"

	"github.com/sells-group/rag-eval/internal/model"
)

// PrintSummary renders a summary as the human-readable report table:
// per-mode metric means by category, failure-tag histogram, rerank impact
// deltas, and the worst-case shortlist.
func PrintSummary(w io.Writer, s *Summary) {
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintln(w, "EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "Total runs: %d   Errors: %d\n", s.TotalRuns, s.Errors)

	for _, mode := range []model.Mode{model.ModeRerank, model.ModeBaseline} {
		stats, ok := s.Modes[mode]
		if !ok {
			continue
		}
		printMode(w, mode, stats)
	}

	if s.Impact != nil {
		fmt.Fprintf(w, "\n--- Reranking Impact ---\n")
		fmt.Fprintf(w, "  Groundedness:  %.2f -> %.2f (delta = %+.2f)\n",
			s.Impact.BaselineGroundedness, s.Impact.RerankGroundedness, s.Impact.GroundednessDelta)
		fmt.Fprintf(w, "  Citation:      %.2f -> %.2f (delta = %+.2f)\n",
			s.Impact.BaselineCitation, s.Impact.RerankCitation, s.Impact.CitationDelta)
	}

	if len(s.Worst) > 0 {
		fmt.Fprintf(w, "\n--- Lowest-Scoring Queries (candidates for failure case analysis) ---\n")
		for _, c := range s.Worst {
			tags := strings.Join(c.FailureTags, ", ")
			if tags == "" {
				tags = "none"
			}
			fmt.Fprintf(w, "  %s (%s): G=%d C=%d | %s\n", c.QueryID, c.Mode, c.Groundedness, c.Citation, tags)
			fmt.Fprintf(w, "    Query: %s\n", model.Truncate(c.Query, 80))
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 78))
}

func printMode(w io.Writer, mode model.Mode, stats *ModeStats) {
	label := "WITH RERANKING"
	if mode == model.ModeBaseline {
		label = "BASELINE (NO RERANKING)"
	}
	fmt.Fprintf(w, "\n%s (n=%d, scored=%d):\n", label, stats.Total, stats.Scored)

	const rowFmt = "  %-12s %4s %7s %9s %9s %11s %9s\n"
	fmt.Fprintf(w, rowFmt, "Category", "n", "Ground", "Citation", "Complete", "Ret.Recall", "Ctx.Util")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 66))

	for _, cat := range []model.Category{model.CategoryDirect, model.CategorySynthesis, model.CategoryEdgeCase} {
		cs, ok := stats.ByCategory[cat]
		if !ok {
			continue
		}
		printStatsRow(w, rowFmt, string(cat), cs)
	}

	fmt.Fprintln(w, "  "+strings.Repeat("-", 66))
	printStatsRow(w, rowFmt, "OVERALL", &stats.Overall)

	if len(stats.TagCounts) > 0 {
		fmt.Fprintf(w, "  Failure tags:\n")
		for _, tc := range stats.TagCounts {
			fmt.Fprintf(w, "    %s: %d\n", tc.Tag, tc.Count)
		}
	} else {
		fmt.Fprintf(w, "  Failure tags: none\n")
	}
}

func printStatsRow(w io.Writer, rowFmt, label string, cs *CategoryStats) {
	fmt.Fprintf(w, rowFmt, label, fmt.Sprintf("%d", cs.N),
		fmt.Sprintf("%.2f", cs.AvgGroundedness),
		fmt.Sprintf("%.2f", cs.AvgCitation),
		fmtMetric(cs.AvgCompleteness),
		fmtMetric(cs.AvgRetrievalRecall),
		fmtMetric(cs.AvgContextUtilization))
}
