package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"query", "eval", "enrich", "report", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "rag-eval", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestEvalCommand_Flags(t *testing.T) {
	for _, name := range []string{"queries", "output", "rerank-only", "baseline-only", "filter", "no-score", "judge-model", "model", "worst"} {
		require.NotNil(t, evalCmd.Flags().Lookup(name), "eval command should have --%s flag", name)
	}
}

func TestEnrichCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "output", "dry-run", "judge-model", "delay"} {
		require.NotNil(t, enrichCmd.Flags().Lookup(name), "enrich command should have --%s flag", name)
	}
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "summary"} {
		assert.True(t, names[name], "expected runs subcommand %q not found", name)
	}
}

func TestReportCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eval_results.jsonl")

	lines := `{"query_id":"D-01","category":"direct","query":"what limits detection?","use_reranker":true,"answer":"sensors (smith2024, sec1_0)","groundedness_score":4,"citation_score":3,"failure_tags":[]}
{"query_id":"D-01","category":"direct","query":"what limits detection?","use_reranker":false,"answer":"sensors","groundedness_score":2,"citation_score":2,"failure_tags":["MISSING_CITATION"]}
{"query_id":"D-02","query":"broken run","use_reranker":true,"error":"pipeline: retrieve: connection refused"}
`
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"report", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "EVALUATION SUMMARY")
	assert.Contains(t, out, "Total runs: 3   Errors: 1")
	assert.Contains(t, out, "WITH RERANKING (n=1, scored=1):")
	assert.Contains(t, out, "Reranking Impact")
}

func TestReportCommand_MissingFile(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"report", filepath.Join(t.TempDir(), "nope.jsonl")})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.Error(t, rootCmd.Execute())
}
