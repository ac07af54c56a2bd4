// Package evallog persists evaluation output as JSON Lines. Records are
// appended one line at a time so a crashed batch keeps everything written
// so far, and reads tolerate the mixed record/error stream that appending
// produces.
package evallog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rag-eval/internal/model"
)

// maxLineSize accommodates records carrying twenty chunk previews plus a
// long answer. One megabyte is far above anything observed.
const maxLineSize = 1024 * 1024

// Append writes v as one JSON line at the end of the file, creating the
// file and its parent directories if needed. Each call opens, appends, and
// closes so data survives a crash mid-batch.
func Append(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "evallog: create log dir")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "evallog: open log")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "evallog: append record")
	}
	return nil
}

// WriteAll replaces the file at path with one JSON line per value. Used
// by enrichment, which writes a new stream rather than mutating its
// input in place.
func WriteAll(path string, values []any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "evallog: create log dir")
	}

	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "evallog: open log")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "evallog: write record")
		}
	}
	return nil
}

// ReadResult is the parsed content of an evaluation log.
type ReadResult struct {
	Records []model.EvaluationRecord
	Errors  []model.ErrorRecord
	Skipped int
}

// Read parses an evaluation log, separating full records from error
// records. Malformed lines are skipped with a warning rather than failing
// the read; a partially valid log from an interrupted run is still usable.
func Read(path string) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "evallog: open %s", path)
	}
	defer f.Close()

	result := &ReadResult{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, maxLineSize), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		// Error records are the lines carrying an "error" field.
		var probe struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			zap.L().Warn("evallog: skipping malformed line",
				zap.String("path", path),
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			result.Skipped++
			continue
		}

		if probe.Error != "" {
			var er model.ErrorRecord
			if err := json.Unmarshal(line, &er); err != nil {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, er)
			continue
		}

		var rec model.EvaluationRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			zap.L().Warn("evallog: skipping unreadable record",
				zap.String("path", path),
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			result.Skipped++
			continue
		}
		result.Records = append(result.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "evallog: scan %s", path)
	}

	return result, nil
}

// WriteSummary writes the aggregate summary JSON next to the log, at the
// log path with its extension swapped for .summary.json.
func WriteSummary(logPath string, summary any) (string, error) {
	ext := filepath.Ext(logPath)
	summaryPath := logPath[:len(logPath)-len(ext)] + ".summary.json"

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "evallog: marshal summary")
	}
	if err := os.WriteFile(summaryPath, data, 0o644); err != nil {
		return "", eris.Wrap(err, "evallog: write summary")
	}
	return summaryPath, nil
}
