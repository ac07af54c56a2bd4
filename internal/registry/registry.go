// Package registry loads the fixed evaluation query set. Queries live in a
// versioned JSON or YAML file and are immutable for the lifetime of a run;
// every mode sees the same set in the same order.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rag-eval/internal/model"
)

// queryFile is the on-disk wrapper: the query list plus optional metadata
// about the set itself. A bare top-level list is also accepted.
type queryFile struct {
	Metadata map[string]any          `json:"metadata" yaml:"metadata"`
	Queries  []model.EvaluationQuery `json:"queries" yaml:"queries"`
}

// LoadQueries reads an evaluation query set from path. Format is chosen by
// extension: .yaml/.yml parse as YAML, everything else as JSON.
func LoadQueries(path string) ([]model.EvaluationQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read queries %s", path)
	}

	var queries []model.EvaluationQuery
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		queries, err = parseYAML(data)
	default:
		queries, err = parseJSON(data)
	}
	if err != nil {
		return nil, err
	}

	if err := validate(queries); err != nil {
		return nil, err
	}

	zap.L().Info("registry: loaded evaluation queries",
		zap.String("path", path),
		zap.Int("count", len(queries)),
	)
	return queries, nil
}

func parseJSON(data []byte) ([]model.EvaluationQuery, error) {
	// Wrapped form first, then a bare list.
	var wrapped queryFile
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Queries != nil {
		return wrapped.Queries, nil
	}

	var bare []model.EvaluationQuery
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, eris.Wrap(err, "registry: parse queries JSON")
	}
	return bare, nil
}

func parseYAML(data []byte) ([]model.EvaluationQuery, error) {
	var wrapped queryFile
	if err := yaml.Unmarshal(data, &wrapped); err == nil && wrapped.Queries != nil {
		return wrapped.Queries, nil
	}

	var bare []model.EvaluationQuery
	if err := yaml.Unmarshal(data, &bare); err != nil {
		return nil, eris.Wrap(err, "registry: parse queries YAML")
	}
	return bare, nil
}

func validate(queries []model.EvaluationQuery) error {
	seen := make(map[string]bool, len(queries))
	for i, q := range queries {
		if q.ID == "" {
			return eris.Errorf("registry: query at index %d has no id", i)
		}
		if q.Query == "" {
			return eris.Errorf("registry: query %s has no query text", q.ID)
		}
		if seen[q.ID] {
			return eris.Errorf("registry: duplicate query id %s", q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

// FilterByPrefix keeps queries whose ID starts with prefix. An empty
// prefix keeps everything.
func FilterByPrefix(queries []model.EvaluationQuery, prefix string) []model.EvaluationQuery {
	if prefix == "" {
		return queries
	}
	out := make([]model.EvaluationQuery, 0, len(queries))
	for _, q := range queries {
		if strings.HasPrefix(q.ID, prefix) {
			out = append(out, q)
		}
	}
	return out
}
