// Package metrics computes the deterministic, non-LLM evaluation metrics:
// retrieval recall against the expected-sources list and context
// utilization from citation matching. Both are pure functions over a
// completed record and never error; missing input yields nil ("no
// signal"), which aggregation treats differently from zero.
package metrics

import (
	"math"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rag-eval/internal/model"
)

// DefaultCitationPattern matches inline citations of the form
// (source_id, chunk_id), e.g. (acciarini2021, sec2.1_p3). The source
// token is an author-year identifier; the chunk token is sec-prefixed.
// The pattern is strict: differently punctuated citations do not count,
// which deliberately undercounts rather than guessing.
const DefaultCitationPattern = `\((\w+\d{4}),\s*(sec[\w._]+)\)`

// topRetrieved caps how many retrieved chunks count toward recall;
// topSent caps how many sent chunks count toward utilization.
const (
	topRetrieved = 20
	topSent      = 10
)

// Calculator evaluates mechanical metrics with a configurable citation
// grammar.
type Calculator struct {
	citationRe *regexp.Regexp
}

// NewCalculator compiles the citation pattern. The pattern must have
// exactly two capture groups: source identifier, then chunk identifier.
func NewCalculator(pattern string) (*Calculator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, eris.Wrapf(err, "metrics: compile citation pattern %q", pattern)
	}
	if re.NumSubexp() != 2 {
		return nil, eris.Errorf("metrics: citation pattern %q must have exactly 2 capture groups, has %d", pattern, re.NumSubexp())
	}
	return &Calculator{citationRe: re}, nil
}

// Default returns a Calculator with the stock citation grammar.
func Default() *Calculator {
	c, err := NewCalculator(DefaultCitationPattern)
	if err != nil {
		panic(err) // the stock pattern always compiles
	}
	return c
}

// RetrievalRecall returns the fraction of expected sources present among
// the top-20 retrieved chunks' source IDs, rounded to 4 decimal places.
// Duplicate chunks from the same source collapse. Returns nil when no
// expected sources are defined: absence of ground truth is distinct from
// a total miss.
func (c *Calculator) RetrievalRecall(rec *model.EvaluationRecord) *float64 {
	if len(rec.ExpectedSources) == 0 {
		return nil
	}

	retrieved := rec.RetrievedChunks
	if len(retrieved) > topRetrieved {
		retrieved = retrieved[:topRetrieved]
	}
	seen := make(map[string]bool, len(retrieved))
	for _, ch := range retrieved {
		seen[ch.SourceID] = true
	}

	hits := 0
	for _, src := range rec.ExpectedSources {
		if seen[src] {
			hits++
		}
	}

	v := round4(float64(hits) / float64(len(rec.ExpectedSources)))
	return &v
}

// ContextUtilization returns the fraction of chunks sent to the generator
// whose (source_id, chunk_id) pair is exactly cited in the answer, rounded
// to 4 decimal places. Returns nil when no chunks were sent. This measures
// precision of use, not recall of citation.
func (c *Calculator) ContextUtilization(rec *model.EvaluationRecord) *float64 {
	sent := rec.SentChunks()
	if len(sent) > topSent {
		sent = sent[:topSent]
	}
	if len(sent) == 0 {
		return nil
	}

	cited := c.citedPairs(rec.Answer)

	hits := 0
	for _, ch := range sent {
		if cited[citation{ch.SourceID, ch.ChunkID}] {
			hits++
		}
	}

	v := round4(float64(hits) / float64(len(sent)))
	return &v
}

// citation is an exact (source_id, chunk_id) identity pair.
type citation struct {
	sourceID string
	chunkID  string
}

// citedPairs extracts every citation in the answer matching the grammar.
func (c *Calculator) citedPairs(answer string) map[citation]bool {
	pairs := make(map[citation]bool)
	for _, m := range c.citationRe.FindAllStringSubmatch(answer, -1) {
		pairs[citation{m[1], m[2]}] = true
	}
	return pairs
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
