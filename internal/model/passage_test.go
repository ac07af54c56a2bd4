package model

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"shorter than cap", "short text", 200, "short text"},
		{"exactly at cap", strings.Repeat("a", 200), 200, strings.Repeat("a", 200)},
		{"over cap", strings.Repeat("b", 201), 200, strings.Repeat("b", 200) + "..."},
		{"empty", "", 200, ""},
		{"zero limit passes through", "anything", 0, "anything"},
		{"multibyte counted as one rune", strings.Repeat("é", 200), 200, strings.Repeat("é", 200)},
		{"multibyte over cap cut on rune boundary", strings.Repeat("é", 201), 200, strings.Repeat("é", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestTruncate_RuneBoundaryAtPreviewCap(t *testing.T) {
	// A multibyte rune straddling the byte cap must not be split.
	in := strings.Repeat("a", RecordPreviewLimit-1) + "débris"
	got := Truncate(in, RecordPreviewLimit)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", RecordPreviewLimit-1)+"d...", got)
}

func TestNormalize(t *testing.T) {
	dist := 0.42
	p := Passage{
		ID:           "acciarini2021_sec2.1_p3",
		SourceID:     "acciarini2021",
		ChunkID:      "sec2.1_p3",
		SectionTitle: "Conjunction Screening",
		Text:         strings.Repeat("x", 300),
		Distance:     &dist,
		Year:         2021,
		Authors:      "Acciarini et al.",
	}

	n := p.Normalize()
	assert.Equal(t, "acciarini2021", n.SourceID)
	assert.Equal(t, "sec2.1_p3", n.ChunkID)
	assert.Equal(t, strings.Repeat("x", RecordPreviewLimit)+"...", n.TextPreview)
	assert.Equal(t, &dist, n.Distance)
	assert.Nil(t, n.RerankScore)
}

func TestNormalize_ShortTextNoEllipsis(t *testing.T) {
	p := Passage{SourceID: "foti2022", ChunkID: "sec1_p1", Text: "short"}
	assert.Equal(t, "short", p.Normalize().TextPreview)
}

func TestNormalize_Idempotent(t *testing.T) {
	p := Passage{
		SourceID: "sanchez2023",
		ChunkID:  "sec4_p2",
		Text:     strings.Repeat("y", 500),
	}

	once := p.Normalize()
	twice := once.Normalize()
	assert.Equal(t, once, twice)
}

func TestNormalizeAll_PreservesOrderAndNeverNil(t *testing.T) {
	ps := []Passage{
		{SourceID: "a2021", ChunkID: "sec1_p1"},
		{SourceID: "b2022", ChunkID: "sec2_p1"},
	}

	ns := NormalizeAll(ps)
	assert.Len(t, ns, 2)
	assert.Equal(t, "a2021", ns[0].SourceID)
	assert.Equal(t, "b2022", ns[1].SourceID)

	assert.NotNil(t, NormalizeAll(nil))
	assert.Len(t, NormalizeAll(nil), 0)
}
