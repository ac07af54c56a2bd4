package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantCount int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"results": [
					{"id": "acciarini2021_sec2.1_p3", "text": "Tracking errors...", "distance": 0.31,
					 "source_id": "acciarini2021", "chunk_id": "sec2.1_p3", "section_title": "Screening",
					 "year": 2021, "authors": "Acciarini et al."},
					{"id": "foti2022_sec1_p1", "text": "Drag modeling...", "distance": 0.44,
					 "source_id": "foti2022", "chunk_id": "sec1_p1"}
				]
			}`,
			wantCount: 2,
		},
		{
			name:      "empty results",
			status:    http.StatusOK,
			body:      `{"results": []}`,
			wantCount: 0,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "index unavailable"}`,
			wantErr: "unexpected status 500",
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"results": [`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/collections/space_debris_rag/query", r.URL.Path)

				var req QueryRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, 20, req.NResults)

				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient("space_debris_rag", WithBaseURL(srv.URL))
			resp, err := c.Query(context.Background(), QueryRequest{
				Query:    "What are the main failure modes?",
				NResults: 20,
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, resp.Results, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, "acciarini2021", resp.Results[0].SourceID)
				assert.InDelta(t, 0.31, resp.Results[0].Distance, 1e-9)
			}
		})
	}
}

func TestQuery_MetadataFilterForwarded(t *testing.T) {
	var got QueryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := NewClient("corpus", WithBaseURL(srv.URL))
	_, err := c.Query(context.Background(), QueryRequest{
		Query:    "uncertainty quantification",
		NResults: 10,
		Where:    map[string]any{"year": map[string]any{"$gte": 2022}},
	})
	require.NoError(t, err)
	assert.NotNil(t, got.Where)
}
