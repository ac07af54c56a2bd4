package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerank(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
		wantIDs []string
	}{
		{
			name:   "success sorted by score",
			status: http.StatusOK,
			body: `{
				"results": [
					{"id": "b", "score": 7.12},
					{"id": "a", "score": 2.03}
				]
			}`,
			wantIDs: []string{"b", "a"},
		},
		{
			name:    "service error",
			status:  http.StatusServiceUnavailable,
			body:    `model loading`,
			wantErr: "unexpected status 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/rerank", r.URL.Path)

				var req RerankRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				// Default model fills in when the request leaves it empty.
				assert.Equal(t, defaultModel, req.Model)
				assert.Len(t, req.Documents, 2)

				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(WithBaseURL(srv.URL))
			resp, err := c.Rerank(context.Background(), RerankRequest{
				Query: "class imbalance",
				Documents: []Document{
					{ID: "a", Text: "first candidate"},
					{ID: "b", Text: "second candidate"},
				},
				TopK: 10,
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			ids := make([]string, 0, len(resp.Results))
			for _, res := range resp.Results {
				ids = append(ids, res.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestRerank_ModelOverride(t *testing.T) {
	var got RerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithModel("cross-encoder/ms-marco-electra-base"))
	_, err := c.Rerank(context.Background(), RerankRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "cross-encoder/ms-marco-electra-base", got.Model)
}
