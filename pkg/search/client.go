// Package search is a client for the similarity-search service that holds
// the ingested corpus embeddings. Retrieval itself (embedding, ANN search)
// lives in that service; this package only speaks its query contract.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "http://localhost:8901"

// Client queries the similarity-search service.
type Client interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}

// QueryRequest is the request body for POST /collections/{name}/query.
type QueryRequest struct {
	Query    string         `json:"query"`
	NResults int            `json:"n_results"`
	Where    map[string]any `json:"where,omitempty"`
}

// QueryResponse is the ranked result list for a query.
type QueryResponse struct {
	Results []Result `json:"results"`
}

// Result is one retrieved chunk with its similarity distance and
// denormalized document metadata.
type Result struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	Distance     float64 `json:"distance"`
	SourceID     string  `json:"source_id"`
	ChunkID      string  `json:"chunk_id"`
	SectionID    string  `json:"section_id"`
	SectionTitle string  `json:"section_title"`
	Year         int     `json:"year"`
	DocType      string  `json:"doc_type"`
	Venue        string  `json:"venue"`
	Authors      string  `json:"authors"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL    string
	collection string
	http       *http.Client
}

// NewClient creates a similarity-search client bound to one collection.
func NewClient(collection string, opts ...Option) Client {
	c := &httpClient{
		baseURL:    defaultBaseURL,
		collection: collection,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "search: marshal request")
	}

	url := c.baseURL + "/collections/" + c.collection + "/query"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "search: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "search: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "search: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("search: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result QueryResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "search: unmarshal response")
	}

	return &result, nil
}
