// Package rerank is a client for the cross-encoder reranking service. The
// service loads its model once at startup; callers just submit
// query-document pairs and get relevance scores back.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "http://localhost:8902"
	defaultModel   = "cross-encoder/ms-marco-MiniLM-L-6-v2"
)

// Client scores query-document pairs against the reranking service.
type Client interface {
	Rerank(ctx context.Context, req RerankRequest) (*RerankResponse, error)
}

// Document is one candidate passed to the reranker.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RerankRequest is the request body for POST /rerank.
type RerankRequest struct {
	Model     string     `json:"model"`
	Query     string     `json:"query"`
	Documents []Document `json:"documents"`
	TopK      int        `json:"top_k"`
}

// RerankResponse holds relevance scores, sorted descending.
type RerankResponse struct {
	Results []Result `json:"results"`
}

// Result pairs a document ID with its cross-encoder relevance score.
// Higher means more relevant.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithModel overrides the default cross-encoder model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a reranking service client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Rerank(ctx context.Context, req RerankRequest) (*RerankResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "rerank: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "rerank: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "rerank: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "rerank: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("rerank: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result RerankResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "rerank: unmarshal response")
	}

	return &result, nil
}
