// Package ragapi is the HTTP client for the document retrieval service.
package ragapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is where the retrieval service listens when nothing else is configured.
	DefaultBaseURL = "http://localhost:8000"

	defaultHTTPTimeout  = 2 * time.Minute
	defaultListCacheTTL = 30 * time.Second
	maxErrorBody        = 64 << 10
	summariesCacheKey   = "list_summaries"
)

// Config describes how to build a Client.
type Config struct {
	BaseURL      string
	HTTPClient   *http.Client
	ListCacheTTL time.Duration
	Logger       *zap.Logger
}

// Client talks to the retrieval service. It is safe for concurrent use.
type Client struct {
	base   string
	client *http.Client
	lists  *cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// New builds a Client. Zero values in cfg fall back to defaults; a negative ListCacheTTL
// disables list caching.
func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	ttl := cfg.ListCacheTTL
	if ttl == 0 {
		ttl = defaultListCacheTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:   base,
		client: pickHTTPClient(cfg.HTTPClient),
		lists:  cache.New(ttl, 2*ttl),
		ttl:    ttl,
		logger: logger.Named("ragapi"),
	}
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Per-query deadlines come from the caller's context; this only bounds a stuck connection.
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// BaseURL reports the service root the client targets.
func (c *Client) BaseURL() string {
	return c.base
}

// Query runs a chunk query scoped to one document and returns the ranked records.
func (c *Client) Query(ctx context.Context, scopeID, queryText string, limit int) ([]Record, error) {
	resp, err := c.QueryChunks(ctx, scopeID, QueryRequest{QueryText: queryText, NResults: limit})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// QueryChunks calls POST /query_chunks/{fileID}.
func (c *Client) QueryChunks(ctx context.Context, fileID string, req QueryRequest) (*QueryChunksResponse, error) {
	var out struct {
		Results *[]Record `json:"results"`
	}
	path := "/query_chunks/" + url.PathEscape(fileID)
	if err := c.do(ctx, "query chunks", http.MethodPost, path, req, "Failed to query chunks", &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		return nil, &TransportError{Op: "query chunks", Err: errors.New("decode response: missing results")}
	}
	return &QueryChunksResponse{Results: *out.Results}, nil
}

// QueryChunksChat calls POST /query_chunks/{fileID}/chat.
func (c *Client) QueryChunksChat(ctx context.Context, fileID string, req ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	path := "/query_chunks/" + url.PathEscape(fileID) + "/chat"
	if err := c.do(ctx, "query chunks chat", http.MethodPost, path, req, "Failed to query chunks", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuerySummaries calls POST /query_summaries to rank documents by their summaries.
func (c *Client) QuerySummaries(ctx context.Context, req QueryRequest) (*QuerySummariesResponse, error) {
	var out QuerySummariesResponse
	if err := c.do(ctx, "query summaries", http.MethodPost, "/query_summaries", req, "Failed to query summaries", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSummaries calls GET /list_summaries. Results are cached for the configured TTL and
// dropped whenever an index is deleted through this client.
func (c *Client) ListSummaries(ctx context.Context) ([]Document, error) {
	if c.ttl > 0 {
		if cached, ok := c.lists.Get(summariesCacheKey); ok {
			docs := cached.([]Document)
			return append([]Document(nil), docs...), nil
		}
	}
	var raw json.RawMessage
	if err := c.do(ctx, "list summaries", http.MethodGet, "/list_summaries", nil, "Failed to fetch summaries", &raw); err != nil {
		return nil, err
	}
	docs, err := decodeDocuments(raw)
	if err != nil {
		return nil, &TransportError{Op: "list summaries", Err: fmt.Errorf("decode response: %w", err)}
	}
	if c.ttl > 0 {
		c.lists.Set(summariesCacheKey, docs, cache.DefaultExpiration)
	}
	return append([]Document(nil), docs...), nil
}

// InvalidateSummaries drops the cached document list so the next ListSummaries call hits
// the service.
func (c *Client) InvalidateSummaries() {
	c.lists.Delete(summariesCacheKey)
}

// DeleteIndex calls DELETE /delete_index/{fileID}.
func (c *Client) DeleteIndex(ctx context.Context, fileID string) (*DeleteResponse, error) {
	path := "/delete_index/" + url.PathEscape(fileID)
	raw, err := c.send(ctx, "delete index", http.MethodDelete, path, nil, "Failed to delete index")
	if err != nil {
		return nil, err
	}
	c.InvalidateSummaries()
	out := &DeleteResponse{Raw: raw}
	// The confirmation shape is not fixed; an empty body or a missing message field is fine.
	_ = json.Unmarshal(raw, out)
	return out, nil
}

// do sends the request and decodes a non-empty success body into out.
func (c *Client) do(ctx context.Context, op, method, path string, body any, fallback string, out any) error {
	data, err := c.send(ctx, op, method, path, body, fallback)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &TransportError{Op: op, Err: errors.New("decode response: empty body")}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// send performs the HTTP exchange and returns the raw success body.
func (c *Client) send(ctx context.Context, op, method, path string, body any, fallback string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("op", op), zap.String("path", path), zap.Error(err))
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := parseDetail(data)
		if detail == "" {
			detail = fallback
		}
		return nil, &ServiceError{Op: op, StatusCode: resp.StatusCode, Detail: detail}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	return data, nil
}
