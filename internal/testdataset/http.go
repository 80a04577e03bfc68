package testdataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/arcadeboard/internal/domain/types"
)

// Client talks to a running leaderboard service.
type Client struct {
	client  *http.Client
	baseURL string
}

// ReloadResult is the body of a successful POST /reload.
type ReloadResult struct {
	Status     string    `json:"status"`
	Generation uint64    `json:"generation"`
	Total      int       `json:"total"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	return err
}

// Reload forces the service to re-read its dataset.
func (c *Client) Reload(ctx context.Context) (ReloadResult, error) {
	var res ReloadResult
	_, err := c.do(ctx, http.MethodPost, "/reload", &res)
	return res, err
}

// Leaderboard fetches the board filtered by query.
func (c *Client) Leaderboard(ctx context.Context, query string) (types.Board, error) {
	var board types.Board
	path := "/leaderboard"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	_, err := c.do(ctx, http.MethodGet, path, &board)
	return board, err
}

// Rank fetches a single participant by key.
func (c *Client) Rank(ctx context.Context, key string) (types.Entry, error) {
	var entry types.Entry
	_, err := c.do(ctx, http.MethodGet, "/rank?key="+url.QueryEscape(key), &entry)
	return entry, err
}

func (c *Client) do(ctx context.Context, method, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, body)
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil
}
