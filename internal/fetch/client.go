package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Response is the report endpoint's JSON body.
type Response struct {
	Success   bool   `json:"success"`
	Report    string `json:"ai_report,omitempty"`
	Title     string `json:"report_title,omitempty"`
	Sentiment string `json:"sentiment_position,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Fetcher retrieves the report document for a stock code.
type Fetcher interface {
	FetchReport(ctx context.Context, stockCode string) (*Response, error)
}

// Client fetches reports from a stockreport server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchReport calls GET /api/ai_report. Error statuses still decode when
// the body is the usual JSON envelope, so server messages reach the caller
// as an unsuccessful Response rather than an error.
func (c *Client) FetchReport(ctx context.Context, stockCode string) (*Response, error) {
	u := c.baseURL + "/api/ai_report?stock_code=" + url.QueryEscape(stockCode)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("get report %s: status %d: %s", stockCode, resp.StatusCode, truncate(string(body), 200))
		}
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if resp.StatusCode != http.StatusOK && out.Success {
		return nil, fmt.Errorf("get report %s: status %d", stockCode, resp.StatusCode)
	}
	return &out, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Func adapts a function to Fetcher.
type Func func(ctx context.Context, stockCode string) (*Response, error)

func (f Func) FetchReport(ctx context.Context, stockCode string) (*Response, error) {
	return f(ctx, stockCode)
}
