// Package ocr calls the NVIDIA nemoretriever-parse model to detect tables on
// statement page images. The model returns page regions with markdown text;
// only regions typed "Table" are kept.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// Model is the parse model served behind the chat completions endpoint.
	Model = "nvidia/nemoretriever-parse"

	// DefaultEndpoint is the hosted NVIDIA API endpoint.
	DefaultEndpoint = "https://integrate.api.nvidia.com/v1/chat/completions"

	toolMarkdownBBox = "markdown_bbox"
)

// Result is the outcome of one page extraction.
type Result struct {
	// Tables holds the markdown text of each detected table, in page order.
	Tables []string

	// Raw is the full response body, kept as a run artifact for review.
	Raw []byte
}

// Client talks to the OCR endpoint with retry and pacing.
type Client struct {
	httpClient   *http.Client
	endpoint     string
	apiKey       string
	maxAttempts  int
	requestDelay time.Duration
	log          zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// Options configures a Client. Zero fields take defaults.
type Options struct {
	Endpoint     string
	MaxAttempts  int
	RequestDelay time.Duration
	HTTPClient   *http.Client
}

// New creates a client authenticated with apiKey.
func New(apiKey string, log zerolog.Logger, opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RequestDelay <= 0 {
		opts.RequestDelay = 2 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		httpClient:   opts.HTTPClient,
		endpoint:     opts.Endpoint,
		apiKey:       apiKey,
		maxAttempts:  opts.MaxAttempts,
		requestDelay: opts.RequestDelay,
		log:          log,
		sleep:        sleepCtx,
	}
}

type chatRequest struct {
	Tools    []toolSpec    `json:"tools"`
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name string `json:"name"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Arguments json.RawMessage `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// bboxItem is one detected page region.
type bboxItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ExtractTables sends one page image (PNG bytes) and returns the detected
// tables. Rate limits and transient server errors are retried with backoff;
// after a successful call the client pauses to pace the next request.
func (c *Client) ExtractTables(ctx context.Context, image []byte) (Result, error) {
	body, err := json.Marshal(chatRequest{
		Tools: []toolSpec{{Type: "function", Function: toolFunction{Name: toolMarkdownBBox}}},
		Model: Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{{
				Type: "image_url",
				ImageURL: imageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
				},
			}},
		}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("ExtractTables: marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		result, err := c.attempt(ctx, body)
		if err == nil {
			if err := c.sleep(ctx, c.requestDelay); err != nil {
				return Result{}, err
			}
			return result, nil
		}
		lastErr = err

		if attempt < c.maxAttempts-1 {
			retryIn := backoff(err, attempt)
			c.log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Dur("retry_in", retryIn).
				Msg("ocr request failed, retrying")
			if err := c.sleep(ctx, retryIn); err != nil {
				return Result{}, err
			}
		}
	}
	return Result{}, fmt.Errorf("ExtractTables: after %d attempts: %w", c.maxAttempts, lastErr)
}

// backoff picks the wait before the next try: rate limits back off
// exponentially, server errors and everything else linearly.
func backoff(err error, attempt int) time.Duration {
	switch {
	case errors.Is(err, errRateLimited):
		return minDuration(60*time.Second, time.Duration(1<<attempt)*time.Second)
	case errors.Is(err, errServer):
		return minDuration(30*time.Second, time.Duration(5*(attempt+1))*time.Second)
	default:
		return minDuration(60*time.Second, time.Duration(5*(attempt+1))*time.Second)
	}
}

func (c *Client) attempt(ctx context.Context, body []byte) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, errRateLimited
	case resp.StatusCode == http.StatusInternalServerError:
		return Result{}, errServer
	case resp.StatusCode != http.StatusOK:
		return Result{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	tables, err := parseTables(raw)
	if err != nil {
		return Result{}, err
	}
	return Result{Tables: tables, Raw: raw}, nil
}

var (
	errRateLimited = errors.New("rate limited")
	errServer      = errors.New("server error")
)

// parseTables pulls the bbox list out of the tool call arguments and keeps
// only items typed "Table".
func parseTables(raw []byte) ([]string, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("response has no tool calls")
	}

	items, err := decodeBBoxList(resp.Choices[0].Message.ToolCalls[0].Function.Arguments)
	if err != nil {
		return nil, fmt.Errorf("decoding bbox list: %w", err)
	}

	var tables []string
	for _, item := range items {
		if item.Type == "Table" {
			tables = append(tables, item.Text)
		}
	}
	return tables, nil
}

// decodeBBoxList handles the shapes the API has been seen to return: the
// arguments may be double-encoded as a JSON string, and the list may be
// nested one level deep.
func decodeBBoxList(raw json.RawMessage) ([]bboxItem, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}

	var nested [][]bboxItem
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}

	var flat []bboxItem
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
