// Package client talks to a running history service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vendlabs/vmhistory/internal/httputil"
	"github.com/vendlabs/vmhistory/internal/models"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("history service returned %d", e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendTransaction posts an arbitrary transaction object.
func (c *Client) SendTransaction(ctx context.Context, payload any) (*models.IngestResponse, error) {
	return c.ingest(ctx, "/api/transaction", payload)
}

// SendState posts a state transition. payload is usually a
// models.StateTransition but any JSON object is accepted.
func (c *Client) SendState(ctx context.Context, payload any) (*models.IngestResponse, error) {
	return c.ingest(ctx, "/api/state", payload)
}

// SendLog posts a log event with the given message.
func (c *Client) SendLog(ctx context.Context, message string) (*models.IngestResponse, error) {
	return c.ingest(ctx, "/api/log", models.LogEvent{Message: message})
}

// SendRaw posts body verbatim to one of the ingestion paths.
func (c *Client) SendRaw(ctx context.Context, path string, body []byte) (*models.IngestResponse, error) {
	var result models.IngestResponse
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ingest(ctx context.Context, path string, payload any) (*models.IngestResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.SendRaw(ctx, path, body)
}

// History fetches the full history document.
func (c *Client) History(ctx context.Context) (*models.Document, error) {
	var doc models.Document
	if err := c.do(ctx, http.MethodGet, "/api/history", nil, &doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return &doc, nil
}

// HistoryText fetches the plain-text transcript.
func (c *Client) HistoryText(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	if err := c.do(ctx, http.MethodGet, "/api/history/text", nil, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Clear resets the history on the server.
func (c *Client) Clear(ctx context.Context) (*models.ClearResponse, error) {
	var result models.ClearResponse
	if err := c.do(ctx, http.MethodPost, "/api/history/clear", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var result models.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do sends the request and decodes a 200 response into out. A *bytes.Buffer
// receives the raw body instead.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if c == nil {
		return fmt.Errorf("history client not configured")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody httputil.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Message = errBody.Error
			apiErr.Details = errBody.Details
		}
		return apiErr
	}

	if buf, ok := out.(*bytes.Buffer); ok {
		if _, err := io.Copy(buf, resp.Body); err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
