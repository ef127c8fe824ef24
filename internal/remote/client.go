// Package remote is the HTTP client for the authoritative backend. The
// engine only relies on the four Backend primitives plus the failure
// taxonomy: transport errors are transient and retryable, rejections are
// final and must reach the caller.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors for common rejection classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Record is one remote row as returned by Select.
type Record struct {
	ID        string
	UpdatedAt time.Time
	Payload   json.RawMessage
}

// Backend is the request/response surface of the remote store. The HTTP
// client implements it; tests inject fakes.
type Backend interface {
	Select(ctx context.Context, table string, filter map[string]string) ([]Record, error)
	Insert(ctx context.Context, table string, payload json.RawMessage) (string, error)
	Update(ctx context.Context, table, id string, payload json.RawMessage) error
	Delete(ctx context.Context, table, id string) error
}

// RejectionError is a write or read the backend received and refused (HTTP
// 4xx with an error body). Retrying a rejection repeats the same rejection,
// so these are never queued for replay.
type RejectionError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("rejected: HTTP %d", e.StatusCode)
}

// Is maps common rejection statuses onto the package sentinels.
func (e *RejectionError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRejection reports whether err is a backend rejection, as opposed to a
// transport-level failure (timeout, unreachable) or a server-side 5xx.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// Client is an HTTP Backend implementation.
type Client struct {
	BaseURL string
	APIKey  string
	OrgID   string
	HTTP    *http.Client
}

// New creates a backend client scoped to one organization.
func New(baseURL, apiKey, orgID string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		OrgID:   orgID,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// row is the wire shape of one remote record.
type row struct {
	ID        string          `json:"id"`
	UpdatedAt time.Time       `json:"updated_at"`
	Payload   json.RawMessage `json:"payload"`
}

// HealthCheck hits /healthz to probe server reachability. Best-effort: the
// engine treats individual request failures as authoritative either way.
func (c *Client) HealthCheck(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.do(ctx, "GET", "/healthz", nil, &resp)
}

// Select fetches all rows of a table for the client's organization,
// optionally narrowed by equality filters.
func (c *Client) Select(ctx context.Context, table string, filter map[string]string) ([]Record, error) {
	params := url.Values{}
	params.Set("organization_id", c.OrgID)
	for k, v := range filter {
		params.Set(k, v)
	}

	var rows []row
	path := fmt.Sprintf("/v1/%s?%s", table, params.Encode())
	if err := c.do(ctx, "GET", path, nil, &rows); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, Record{ID: r.ID, UpdatedAt: r.UpdatedAt, Payload: r.Payload})
	}
	return records, nil
}

// Insert creates a row and returns its id. The payload may carry a
// client-generated id; the server echoes the effective id back.
func (c *Client) Insert(ctx context.Context, table string, payload json.RawMessage) (string, error) {
	var resp row
	if err := c.do(ctx, "POST", "/v1/"+table, payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Update replaces a row's contents.
func (c *Client) Update(ctx context.Context, table, id string, payload json.RawMessage) error {
	return c.do(ctx, "PATCH", fmt.Sprintf("/v1/%s/%s", table, id), payload, nil)
}

// Delete removes a row.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/v1/%s/%s", table, id), nil, nil)
}

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body json.RawMessage, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		rej := &RejectionError{StatusCode: resp.StatusCode}
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil {
			rej.Code = apiErr.Code
			rej.Message = apiErr.Message
		}
		return rej
	}
	if resp.StatusCode >= 500 {
		// Server-side failure: transient, eligible for queue and retry
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
