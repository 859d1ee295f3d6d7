// Package supabase is a minimal client for the PostgREST interface of a
// hosted Supabase project.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response from the REST interface.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("supabase: status %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.Status, msg)
}

type Client struct {
	baseURL string
	key     string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client = &http.Client{Timeout: d} }
}

// New creates a client for the project at projectURL authenticated with key
// (the anon or service-role key).
func New(projectURL, key string, opts ...Option) (*Client, error) {
	if projectURL == "" || key == "" {
		return nil, fmt.Errorf("supabase: project URL and key are required")
	}
	if _, err := url.ParseRequestURI(projectURL); err != nil {
		return nil, fmt.Errorf("supabase: invalid project URL: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimSuffix(projectURL, "/") + "/rest/v1",
		key:     key,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Insert adds rows to table and decodes the inserted rows into out when it
// is non-nil.
func (c *Client) Insert(ctx context.Context, table string, rows any, out any) error {
	headers := map[string]string{"Prefer": "return=minimal"}
	if out != nil {
		headers["Prefer"] = "return=representation"
	}
	_, err := c.do(ctx, http.MethodPost, "/"+url.PathEscape(table), nil, rows, headers, out)
	return err
}

// RPC calls a stored function with named args.
func (c *Client) RPC(ctx context.Context, fn string, args any, out any) error {
	_, err := c.do(ctx, http.MethodPost, "/rpc/"+url.PathEscape(fn), nil, args, nil, out)
	return err
}

// Select reads rows from table. query carries PostgREST parameters such as
// select, order, limit and column filters ("id=eq.42").
func (c *Client) Select(ctx context.Context, table string, query url.Values, out any) error {
	_, err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(table), query, nil, nil, out)
	return err
}

// Delete removes the rows of table matching filter. An empty filter is
// rejected since PostgREST would refuse an unfiltered delete anyway.
func (c *Client) Delete(ctx context.Context, table string, filter url.Values) error {
	if len(filter) == 0 {
		return fmt.Errorf("supabase: delete from %s requires a filter", table)
	}
	_, err := c.do(ctx, http.MethodDelete, "/"+url.PathEscape(table), filter, nil, nil, nil)
	return err
}

// Count returns the exact number of rows in table.
func (c *Client) Count(ctx context.Context, table string) (int, error) {
	query := url.Values{"select": {"*"}, "limit": {"1"}}
	resp, err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(table), query, nil,
		map[string]string{"Prefer": "count=exact"}, nil)
	if err != nil {
		return 0, err
	}
	return parseContentRange(resp.Header.Get("Content-Range"))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, headers map[string]string, out any) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("supabase: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("supabase: create request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("supabase: decode response: %w", err)
		}
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// parseContentRange reads the total from "0-24/3573" or "*/0".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return 0, fmt.Errorf("supabase: missing count in Content-Range %q", h)
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0, fmt.Errorf("supabase: invalid count in Content-Range %q", h)
	}
	return n, nil
}
