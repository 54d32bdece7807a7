// Package postgrest talks to a Supabase/PostgREST endpoint over HTTP.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/fieldtime/internal/remote"
)

// Client is an authenticated PostgREST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for baseURL (e.g. "https://xyz.supabase.co").
// apiKey is sent as the apikey header; accessToken is the bearer token and
// defaults to apiKey when empty, which is how anonymous Supabase access works.
func NewClient(ctx context.Context, baseURL, apiKey, accessToken string) *Client {
	if accessToken == "" {
		accessToken = apiKey
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: oauth2.NewClient(ctx, ts),
	}
}

// apiError is the PostgREST error body.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
}

func (c *Client) endpoint(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + url.PathEscape(table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postgrest request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && ae.Message != "" {
			return nil, &remote.Error{StatusCode: resp.StatusCode, Message: ae.Message}
		}
		return nil, &remote.Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// Table is a PostgREST resource holding rows of type R.
type Table[R any] struct {
	client *Client
	name   string
}

// NewTable binds a table name to the client.
func NewTable[R any](c *Client, name string) *Table[R] {
	return &Table[R]{client: c, name: name}
}

// Upsert inserts row or merges it into the existing row with the same id.
func (t *Table[R]) Upsert(ctx context.Context, row R) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encoding %s row: %w", t.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.client.endpoint(t.name, nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	_, err = t.client.do(req)
	return err
}

// SelectAll fetches every row ordered by date.
func (t *Table[R]) SelectAll(ctx context.Context) ([]R, error) {
	query := url.Values{"select": {"*"}, "order": {"date.asc"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.client.endpoint(t.name, query), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	body, err := t.client.do(req)
	if err != nil {
		return nil, err
	}
	rows := []R{}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decoding %s rows: %w", t.name, err)
	}
	return rows, nil
}

// Entries returns the entries table.
func (c *Client) Entries() *Table[remote.EntryRow] {
	return NewTable[remote.EntryRow](c, remote.EntriesTable)
}

// Shifts returns the shifts table.
func (c *Client) Shifts() *Table[remote.ShiftRow] {
	return NewTable[remote.ShiftRow](c, remote.ShiftsTable)
}
