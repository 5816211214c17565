// Copyright 2025 Chainanchor
//
// Package streamclient is the production stream.Service implementation: a
// thin REST client against the external stream service. The service itself
// is out of scope for this repo; this package only has to speak its wire
// contract faithfully.

package streamclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chainanchor/anchor-core/internal/stream"
)

// Client calls a stream service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client, e.g. for custom
// timeouts or transport-level retry/backoff middleware.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client against baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type logEntryWire struct {
	Cid  string `json:"cid"`
	Type string `json:"type"`
}

type streamWire struct {
	ID  string         `json:"id"`
	Log []logEntryWire `json:"log"`
}

func (w *streamWire) toStream() *stream.Stream {
	s := &stream.Stream{ID: w.ID, Log: make([]stream.LogEntry, len(w.Log))}
	for i, e := range w.Log {
		s.Log[i] = stream.LogEntry{Cid: e.Cid, Type: stream.CommitType(e.Type)}
	}
	return s
}

// LoadStream implements stream.Service.
func (c *Client) LoadStream(ctx context.Context, streamID string) (*stream.Stream, error) {
	var wire streamWire
	if err := c.getJSON(ctx, "/streams/"+url.PathEscape(streamID), &wire); err != nil {
		return nil, fmt.Errorf("load stream %s: %w", streamID, err)
	}
	return wire.toStream(), nil
}

// LoadCommit implements stream.Service.
func (c *Client) LoadCommit(ctx context.Context, commitID string) (*stream.Stream, error) {
	var wire streamWire
	if err := c.getJSON(ctx, "/commits/"+url.PathEscape(commitID), &wire); err != nil {
		return nil, fmt.Errorf("load commit %s: %w", commitID, err)
	}
	return wire.toStream(), nil
}

// MultiQuery implements stream.Service.
func (c *Client) MultiQuery(ctx context.Context, queries []stream.Query) (map[string]*stream.Stream, error) {
	body, err := json.Marshal(queries)
	if err != nil {
		return nil, fmt.Errorf("encode multiQuery payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/multi-query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build multiQuery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("multiQuery request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("multiQuery request: unexpected status %d", resp.StatusCode)
	}

	var wire map[string]streamWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode multiQuery response: %w", err)
	}

	out := make(map[string]*stream.Stream, len(wire))
	for id, s := range wire {
		sw := s
		out[id] = sw.toStream()
	}
	return out, nil
}

// UnpinStream implements stream.Service.
func (c *Client) UnpinStream(ctx context.Context, streamID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/streams/"+url.PathEscape(streamID)+"/pin", nil)
	if err != nil {
		return fmt.Errorf("build unpinStream request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unpinStream request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unpinStream request: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
