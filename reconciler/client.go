package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/fanout"
	"github.com/hupe1980/agentfeed/stream"
)

// ErrUnexpectedStatus is returned when an agent answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("reconciler: unexpected response status")

// ClientOptions configures a Client.
type ClientOptions struct {
	// HTTPClient performs requests. It must not set a total timeout when used
	// for OpenStream. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Client talks to the event endpoints of one agent.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the agent served at baseURL.
func NewClient(baseURL string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{HTTPClient: http.DefaultClient}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    opts.HTTPClient,
	}
}

// BaseURL returns the agent's base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchRecent pulls up to limit recent records, oldest first.
func (c *Client) FetchRecent(ctx context.Context, limit int) ([]core.Record, error) {
	q := url.Values{"limit": []string{strconv.Itoa(limit)}}

	var recs []core.Record
	if err := c.getJSON(ctx, "/events/recent?"+q.Encode(), &recs); err != nil {
		return nil, err
	}

	return recs, nil
}

// Stats fetches the agent's store counters.
func (c *Client) Stats(ctx context.Context) (core.Stats, error) {
	var stats core.Stats
	err := c.getJSON(ctx, "/events/stats", &stats)

	return stats, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}

// EventStream is an open live channel.
type EventStream struct {
	body io.ReadCloser
	dec  *stream.Decoder
}

// OpenStream connects to the agent's live event stream. The stream ends when
// ctx is canceled, the agent closes it or Close is called.
func (c *Client) OpenStream(ctx context.Context) (*EventStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: /events returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return &EventStream{body: resp.Body, dec: stream.NewDecoder(resp.Body)}, nil
}

// Next blocks for the next frame.
func (s *EventStream) Next() (fanout.Frame, error) { return s.dec.Next() }

// Close releases the connection.
func (s *EventStream) Close() error { return s.body.Close() }
