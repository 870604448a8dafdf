package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hupe1980/agentfeed/core"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	// Sender is put into metadata.sender unless the caller sets it.
	Sender string
}

// Client calls a remote agent's JSON-RPC endpoint.
type Client struct {
	baseURL string
	opts    ClientOptions
	id      atomic.Uint64
}

// NewClient creates a client for the agent at baseURL (for example
// "http://localhost:4000").
func NewClient(baseURL string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		// agent turns include model round trips
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), opts: opts}
}

// BaseURL returns the agent base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// SendMessage sends text as a user message and returns the reply text.
// metadata may carry "sender" and "contextId"; other keys are forwarded as
// message metadata.
func (c *Client) SendMessage(ctx context.Context, text string, metadata map[string]any) (string, error) {
	msg := Message{
		Kind:      "message",
		MessageID: core.NewID(),
		Role:      RoleUser,
		Parts:     []Part{TextPart(text)},
		Metadata:  map[string]any{},
	}

	for k, v := range metadata {
		if k == "contextId" {
			msg.ContextID, _ = v.(string)
			continue
		}

		msg.Metadata[k] = v
	}

	if _, ok := msg.Metadata["sender"]; !ok && c.opts.Sender != "" {
		msg.Metadata["sender"] = c.opts.Sender
	}

	reply, err := c.Send(ctx, msg)
	if err != nil {
		return "", err
	}

	return reply.Text(), nil
}

// Send calls message/send with msg and returns the agent's reply.
func (c *Client) Send(ctx context.Context, msg Message) (Message, error) {
	var reply Message
	if err := c.call(ctx, MethodSendMessage, SendParams{Message: msg}, &reply); err != nil {
		return Message{}, err
	}

	return reply, nil
}

// AgentCard fetches the remote agent card.
func (c *Client) AgentCard(ctx context.Context) (AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathAgentCard, nil)
	if err != nil {
		return AgentCard{}, err
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return AgentCard{}, fmt.Errorf("fetch agent card: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return AgentCard{}, fmt.Errorf("fetch agent card: http status %d", resp.StatusCode)
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return AgentCard{}, fmt.Errorf("decode agent card: %w", err)
	}

	return card, nil
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	id, err := json.Marshal(c.id.Add(1))
	if err != nil {
		return err
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		return err
	}

	body, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: rawParams})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathJSONRPC, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http status %d", method, resp.StatusCode)
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	return json.Unmarshal(rpcResp.Result, result)
}
