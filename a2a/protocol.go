// Package a2a implements the agent-to-agent trigger transport: a JSON-RPC 2.0
// endpoint accepting "message/send", the public agent card and a client used
// both for partner messaging and for dashboard triggers.
package a2a

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSON-RPC 2.0 standard error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// MethodSendMessage is the only supported method.
const MethodSendMessage = "message/send"

// Paths served by Handler.
const (
	PathJSONRPC   = "/a2a/jsonrpc"
	PathAgentCard = "/.well-known/agent-card.json"
)

// request is a JSON-RPC 2.0 request or notification. Notifications carry no
// id and receive no response.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r *request) isNotification() bool {
	return len(r.ID) == 0
}

// response is a JSON-RPC 2.0 response. Exactly one of Result or Error is set.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("a2a error %d: %s", e.Code, e.Message)
}

// Part is one segment of a message. Only text parts are produced.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Kind: "text", Text: text}
}

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Message is the unit exchanged by message/send in both directions.
type Message struct {
	Kind      string         `json:"kind"`
	MessageID string         `json:"messageId"`
	Role      string         `json:"role"`
	Parts     []Part         `json:"parts"`
	ContextID string         `json:"contextId,omitempty"`
	TaskID    string         `json:"taskId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Text joins the text parts with single spaces.
func (m Message) Text() string {
	texts := make([]string, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.Kind == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}

	return strings.Join(texts, " ")
}

// Sender returns metadata.sender, or fallback when absent.
func (m Message) Sender(fallback string) string {
	if s, ok := m.Metadata["sender"].(string); ok && s != "" {
		return s
	}

	return fallback
}

// SendParams are the params of message/send.
type SendParams struct {
	Message Message `json:"message"`
}

// Skill advertises one capability on the agent card.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// Capabilities lists optional protocol features.
type Capabilities struct {
	Streaming bool `json:"streaming"`
}

// AgentCard is the public self-description served at PathAgentCard.
type AgentCard struct {
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	URL                string       `json:"url"`
	Version            string       `json:"version"`
	ProtocolVersion    string       `json:"protocolVersion"`
	PreferredTransport string       `json:"preferredTransport"`
	Capabilities       Capabilities `json:"capabilities"`
	DefaultInputModes  []string     `json:"defaultInputModes"`
	DefaultOutputModes []string     `json:"defaultOutputModes"`
	Skills             []Skill      `json:"skills"`
}
