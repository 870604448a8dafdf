package core

import (
	"time"

	"github.com/google/uuid"
)

// Kind tags a Record with the activity it represents. Kinds are flat labels
// used for filtering and display; none is a refinement of another.
type Kind string

const (
	// KindMessageReceived marks an inbound trigger or partner message.
	KindMessageReceived Kind = "message_received"
	// KindAssistantUpdate carries intermediate model reasoning text.
	KindAssistantUpdate Kind = "assistant_update"
	// KindToolUse marks a tool invocation requested by the model.
	KindToolUse Kind = "tool_use"
	// KindResult carries the final outcome of an agent session.
	KindResult Kind = "result"
	// KindPartnerMessage marks a message sent to the partner agent.
	KindPartnerMessage Kind = "partner_message"
	// KindResponseSent marks the reply returned to the trigger sender.
	KindResponseSent Kind = "response_sent"
	// KindError marks a failure surfaced during a session.
	KindError Kind = "error"
	// KindLog is a free-form diagnostic line.
	KindLog Kind = "log"
)

// Kinds lists every valid Kind in declaration order.
var Kinds = []Kind{
	KindMessageReceived,
	KindAssistantUpdate,
	KindToolUse,
	KindResult,
	KindPartnerMessage,
	KindResponseSent,
	KindError,
	KindLog,
}

// Valid reports whether k belongs to the closed Kind enumeration.
func (k Kind) Valid() bool {
	switch k {
	case KindMessageReceived, KindAssistantUpdate, KindToolUse, KindResult,
		KindPartnerMessage, KindResponseSent, KindError, KindLog:
		return true
	default:
		return false
	}
}

// Multiline reports whether text of this kind carries multi-line natural
// language and therefore keeps its internal newlines.
func (k Kind) Multiline() bool {
	return k == KindAssistantUpdate || k == KindResult || k == KindPartnerMessage
}

// Record is one entry of an agent's activity log. Records are created once by
// a store and never mutated afterwards; ID is the deduplication key used by
// every downstream consumer.
//
// The JSON shape is the wire format shared by the snapshot pull, the bootstrap
// message and the per-record live messages.
type Record struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Agent     string         `json:"agent"`
	Kind      Kind           `json:"kind"`
	ContextID string         `json:"contextId,omitempty"`
	TaskID    string         `json:"taskId,omitempty"`
	Sender    string         `json:"sender,omitempty"`
	Text      string         `json:"text,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Draft is the producer-side input to a store append. Zero-valued ID,
// Timestamp and Agent are filled in by the store; Kind is mandatory.
type Draft struct {
	ID        string
	Timestamp time.Time
	Agent     string
	Kind      Kind
	ContextID string
	TaskID    string
	Sender    string
	Text      string
	Data      map[string]any
}

// Stats is an observability snapshot of a store.
type Stats struct {
	// TotalIngested counts every accepted append, including evicted records.
	TotalIngested uint64 `json:"totalIngested"`
	// Retained is the number of records currently held.
	Retained int `json:"totalEvents"`
	// Subscribers is the number of live viewers attached.
	Subscribers int `json:"connectedClients"`
}

// Recorder is the narrow producer-facing contract of an event store.
// Producers never wait on viewers: Append returns as soon as the record is
// retained and handed to the fan-out.
type Recorder interface {
	Append(d Draft) (Record, error)
}

// NewID generates a new unique identifier for records and protocol messages.
func NewID() string { return uuid.NewString() }
