package fanout

import (
	"encoding/json"
	"fmt"
)

const (
	// EventLog names frames carrying a single appended record.
	EventLog = "log"
	// EventPing names keep-alive frames.
	EventPing = "ping"
)

// Frame is one named message as delivered to a subscriber. Data holds the
// already encoded JSON payload so a broadcast marshals once, not once per
// subscriber.
type Frame struct {
	Event string
	Data  []byte
}

// NewFrame encodes v as JSON and wraps it in a Frame named event.
func NewFrame(event string, v any) (Frame, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s frame: %w", event, err)
	}

	return Frame{Event: event, Data: data}, nil
}
