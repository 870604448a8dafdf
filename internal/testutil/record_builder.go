package testutil

import (
	"maps"
	"time"

	"github.com/hupe1980/agentfeed/core"
)

// Epoch is the default timestamp base of built records.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// RecordBuilder provides a fluent helper for constructing records in tests.
// Example:
//
//	rec := NewRecordBuilder("r1").Agent("US").Kind(core.KindResult).At(3).Text("done").Build()
//
// Chain only the parts you need; the defaults are agent "UK", kind log and
// timestamp Epoch.
type RecordBuilder struct {
	rec core.Record
}

// NewRecordBuilder creates a builder for a record with the given id.
func NewRecordBuilder(id string) *RecordBuilder {
	return &RecordBuilder{rec: core.Record{
		ID:        id,
		Timestamp: Epoch,
		Agent:     "UK",
		Kind:      core.KindLog,
	}}
}

// Agent sets the producing agent (chainable).
func (b *RecordBuilder) Agent(a string) *RecordBuilder { b.rec.Agent = a; return b }

// Kind sets the record kind (chainable).
func (b *RecordBuilder) Kind(k core.Kind) *RecordBuilder { b.rec.Kind = k; return b }

// At sets the timestamp to Epoch plus sec seconds (chainable).
func (b *RecordBuilder) At(sec int) *RecordBuilder {
	b.rec.Timestamp = Epoch.Add(time.Duration(sec) * time.Second)
	return b
}

// Time sets an absolute timestamp (chainable).
func (b *RecordBuilder) Time(t time.Time) *RecordBuilder { b.rec.Timestamp = t; return b }

// Context sets the conversation and task ids (chainable).
func (b *RecordBuilder) Context(contextID, taskID string) *RecordBuilder {
	b.rec.ContextID = contextID
	b.rec.TaskID = taskID
	return b
}

// Sender sets the sender (chainable).
func (b *RecordBuilder) Sender(s string) *RecordBuilder { b.rec.Sender = s; return b }

// Text sets the body text (chainable).
func (b *RecordBuilder) Text(t string) *RecordBuilder { b.rec.Text = t; return b }

// Data sets one structured payload entry (chainable).
func (b *RecordBuilder) Data(key string, val any) *RecordBuilder {
	if b.rec.Data == nil {
		b.rec.Data = map[string]any{}
	}
	b.rec.Data[key] = val
	return b
}

// Build returns the record. The builder may be reused.
func (b *RecordBuilder) Build() core.Record {
	rec := b.rec
	rec.Data = maps.Clone(b.rec.Data)
	return rec
}

// Draft returns the record as a store draft.
func (b *RecordBuilder) Draft() core.Draft {
	rec := b.Build()
	return core.Draft{
		ID:        rec.ID,
		Timestamp: rec.Timestamp,
		Agent:     rec.Agent,
		Kind:      rec.Kind,
		ContextID: rec.ContextID,
		TaskID:    rec.TaskID,
		Sender:    rec.Sender,
		Text:      rec.Text,
		Data:      rec.Data,
	}
}
