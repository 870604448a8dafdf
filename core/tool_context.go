package core

import (
	"context"

	"github.com/hupe1980/agentfeed/logging"
)

// Session identifies the inbound exchange an agent is working on. It is
// copied onto every record the session produces so viewers can group them.
type Session struct {
	Agent     string
	ContextID string
	TaskID    string
	Sender    string
}

// ToolContext is the surface handed to a tool while it executes on behalf of
// an agent session. It exposes cancellation, logging and the session's
// recorder so tools can report their own activity.
type ToolContext struct {
	ctx            context.Context
	functionCallID string
	session        Session
	recorder       Recorder
	logger         logging.Logger
}

// NewToolContext binds a tool invocation to its session. Nil recorder and
// logger are replaced by no-op implementations.
func NewToolContext(ctx context.Context, functionCallID string, session Session, recorder Recorder, logger logging.Logger) *ToolContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if recorder == nil {
		recorder = discardRecorder{}
	}
	return &ToolContext{
		ctx:            ctx,
		functionCallID: functionCallID,
		session:        session,
		recorder:       recorder,
		logger:         logger,
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// FunctionCallID returns the model-assigned id of the call being served.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// Session returns the session the tool runs in.
func (tc *ToolContext) Session() Session { return tc.session }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// Record appends a record carrying the session correlation ids.
func (tc *ToolContext) Record(kind Kind, text string, data map[string]any) (Record, error) {
	return tc.recorder.Append(Draft{
		Agent:     tc.session.Agent,
		Kind:      kind,
		ContextID: tc.session.ContextID,
		TaskID:    tc.session.TaskID,
		Sender:    tc.session.Agent,
		Text:      text,
		Data:      data,
	})
}

type discardRecorder struct{}

func (discardRecorder) Append(d Draft) (Record, error) {
	return Record{ID: d.ID, Timestamp: d.Timestamp, Agent: d.Agent, Kind: d.Kind, Text: d.Text}, nil
}
