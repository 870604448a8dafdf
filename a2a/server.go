package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/logging"
)

// DefaultSender is recorded when an inbound message has no metadata.sender.
const DefaultSender = "unknown"

// maxBodyBytes bounds a JSON-RPC request body.
const maxBodyBytes = 1 << 20

// Executor serves one inbound message. *agent.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, session core.Session, rec core.Recorder, input string) (string, error)
}

// Options configures a Handler.
type Options struct {
	// Agent is stamped on records and sessions. Empty leaves it to the recorder.
	Agent  string
	Logger logging.Logger
}

// Handler serves the JSON-RPC endpoint and the agent card.
type Handler struct {
	exec Executor
	rec  core.Recorder
	card AgentCard
	opts Options
}

// NewHandler creates a Handler that records inbound and outbound messages to
// rec and delegates processing to exec.
func NewHandler(exec Executor, rec core.Recorder, card AgentCard, optFns ...func(o *Options)) *Handler {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Handler{exec: exec, rec: rec, card: card, opts: opts}
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+PathJSONRPC, h.ServeJSONRPC)
	mux.HandleFunc("GET "+PathAgentCard, h.ServeAgentCard)
}

// ServeAgentCard writes the agent card.
func (h *Handler) ServeAgentCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.card)
}

// ServeJSONRPC decodes one JSON-RPC request and dispatches it.
func (h *Handler) ServeJSONRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeRPCError(w, nil, CodeParseError, "read request: "+err.Error())
		return
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		writeRPCError(w, nil, CodeParseError, "parse error: "+err.Error())
		return
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPCError(w, req.ID, CodeInvalidRequest, "invalid request")
		return
	}

	result, rpcErr := h.dispatch(r.Context(), &req)

	if req.isNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (h *Handler) dispatch(ctx context.Context, req *request) (any, *Error) {
	switch req.Method {
	case MethodSendMessage:
		var params SendParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "invalid params: " + err.Error()}
		}

		return h.SendMessage(ctx, params.Message)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

// SendMessage records the inbound message, runs the executor and records the
// reply. Executor failures become an error text reply, matching what a
// partner agent expects from a conversation turn.
func (h *Handler) SendMessage(ctx context.Context, msg Message) (Message, *Error) {
	text := msg.Text()
	if text == "" {
		return Message{}, &Error{Code: CodeInvalidParams, Message: "message has no text parts"}
	}

	if msg.ContextID == "" {
		msg.ContextID = core.NewID()
	}

	if msg.TaskID == "" {
		msg.TaskID = core.NewID()
	}

	session := core.Session{
		Agent:     h.opts.Agent,
		ContextID: msg.ContextID,
		TaskID:    msg.TaskID,
		Sender:    msg.Sender(DefaultSender),
	}

	h.opts.Logger.Info("message received",
		"sender", session.Sender,
		"context_id", session.ContextID,
		"task_id", session.TaskID,
	)

	h.record(session, core.KindMessageReceived, session.Sender, text, msg.Metadata)

	out, err := h.exec.Execute(ctx, session, h.rec, text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Message{}, &Error{Code: CodeInternalError, Message: err.Error()}
		}

		h.opts.Logger.Error("execute failed", "context_id", session.ContextID, "error", err.Error())
		out = "Error processing request: " + err.Error()
	}

	if out == "" {
		out = "Request processed successfully."
	}

	reply := Message{
		Kind:      "message",
		MessageID: core.NewID(),
		Role:      RoleAgent,
		Parts:     []Part{TextPart(out)},
		ContextID: session.ContextID,
	}

	h.record(session, core.KindResponseSent, session.Agent, out, map[string]any{"to": session.Sender})

	return reply, nil
}

func (h *Handler) record(session core.Session, kind core.Kind, sender, text string, data map[string]any) {
	if h.rec == nil {
		return
	}

	_, err := h.rec.Append(core.Draft{
		Agent:     session.Agent,
		Kind:      kind,
		ContextID: session.ContextID,
		TaskID:    session.TaskID,
		Sender:    sender,
		Text:      text,
		Data:      data,
	})
	if err != nil {
		h.opts.Logger.Warn("append record failed", "kind", string(kind), "error", err.Error())
	}
}

func writeRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	writeJSON(w, http.StatusOK, response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
