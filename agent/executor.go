package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/logging"
	"github.com/hupe1980/agentfeed/model"
	"github.com/hupe1980/agentfeed/tool"
)

// DefaultMaxTurns bounds the model round trips of one Execute call.
const DefaultMaxTurns = 8

// ErrEmptyInput is returned when Execute receives blank text.
var ErrEmptyInput = errors.New("agent: empty input")

// Options configures an Executor.
type Options struct {
	Instruction Instruction
	Tools       []tool.Tool
	MaxTurns    int
	ToolTimeout time.Duration
	Stream      bool
	Logger      logging.Logger
}

// callLogger is implemented by loggers with dedicated call timing helpers,
// such as *logging.FeedLogger.
type callLogger interface {
	LogToolCall(tool string, dur time.Duration, err error)
	LogModelCall(model string, dur time.Duration, err error)
}

// Executor runs the model and tool loop for one agent.
type Executor struct {
	name  string
	llm   model.Model
	tools tool.Registry
	defs  []model.ToolDefinition
	opts  Options
}

// NewExecutor creates an executor for the named agent.
func NewExecutor(name string, llm model.Model, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a treasury agent.", name)),
		MaxTurns:    DefaultMaxTurns,
		ToolTimeout: 15 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	defs := make([]model.ToolDefinition, 0, len(opts.Tools))
	for _, t := range opts.Tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return &Executor{
		name:  name,
		llm:   llm,
		tools: tool.NewRegistry(opts.Tools...),
		defs:  defs,
		opts:  opts,
	}
}

// Name returns the agent name.
func (e *Executor) Name() string { return e.name }

// Execute serves input within session and returns the final answer. Every
// step is appended to rec; append failures are logged and do not abort the
// session.
func (e *Executor) Execute(ctx context.Context, session core.Session, rec core.Recorder, input string) (string, error) {
	if session.Agent == "" {
		session.Agent = e.name
	}

	out, err := e.execute(ctx, session, rec, input)
	if err != nil {
		e.record(rec, session, core.KindError, err.Error(), nil)
		return "", err
	}

	e.record(rec, session, core.KindResult, out, nil)

	return out, nil
}

func (e *Executor) execute(ctx context.Context, session core.Session, rec core.Recorder, input string) (string, error) {
	if input == "" {
		return "", ErrEmptyInput
	}

	system, err := e.opts.Instruction.Resolve(session)
	if err != nil {
		return "", fmt.Errorf("resolve instruction: %w", err)
	}

	limiter := core.NewTurnLimiter(e.opts.MaxTurns)
	contents := []core.Content{core.NewTextContent(core.RoleUser, input)}

	for {
		if err := limiter.Next(); err != nil {
			return "", err
		}

		resp, err := e.generate(ctx, model.Request{
			System:   system,
			Contents: contents,
			Tools:    e.defs,
			Stream:   e.opts.Stream,
		})
		if err != nil {
			return "", err
		}

		text := resp.Content.Text()
		calls := resp.Content.FunctionCalls()

		if len(calls) == 0 {
			return text, nil
		}

		if text != "" {
			e.record(rec, session, core.KindAssistantUpdate, text, nil)
		}

		contents = append(contents, resp.Content)

		parts := make([]core.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, core.FunctionResponsePart{FunctionResponse: e.runTool(ctx, session, rec, call)})
		}

		contents = append(contents, core.Content{Role: core.RoleTool, Parts: parts})
	}
}

func (e *Executor) generate(ctx context.Context, req model.Request) (model.Response, error) {
	start := time.Now()
	resp, err := model.Collect(ctx, e.llm, req)

	if cl, ok := e.opts.Logger.(callLogger); ok {
		cl.LogModelCall(e.llm.Info().Name, time.Since(start), err)
	}

	if err != nil {
		return model.Response{}, fmt.Errorf("model call: %w", err)
	}

	return resp, nil
}

// runTool executes one call and converts the outcome into a response part.
// Tool errors are reported back to the model rather than failing the session.
func (e *Executor) runTool(ctx context.Context, session core.Session, rec core.Recorder, call core.FunctionCall) core.FunctionResponse {
	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			e.record(rec, session, core.KindToolUse, call.Name, map[string]any{"tool": call.Name, "input": call.Arguments})
			return core.FunctionResponse{ID: call.ID, Name: call.Name, Error: fmt.Sprintf("invalid arguments: %v", err)}
		}
	}

	e.record(rec, session, core.KindToolUse, call.Name, map[string]any{"tool": call.Name, "input": args})

	start := time.Now()
	result, err := e.callTool(ctx, session, rec, call, args)

	if cl, ok := e.opts.Logger.(callLogger); ok {
		cl.LogToolCall(call.Name, time.Since(start), err)
	}

	if err != nil {
		return core.FunctionResponse{ID: call.ID, Name: call.Name, Error: err.Error()}
	}

	return core.FunctionResponse{ID: call.ID, Name: call.Name, Response: result}
}

func (e *Executor) callTool(ctx context.Context, session core.Session, rec core.Recorder, call core.FunctionCall, args map[string]any) (result any, err error) {
	t, err := e.tools.Lookup(call.Name)
	if err != nil {
		return nil, err
	}

	if e.opts.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.ToolTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, tool.NewToolError(call.Name, fmt.Sprintf("panic: %v", r), tool.CodePanic)
		}
	}()

	return t.Call(core.NewToolContext(ctx, call.ID, session, rec, e.opts.Logger), args)
}

func (e *Executor) record(rec core.Recorder, session core.Session, kind core.Kind, text string, data map[string]any) {
	if rec == nil {
		return
	}

	_, err := rec.Append(core.Draft{
		Agent:     session.Agent,
		Kind:      kind,
		ContextID: session.ContextID,
		TaskID:    session.TaskID,
		Sender:    session.Agent,
		Text:      text,
		Data:      data,
	})
	if err != nil {
		e.opts.Logger.Warn("append record failed", "kind", string(kind), "error", err.Error())
	}
}
