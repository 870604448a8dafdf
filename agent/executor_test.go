package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/eventlog"
	"github.com/hupe1980/agentfeed/model"
	"github.com/hupe1980/agentfeed/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSession = core.Session{Agent: "UK", ContextID: "ctx-1", TaskID: "task-1"}

func kinds(recs []core.Record) []core.Kind {
	out := make([]core.Kind, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Kind)
	}

	return out
}

func TestExecutor_TextOnly(t *testing.T) {
	llm := model.NewMockModel("mock", "test").AddText("Balance is 1,000 GBP.")
	store := eventlog.New("UK")

	ex := NewExecutor("UK", llm)
	out, err := ex.Execute(context.Background(), testSession, store, "What is our balance?")
	require.NoError(t, err)
	assert.Equal(t, "Balance is 1,000 GBP.", out)

	recs := store.Recent(10)
	assert.Equal(t, []core.Kind{core.KindResult}, kinds(recs))
	assert.Equal(t, "ctx-1", recs[0].ContextID)
	assert.Equal(t, "task-1", recs[0].TaskID)
}

func TestExecutor_ToolLoop(t *testing.T) {
	llm := model.NewMockModel("mock", "test").
		AddToolCall("Checking thresholds first.", "call-1", "check_compliance", `{"amount":50000,"currency":"GBP"}`).
		AddText("Documentation is required.")
	store := eventlog.New("UK")

	ex := NewExecutor("UK", llm, func(o *Options) {
		o.Tools = []tool.Tool{tool.NewComplianceTool(tool.DefaultPolicy("UK"))}
	})

	out, err := ex.Execute(context.Background(), testSession, store, "Pay invoice of 50,000 GBP")
	require.NoError(t, err)
	assert.Equal(t, "Documentation is required.", out)

	recs := store.Recent(10)
	assert.Equal(t, []core.Kind{core.KindAssistantUpdate, core.KindToolUse, core.KindResult}, kinds(recs))
	assert.Equal(t, "check_compliance", recs[1].Data["tool"])
	assert.Equal(t, map[string]any{"amount": 50000.0, "currency": "GBP"}, recs[1].Data["input"])

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "check_compliance", reqs[0].Tools[0].Name)

	// second turn carries the tool response back to the model
	last := reqs[1].Contents[len(reqs[1].Contents)-1]
	assert.Equal(t, core.RoleTool, last.Role)
	fr := last.Parts[0].(core.FunctionResponsePart).FunctionResponse
	assert.Equal(t, "call-1", fr.ID)
	assert.Empty(t, fr.Error)
	assert.True(t, fr.Response.(tool.ComplianceCheck).RequiresDocumentation)
}

func TestExecutor_ToolErrorsGoBackToModel(t *testing.T) {
	llm := model.NewMockModel("mock", "test").
		AddToolCall("", "c1", "transfer_funds", `{}`).
		AddToolCall("", "c2", "check_compliance", `not json`).
		AddText("done")

	ex := NewExecutor("UK", llm, func(o *Options) {
		o.Tools = []tool.Tool{tool.NewComplianceTool(tool.DefaultPolicy("UK"))}
	})

	out, err := ex.Execute(context.Background(), testSession, nil, "go")
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	reqs := llm.Requests()
	require.Len(t, reqs, 3)

	unknown := reqs[1].Contents[len(reqs[1].Contents)-1].Parts[0].(core.FunctionResponsePart).FunctionResponse
	assert.Contains(t, unknown.Error, "UNKNOWN_TOOL")

	invalid := reqs[2].Contents[len(reqs[2].Contents)-1].Parts[0].(core.FunctionResponsePart).FunctionResponse
	assert.Contains(t, invalid.Error, "invalid arguments")
}

func TestExecutor_RecoversToolPanic(t *testing.T) {
	boom := tool.NewFunctionTool("boom", "panics", map[string]any{"type": "object"}, func(*core.ToolContext, map[string]any) (any, error) {
		panic("kaboom")
	})
	llm := model.NewMockModel("mock", "test").AddToolCall("", "c1", "boom", `{}`).AddText("recovered")

	ex := NewExecutor("UK", llm, func(o *Options) { o.Tools = []tool.Tool{boom} })

	out, err := ex.Execute(context.Background(), testSession, nil, "go")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)

	fr := llm.Requests()[1].Contents[2].Parts[0].(core.FunctionResponsePart).FunctionResponse
	assert.Contains(t, fr.Error, "kaboom")
}

func TestExecutor_TurnLimit(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	for range 3 {
		llm.AddToolCall("thinking", "c", "check_compliance", `{"amount":1,"currency":"GBP"}`)
	}
	store := eventlog.New("UK")

	ex := NewExecutor("UK", llm, func(o *Options) {
		o.MaxTurns = 2
		o.Tools = []tool.Tool{tool.NewComplianceTool(tool.DefaultPolicy("UK"))}
	})

	_, err := ex.Execute(context.Background(), testSession, store, "loop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded max model turns")

	recs := store.Recent(10)
	assert.Equal(t, core.KindError, recs[len(recs)-1].Kind)
}

func TestExecutor_ModelFailure(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.FailWith(errors.New("rate limited"))
	store := eventlog.New("UK")

	_, err := NewExecutor("UK", llm).Execute(context.Background(), testSession, store, "hello")
	require.ErrorContains(t, err, "rate limited")

	recs := store.Recent(10)
	require.Len(t, recs, 1)
	assert.Equal(t, core.KindError, recs[0].Kind)
	assert.Contains(t, recs[0].Text, "rate limited")
}

func TestExecutor_EmptyInput(t *testing.T) {
	_, err := NewExecutor("UK", model.NewMockModel("mock", "test")).Execute(context.Background(), testSession, nil, "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestExecutor_DefaultsAgentName(t *testing.T) {
	store := eventlog.New("US")
	_, err := NewExecutor("US", model.NewMockModel("mock", "test")).Execute(context.Background(), core.Session{}, store, "hi")
	require.NoError(t, err)

	recs := store.Recent(1)
	require.Len(t, recs, 1)
	assert.Equal(t, "US", recs[0].Sender)
	assert.Equal(t, "Mock response to: hi", recs[0].Text)
}

func TestInstruction(t *testing.T) {
	static := NewInstructionFromText("static instruction")
	assert.True(t, static.IsStatic())

	got, err := static.Resolve(testSession)
	require.NoError(t, err)
	assert.Equal(t, "static instruction", got)

	dynamic := NewInstructionFromFunc(func(s core.Session) (string, error) { return "serving " + s.ContextID, nil })
	assert.False(t, dynamic.IsStatic())

	got, err = dynamic.Resolve(testSession)
	require.NoError(t, err)
	assert.Equal(t, "serving ctx-1", got)

	tmpl := NewInstructionFromTemplate("{{.entity}} agent in {{.session.ContextID}}", map[string]any{"entity": "UK"})
	got, err = tmpl.Resolve(testSession)
	require.NoError(t, err)
	assert.Equal(t, "UK agent in ctx-1", got)
}

func TestTreasuryInstruction(t *testing.T) {
	inst := NewInstructionFromTemplate(TreasuryInstruction, map[string]any{
		"entity":                 "UK",
		"currency":               "GBP",
		"partner":                "US",
		"accountId":              "0.0.1234",
		"network":                "testnet",
		"documentationThreshold": 10000.0,
		"approvalThreshold":      250000.0,
	})

	got, err := inst.Resolve(testSession)
	require.NoError(t, err)
	assert.Contains(t, got, "You are the UK treasury agent")
	assert.Contains(t, got, "250000.00 GBP")

	_, err = NewInstructionFromTemplate(TreasuryInstruction, map[string]any{"entity": "UK"}).Resolve(testSession)
	assert.Error(t, err)
}
