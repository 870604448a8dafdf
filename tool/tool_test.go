package tool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/agentfeed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memRecorder is an in-memory core.Recorder.
type memRecorder struct {
	mu      sync.Mutex
	records []core.Record
}

func (m *memRecorder) Append(d core.Draft) (core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := core.Record{ID: core.NewID(), Agent: d.Agent, Kind: d.Kind, ContextID: d.ContextID, TaskID: d.TaskID, Sender: d.Sender, Text: d.Text, Data: d.Data}
	m.records = append(m.records, rec)

	return rec, nil
}

// MockMessenger stands in for the partner agent.
type MockMessenger struct{ mock.Mock }

func (m *MockMessenger) SendMessage(ctx context.Context, text string, metadata map[string]any) (string, error) {
	args := m.Called(ctx, text, metadata)
	return args.String(0), args.Error(1)
}

func newToolContext(rec core.Recorder) *core.ToolContext {
	return core.NewToolContext(context.Background(), "fc-1",
		core.Session{Agent: "UK", ContextID: "ctx-1", TaskID: "task-1"}, rec, nil)
}

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	sumTool := NewFunctionTool("sum", "Add numbers", params, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})

	result, err := sumTool.Call(newToolContext(nil), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	params := map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{"type": "number"}},
		"required":   []string{"a"},
	}
	tTool := NewFunctionTool("test", "Test", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return 0, nil
	})

	_, err := tTool.Call(newToolContext(nil), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	execTool := NewFunctionTool("fail", "Fails", map[string]any{"type": "object"}, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	})

	_, err := execTool.Call(newToolContext(nil), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Equal(t, "tool error [EXECUTION_ERROR] in fail: boom", err.Error())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewComplianceTool(DefaultPolicy("UK")))

	tl, err := reg.Lookup("check_compliance")
	require.NoError(t, err)
	assert.Equal(t, "check_compliance", tl.Name())

	_, err = reg.Lookup("transfer_funds")
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeUnknown, toolErr.Code)
}

func TestComplianceTool(t *testing.T) {
	tl := NewComplianceTool(DefaultPolicy("UK"))
	tc := newToolContext(nil)

	_, err := tl.Call(tc, map[string]any{"amount": 50_000.0, "currency": "gbp"})
	require.Error(t, err, "enum is case sensitive")

	out, err := tl.Call(tc, map[string]any{"amount": 50_000.0, "currency": "GBP"})
	require.NoError(t, err)
	check := out.(ComplianceCheck)
	assert.True(t, check.RequiresDocumentation)
	assert.False(t, check.RequiresApproval)
	assert.Equal(t, 250_000.0, check.Thresholds.ApprovalRequired)

	_, err = tl.Call(tc, map[string]any{"amount": -1.0, "currency": "GBP"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestPolicyEvaluate(t *testing.T) {
	us := DefaultPolicy("US")

	assert.False(t, us.Evaluate(9_999, "USD").RequiresDocumentation)
	assert.True(t, us.Evaluate(10_000, "USD").RequiresDocumentation)
	assert.True(t, us.Evaluate(1_000_000, "usd").RequiresApproval)
	assert.Equal(t, "USD", us.Evaluate(1, "usd").Currency)
	assert.Equal(t, "US", DefaultPolicy("mars").Entity)
}

func TestPartnerMessageTool(t *testing.T) {
	rec := &memRecorder{}
	messenger := &MockMessenger{}
	messenger.On("SendMessage", mock.Anything, "Please send 1000 USD", map[string]any{"sender": "UK", "contextId": "ctx-1"}).
		Return("Transfer initiated", nil)

	tl := NewPartnerMessageTool("US", messenger)
	out, err := tl.Call(newToolContext(rec), map[string]any{"message": "Please send 1000 USD"})
	require.NoError(t, err)
	assert.Equal(t, "Transfer initiated", out.(map[string]any)["reply"])

	require.Len(t, rec.records, 1)
	got := rec.records[0]
	assert.Equal(t, core.KindPartnerMessage, got.Kind)
	assert.Equal(t, "Please send 1000 USD", got.Text)
	assert.Equal(t, "ctx-1", got.ContextID)
	assert.Equal(t, "US", got.Data["to"])
	messenger.AssertExpectations(t)
}

func TestPartnerMessageTool_Errors(t *testing.T) {
	messenger := &MockMessenger{}
	messenger.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("partner offline"))

	tl := NewPartnerMessageTool("US", messenger)

	_, err := tl.Call(newToolContext(nil), map[string]any{"message": "  "})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)

	_, err = tl.Call(newToolContext(nil), map[string]any{"message": "hello"})
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "partner offline")
}
