package agentfeed

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/hupe1980/agentfeed/a2a"
	"github.com/hupe1980/agentfeed/agent"
	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/model"
	"github.com/hupe1980/agentfeed/reconciler"
	"github.com/hupe1980/agentfeed/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startNode(t *testing.T, n *Node) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- n.Serve(ctx, l) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	return "http://" + l.Addr().String()
}

func TestNode_Health(t *testing.T) {
	n := New("UK", agent.NewExecutor("UK", model.NewMockModel("mock", "test")), func(o *Options) {
		o.Network = "testnet"
		o.AccountID = "0.0.1001"
	})
	base := startNode(t, n)

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var h Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, Health{Status: "ok", Entity: "UK", Network: "testnet", AccountID: "0.0.1001"}, h)

	card, err := a2a.NewClient(base).AgentCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UK Treasury Agent", card.Name)
}

func TestNode_TriggerReachesViewer(t *testing.T) {
	llm := model.NewMockModel("mock", "test").
		AddToolCall("Checking the amount.", "c1", "check_compliance", `{"amount":50,"currency":"HBAR"}`).
		AddText("Invoice paid.")

	exec := agent.NewExecutor("UK", llm, func(o *agent.Options) {
		o.Tools = []tool.Tool{tool.NewComplianceTool(tool.DefaultPolicy("UK"))}
	})

	n := New("UK", exec, func(o *Options) { o.KeepAlive = 20 * time.Millisecond })
	base := startNode(t, n)

	rec := reconciler.New()
	watcher := reconciler.NewWatcher(reconciler.NewClient(base), rec, func(o *reconciler.WatcherOptions) {
		o.PollInterval = time.Hour
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return rec.Status() == reconciler.StatusOpen }, 3*time.Second, 10*time.Millisecond)

	reply, err := a2a.NewClient(base, func(o *a2a.ClientOptions) { o.Sender = "arp-system" }).
		SendMessage(context.Background(), "AP INVOICE: 50 HBAR due", nil)
	require.NoError(t, err)
	assert.Equal(t, "Invoice paid.", reply)

	want := []core.Kind{
		core.KindMessageReceived,
		core.KindAssistantUpdate,
		core.KindToolUse,
		core.KindResult,
		core.KindResponseSent,
	}

	require.Eventually(t, func() bool { return rec.Len() == len(want) }, 3*time.Second, 10*time.Millisecond)

	view := rec.View()
	for i, k := range want {
		assert.Equal(t, k, view[i].Kind)
		assert.Equal(t, "UK", view[i].Agent)
		assert.Equal(t, view[0].ContextID, view[i].ContextID)
	}

	assert.Equal(t, "arp-system", view[0].Sender)

	// keep-alives flow on the same connection
	require.Eventually(t, func() bool { return rec.Debug().LastEventType == "ping" }, 3*time.Second, 10*time.Millisecond)

	stats := n.Store().Stats()
	assert.Equal(t, uint64(5), stats.TotalIngested)
	assert.Equal(t, 1, stats.Subscribers)
}
