package a2a

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/eventlog"
	"github.com/hupe1980/agentfeed/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type executorFunc func(ctx context.Context, session core.Session, rec core.Recorder, input string) (string, error)

func (f executorFunc) Execute(ctx context.Context, session core.Session, rec core.Recorder, input string) (string, error) {
	return f(ctx, session, rec, input)
}

var _ tool.Messenger = (*Client)(nil)

func newTestServer(t *testing.T, exec Executor) (*eventlog.Store, *httptest.Server) {
	t.Helper()

	store := eventlog.New("UK")
	h := NewHandler(exec, store, AgentCard{Name: "UK Treasury Agent", Version: "1.0.0"}, func(o *Options) {
		o.Agent = "UK"
	})

	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return store, srv
}

func postRPC(t *testing.T, url, body string) string {
	t.Helper()

	resp, err := http.Post(url+PathJSONRPC, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)

	return buf.String()
}

func TestSendMessage_RoundTrip(t *testing.T) {
	sessions := make(chan core.Session, 1)

	store, srv := newTestServer(t, executorFunc(func(_ context.Context, s core.Session, _ core.Recorder, input string) (string, error) {
		sessions <- s
		return "Approved: " + input, nil
	}))

	client := NewClient(srv.URL+"/", func(o *ClientOptions) { o.Sender = "arp-system" })
	assert.Equal(t, srv.URL, client.BaseURL())

	reply, err := client.SendMessage(context.Background(), "invoice INV-1 due", map[string]any{"contextId": "ctx-9"})
	require.NoError(t, err)
	assert.Equal(t, "Approved: invoice INV-1 due", reply)

	got := <-sessions
	assert.Equal(t, "UK", got.Agent)
	assert.Equal(t, "ctx-9", got.ContextID)
	assert.NotEmpty(t, got.TaskID)
	assert.Equal(t, "arp-system", got.Sender)

	recs := store.Recent(10)
	require.Len(t, recs, 2)
	assert.Equal(t, core.KindMessageReceived, recs[0].Kind)
	assert.Equal(t, "arp-system", recs[0].Sender)
	assert.Equal(t, "invoice INV-1 due", recs[0].Text)
	assert.Equal(t, "ctx-9", recs[0].ContextID)
	assert.Equal(t, core.KindResponseSent, recs[1].Kind)
	assert.Equal(t, "Approved: invoice INV-1 due", recs[1].Text)
	assert.Equal(t, "arp-system", recs[1].Data["to"])
}

func TestSendMessage_ReplyShape(t *testing.T) {
	_, srv := newTestServer(t, executorFunc(func(context.Context, core.Session, core.Recorder, string) (string, error) {
		return "", nil
	}))

	reply, err := NewClient(srv.URL).Send(context.Background(), Message{
		Kind:      "message",
		MessageID: "m1",
		Role:      RoleUser,
		Parts:     []Part{TextPart("hello"), {Kind: "file"}, TextPart("world")},
		ContextID: "ctx-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "message", reply.Kind)
	assert.Equal(t, RoleAgent, reply.Role)
	assert.Equal(t, "ctx-1", reply.ContextID)
	assert.NotEmpty(t, reply.MessageID)
	assert.Equal(t, "Request processed successfully.", reply.Text())
}

func TestSendMessage_ExecutorFailure(t *testing.T) {
	store, srv := newTestServer(t, executorFunc(func(context.Context, core.Session, core.Recorder, string) (string, error) {
		return "", errors.New("model unavailable")
	}))

	reply, err := NewClient(srv.URL).SendMessage(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Error processing request: model unavailable", reply)

	recs := store.Recent(10)
	require.Len(t, recs, 2)
	assert.Equal(t, DefaultSender, recs[0].Sender)
}

func TestJSONRPC_Errors(t *testing.T) {
	_, srv := newTestServer(t, executorFunc(func(context.Context, core.Session, core.Recorder, string) (string, error) {
		return "ok", nil
	}))

	tests := []struct {
		name string
		body string
		code string
	}{
		{"parse", `{not json`, "-32700"},
		{"version", `{"jsonrpc":"1.0","id":1,"method":"message/send"}`, "-32600"},
		{"method", `{"jsonrpc":"2.0","id":1,"method":"tasks/get"}`, "-32601"},
		{"params", `{"jsonrpc":"2.0","id":1,"method":"message/send","params":{"message":{"parts":[]}}}`, "-32602"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := postRPC(t, srv.URL, tt.body)
			assert.Contains(t, out, `"code":`+tt.code)
		})
	}

	_, err := NewClient(srv.URL).Send(context.Background(), Message{Kind: "message", Role: RoleUser})
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)
}

func TestJSONRPC_Notification(t *testing.T) {
	called := make(chan string, 1)
	_, srv := newTestServer(t, executorFunc(func(_ context.Context, _ core.Session, _ core.Recorder, input string) (string, error) {
		called <- input
		return "ok", nil
	}))

	resp, err := http.Post(srv.URL+PathJSONRPC, "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","method":"message/send","params":{"message":{"kind":"message","role":"user","parts":[{"kind":"text","text":"ping"}]}}}`))
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "ping", <-called)
}

func TestAgentCard(t *testing.T) {
	_, srv := newTestServer(t, nil)

	card, err := NewClient(srv.URL).AgentCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UK Treasury Agent", card.Name)
	assert.Equal(t, "1.0.0", card.Version)
}

func TestClient_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).SendMessage(context.Background(), "hi", nil)
	require.ErrorContains(t, err, "http status 502")

	_, err = NewClient(srv.URL).AgentCard(context.Background())
	require.ErrorContains(t, err, "http status 502")
}

func TestMessageHelpers(t *testing.T) {
	m := Message{Parts: []Part{TextPart("a"), TextPart(""), TextPart("b")}}
	assert.Equal(t, "a b", m.Text())
	assert.Equal(t, "fallback", m.Sender("fallback"))

	m.Metadata = map[string]any{"sender": "us-treasury-agent"}
	assert.Equal(t, "us-treasury-agent", m.Sender("fallback"))
}
