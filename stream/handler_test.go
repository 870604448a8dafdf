package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/eventlog"
	"github.com/hupe1980/agentfeed/fanout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, store *eventlog.Store) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	NewHandler(store).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func openStream(t *testing.T, ctx context.Context, url string) (*http.Response, *Decoder) {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	return resp, NewDecoder(resp.Body)
}

func next(t *testing.T, dec *Decoder) fanout.Frame {
	t.Helper()

	f, err := dec.Next()
	require.NoError(t, err)

	return f
}

func TestServeStream_OmitsEmptyBootstrap(t *testing.T) {
	store := eventlog.New("UK")
	srv := newServer(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, dec := openStream(t, ctx, srv.URL)

	f := next(t, dec)
	assert.Equal(t, EventConnected, f.Event)

	var hello Connected
	require.NoError(t, json.Unmarshal(f.Data, &hello))
	assert.Equal(t, Connected{Status: "ok", Agent: "UK"}, hello)

	require.Eventually(t, func() bool { return store.Stats().Subscribers == 1 }, time.Second, time.Millisecond)
	_, err := store.Append(core.Draft{ID: "first", Kind: core.KindLog, Text: "hi"})
	require.NoError(t, err)

	f = next(t, dec)
	assert.Equal(t, fanout.EventLog, f.Event)

	var rec core.Record
	require.NoError(t, json.Unmarshal(f.Data, &rec))
	assert.Equal(t, "first", rec.ID)
}

func TestServeStream_BootstrapThenLive(t *testing.T) {
	store := eventlog.New("US", func(o *eventlog.Options) { o.MaxEvents = 2 })
	for i, id := range []string{"A", "B", "C"} {
		_, err := store.Append(core.Draft{ID: id, Kind: core.KindLog, Timestamp: time.Unix(int64(i+1), 0)})
		require.NoError(t, err)
	}

	srv := newServer(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, dec := openStream(t, ctx, srv.URL)

	assert.Equal(t, EventConnected, next(t, dec).Event)

	f := next(t, dec)
	require.Equal(t, EventBootstrap, f.Event)

	var history []core.Record
	require.NoError(t, json.Unmarshal(f.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "B", history[0].ID)
	assert.Equal(t, "C", history[1].ID)

	_, err := store.Append(core.Draft{ID: "D", Kind: core.KindLog, Timestamp: time.Unix(4, 0)})
	require.NoError(t, err)

	f = next(t, dec)
	require.Equal(t, fanout.EventLog, f.Event)
	assert.Contains(t, string(f.Data), `"id":"D"`)
}

func TestServeStream_ReleasesSubscriberOnDisconnect(t *testing.T) {
	store := eventlog.New("UK")
	srv := newServer(t, store)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		_, dec := openStream(t, ctx, srv.URL)
		next(t, dec)
		require.Eventually(t, func() bool { return store.Stats().Subscribers == 1 }, time.Second, time.Millisecond)
		cancel()
		require.Eventually(t, func() bool { return store.Stats().Subscribers == 0 }, time.Second, time.Millisecond)
	}
}

func TestServeStream_ForwardsPing(t *testing.T) {
	store := eventlog.New("UK")
	srv := newServer(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, dec := openStream(t, ctx, srv.URL)
	next(t, dec)

	require.Eventually(t, func() bool { return store.Stats().Subscribers == 1 }, time.Second, time.Millisecond)
	store.Hub().Ping()

	assert.Equal(t, fanout.EventPing, next(t, dec).Event)
}

func TestServeRecent(t *testing.T) {
	store := eventlog.New("UK")
	for i := 0; i < 250; i++ {
		_, _ = store.Append(core.Draft{Kind: core.KindLog})
	}
	srv := newServer(t, store)

	tests := []struct {
		query string
		want  int
	}{
		{"", 200},
		{"?limit=5", 5},
		{"?limit=abc", 200},
		{"?limit=0", 0},
		{"?limit=-3", 0},
		{"?limit=10000", 250},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/events/recent" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()

			var recs []core.Record
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&recs))
			assert.Len(t, recs, tt.want)
			assert.NotNil(t, recs)
		})
	}
}

func TestServeStats(t *testing.T) {
	store := eventlog.New("UK", func(o *eventlog.Options) { o.MaxEvents = 2 })
	for i := 0; i < 3; i++ {
		_, _ = store.Append(core.Draft{Kind: core.KindLog})
	}
	srv := newServer(t, store)

	resp, err := http.Get(srv.URL + "/events/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]int{"totalIngested": 3, "totalEvents": 2, "connectedClients": 0}, body)
}
