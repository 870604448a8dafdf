// Package agentfeed provides a high-level façade that turns a treasury agent
// executor into a network-facing node. A Node owns the agent's event store
// and fan-out hub and serves:
//
//	GET  /events                       live event stream (server-sent events)
//	GET  /events/recent?limit=N        snapshot pull
//	GET  /events/stats                 store counters
//	POST /a2a/jsonrpc                  message/send trigger transport
//	GET  /.well-known/agent-card.json  agent card
//	GET  /health                       liveness and identity
//
// Everything the executor does while serving a message is appended to the
// store and reaches every connected viewer without blocking the executor.
package agentfeed

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentfeed/a2a"
	"github.com/hupe1980/agentfeed/eventlog"
	"github.com/hupe1980/agentfeed/fanout"
	"github.com/hupe1980/agentfeed/logging"
	"github.com/hupe1980/agentfeed/stream"
)

// Options configures a Node.
type Options struct {
	// Network and AccountID are reported by /health.
	Network   string
	AccountID string

	// Event distribution settings; zero values select package defaults.
	MaxEvents      int
	BootstrapLimit int
	SinkBuffer     int
	KeepAlive      time.Duration
	EventDebug     bool

	// Card is served at the agent card path. Name defaults to the entity.
	Card a2a.AgentCard

	// ShutdownTimeout bounds graceful HTTP shutdown in Serve.
	ShutdownTimeout time.Duration

	Logger logging.Logger
}

// Node is one agent process: store, hub and HTTP surface.
type Node struct {
	entity string
	opts   Options
	hub    *fanout.Hub
	store  *eventlog.Store
	mux    *http.ServeMux
}

// Health is the /health response body.
type Health struct {
	Status    string `json:"status"`
	Entity    string `json:"entity"`
	Network   string `json:"network,omitempty"`
	AccountID string `json:"accountId,omitempty"`
}

// New creates a Node for entity that delegates inbound messages to exec.
func New(entity string, exec a2a.Executor, optFns ...func(o *Options)) *Node {
	opts := Options{
		ShutdownTimeout: 10 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Card.Name == "" {
		opts.Card.Name = entity + " Treasury Agent"
	}

	hub := fanout.New(func(o *fanout.Options) {
		o.KeepAlive = opts.KeepAlive
		o.Logger = opts.Logger
		o.Debug = opts.EventDebug
	})

	store := eventlog.New(entity, func(o *eventlog.Options) {
		o.MaxEvents = opts.MaxEvents
		o.Hub = hub
		o.Logger = opts.Logger
		o.Debug = opts.EventDebug
	})

	n := &Node{
		entity: entity,
		opts:   opts,
		hub:    hub,
		store:  store,
		mux:    http.NewServeMux(),
	}

	stream.NewHandler(store, func(o *stream.Options) {
		if opts.BootstrapLimit > 0 {
			o.BootstrapLimit = opts.BootstrapLimit
		}
		if opts.SinkBuffer > 0 {
			o.SinkBuffer = opts.SinkBuffer
		}
		o.Logger = opts.Logger
	}).Register(n.mux)

	a2a.NewHandler(exec, store, opts.Card, func(o *a2a.Options) {
		o.Agent = entity
		o.Logger = opts.Logger
	}).Register(n.mux)

	n.mux.HandleFunc("GET /health", n.serveHealth)

	return n
}

// Entity returns the entity name.
func (n *Node) Entity() string { return n.entity }

// Store returns the node's event store.
func (n *Node) Store() *eventlog.Store { return n.store }

// Hub returns the node's fan-out hub.
func (n *Node) Hub() *fanout.Hub { return n.hub }

// Handler returns the node's HTTP handler.
func (n *Node) Handler() http.Handler { return n.mux }

func (n *Node) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Health{
		Status:    "ok",
		Entity:    n.entity,
		Network:   n.opts.Network,
		AccountID: n.opts.AccountID,
	})
}

// Serve runs the keep-alive loop and serves HTTP on l until ctx is done,
// then shuts the server down gracefully.
func (n *Node) Serve(ctx context.Context, l net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	// streams end with gctx so Shutdown does not wait on open viewers
	srv := &http.Server{
		Handler:           n.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		if err := n.hub.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		n.opts.Logger.Info("listening", "addr", l.Addr().String(), "entity", n.entity)

		if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.opts.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve.
func (n *Node) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig

	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	return n.Serve(ctx, l)
}
