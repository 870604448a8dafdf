// Package dashboard shows the activity of several treasury agents side by
// side. A Board keeps one reconciled view per agent up to date and derives
// the display model: per-agent columns, the cross-agent partner message flow
// and diagnostic state. It can also send trigger messages to an agent.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentfeed/a2a"
	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/logging"
	"github.com/hupe1980/agentfeed/reconciler"
)

const (
	// ColumnLimit is the number of newest records shown per agent.
	ColumnLimit = 20
	// FlowLimit is the number of newest partner messages shown in the flow.
	FlowLimit = 8
	// TriggerSender is the metadata.sender of dashboard triggers.
	TriggerSender = "arp-system"
)

// DisplayKinds are the record kinds shown on the board.
var DisplayKinds = []core.Kind{
	core.KindAssistantUpdate,
	core.KindResult,
	core.KindToolUse,
	core.KindPartnerMessage,
}

// Source names an agent and its base URL.
type Source struct {
	Agent   string
	BaseURL string
}

// Options configures a Board.
type Options struct {
	// PollInterval and SnapshotLimit keep the watcher defaults when zero.
	PollInterval  time.Duration
	SnapshotLimit int
	ViewLimit     int
	HTTPClient    *http.Client
	Logger        logging.Logger
}

type feed struct {
	agent   string
	watcher *reconciler.Watcher
	trigger *a2a.Client
}

// Board aggregates the feeds of several agents.
type Board struct {
	feeds []*feed
	opts  Options
}

// NewBoard creates a board with one feed per source, in order.
func NewBoard(sources []Source, optFns ...func(o *Options)) *Board {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	b := &Board{opts: opts}

	for _, src := range sources {
		logger := opts.Logger
		if fl, ok := logger.(*logging.FeedLogger); ok {
			logger = fl.WithAgent(src.Agent)
		}

		client := reconciler.NewClient(src.BaseURL, func(o *reconciler.ClientOptions) {
			if opts.HTTPClient != nil {
				o.HTTPClient = opts.HTTPClient
			}
		})

		rec := reconciler.New(func(o *reconciler.Options) {
			o.ViewLimit = opts.ViewLimit
			o.Agent = src.Agent
			o.Logger = logger
		})

		watcher := reconciler.NewWatcher(client, rec, func(o *reconciler.WatcherOptions) {
			if opts.PollInterval > 0 {
				o.PollInterval = opts.PollInterval
			}
			if opts.SnapshotLimit > 0 {
				o.SnapshotLimit = opts.SnapshotLimit
			}
			o.Logger = logger
		})

		trigger := a2a.NewClient(src.BaseURL, func(o *a2a.ClientOptions) {
			o.Sender = TriggerSender
		})

		b.feeds = append(b.feeds, &feed{agent: src.Agent, watcher: watcher, trigger: trigger})
	}

	return b
}

// Agents returns the agent names in board order.
func (b *Board) Agents() []string {
	names := make([]string, 0, len(b.feeds))
	for _, f := range b.feeds {
		names = append(names, f.agent)
	}

	return names
}

// Run runs every watcher until ctx is done.
func (b *Board) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, f := range b.feeds {
		g.Go(func() error { return f.watcher.Run(ctx) })
	}

	return g.Wait()
}

// Trigger sends message to agent as an external system event and returns the
// agent's reply.
func (b *Board) Trigger(ctx context.Context, agent, message string) (string, error) {
	f := b.feed(agent)
	if f == nil {
		return "", fmt.Errorf("dashboard: unknown agent %q", agent)
	}

	b.opts.Logger.Info("sending trigger", "agent", agent, "message", message)

	return f.trigger.SendMessage(ctx, message, nil)
}

func (b *Board) feed(agent string) *feed {
	for _, f := range b.feeds {
		if f.agent == agent {
			return f
		}
	}

	return nil
}

// Column is the display model of one agent.
type Column struct {
	Agent   string            `json:"agent"`
	Status  reconciler.Status `json:"status"`
	Total   int               `json:"total"`
	Recent  []core.Record     `json:"recent"`
	Debug   reconciler.Debug  `json:"debug"`
	Records int               `json:"records"`
}

// Snapshot is the display model of the whole board.
type Snapshot struct {
	Columns []Column      `json:"columns"`
	Flow    []core.Record `json:"flow"`
	Tracked int           `json:"tracked"`
}

// Snapshot derives the current display model.
func (b *Board) Snapshot() Snapshot {
	views := make([][]core.Record, 0, len(b.feeds))
	snap := Snapshot{Columns: make([]Column, 0, len(b.feeds))}

	for _, f := range b.feeds {
		rec := f.watcher.Reconciler()
		view := rec.View()
		shown := reconciler.FilterKinds(view, DisplayKinds...)

		views = append(views, shown)
		snap.Columns = append(snap.Columns, Column{
			Agent:   f.agent,
			Status:  rec.Status(),
			Total:   len(shown),
			Recent:  reconciler.NewestFirst(shown, ColumnLimit),
			Debug:   rec.Debug(),
			Records: len(view),
		})
	}

	all := reconciler.Combine(views...)
	snap.Tracked = len(all)
	snap.Flow = reconciler.NewestFirst(reconciler.FilterKinds(all, core.KindPartnerMessage), FlowLimit)

	return snap
}
