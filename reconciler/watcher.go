package reconciler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentfeed/logging"
)

const (
	// DefaultPollInterval is the snapshot pull period.
	DefaultPollInterval = 5 * time.Second
	// DefaultSnapshotLimit is the number of records requested per pull.
	DefaultSnapshotLimit = 200
)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	PollInterval  time.Duration
	SnapshotLimit int
	Logger        logging.Logger
}

// Watcher feeds a Reconciler from one agent: an initial snapshot, periodic
// snapshots and the live stream, all running at once. Polling continues
// regardless of the live channel's health.
type Watcher struct {
	client *Client
	rec    *Reconciler
	opts   WatcherOptions
}

// NewWatcher binds client to rec.
func NewWatcher(client *Client, rec *Reconciler, optFns ...func(o *WatcherOptions)) *Watcher {
	opts := WatcherOptions{
		PollInterval:  DefaultPollInterval,
		SnapshotLimit: DefaultSnapshotLimit,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	if opts.SnapshotLimit <= 0 {
		opts.SnapshotLimit = DefaultSnapshotLimit
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Watcher{client: client, rec: rec, opts: opts}
}

// Reconciler returns the reconciler being fed.
func (w *Watcher) Reconciler() *Reconciler { return w.rec }

// Run blocks until ctx is done. The live channel is opened once; when it
// fails the status becomes StatusError and only polling continues.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		w.poll(ctx)
		return nil
	})

	g.Go(func() error {
		w.live(ctx)
		return nil
	})

	return g.Wait()
}

// Poll performs one snapshot pull. A failure marks the status as error and
// leaves the view untouched.
func (w *Watcher) Poll(ctx context.Context) error {
	recs, err := w.client.FetchRecent(ctx, w.opts.SnapshotLimit)
	if err != nil {
		if ctx.Err() == nil {
			w.opts.Logger.Warn("snapshot pull failed", "agent_url", w.client.BaseURL(), "error", err.Error())
			w.rec.Fail(err)
		}

		return err
	}

	w.rec.MergeSnapshot(recs)

	return nil
}

func (w *Watcher) poll(ctx context.Context) {
	_ = w.Poll(ctx)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = w.Poll(ctx)
		}
	}
}

func (w *Watcher) live(ctx context.Context) {
	w.rec.SetStatus(StatusConnecting)

	es, err := w.client.OpenStream(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.opts.Logger.Warn("live stream unavailable", "agent_url", w.client.BaseURL(), "error", err.Error())
			w.rec.Fail(err)
		}

		return
	}
	defer es.Close()

	w.rec.SetStatus(StatusOpen)

	for {
		f, err := es.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("stream closed by agent: %w", err)
			}

			w.opts.Logger.Warn("live stream failed", "agent_url", w.client.BaseURL(), "error", err.Error())
			w.rec.Fail(err)

			return
		}

		// Decode failures are kept in Debug and do not end the stream.
		_ = w.rec.Apply(f)
	}
}
