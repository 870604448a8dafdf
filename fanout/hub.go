// Package fanout maintains the set of live viewers of one agent and delivers
// every published frame to each of them independently.
//
// Delivery never blocks the publisher: a subscriber that cannot take a frame
// right away is unsubscribed and closed, and the remaining subscribers are
// unaffected. Keep-alive pings are produced by a single Hub loop rather than
// one timer per connection.
package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentfeed/logging"
)

// DefaultKeepAlive is the interval between ping frames.
const DefaultKeepAlive = 25 * time.Second

// Options configures a Hub.
type Options struct {
	// KeepAlive is the ping interval used by Run. Zero selects DefaultKeepAlive.
	KeepAlive time.Duration
	// Logger receives subscriber lifecycle messages.
	Logger logging.Logger
	// Debug logs subscriber connects and disconnects with the new total.
	Debug bool
	// Now supplies ping timestamps; defaults to time.Now.
	Now func() time.Time
}

// Hub is the subscriber registry. All methods are safe for concurrent use.
type Hub struct {
	mu   sync.RWMutex
	subs map[Sink]struct{}
	opts Options
}

// New creates an empty Hub.
func New(optFns ...func(o *Options)) *Hub {
	opts := Options{
		KeepAlive: DefaultKeepAlive,
		Logger:    logging.NoOpLogger{},
		Now:       time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Hub{
		subs: make(map[Sink]struct{}),
		opts: opts,
	}
}

// Subscribe registers s for every frame broadcast from now on. History is
// not replayed.
func (h *Hub) Subscribe(s Sink) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	if h.opts.Debug {
		h.opts.Logger.Info("subscriber connected", "subscribers", n)
	}
}

// Unsubscribe removes s. It reports whether s was registered; removing an
// unknown or already removed sink is a no-op.
func (h *Hub) Unsubscribe(s Sink) bool {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()

	if ok && h.opts.Debug {
		h.opts.Logger.Info("subscriber disconnected", "subscribers", n)
	}

	return ok
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs)
}

// Broadcast offers f to every subscriber and returns how many accepted it.
// A subscriber whose Send fails is unsubscribed and closed; the failure is
// not reported to the caller.
func (h *Hub) Broadcast(f Frame) int {
	h.mu.RLock()
	targets := make([]Sink, 0, len(h.subs))
	for s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0

	for _, s := range targets {
		if err := s.Send(f); err != nil {
			h.drop(s, f.Event, err)
			continue
		}
		delivered++
	}

	return delivered
}

// Publish encodes v once and broadcasts it as an event frame.
func (h *Hub) Publish(event string, v any) (int, error) {
	f, err := NewFrame(event, v)
	if err != nil {
		return 0, err
	}

	return h.Broadcast(f), nil
}

// Ping broadcasts a keep-alive frame carrying the current time.
func (h *Hub) Ping() int {
	n, err := h.Publish(EventPing, h.opts.Now().UTC())
	if err != nil {
		h.opts.Logger.Warn("encode ping failed", "error", err.Error())
	}

	return n
}

// Run pings all subscribers every KeepAlive interval until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Ping()
		}
	}
}

func (h *Hub) drop(s Sink, event string, cause error) {
	if h.Unsubscribe(s) {
		h.opts.Logger.Warn("dropping subscriber", "event", event, "error", cause.Error())
	}

	s.Close()
}
