// Package eventlog holds one agent's bounded, append-only activity history.
//
// A Store retains the most recent records, counts every record it has ever
// accepted and hands each new record to a fanout.Hub so live viewers see it
// immediately. Appends never wait on viewers.
package eventlog

import (
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/fanout"
	"github.com/hupe1980/agentfeed/logging"
)

// DefaultMaxEvents is the default retention cap.
const DefaultMaxEvents = 500

var (
	// ErrKindRequired is returned by Append for a draft without a kind.
	ErrKindRequired = errors.New("eventlog: record kind is required")
	// ErrUnknownKind is returned by Append for a kind outside core.Kinds.
	ErrUnknownKind = errors.New("eventlog: unknown record kind")
)

// Options configures a Store.
type Options struct {
	// MaxEvents caps the number of retained records. Zero selects DefaultMaxEvents.
	MaxEvents int
	// Hub receives every appended record. A private hub is created when nil.
	Hub *fanout.Hub
	// Logger receives debug output.
	Logger logging.Logger
	// Debug logs one line per append with subscriber and retention counts.
	Debug bool
	// Now supplies default timestamps; defaults to time.Now.
	Now func() time.Time
	// NewID supplies default record ids; defaults to core.NewID.
	NewID func() string
}

// Store is the event store of a single agent. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	agent   string
	records []core.Record
	total   uint64
	hub     *fanout.Hub
	opts    Options
}

// New creates an empty Store for agent.
func New(agent string, optFns ...func(o *Options)) *Store {
	opts := Options{
		MaxEvents: DefaultMaxEvents,
		Logger:    logging.NoOpLogger{},
		Now:       time.Now,
		NewID:     core.NewID,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxEvents <= 0 {
		opts.MaxEvents = DefaultMaxEvents
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.NewID == nil {
		opts.NewID = core.NewID
	}

	hub := opts.Hub
	if hub == nil {
		hub = fanout.New(func(o *fanout.Options) {
			o.Logger = opts.Logger
			o.Debug = opts.Debug
		})
	}

	return &Store{
		agent:   agent,
		records: make([]core.Record, 0, opts.MaxEvents),
		hub:     hub,
		opts:    opts,
	}
}

// Agent returns the origin this store records for.
func (s *Store) Agent() string { return s.agent }

// Hub returns the fan-out hub fed by this store.
func (s *Store) Hub() *fanout.Hub { return s.hub }

// MaxEvents returns the retention cap.
func (s *Store) MaxEvents() int { return s.opts.MaxEvents }

// Append finalizes d into a record, retains it, evicts the oldest records
// beyond the cap and broadcasts it to live subscribers. Missing id, timestamp
// and agent are defaulted. Only a missing or unknown kind is rejected.
func (s *Store) Append(d core.Draft) (core.Record, error) {
	if d.Kind == "" {
		return core.Record{}, ErrKindRequired
	}

	if !d.Kind.Valid() {
		return core.Record{}, fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)
	}

	rec := core.Record{
		ID:        d.ID,
		Timestamp: d.Timestamp,
		Agent:     d.Agent,
		Kind:      d.Kind,
		ContextID: d.ContextID,
		TaskID:    d.TaskID,
		Sender:    d.Sender,
		Text:      NormalizeText(d.Kind, d.Text),
		Data:      maps.Clone(d.Data),
	}

	if rec.ID == "" {
		rec.ID = s.opts.NewID()
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.opts.Now().UTC()
	}

	if rec.Agent == "" {
		rec.Agent = s.agent
	}

	frame, err := fanout.NewFrame(fanout.EventLog, rec)
	if err != nil {
		// The record is still retained; only live delivery is skipped.
		s.opts.Logger.Warn("encode record failed", "id", rec.ID, "kind", string(rec.Kind), "error", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	if over := len(s.records) - s.opts.MaxEvents; over > 0 {
		n := copy(s.records, s.records[over:])
		clear(s.records[n:])
		s.records = s.records[:n]
	}

	s.total++

	// Broadcast under the lock so Attach never observes a record both in its
	// snapshot and as a live frame. Broadcast does not block.
	delivered := 0
	if err == nil {
		delivered = s.hub.Broadcast(frame)
	}

	if s.opts.Debug {
		s.opts.Logger.Info("record appended",
			"kind", string(rec.Kind),
			"subscribers", delivered,
			"retained", len(s.records),
		)
	}

	return rec, nil
}

// Recent returns up to limit of the most recently appended records, oldest
// first. limit is clamped to [0, MaxEvents].
func (s *Store) Recent(limit int) []core.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.recentLocked(limit)
}

func (s *Store) recentLocked(limit int) []core.Record {
	limit = min(max(limit, 0), s.opts.MaxEvents, len(s.records))
	out := make([]core.Record, limit)
	copy(out, s.records[len(s.records)-limit:])

	return out
}

// Stats returns the store's counters.
func (s *Store) Stats() core.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return core.Stats{
		TotalIngested: s.total,
		Retained:      len(s.records),
		Subscribers:   s.hub.Len(),
	}
}

// Attach returns the most recent limit records and subscribes sink to every
// later append. Both happen under the same lock, so a record appended
// concurrently lands either in the returned history or on the sink, never
// in both and never in neither.
func (s *Store) Attach(sink fanout.Sink, limit int) []core.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.recentLocked(limit)
	s.hub.Subscribe(sink)

	return history
}

// Detach unsubscribes sink and closes it.
func (s *Store) Detach(sink fanout.Sink) {
	s.hub.Unsubscribe(sink)
	sink.Close()
}
