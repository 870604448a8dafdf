// Package reconciler merges the records a viewer receives from an agent's
// snapshot pulls and live stream into one deduplicated, time-ordered view.
//
// All inputs go through Reconciler.MergeBatch, which serializes updates to
// the id-keyed mapping, so a poll loop and a stream reader can feed the same
// Reconciler from different goroutines.
package reconciler

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/fanout"
	"github.com/hupe1980/agentfeed/logging"
)

// DefaultViewLimit caps the number of records kept in the view.
const DefaultViewLimit = 400

const maxDebugRaw = 500

// Stream event names consumed by Apply.
const (
	eventConnected = "connected"
	eventBootstrap = "bootstrap"
)

// Status is the client-observed state of the live channel.
type Status string

const (
	// StatusConnecting is the state before the live channel opened.
	StatusConnecting Status = "connecting"
	// StatusOpen means the live channel is delivering events.
	StatusOpen Status = "open"
	// StatusError means the live channel or a snapshot pull failed.
	StatusError Status = "error"
)

// Debug is a diagnostic snapshot of the most recent inputs.
type Debug struct {
	LastEventType   string    `json:"lastEventType,omitempty"`
	LastEventAt     time.Time `json:"lastEventAt,omitzero"`
	LastRaw         string    `json:"lastRaw,omitempty"`
	LastError       string    `json:"lastError,omitempty"`
	LastRecentCount int       `json:"lastRecentCount"`
	LastAddedCount  int       `json:"lastAddedCount"`
	CurrentCount    int       `json:"currentEventCount"`
}

// Options configures a Reconciler.
type Options struct {
	// ViewLimit caps the view. Zero selects DefaultViewLimit.
	ViewLimit int
	// Agent is filled into records that arrive without one.
	Agent string
	// Logger receives parse and transport failures.
	Logger logging.Logger
	// Now timestamps debug observations; defaults to time.Now.
	Now func() time.Time
	// OnChange, if set, receives a copy of the view after a merge added
	// at least one record. It runs on the merging goroutine without the lock.
	OnChange func(view []core.Record)
}

type entry struct {
	rec core.Record
	seq uint64
}

// Reconciler owns the merged view of one agent's records.
type Reconciler struct {
	mu      sync.Mutex
	entries map[string]entry
	// evicted remembers the insertion seq of ids cut by ViewLimit so a
	// re-sent record sorts where it did before.
	evicted map[string]uint64
	seq     uint64
	view    []core.Record
	status  Status
	debug   Debug
	opts    Options
}

// New creates an empty Reconciler in StatusConnecting.
func New(optFns ...func(o *Options)) *Reconciler {
	opts := Options{
		ViewLimit: DefaultViewLimit,
		Logger:    logging.NoOpLogger{},
		Now:       time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ViewLimit <= 0 {
		opts.ViewLimit = DefaultViewLimit
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Reconciler{
		entries: make(map[string]entry),
		evicted: make(map[string]uint64),
		status:  StatusConnecting,
		opts:    opts,
	}
}

// MergeBatch upserts recs by id and recomputes the view. Records without an
// id are ignored. A record whose id is already known replaces the stored copy
// but keeps its original insertion position for tie-breaking. It returns the
// number of ids that were new.
func (r *Reconciler) MergeBatch(recs []core.Record) int {
	r.mu.Lock()
	added := r.mergeLocked(recs)
	view := r.changedLocked(added)
	r.mu.Unlock()

	r.notify(view)

	return added
}

func (r *Reconciler) changedLocked(added int) []core.Record {
	if added == 0 || r.opts.OnChange == nil {
		return nil
	}

	return slices.Clone(r.view)
}

func (r *Reconciler) notify(view []core.Record) {
	if view != nil {
		r.opts.OnChange(view)
	}
}

func (r *Reconciler) mergeLocked(recs []core.Record) int {
	var fresh []string

	for _, rec := range recs {
		if rec.ID == "" {
			continue
		}

		if rec.Agent == "" {
			rec.Agent = r.opts.Agent
		}

		if e, ok := r.entries[rec.ID]; ok {
			e.rec = rec
			r.entries[rec.ID] = e

			continue
		}

		seq, ok := r.evicted[rec.ID]
		if !ok {
			r.seq++
			seq = r.seq
		}

		r.entries[rec.ID] = entry{rec: rec, seq: seq}
		fresh = append(fresh, rec.ID)
	}

	r.rebuildLocked()

	added := 0
	for _, id := range fresh {
		if _, ok := r.entries[id]; ok {
			added++
		}
	}

	r.debug.LastAddedCount = added
	r.debug.CurrentCount = len(r.view)

	return added
}

// rebuildLocked sorts by timestamp then insertion order, keeps the newest
// ViewLimit entries and forgets the rest.
func (r *Reconciler) rebuildLocked() {
	all := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}

	slices.SortFunc(all, func(a, b entry) int {
		if c := a.rec.Timestamp.Compare(b.rec.Timestamp); c != 0 {
			return c
		}

		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})

	if over := len(all) - r.opts.ViewLimit; over > 0 {
		for _, e := range all[:over] {
			delete(r.entries, e.rec.ID)
			r.evicted[e.rec.ID] = e.seq
		}

		all = all[over:]
		r.pruneEvictedLocked()
	}

	view := make([]core.Record, len(all))
	for i, e := range all {
		view[i] = e.rec
	}

	r.view = view
}

// pruneEvictedLocked keeps the ViewLimit most recently inserted evicted ids
// once the set grows past twice that.
func (r *Reconciler) pruneEvictedLocked() {
	if len(r.evicted) <= 2*r.opts.ViewLimit {
		return
	}

	seqs := make([]uint64, 0, len(r.evicted))
	for _, seq := range r.evicted {
		seqs = append(seqs, seq)
	}

	slices.Sort(seqs)
	floor := seqs[len(seqs)-r.opts.ViewLimit]

	for id, seq := range r.evicted {
		if seq < floor {
			delete(r.evicted, id)
		}
	}
}

// MergeSnapshot merges the result of a snapshot pull.
func (r *Reconciler) MergeSnapshot(recs []core.Record) int {
	r.mu.Lock()
	r.debug.LastRecentCount = len(recs)
	added := r.mergeLocked(recs)
	view := r.changedLocked(added)
	r.mu.Unlock()

	r.notify(view)

	return added
}

// Apply handles one frame from the live channel. Bootstrap and log payloads
// are merged; a connected frame marks the channel open; pings are ignored.
// A payload that fails to decode is recorded as the last error and not merged;
// a connected frame or a decoded payload clears the last error.
func (r *Reconciler) Apply(f fanout.Frame) error {
	r.observe(f)

	var batch []core.Record

	switch f.Event {
	case eventConnected:
		r.clearError()
		r.SetStatus(StatusOpen)
		return nil
	case eventBootstrap:
		if err := json.Unmarshal(f.Data, &batch); err != nil {
			return r.parseFailed(f.Event, err)
		}
	case fanout.EventLog:
		var rec core.Record
		if err := json.Unmarshal(f.Data, &rec); err != nil {
			return r.parseFailed(f.Event, err)
		}

		batch = []core.Record{rec}
	default:
		return nil
	}

	r.clearError()
	r.MergeBatch(batch)

	return nil
}

func (r *Reconciler) observe(f fanout.Frame) {
	raw := []rune(string(f.Data))
	if len(raw) > maxDebugRaw {
		raw = raw[:maxDebugRaw]
	}

	r.mu.Lock()
	r.debug.LastEventType = f.Event
	r.debug.LastEventAt = r.opts.Now()
	r.debug.LastRaw = string(raw)
	r.mu.Unlock()
}

func (r *Reconciler) parseFailed(event string, err error) error {
	err = fmt.Errorf("decode %s payload: %w", event, err)
	r.opts.Logger.Warn("discarding stream payload", "event", event, "error", err.Error())
	r.RecordError(err)

	return err
}

// RecordError stores err as the last error without changing the status.
func (r *Reconciler) RecordError(err error) {
	if err == nil {
		return
	}

	r.mu.Lock()
	r.debug.LastError = err.Error()
	r.mu.Unlock()
}

func (r *Reconciler) clearError() {
	r.mu.Lock()
	r.debug.LastError = ""
	r.mu.Unlock()
}

// Fail records err and moves the status to StatusError. The view is kept.
func (r *Reconciler) Fail(err error) {
	r.RecordError(err)
	r.SetStatus(StatusError)
}

// SetStatus sets the live channel status.
func (r *Reconciler) SetStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// Status returns the live channel status.
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// View returns the merged records in ascending timestamp order.
func (r *Reconciler) View() []core.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.view)
}

// Len returns the number of records in the view.
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.view)
}

// Debug returns a copy of the diagnostic snapshot.
func (r *Reconciler) Debug() Debug {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.debug
}
