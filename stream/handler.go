// Package stream exposes an eventlog.Store over HTTP: a server-sent event
// stream for live viewers, a snapshot pull of recent records and a stats
// endpoint.
//
// A stream connection receives, in order, one "connected" event, one
// "bootstrap" event holding recent history (omitted when there is none) and
// then one "log" event per appended record, interleaved with "ping"
// keep-alives from the store's hub.
package stream

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hupe1980/agentfeed/eventlog"
	"github.com/hupe1980/agentfeed/fanout"
	"github.com/hupe1980/agentfeed/logging"
)

const (
	// EventConnected is the first event of every stream.
	EventConnected = "connected"
	// EventBootstrap carries recent history at the start of a stream.
	EventBootstrap = "bootstrap"

	// DefaultBootstrapLimit is the number of records sent in bootstrap.
	DefaultBootstrapLimit = 50
	// DefaultRecentLimit is used when /events/recent has no usable limit.
	DefaultRecentLimit = 200
	// MaxRecentLimit caps the limit accepted by /events/recent.
	MaxRecentLimit = 500
	// DefaultSinkBuffer is the per-connection frame queue size.
	DefaultSinkBuffer = 256
)

// Connected is the payload of the connected event.
type Connected struct {
	Status string `json:"status"`
	Agent  string `json:"agent"`
}

// Options configures a Handler.
type Options struct {
	// BootstrapLimit is the number of history records sent on connect.
	BootstrapLimit int
	// SinkBuffer is the number of frames queued per connection before the
	// viewer is considered too slow and dropped.
	SinkBuffer int
	// AllowOrigin is sent as Access-Control-Allow-Origin. Empty disables it.
	AllowOrigin string
	// Logger receives connection lifecycle messages.
	Logger logging.Logger
}

// Handler serves the event endpoints of one store.
type Handler struct {
	store *eventlog.Store
	opts  Options
}

// NewHandler creates a Handler for store.
func NewHandler(store *eventlog.Store, optFns ...func(o *Options)) *Handler {
	opts := Options{
		BootstrapLimit: DefaultBootstrapLimit,
		SinkBuffer:     DefaultSinkBuffer,
		AllowOrigin:    "*",
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BootstrapLimit < 0 {
		opts.BootstrapLimit = 0
	}

	if opts.SinkBuffer <= 0 {
		opts.SinkBuffer = DefaultSinkBuffer
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Handler{store: store, opts: opts}
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /events", h.ServeStream)
	mux.HandleFunc("GET /events/recent", h.ServeRecent)
	mux.HandleFunc("GET /events/stats", h.ServeStats)
}

// ServeStream streams the store's records until the client goes away or the
// connection is dropped for falling behind.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.opts.Logger.Error("streaming not supported by response writer")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)

		return
	}

	h.cors(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sink := fanout.NewChannelSink(h.opts.SinkBuffer)
	history := h.store.Attach(sink, h.opts.BootstrapLimit)

	defer h.store.Detach(sink)

	start := time.Now()
	logger := h.opts.Logger

	logger.Debug("stream opened", "remote", r.RemoteAddr, "bootstrap", len(history))

	if err := h.writeJSON(w, EventConnected, Connected{Status: "ok", Agent: h.store.Agent()}); err != nil {
		return
	}

	if len(history) > 0 {
		if err := h.writeJSON(w, EventBootstrap, history); err != nil {
			return
		}
	}

	flusher.Flush()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("stream closed by client", "remote", r.RemoteAddr, "duration", time.Since(start))
			return
		case <-sink.Done():
			logger.Warn("stream dropped", "remote", r.RemoteAddr, "duration", time.Since(start))
			return
		case f := <-sink.C():
			if err := WriteEvent(w, f); err != nil {
				logger.Debug("stream write failed", "remote", r.RemoteAddr, "error", err.Error())
				return
			}
			flusher.Flush()
		}
	}
}

// ServeRecent returns up to ?limit= recent records, oldest first. A missing
// or unparsable limit selects DefaultRecentLimit; larger values are capped
// at MaxRecentLimit.
func (h *Handler) ServeRecent(w http.ResponseWriter, r *http.Request) {
	h.cors(w)

	limit := DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	limit = min(limit, MaxRecentLimit)

	respondJSON(w, http.StatusOK, h.store.Recent(limit))
}

// ServeStats returns the store's counters.
func (h *Handler) ServeStats(w http.ResponseWriter, _ *http.Request) {
	h.cors(w)
	respondJSON(w, http.StatusOK, h.store.Stats())
}

func (h *Handler) cors(w http.ResponseWriter) {
	if h.opts.AllowOrigin != "" {
		w.Header().Set("Access-Control-Allow-Origin", h.opts.AllowOrigin)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, event string, v any) error {
	f, err := fanout.NewFrame(event, v)
	if err != nil {
		h.opts.Logger.Error("encode stream event failed", "event", event, "error", err.Error())
		return err
	}

	return WriteEvent(w, f)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
