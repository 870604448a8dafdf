// Package logging provides the Logger interface used by the store, hub,
// endpoints and reconcilers, a slog-backed FeedLogger carrying component and
// agent context, and NoOpLogger for silent operation.
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false).WithAgent("UK")
//	store := eventlog.New("UK", func(o *eventlog.Options) { o.Logger = logger })
package logging
