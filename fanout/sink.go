package fanout

import (
	"errors"
	"sync"
)

var (
	// ErrSlowSubscriber is returned by Send when a subscriber's queue is full.
	ErrSlowSubscriber = errors.New("fanout: subscriber queue full")
	// ErrSinkClosed is returned by Send after Close.
	ErrSinkClosed = errors.New("fanout: sink closed")
)

// Sink is a single live output channel. Send must not block: it either
// accepts the frame or reports why it cannot. Close releases the channel and
// is safe to call more than once.
type Sink interface {
	Send(f Frame) error
	Close()
}

// ChannelSink is a Sink backed by a bounded queue that a connection goroutine
// drains. A full queue is reported as ErrSlowSubscriber so the hub can drop
// the subscriber instead of waiting on it.
type ChannelSink struct {
	ch        chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelSink returns a sink buffering up to size frames. Sizes below one
// are raised to one.
func NewChannelSink(size int) *ChannelSink {
	if size < 1 {
		size = 1
	}

	return &ChannelSink{
		ch:   make(chan Frame, size),
		done: make(chan struct{}),
	}
}

// Send enqueues f without blocking.
func (s *ChannelSink) Send(f Frame) error {
	select {
	case <-s.done:
		return ErrSinkClosed
	default:
	}

	select {
	case s.ch <- f:
		return nil
	default:
		return ErrSlowSubscriber
	}
}

// C returns the queue to drain. It is never closed; select on Done as well.
func (s *ChannelSink) C() <-chan Frame { return s.ch }

// Done is closed once the sink has been closed.
func (s *ChannelSink) Done() <-chan struct{} { return s.done }

// Close marks the sink closed. Frames still queued remain readable from C.
func (s *ChannelSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
