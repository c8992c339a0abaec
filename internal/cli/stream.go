package cli

import (
	"sync"

	"github.com/portside/portside/internal/supervise"
)

// eventStream fans events out to any number of subscribers. Output lines
// are kept in a bounded backlog replayed to late subscribers, and a slow
// subscriber loses output lines rather than stalling the pump. Lifecycle
// events get the same treatment as in the mux: they are never dropped,
// and stay queued until the subscriber takes them or unsubscribes.
type eventStream struct {
	mu       sync.Mutex
	closed   bool
	subs     map[*subscriber]struct{}
	backlog  []supervise.Event
	capacity int
}

// subscriber owns its outbound channel. Publish only appends to the
// pending queue; the deliver goroutine is the sole sender on and closer
// of ch, so a blocking send can never race a close.
type subscriber struct {
	ch   chan supervise.Event
	stop chan struct{}

	mu      sync.Mutex
	cond    *sync.Cond
	pending []supervise.Event
	lines   int
	limit   int
	done    bool
	stopped bool
}

func newEventStream(capacity int) *eventStream {
	if capacity <= 0 {
		capacity = 1
	}
	return &eventStream{
		subs:     make(map[*subscriber]struct{}),
		capacity: capacity,
	}
}

func (s *eventStream) Subscribe(buffer int) (<-chan supervise.Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	sub := newSubscriber(buffer)

	s.mu.Lock()
	if s.closed {
		close(sub.ch)
		s.mu.Unlock()
		return sub.ch, func() {}
	}
	backlog := append([]supervise.Event(nil), s.backlog...)
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	for _, evt := range backlog {
		sub.enqueue(evt)
	}
	go sub.deliver()

	release := func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		sub.release()
	}

	return sub.ch, release
}

func (s *eventStream) Publish(evt supervise.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if isOutputLine(evt) {
		s.backlog = append(s.backlog, evt)
		if len(s.backlog) > s.capacity {
			s.backlog = s.backlog[len(s.backlog)-s.capacity:]
		}
	}
	subscribers := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		subscribers = append(subscribers, sub)
	}
	s.mu.Unlock()

	for _, sub := range subscribers {
		sub.enqueue(evt)
	}
}

// Close stops accepting events. Subscriber channels close once their
// queued events, lifecycle events included, have been handed over.
func (s *eventStream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subscribers := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		subscribers = append(subscribers, sub)
	}
	s.subs = nil
	s.backlog = nil
	s.mu.Unlock()

	for _, sub := range subscribers {
		sub.finish()
	}
}

func isOutputLine(evt supervise.Event) bool {
	return evt.Type == supervise.EventStdoutLine || evt.Type == supervise.EventStderrLine
}

func newSubscriber(buffer int) *subscriber {
	sub := &subscriber{
		ch:    make(chan supervise.Event, buffer),
		stop:  make(chan struct{}),
		limit: buffer,
	}
	sub.cond = sync.NewCond(&sub.mu)
	return sub
}

// enqueue admits evt to the pending queue. Output lines are capped at the
// subscriber's buffer size and dropped beyond it; lifecycle events are
// always admitted.
func (sub *subscriber) enqueue(evt supervise.Event) {
	line := isOutputLine(evt)
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.done || sub.stopped {
		return
	}
	if line {
		if sub.lines >= sub.limit {
			return
		}
		sub.lines++
	}
	sub.pending = append(sub.pending, evt)
	sub.cond.Signal()
}

// finish marks the stream closed so deliver exits after draining pending.
func (sub *subscriber) finish() {
	sub.mu.Lock()
	sub.done = true
	sub.mu.Unlock()
	sub.cond.Signal()
}

// release abandons undelivered events and unblocks deliver immediately.
func (sub *subscriber) release() {
	sub.mu.Lock()
	if sub.stopped {
		sub.mu.Unlock()
		return
	}
	sub.stopped = true
	close(sub.stop)
	sub.mu.Unlock()
	sub.cond.Signal()
}

func (sub *subscriber) deliver() {
	defer close(sub.ch)
	for {
		sub.mu.Lock()
		for len(sub.pending) == 0 && !sub.done && !sub.stopped {
			sub.cond.Wait()
		}
		if sub.stopped || len(sub.pending) == 0 {
			sub.mu.Unlock()
			return
		}
		evt := sub.pending[0]
		sub.pending = sub.pending[1:]
		if isOutputLine(evt) {
			sub.lines--
		}
		sub.mu.Unlock()

		select {
		case sub.ch <- evt:
		case <-sub.stop:
			return
		}
	}
}
