// Package logmux fans in event streams from supervised processes and
// delivers them to a single consumer over a bounded channel.
package logmux

import (
	"fmt"
	"sync"
	"time"

	"github.com/portside/portside/internal/supervise"
)

// Mux merges per-process event channels. When the downstream consumer
// cannot keep up and the output buffer would overflow, output lines are
// dropped and a synthesized warning line surfaces the number of discarded
// entries for that token. Lifecycle events (exit, wait failure, shell
// fallback) are never dropped; they block until delivered.
type Mux struct {
	out chan supervise.Event

	mu     sync.Mutex
	drops  map[string]int
	inputs sync.WaitGroup
}

// New constructs a mux backed by a channel of the provided size. A size of
// zero results in a minimally buffered channel.
func New(size int) *Mux {
	if size <= 0 {
		size = 1
	}
	return &Mux{
		out:   make(chan supervise.Event, size),
		drops: make(map[string]int),
	}
}

// Output exposes the muxed event channel.
func (m *Mux) Output() <-chan supervise.Event {
	return m.out
}

// Add registers a new source channel. The mux consumes events until the
// source channel is closed.
func (m *Mux) Add(source <-chan supervise.Event) {
	if source == nil {
		return
	}
	m.inputs.Add(1)
	go func() {
		defer m.inputs.Done()
		for evt := range source {
			m.deliver(evt)
		}
	}()
}

// Close waits for all sources to be drained, flushes pending drop
// warnings, and closes the output channel.
func (m *Mux) Close() {
	m.inputs.Wait()
	m.flushDrops()
	close(m.out)
}

func (m *Mux) deliver(evt supervise.Event) {
	switch evt.Type {
	case supervise.EventStdoutLine, supervise.EventStderrLine:
		evt.Message = RedactSecrets(evt.Message)
		if !m.flushPending(evt.Token) {
			m.recordDrops(evt.Token, 1)
			return
		}
		if !m.trySend(evt) {
			m.recordDrops(evt.Token, 1)
		}
	default:
		// Lifecycle events are too important to drop.
		m.flushPending(evt.Token)
		m.out <- evt
	}
}

func (m *Mux) flushPending(token string) bool {
	for {
		count := m.takeDrops(token)
		if count == 0 {
			return true
		}
		if m.trySend(dropEvent(token, count)) {
			continue
		}
		m.recordDrops(token, count)
		return false
	}
}

func (m *Mux) takeDrops(token string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := m.drops[token]
	if count != 0 {
		delete(m.drops, token)
	}
	return count
}

func (m *Mux) recordDrops(token string, count int) {
	if count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drops[token] += count
}

func (m *Mux) flushDrops() {
	m.mu.Lock()
	pending := m.drops
	m.drops = make(map[string]int)
	m.mu.Unlock()

	for token, count := range pending {
		if count > 0 {
			m.out <- dropEvent(token, count)
		}
	}
}

func (m *Mux) trySend(evt supervise.Event) bool {
	select {
	case m.out <- evt:
		return true
	default:
		return false
	}
}

func dropEvent(token string, count int) supervise.Event {
	return supervise.Event{
		Timestamp: time.Now(),
		Token:     token,
		Type:      supervise.EventStderrLine,
		Message:   fmt.Sprintf("log backlog full, dropped=%d", count),
	}
}
