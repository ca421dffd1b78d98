// Package telemetry republishes simulated trajectory steps over Server-Sent
// Events for external observers (dashboards, replay tools). It is a pure
// downstream consumer: simulate.Simulate and simulate.SimulateAll never
// require a sink, and produce identical trajectories whether or not
// anything is subscribed here.
package telemetry

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const multiplexerTimeout = 200 * time.Millisecond

type subscriber[E any] struct {
	ch      chan E
	comment string
}

// Multiplexer fans one stream of events out to any number of subscriber
// channels. A subscriber that does not accept an event within
// multiplexerTimeout misses that event (the timeout is logged) but stays
// subscribed, so the publisher waits at most that long per subscriber.
type Multiplexer[E any] struct {
	comment         string
	subscribersLock sync.Mutex
	subscribers     []subscriber[E]
}

// NewMultiplexer returns an empty Multiplexer identified by comment in log
// output.
func NewMultiplexer[E any](comment string) *Multiplexer[E] {
	return &Multiplexer[E]{comment: comment}
}

// Subscribe registers c to receive every subsequent Send. c must be
// unsubscribed with Unsubscribe when the caller is done.
func (m *Multiplexer[E]) Subscribe(comment string, c chan E) {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	sub := subscriber[E]{ch: c, comment: comment}
	last := len(m.subscribers) - 1
	if last >= 0 && m.subscribers[last].ch == nil {
		m.subscribers[last] = sub
		m.cleanup()
		return
	}
	m.subscribers = append(m.subscribers, sub)
}

// Unsubscribe removes c. Panics if c was never subscribed.
func (m *Multiplexer[E]) Unsubscribe(c chan E) {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	i := slices.IndexFunc(m.subscribers, func(sub subscriber[E]) bool { return sub.ch == c })
	if i == -1 {
		panic("telemetry: unsubscribing a channel that was never subscribed")
	}
	m.subscribers[i] = subscriber[E]{}
	m.cleanup()
}

// subscribersLock must be held.
func (m *Multiplexer[E]) cleanup() {
	last := len(m.subscribers) - 1
	if last < 0 || m.subscribers[last].ch == nil {
		return
	}
	for i, sub := range m.subscribers {
		if sub.ch == nil {
			m.subscribers[i], m.subscribers[last] = m.subscribers[last], subscriber[E]{}
			return
		}
	}
}

// Send delivers e to every current subscriber, synchronously.
func (m *Multiplexer[E]) Send(e E) {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	for _, sub := range m.subscribers {
		if sub.ch == nil {
			continue
		}
		select {
		case sub.ch <- e:
		case <-time.After(multiplexerTimeout):
			zap.S().Warnw("telemetry subscriber timed out", "multiplexer", m.comment, "subscriber", sub.comment)
		}
	}
}
