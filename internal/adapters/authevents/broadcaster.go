// Package authevents provides an in-process broadcaster for external auth
// events. The HTTP layer publishes sign-in, sign-out, and token-refresh
// events; the auth state machine subscribes.
package authevents

import (
	"sync"

	"github.com/target/session-authority/internal/domain/auth"
	"github.com/target/session-authority/internal/ports"
)

const subscriberBuffer = 8

// Broadcaster fans auth events out to all current subscribers. Slow
// subscribers drop events rather than block publishers; the state machine
// tolerates this because a later event or the initial session query converges
// it to the same state.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan auth.Event]struct{}
}

// NewBroadcaster constructs a new Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[chan auth.Event]struct{}),
	}
}

// Subscribe registers a subscriber. Returns an unsubscribe function and the
// event channel; the channel is closed on unsubscribe.
func (b *Broadcaster) Subscribe() (func(), <-chan auth.Event) {
	ch := make(chan auth.Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; !ok {
			return
		}
		delete(b.subs, ch)
		drainAndClose(ch)
	}
	return unsubscribe, ch
}

// Publish delivers the event to every subscriber without blocking.
func (b *Broadcaster) Publish(ev auth.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close unsubscribes everyone. The broadcaster is unusable afterwards.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		delete(b.subs, ch)
		drainAndClose(ch)
	}
}

func drainAndClose(ch chan auth.Event) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ ports.AuthEventSource = (*Broadcaster)(nil)
