// Package events fans out job state changes to subscribed clients.
package events

import (
	"sync"
	"sync/atomic"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
)

// Broadcaster delivers every emitted event to every current subscriber.
//
// Delivery is best-effort: each subscriber has a bounded buffer and the
// oldest queued event is dropped when it is full. There is no replay.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	bufSize int
	closed  bool

	dropped atomic.Int64
	onDrop  func()
}

// Subscription is one subscriber's event stream.
type Subscription struct {
	ch   chan models.Event
	once sync.Once
}

// C returns the event stream. It is closed on Unsubscribe.
func (s *Subscription) C() <-chan models.Event {
	return s.ch
}

// NewBroadcaster returns a broadcaster with bufSize events of buffer per subscriber.
func NewBroadcaster(bufSize int) *Broadcaster {
	if bufSize <= 0 {
		bufSize = consts.DefaultSubscriberBuffer
	}
	return &Broadcaster{
		subs:    make(map[*Subscription]struct{}),
		bufSize: bufSize,
	}
}

// OnDrop registers a hook called once per dropped event.
func (b *Broadcaster) OnDrop(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDrop = fn
}

// Subscribe registers a new subscriber.
//
// Subscribing to a closed broadcaster returns an already-closed subscription.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan models.Event, b.bufSize)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.close()
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its stream. Safe to repeat.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
	sub.close()
}

// Emit delivers ev to every subscriber without blocking.
func (b *Broadcaster) Emit(ev models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		if b.deliver(sub, ev) {
			continue
		}
		b.dropped.Add(1)
		if b.onDrop != nil {
			b.onDrop()
		}
	}
}

// deliver queues ev, evicting the oldest event if the buffer is full.
//
// Returns false if an event was dropped. Callers hold b.mu.
func (b *Broadcaster) deliver(sub *Subscription, ev models.Event) bool {
	select {
	case sub.ch <- ev:
		return true
	default:
	}

	// Full: drop oldest
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- ev:
	default:
	}
	return false
}

// Dropped returns how many events were dropped across all subscribers.
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close unsubscribes everyone. Later subscriptions are closed immediately.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[*Subscription]struct{})
	b.closed = true
	b.mu.Unlock()

	for sub := range subs {
		sub.close()
	}
}

func (s *Subscription) close() {
	s.once.Do(func() {
		close(s.ch)
	})
}
