// Package eventbus implements the process-wide, synchronous publish/
// subscribe mechanism (C9) connecting controllers, the sync layer, and the
// consensus core. It intentionally has no persistence or cross-process
// transport: it is purely an in-process fan-out, matching the
// "process-wide pub/sub" description.
package eventbus

import (
	"sync"

	"github.com/google/uuid"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// subscription is one registered receiver for a topic.
type subscription struct {
	id uuid.UUID
	ch chan Event
}

// Bus is a topic-keyed, many-publisher/many-subscriber event bus. Publish
// never blocks on a slow subscriber for longer than a buffered channel
// send: a full subscriber buffer drops the event with nothing more than a
// best-effort notification, preserving the consensus sequence's forward
// progress guarantee.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscription
	bufferSize  int
	onDrop      func(topic string, id uuid.UUID)
}

// New returns an empty bus. bufferSize sizes each subscriber's channel;
// 16 is a reasonable default for a single node's internal fan-out.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Bus{subscribers: make(map[string][]subscription), bufferSize: bufferSize}
}

// OnDrop installs a callback invoked whenever Publish drops an event
// because a subscriber's buffer was full — tests and logging wiring use
// this to observe backpressure instead of failing silently.
func (b *Bus) OnDrop(fn func(topic string, id uuid.UUID)) { b.onDrop = fn }

// Subscribe registers a receiver for topic, returning its channel and an
// unsubscribe function. Each call gets its own uuid handle, so a caller
// holding multiple subscriptions to the same topic can unsubscribe them
// independently.
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	id := uuid.New()
	ch := make(chan Event, b.bufferSize)

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], subscription{id: id, ch: ch})
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[topic]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}

// Publish sends payload to every current subscriber of topic.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	evt := Event{Topic: topic, Payload: payload}
	for _, s := range subs {
		select {
		case s.ch <- evt:
		default:
			if b.onDrop != nil {
				b.onDrop(topic, s.id)
			}
		}
	}
}
