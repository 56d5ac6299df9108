package swapbase

import "sync"

// EventBus is the wrapper-global event plane StateChangeEvent fans out
// on: a small multi-subscriber channel with synchronous delivery and
// deregistration. There is no shared mutable state outside the bus
// itself — one EventBus belongs to exactly one Wrapper.
type EventBus struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[uint64]chan StateChangeEvent
}

// NewEventBus returns an empty bus ready to accept subscribers.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[uint64]chan StateChangeEvent)}
}

// Subscribe registers a new listener with the given channel buffer and
// returns its delivery channel plus a token to pass to Unsubscribe.
func (b *EventBus) Subscribe(buffer int) (<-chan StateChangeEvent, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan StateChangeEvent, buffer)
	b.subscribers[id] = ch
	return ch, id
}

// Unsubscribe deregisters the listener identified by id and closes its
// channel. Safe to call more than once or with an unknown id.
func (b *EventBus) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	close(ch)
}

// Emit delivers event to every live subscriber synchronously. A
// subscriber whose channel is currently full has the event dropped
// rather than blocking the swap state transition that triggered it.
func (b *EventBus) Emit(event StateChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
