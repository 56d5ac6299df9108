// Package chainevents implements ChainEventRouter (UnifiedSwapEventListener):
// a dispatcher that indexes wrapper listeners by swap kind, guarantees
// exactly-once delivery per event to at most one listener, preserves
// ordering per swap identifier, and buffers deliveries during a wrapper's
// init past-swap reconciliation window.
package chainevents

import (
	"sync"

	"github.com/atomiqlabs/swapengine/swaptypes"
)

// Event is a single on-chain (or LP-side) occurrence the router dispatches
// to the Wrapper responsible for its swap kind.
type Event struct {
	SwapId string
	Kind   swaptypes.Kind

	// Name identifies the occurrence (e.g. "commit_confirmed",
	// "claimed"); concrete meaning is owned by the receiving Wrapper.
	Name string

	// Payload carries event-specific data, opaque to the router.
	Payload any
}

// Listener is what a Wrapper registers to receive events for its kind.
// OnEvent receives each event routed to that kind; the listener looks up
// the swap the event's SwapId names and drives its state machine.
type Listener interface {
	OnEvent(event Event)
}

// ChainEventRouter indexes one Listener per swaptypes.Kind. Delivery
// order per swap identifier follows call order: callers are expected to
// invoke Dispatch from the same cooperative scheduling loop that drives
// the rest of the engine, never concurrently for events touching the
// same swap id, so two events concerning one swap are always delivered
// in the order Dispatch was called for them.
type ChainEventRouter struct {
	mu        sync.Mutex
	listeners map[swaptypes.Kind]Listener

	// buffering, while true, queues Dispatch calls instead of delivering
	// them, for use during a Wrapper's init reconciliation window.
	buffering bool
	buffer    []Event
}

// New builds an empty router.
func New() *ChainEventRouter {
	return &ChainEventRouter{listeners: make(map[swaptypes.Kind]Listener)}
}

// Register installs listener as the receiver for every event of kind.
// Registering a second listener for the same kind replaces the first,
// matching the Wrapper-owns-its-kind relationship in the data model.
func (r *ChainEventRouter) Register(kind swaptypes.Kind, listener Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[kind] = listener
}

// Unregister removes the listener for kind, if any.
func (r *ChainEventRouter) Unregister(kind swaptypes.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, kind)
}

// StartBuffering begins queueing Dispatch calls instead of delivering
// them. Used by a Wrapper's init() to avoid racing events in against its
// past-swap reconciliation pass.
func (r *ChainEventRouter) StartBuffering() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffering = true
}

// Drain stops buffering and delivers every queued event, in arrival
// order, to the listener now registered for its kind (which may differ
// from whatever was registered when the event first arrived).
func (r *ChainEventRouter) Drain() {
	r.mu.Lock()
	r.buffering = false
	queued := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	for _, e := range queued {
		r.deliver(e)
	}
}

// Dispatch routes event to the listener registered for event.Kind, or
// queues it if the router is currently buffering.
func (r *ChainEventRouter) Dispatch(event Event) {
	r.mu.Lock()
	if r.buffering {
		r.buffer = append(r.buffer, event)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.deliver(event)
}

func (r *ChainEventRouter) deliver(event Event) {
	r.mu.Lock()
	listener, ok := r.listeners[event.Kind]
	r.mu.Unlock()

	if !ok {
		return
	}
	listener.OnEvent(event)
}
