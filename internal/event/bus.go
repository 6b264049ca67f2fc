package event

import (
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/Iron-Ham/chatcore/internal/logging"
)

// Handler is a function that handles an event.
type Handler func(Event)

// subscription represents a registered event handler.
type subscription struct {
	id        string
	eventType string
	handler   Handler
}

// wildcard is the event type of SubscribeAll subscriptions.
const wildcard = "*"

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used to report panicking handlers.
func WithLogger(l *logging.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// Bus is a synchronous pub-sub event bus. Publish runs the handlers on the
// publishing goroutine, so a single publisher yields a single, ordered
// delivery sequence.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription // eventType -> subscriptions
	logger        *logging.Logger
}

// NewBus creates a new event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subscriptions: make(map[string][]subscription),
		logger:        logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for a specific event type.
// Returns a subscription ID that can be used to unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscription{
		id:        uuid.NewString(),
		eventType: eventType,
		handler:   handler,
	}
	b.subscriptions[eventType] = append(b.subscriptions[eventType], sub)
	return sub.id
}

// SubscribeAll registers a handler for all event types.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				kept := make([]subscription, 0, len(subs)-1)
				kept = append(kept, subs[:i]...)
				b.subscriptions[eventType] = append(kept, subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish dispatches an event to all registered handlers.
// Specific handlers are called first, followed by wildcard handlers; within
// each group, handlers run in registration order. A panicking handler is
// logged and does not stop delivery to the others.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	specific := b.subscriptions[event.EventType()]
	all := b.subscriptions[wildcard]
	b.mu.RUnlock()

	// Unsubscribe replaces slices instead of editing them, so the snapshots
	// above stay valid without copying.
	for _, sub := range specific {
		b.safeCall(sub.handler, event)
	}
	for _, sub := range all {
		b.safeCall(sub.handler, event)
	}
}

func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event_type", event.EventType(),
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	handler(event)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = make(map[string][]subscription)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}

// ForAccount wraps h so that it only sees events of one account. Events
// that belong to no account (account id 0) pass through.
func ForAccount(accountID uint32, h Handler) Handler {
	return func(e Event) {
		if id := e.AccountID(); id == 0 || id == accountID {
			h(e)
		}
	}
}

// ForSelected is ForAccount with the account looked up on every event, for
// observers that follow the selected account.
func ForSelected(selected func() uint32, h Handler) Handler {
	return func(e Event) {
		if id := e.AccountID(); id == 0 || id == selected() {
			h(e)
		}
	}
}
