// internal/events/handler.go
package events

import (
	"context"
	"sync"
)

// Handler processes events of a specific type.
type Handler interface {
	// Handle processes an event. It runs on the publisher's goroutine for
	// PublishSync, so it should return quickly.
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription represents a subscription to events.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	once     sync.Once
	id       string
	eventBus *Bus
	typ      EventType
}

// Unsubscribe removes this subscription from the event bus. Safe to call twice.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.eventBus.unsubscribe(s.id, s.typ)
	})
}

type nopSubscription struct{}

func (nopSubscription) Unsubscribe() {}

// NopSubscription returns a Subscription that does nothing.
func NopSubscription() Subscription { return nopSubscription{} }

// Publisher is the part of the bus producers depend on.
type Publisher interface {
	PublishSync(ctx context.Context, event Event) error
	Publish(event Event) error
}

// Subscriptions groups subscriptions so they can be released together.
type Subscriptions []Subscription

// Unsubscribe releases every subscription in the group.
func (s Subscriptions) Unsubscribe() {
	for _, sub := range s {
		sub.Unsubscribe()
	}
}
