package order

import (
	"context"
	"time"
)

// EventType names an order lifecycle transition.
type EventType string

const (
	EventPlaced    EventType = "placed"
	EventChanged   EventType = "changed"
	EventCancelled EventType = "cancelled"
)

// Event is emitted after a transition has been persisted.
type Event struct {
	Type  EventType
	Order Order
	At    time.Time
}

// Publisher receives order events. Failures never undo the transition.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
