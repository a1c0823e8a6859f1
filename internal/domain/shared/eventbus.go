package shared

import "context"

// EventHandler reacts to committed ledger events
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means every type
	EventTypes() []string
}

// EventPublisher is what the ledger service needs to announce committed changes.
// Publishing is fire-and-forget from the ledger's point of view.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus routes published events to subscribed handlers between Start and Stop
type EventBus interface {
	EventPublisher
	// Subscribe falls back to the handler's own EventTypes when no types are given
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
