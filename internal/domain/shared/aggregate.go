package shared

import (
	"time"
)

// EventSource is implemented by aggregates that queue events while they change
type EventSource interface {
	PullEvents() []DomainEvent
}

// BaseAggregateRoot carries the optimistic-lock version and the events raised since the last pull.
// Queued events are only worth publishing once the change that raised them has committed.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot starts a fresh aggregate at version 1
func NewBaseAggregateRoot(now time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntityAt(now),
		Version:    1,
	}
}

// IncrementVersion bumps the version after a structural change
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// Raise queues an event
func (a *BaseAggregateRoot) Raise(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PullEvents hands over the queued events and empties the queue
func (a *BaseAggregateRoot) PullEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
